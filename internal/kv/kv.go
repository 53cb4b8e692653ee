// Package kv defines the single-slot persistence port the store writes its
// collection through.
package kv

import (
	"context"
	"errors"
)

// ErrClosed is returned by backends used after Close.
var ErrClosed = errors.New("kv: backend closed")

// Slot is a string key-value store. A missing key reports ok=false with a
// nil error.
type Slot interface {
	Get(ctx context.Context, key string) (value string, ok bool, err error)
	Set(ctx context.Context, key, value string) error
}
