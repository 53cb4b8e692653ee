// Package backend builds the persistence slot selected by configuration.
package backend

import (
	"context"

	"cashbook/internal/kv"
)

// CleanupFunc releases whatever the backend holds open.
type CleanupFunc func() error

// BackendResult contains the slot and its cleanup function (never nil).
type BackendResult struct {
	Slot    kv.Slot
	Type    BackendType
	Cleanup CleanupFunc
}

// Ping checks the backend when it supports it; other backends are always
// ready.
func (r *BackendResult) Ping(ctx context.Context) error {
	if p, ok := r.Slot.(interface{ Ping(context.Context) error }); ok {
		return p.Ping(ctx)
	}
	return nil
}

// Config holds what the factory needs per backend type.
type Config struct {
	Type BackendType

	// SQLite specific
	SQLiteDBPath string

	// File specific
	DataDir string
}

type BackendType string

const (
	SQLiteBackend BackendType = "sqlite"
	FileBackend   BackendType = "file"
	MemoryBackend BackendType = "memory"
)

func (bt BackendType) String() string {
	return string(bt)
}

func (bt BackendType) IsValid() bool {
	switch bt {
	case SQLiteBackend, FileBackend, MemoryBackend:
		return true
	default:
		return false
	}
}

// Shared reports whether a second process can see the same data.
func (bt BackendType) Shared() bool {
	return bt == SQLiteBackend || bt == FileBackend
}
