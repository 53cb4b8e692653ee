// Package memory is an in-process kv.Slot for tests and throwaway runs.
package memory

import (
	"context"
	"sync"

	"cashbook/internal/kv"
)

// Slot keeps values in a map.
type Slot struct {
	mu      sync.RWMutex
	values  map[string]string
	failSet error
	writes  int
}

var _ kv.Slot = (*Slot)(nil)

func New() *Slot {
	return &Slot{values: make(map[string]string)}
}

// NewWith seeds the slot with initial values.
func NewWith(values map[string]string) *Slot {
	s := New()
	for k, v := range values {
		s.values[k] = v
	}
	return s
}

func (s *Slot) Get(ctx context.Context, key string) (string, bool, error) {
	if err := ctx.Err(); err != nil {
		return "", false, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.values[key]
	return v, ok, nil
}

func (s *Slot) Set(ctx context.Context, key, value string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failSet != nil {
		return s.failSet
	}
	s.values[key] = value
	s.writes++
	return nil
}

// Writes counts successful Set calls.
func (s *Slot) Writes() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.writes
}

// SetFailure makes subsequent writes fail with err; nil restores them.
func (s *Slot) SetFailure(err error) {
	s.mu.Lock()
	s.failSet = err
	s.mu.Unlock()
}
