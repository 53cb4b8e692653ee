// Package store owns the transaction collection. It rehydrates it once from a
// kv.Slot and writes the whole collection back after every mutation.
package store

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"cashbook/internal/core"
	"cashbook/internal/kv"
	"cashbook/internal/log"
)

// DefaultKey is the slot key the collection lives under.
const DefaultKey = "web3_transactions"

// Clock supplies the time used for id generation.
type Clock func() time.Time

type Option func(*Store)

func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

func WithClock(c Clock) Option {
	return func(s *Store) { s.now = c }
}

func WithLogger(l *log.Logger) Option {
	return func(s *Store) { s.logger = l.WithComponent(log.ComponentStore) }
}

// Store is safe for concurrent use. Mutations are serialized; each one
// builds the next collection, persists it and only then makes it visible.
type Store struct {
	slot   kv.Slot
	key    string
	now    Clock
	logger *log.Logger

	// writeMu serializes mutations including their persist step.
	writeMu sync.Mutex
	// mu guards the published state below.
	mu       sync.RWMutex
	items    []core.Transaction
	lastID   int64
	revision uint64
}

func New(slot kv.Slot, opts ...Option) *Store {
	s := &Store{
		slot:   slot,
		key:    DefaultKey,
		now:    time.Now,
		logger: log.Wrap(nil, log.ComponentStore),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Key returns the slot key in use.
func (s *Store) Key() string { return s.key }

// Decode parses a persisted payload. Empty input is an empty collection.
func Decode(payload string) ([]core.Transaction, error) {
	trimmed := strings.TrimSpace(payload)
	if trimmed == "" || trimmed == "null" {
		return []core.Transaction{}, nil
	}
	var items []core.Transaction
	if err := json.Unmarshal([]byte(trimmed), &items); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrCorruptStore, err)
	}
	if items == nil {
		items = []core.Transaction{}
	}
	return items, nil
}

// Encode is the inverse of Decode.
func Encode(items []core.Transaction) (string, error) {
	if items == nil {
		items = []core.Transaction{}
	}
	b, err := json.Marshal(items)
	if err != nil {
		return "", fmt.Errorf("encode transactions: %w", err)
	}
	return string(b), nil
}

// Load reads the slot and replaces the in-memory collection. A malformed
// payload leaves the current collection untouched and returns an error wrapping
// core.ErrCorruptStore.
func (s *Store) Load(ctx context.Context) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	raw, _, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return fmt.Errorf("load transactions: %w", err)
	}
	items, err := Decode(raw)
	if err != nil {
		return err
	}
	c := s.publish(items, maxID(items))
	s.logger.Info("transactions loaded", log.FieldCount, c.Count, log.FieldRevision, c.Revision)
	return nil
}

// Reset empties the collection and overwrites the slot.
func (s *Store) Reset(ctx context.Context) (Commit, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.persist(ctx, []core.Transaction{}); err != nil {
		return Commit{}, err
	}
	c := s.publish([]core.Transaction{}, s.currentLastID())
	s.logger.Warn("transactions reset", log.FieldRevision, c.Revision)
	return c, nil
}

// Quarantine copies the raw slot payload to a backup key and resets the
// store. It is the recovery path for core.ErrCorruptStore.
func (s *Store) Quarantine(ctx context.Context) (string, error) {
	raw, ok, err := s.slot.Get(ctx, s.key)
	if err != nil {
		return "", fmt.Errorf("read corrupt payload: %w", err)
	}
	backup := ""
	if ok {
		backup = fmt.Sprintf("%s.corrupt-%d", s.key, s.now().Unix())
		if err := s.slot.Set(ctx, backup, raw); err != nil {
			return "", fmt.Errorf("back up corrupt payload: %w", err)
		}
	}
	_, err = s.Reset(ctx)
	return backup, err
}

// Add stores f under a fresh id and returns the new transaction.
func (s *Store) Add(ctx context.Context, f core.Fields) (core.Transaction, Commit, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	id := s.nextIDLocked()
	next := make([]core.Transaction, len(s.items), len(s.items)+1)
	copy(next, s.items)
	s.mu.RUnlock()

	tx := f.WithID(id)
	next = append(next, tx)
	if err := s.persist(ctx, next); err != nil {
		return core.Transaction{}, Commit{}, err
	}
	c := s.publish(next, id)
	s.logger.Info("transaction added", log.NewFields().WithTransaction(tx).WithRevision(c.Revision).ToSlice()...)
	return tx, c, nil
}

// Update replaces the transaction with tx.ID in place.
func (s *Store) Update(ctx context.Context, tx core.Transaction) (Commit, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	idx := -1
	for i, it := range s.items {
		if it.ID == tx.ID {
			idx = i
			break
		}
	}
	if idx < 0 {
		s.mu.RUnlock()
		return Commit{}, fmt.Errorf("update %d: %w", tx.ID, core.ErrNotFound)
	}
	next := make([]core.Transaction, len(s.items))
	copy(next, s.items)
	lastID := s.lastID
	s.mu.RUnlock()

	next[idx] = tx
	if err := s.persist(ctx, next); err != nil {
		return Commit{}, err
	}
	c := s.publish(next, lastID)
	s.logger.Info("transaction updated", log.NewFields().WithTransaction(tx).WithRevision(c.Revision).ToSlice()...)
	return c, nil
}

// Delete removes every transaction with id. Nothing is written when no
// entry matched.
func (s *Store) Delete(ctx context.Context, id int64) (Commit, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	s.mu.RLock()
	next := make([]core.Transaction, 0, len(s.items))
	for _, it := range s.items {
		if it.ID != id {
			next = append(next, it)
		}
	}
	removed := len(s.items) - len(next)
	lastID := s.lastID
	s.mu.RUnlock()

	if removed == 0 {
		return Commit{}, fmt.Errorf("delete %d: %w", id, core.ErrNotFound)
	}
	if err := s.persist(ctx, next); err != nil {
		return Commit{}, err
	}
	c := s.publish(next, lastID)
	s.logger.Info("transaction deleted", log.FieldTransactionID, id, log.FieldRevision, c.Revision)
	return c, nil
}

// All returns a copy of the collection in insertion order.
func (s *Store) All() []core.Transaction {
	items, _ := s.Snapshot()
	return items
}

// Snapshot returns a copy of the collection together with the revision it
// belongs to.
func (s *Store) Snapshot() ([]core.Transaction, uint64) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := make([]core.Transaction, len(s.items))
	copy(out, s.items)
	return out, s.revision
}

func (s *Store) Get(id int64) (core.Transaction, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, it := range s.items {
		if it.ID == id {
			return it, true
		}
	}
	return core.Transaction{}, false
}

// Revision increases by one with every committed mutation, load and reset.
func (s *Store) Revision() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.revision
}

func (s *Store) persist(ctx context.Context, items []core.Transaction) error {
	payload, err := Encode(items)
	if err != nil {
		return err
	}
	if err := s.slot.Set(ctx, s.key, payload); err != nil {
		return fmt.Errorf("persist transactions: %w", err)
	}
	return nil
}

// Commit describes the collection right after a mutation was published.
type Commit struct {
	Revision uint64
	Count    int
}

func (s *Store) publish(items []core.Transaction, lastID int64) Commit {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	if lastID > s.lastID {
		s.lastID = lastID
	}
	s.revision++
	return Commit{Revision: s.revision, Count: len(items)}
}

func (s *Store) currentLastID() int64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.lastID
}

// nextIDLocked returns max(now in ms, last issued + 1, max live id + 1).
// Caller holds at least the read lock.
func (s *Store) nextIDLocked() int64 {
	id := s.now().UnixMilli()
	floor := s.lastID
	if m := maxID(s.items); m > floor {
		floor = m
	}
	if id <= floor {
		id = floor + 1
	}
	return id
}

func maxID(items []core.Transaction) int64 {
	var m int64
	for _, it := range items {
		if it.ID > m {
			m = it.ID
		}
	}
	return m
}
