package worker

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cashbook/internal/amqp"
	"cashbook/internal/export"
	kvmemory "cashbook/internal/kv/memory"
	sheetmemory "cashbook/internal/sheets/memory"
	"cashbook/internal/storage"
	"cashbook/internal/store"
)

const payload = `[
  {"id":1,"title":"Salary","amount":5000,"category":"Salary","date":"2024-01-01","description":"","paymentMethod":"Bank Transfer","type":"Income"},
  {"id":2,"title":"Coffee, large","amount":150.5,"category":"Food","date":"2024-01-02","description":"","paymentMethod":"Cash","type":"Expense"}
]`

func newWorker(t *testing.T, values map[string]string) (*ExportWorker, *sheetmemory.Sheet, *time.Time) {
	t.Helper()
	sink := sheetmemory.New()
	w := NewExportWorker(kvmemory.NewWith(values), "", sink, nil)
	now := time.Date(2024, 1, 10, 12, 0, 0, 0, time.UTC)
	w.now = func() time.Time { return now }
	return w, sink, &now
}

func TestExportNowWritesRows(t *testing.T) {
	w, sink, _ := newWorker(t, map[string]string{store.DefaultKey: payload})

	require.NoError(t, w.ExportNow(context.Background()))

	rows := sink.Rows()
	require.Len(t, rows, 3)
	assert.Equal(t, export.Header, rows[0])
	assert.Equal(t, []string{"Salary", "5000", "Salary", "2024-01-01", "", "Bank Transfer", "Income"}, rows[1])
	assert.Equal(t, "Coffee, large", rows[2][0])
	assert.Equal(t, "150.5", rows[2][1])
}

func TestExportNowEmptySlotWritesHeaderOnly(t *testing.T) {
	w, sink, _ := newWorker(t, nil)
	require.NoError(t, w.ExportNow(context.Background()))
	assert.Equal(t, [][]string{export.Header}, sink.Rows())
}

func TestHandleStoreChangedSkipsStaleEvents(t *testing.T) {
	w, sink, now := newWorker(t, map[string]string{store.DefaultKey: payload})
	ctx := context.Background()

	first := &amqp.StoreChangedMessage{Revision: 1, Operation: amqp.OpAdd, Timestamp: now.Add(-time.Minute)}
	require.NoError(t, w.HandleStoreChanged(ctx, first))
	assert.Equal(t, 1, sink.Writes())

	// published before the export above started reading the slot
	stale := &amqp.StoreChangedMessage{Revision: 2, Operation: amqp.OpAdd, Timestamp: now.Add(-time.Second)}
	require.NoError(t, w.HandleStoreChanged(ctx, stale))
	assert.Equal(t, 1, sink.Writes())

	*now = now.Add(time.Minute)
	fresh := &amqp.StoreChangedMessage{Revision: 3, Operation: amqp.OpDelete, Timestamp: now.Add(-time.Second)}
	require.NoError(t, w.HandleStoreChanged(ctx, fresh))
	assert.Equal(t, 2, sink.Writes())

	exports, skipped := w.Stats()
	assert.Equal(t, 2, exports)
	assert.Equal(t, 1, skipped)
}

func TestHandleStoreChangedSinkFailureRequeues(t *testing.T) {
	w, sink, now := newWorker(t, map[string]string{store.DefaultKey: payload})
	boom := errors.New("quota exceeded")
	sink.SetFailure(boom)

	err := w.HandleStoreChanged(context.Background(), &amqp.StoreChangedMessage{Operation: amqp.OpAdd, Timestamp: *now})
	assert.ErrorIs(t, err, boom)

	// a failed export does not advance the staleness mark
	sink.SetFailure(nil)
	require.NoError(t, w.HandleStoreChanged(context.Background(), &amqp.StoreChangedMessage{Operation: amqp.OpAdd, Timestamp: now.Add(-time.Hour)}))
	assert.Equal(t, 1, sink.Writes())
}

func TestHandleStoreChangedCorruptSlotIsDropped(t *testing.T) {
	w, sink, now := newWorker(t, map[string]string{store.DefaultKey: "{not json"})

	err := w.HandleStoreChanged(context.Background(), &amqp.StoreChangedMessage{Operation: amqp.OpAdd, Timestamp: *now})
	assert.NoError(t, err)
	assert.Zero(t, sink.Writes())
	assert.Error(t, w.ExportNow(context.Background()))
}

func TestRunStopsOnCancel(t *testing.T) {
	w, sink, now := newWorker(t, map[string]string{store.DefaultKey: payload})
	ctx, cancel := context.WithCancel(context.Background())

	events := make(chan *amqp.StoreChangedMessage, 1)
	events <- &amqp.StoreChangedMessage{Operation: amqp.OpUpdate, Timestamp: now.Add(time.Second)}
	handled := make(chan struct{})
	consume := func(ctx context.Context, h amqp.Handler) error {
		for {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case msg := <-events:
				if err := h(ctx, msg); err != nil {
					return err
				}
				close(handled)
			}
		}
	}

	done := make(chan error, 1)
	go func() { done <- w.Run(ctx, time.Hour, consume) }()

	select {
	case <-handled:
	case <-time.After(5 * time.Second):
		t.Fatal("event was not handled")
	}
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	assert.Equal(t, 2, sink.Writes(), "startup export plus one event")
}

// clockedSlot reports a settable write time like the SQLite repository.
type clockedSlot struct {
	*kvmemory.Slot
	written time.Time
}

func (s *clockedSlot) UpdatedAt(context.Context, string) (time.Time, bool, error) {
	return s.written, !s.written.IsZero(), nil
}

func TestExportIfChangedSkipsUnwrittenSlot(t *testing.T) {
	ctx := context.Background()
	slot := &clockedSlot{
		Slot:    kvmemory.NewWith(map[string]string{store.DefaultKey: payload}),
		written: time.Date(2024, 1, 10, 11, 0, 0, 0, time.UTC),
	}
	sink := sheetmemory.New()
	w := NewExportWorker(slot, "", sink, nil)

	require.NoError(t, w.ExportIfChanged(ctx))
	assert.Equal(t, 1, sink.Writes(), "first export always runs")

	require.NoError(t, w.ExportIfChanged(ctx))
	assert.Equal(t, 1, sink.Writes())
	_, skipped := w.Stats()
	assert.Equal(t, 1, skipped)

	slot.written = slot.written.Add(time.Millisecond)
	require.NoError(t, w.ExportIfChanged(ctx))
	assert.Equal(t, 2, sink.Writes())

	// An explicit export ignores the clock.
	require.NoError(t, w.ExportNow(ctx))
	assert.Equal(t, 3, sink.Writes())
}

func TestExportIfChangedWithoutClockAlwaysExports(t *testing.T) {
	w, sink, _ := newWorker(t, map[string]string{store.DefaultKey: payload})
	require.NoError(t, w.ExportIfChanged(context.Background()))
	require.NoError(t, w.ExportIfChanged(context.Background()))
	assert.Equal(t, 2, sink.Writes())
}

func TestExportIfChangedFollowsSQLiteWrites(t *testing.T) {
	ctx := context.Background()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "cashbook.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })
	require.NoError(t, repo.Set(ctx, store.DefaultKey, payload))

	sink := sheetmemory.New()
	w := NewExportWorker(repo, "", sink, nil)

	require.NoError(t, w.ExportIfChanged(ctx))
	require.NoError(t, w.ExportIfChanged(ctx))
	assert.Equal(t, 1, sink.Writes())

	require.NoError(t, repo.Set(ctx, store.DefaultKey, "[]"))
	require.NoError(t, w.ExportIfChanged(ctx))
	assert.Equal(t, 2, sink.Writes())
	assert.Equal(t, [][]string{export.Header}, sink.Rows())
}
