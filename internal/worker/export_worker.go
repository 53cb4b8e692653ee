package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"cashbook/internal/amqp"
	"cashbook/internal/core"
	"cashbook/internal/export"
	"cashbook/internal/kv"
	"cashbook/internal/log"
	"cashbook/internal/sheets"
	"cashbook/internal/store"
)

// ExportWorker mirrors the persisted collection into a spreadsheet. It reads
// the slot directly, so it needs a backend shared with the web process.
type ExportWorker struct {
	slot   kv.Slot
	key    string
	sink   sheets.RowWriter
	logger *log.Logger
	now    func() time.Time

	mu         sync.Mutex
	lastStart  time.Time
	exportedAt time.Time // slot write time read by the last export
	exports    int
	skipped    int
}

// writeClock is implemented by slots that record when a key was last
// written, such as the SQLite repository.
type writeClock interface {
	UpdatedAt(ctx context.Context, key string) (time.Time, bool, error)
}

func NewExportWorker(slot kv.Slot, key string, sink sheets.RowWriter, logger *log.Logger) *ExportWorker {
	if key == "" {
		key = store.DefaultKey
	}
	if logger == nil {
		logger = log.Discard()
	}
	return &ExportWorker{
		slot:   slot,
		key:    key,
		sink:   sink,
		logger: logger.WithComponent(log.ComponentWorker),
		now:    time.Now,
	}
}

// HandleStoreChanged exports after a change event. Events published before
// the last completed export started are skipped: that export already read
// their effect from the slot.
func (w *ExportWorker) HandleStoreChanged(ctx context.Context, msg *amqp.StoreChangedMessage) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.lastStart.IsZero() && msg.Timestamp.Before(w.lastStart) {
		w.skipped++
		w.logger.DebugContext(ctx, "Skipping stale store change",
			log.FieldRevision, msg.Revision,
			log.FieldOperation, msg.Operation)
		return nil
	}

	err := w.exportLocked(ctx)
	if errors.Is(err, core.ErrCorruptStore) {
		// Redelivery cannot fix the payload; the periodic export keeps
		// reporting it until the store is reset.
		w.logger.LogError(ctx, "Slot payload is corrupt, dropping event", err, log.OpExport, nil)
		return nil
	}
	return err
}

// ExportNow rewrites the sheet from the current slot contents.
func (w *ExportWorker) ExportNow(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exportLocked(ctx)
}

// ExportIfChanged is the periodic export. It skips the rewrite when the slot
// reports no write since the last export; slots without a write clock are
// always exported.
func (w *ExportWorker) ExportIfChanged(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	written, ok, err := w.slotWrittenAt(ctx)
	if err != nil {
		return err
	}
	if ok && w.exports > 0 && written.Equal(w.exportedAt) {
		w.skipped++
		w.logger.DebugContext(ctx, "Slot unchanged, skipping export",
			log.FieldSlotWrittenAt, written)
		return nil
	}
	return w.exportLocked(ctx)
}

func (w *ExportWorker) slotWrittenAt(ctx context.Context) (time.Time, bool, error) {
	clock, ok := w.slot.(writeClock)
	if !ok {
		return time.Time{}, false, nil
	}
	ts, ok, err := clock.UpdatedAt(ctx, w.key)
	if err != nil {
		return time.Time{}, false, fmt.Errorf("read slot %s write time: %w", w.key, err)
	}
	return ts, ok, nil
}

func (w *ExportWorker) exportLocked(ctx context.Context) error {
	start := w.now()

	// Read before the payload: a write landing in between is picked up by
	// the next export instead of being marked as exported.
	written, _, err := w.slotWrittenAt(ctx)
	if err != nil {
		return err
	}

	payload, ok, err := w.slot.Get(ctx, w.key)
	if err != nil {
		return fmt.Errorf("read slot %s: %w", w.key, err)
	}
	if !ok {
		payload = ""
	}
	items, err := store.Decode(payload)
	if err != nil {
		return err
	}
	if err := w.sink.ReplaceRows(ctx, export.Rows(items)); err != nil {
		return fmt.Errorf("write export: %w", err)
	}

	w.lastStart = start
	w.exportedAt = written
	w.exports++
	w.logger.InfoContext(ctx, "Export complete",
		log.FieldCount, len(items),
		log.FieldSlotWrittenAt, written,
		log.FieldDuration, w.now().Sub(start).Milliseconds())
	return nil
}

// Stats returns completed and skipped export counts.
func (w *ExportWorker) Stats() (exports, skipped int) {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.exports, w.skipped
}

// Consumer feeds change events to a handler until ctx is done.
// (*amqp.Client).ConsumeStoreChanged has this shape.
type Consumer func(ctx context.Context, handler amqp.Handler) error

// Run exports once, then keeps exporting on every event from consume and,
// when the slot changed, every interval until ctx is cancelled. consume may
// be nil.
func (w *ExportWorker) Run(ctx context.Context, interval time.Duration, consume Consumer) error {
	if err := w.ExportNow(ctx); err != nil {
		w.logger.LogError(ctx, "Startup export failed", err, log.OpStartup, nil)
	}

	g, gctx := errgroup.WithContext(ctx)
	if consume != nil {
		g.Go(func() error {
			return consume(gctx, w.HandleStoreChanged)
		})
	}
	g.Go(func() error {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-gctx.Done():
				return gctx.Err()
			case <-ticker.C:
				if err := w.ExportIfChanged(gctx); err != nil {
					w.logger.LogError(gctx, "Periodic export failed", err, log.OpExport, nil)
				}
			}
		}
	})

	err := g.Wait()
	if errors.Is(err, context.Canceled) && ctx.Err() != nil {
		return nil
	}
	return err
}
