package services

import (
	"context"
	"fmt"

	"cashbook/internal/amqp"
	"cashbook/internal/core"
	"cashbook/internal/export"
	"cashbook/internal/log"
	"cashbook/internal/store"
)

// ChangePublisher announces committed mutations. *amqp.Client implements it.
type ChangePublisher interface {
	PublishStoreChanged(ctx context.Context, msg *amqp.StoreChangedMessage) error
}

// LedgerService is the single entry point for reading and changing the
// transaction collection. Both the HTML handlers and the JSON API use it.
type LedgerService struct {
	store     *store.Store
	publisher ChangePublisher
	logger    *log.Logger
}

// View is everything the page needs for one render, taken from a single
// store snapshot. Totals and Breakdown cover the whole collection; Items is
// the filtered list.
type View struct {
	Items     []core.Transaction
	Totals    core.Totals
	Breakdown []core.CategoryAmount
	Revision  uint64
	Count     int
}

// NewLedgerService wires the store to an optional publisher (nil disables
// change events).
func NewLedgerService(st *store.Store, publisher ChangePublisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.Wrap(nil, log.ComponentApp)
	}
	return &LedgerService{store: st, publisher: publisher, logger: logger.WithComponent(log.ComponentStore)}
}

// Submit adds when the session is empty and updates the session's id
// otherwise. updated reports which one happened.
func (s *LedgerService) Submit(ctx context.Context, session core.EditSession, f core.Fields) (tx core.Transaction, updated bool, err error) {
	if session.IsEdit() {
		tx, err = s.Update(ctx, session.ID, f)
		return tx, true, err
	}
	tx, err = s.Create(ctx, f)
	return tx, false, err
}

func (s *LedgerService) Create(ctx context.Context, f core.Fields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx, c, err := s.store.Add(ctx, f)
	if err != nil {
		return core.Transaction{}, fmt.Errorf("add transaction: %w", err)
	}
	s.publish(ctx, c, amqp.OpAdd, tx.ID)
	return tx, nil
}

func (s *LedgerService) Update(ctx context.Context, id int64, f core.Fields) (core.Transaction, error) {
	if err := f.Validate(); err != nil {
		return core.Transaction{}, err
	}
	tx := f.WithID(id)
	c, err := s.store.Update(ctx, tx)
	if err != nil {
		return core.Transaction{}, err
	}
	s.publish(ctx, c, amqp.OpUpdate, id)
	return tx, nil
}

func (s *LedgerService) Delete(ctx context.Context, id int64) error {
	c, err := s.store.Delete(ctx, id)
	if err != nil {
		return err
	}
	s.publish(ctx, c, amqp.OpDelete, id)
	return nil
}

func (s *LedgerService) Reset(ctx context.Context) error {
	c, err := s.store.Reset(ctx)
	if err != nil {
		return err
	}
	s.publish(ctx, c, amqp.OpReset, 0)
	return nil
}

func (s *LedgerService) Get(id int64) (core.Transaction, bool) {
	return s.store.Get(id)
}

// Revision is the store revision; it changes with every committed mutation.
func (s *LedgerService) Revision() uint64 {
	return s.store.Revision()
}

// Snapshot returns the whole collection and its revision.
func (s *LedgerService) Snapshot() ([]core.Transaction, uint64) {
	return s.store.Snapshot()
}

func (s *LedgerService) View(f core.Filter) View {
	items, rev := s.store.Snapshot()
	return View{
		Items:     core.FilterTransactions(items, f),
		Totals:    core.ComputeTotals(items),
		Breakdown: core.CategoryBreakdown(items),
		Revision:  rev,
		Count:     len(items),
	}
}

// Export renders the whole collection in collection order.
func (s *LedgerService) Export(f export.Format) (export.Document, error) {
	items, _ := s.store.Snapshot()
	return export.Render(f, items)
}

// publish never fails the caller: the mutation is already committed. The
// message describes c, the state that mutation produced.
func (s *LedgerService) publish(ctx context.Context, c store.Commit, op string, id int64) {
	if s.publisher == nil {
		return
	}
	msg := amqp.NewStoreChangedMessage(c.Revision, op, id, c.Count)
	if err := s.publisher.PublishStoreChanged(ctx, msg); err != nil {
		s.logger.LogError(ctx, "failed to publish store change", err, op,
			log.NewFields().WithRevision(msg.Revision))
	}
}
