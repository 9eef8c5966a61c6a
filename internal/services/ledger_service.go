package services

import (
	"context"
	"fmt"

	"smartspend/internal/core"
	"smartspend/internal/events"
	"smartspend/internal/log"
	"smartspend/internal/storage"
)

// Publisher announces ledger changes to other processes.
type Publisher interface {
	PublishLedgerEvent(ctx context.Context, ev *events.LedgerEvent) error
}

// LedgerService applies mutations to the store and publishes a ledger event
// for each one. Mutating methods return the reloaded ledger.
type LedgerService struct {
	store     storage.Store
	publisher Publisher
	logger    *log.Logger
	audit     *log.StructuredLogger
}

// NewLedgerService wires a store with an optional publisher (nil disables events).
func NewLedgerService(store storage.Store, publisher Publisher, logger *log.Logger) *LedgerService {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	logger = logger.WithComponent(log.ComponentLedger)
	return &LedgerService{
		store:     store,
		publisher: publisher,
		logger:    logger,
		audit:     log.NewStructuredLogger(logger),
	}
}

func (s *LedgerService) Load(ctx context.Context) ([]core.Expense, error) {
	ledger, err := s.store.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("load ledger: %w", err)
	}
	return ledger, nil
}

// Add appends e to the ledger.
func (s *LedgerService) Add(ctx context.Context, e core.Expense) ([]core.Expense, error) {
	if err := s.store.Append(ctx, e); err != nil {
		return nil, fmt.Errorf("save expense: %w", err)
	}
	ledger, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	index := len(ledger) - 1
	s.audit.LogLedgerChange(ctx, log.OpCreate, index, e.Description, e.Amount.String(), e.Category.String(), len(ledger))
	s.publish(ctx, events.NewLedgerEvent(events.ActionCreated, index, &e, len(ledger)))
	return ledger, nil
}

// Replace overwrites the record at index.
func (s *LedgerService) Replace(ctx context.Context, index int, e core.Expense) ([]core.Expense, error) {
	if err := s.store.Replace(ctx, index, e); err != nil {
		return nil, fmt.Errorf("update expense %d: %w", index, err)
	}
	ledger, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.audit.LogLedgerChange(ctx, log.OpUpdate, index, e.Description, e.Amount.String(), e.Category.String(), len(ledger))
	s.publish(ctx, events.NewLedgerEvent(events.ActionUpdated, index, &e, len(ledger)))
	return ledger, nil
}

// Delete removes the record at index.
func (s *LedgerService) Delete(ctx context.Context, index int) ([]core.Expense, error) {
	if err := s.store.Delete(ctx, index); err != nil {
		return nil, fmt.Errorf("delete expense %d: %w", index, err)
	}
	ledger, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	s.audit.LogLedgerChange(ctx, log.OpDelete, index, "", "", "", len(ledger))
	s.publish(ctx, events.NewLedgerEvent(events.ActionDeleted, index, nil, len(ledger)))
	return ledger, nil
}

// ReplaceAll overwrites the whole ledger, e.g. when importing a file.
func (s *LedgerService) ReplaceAll(ctx context.Context, ledger []core.Expense) error {
	if err := s.store.Save(ctx, ledger); err != nil {
		return fmt.Errorf("save ledger: %w", err)
	}
	s.logger.InfoContext(ctx, "Ledger replaced", log.FieldLedgerSize, len(ledger))
	s.publish(ctx, events.NewLedgerEvent(events.ActionReplaced, -1, nil, len(ledger)))
	return nil
}

// publish is best effort: the ledger is already persisted.
func (s *LedgerService) publish(ctx context.Context, ev *events.LedgerEvent) {
	if s.publisher == nil {
		s.logger.DebugContext(ctx, "No event publisher configured, skipping ledger event")
		return
	}
	if err := s.publisher.PublishLedgerEvent(ctx, ev); err != nil {
		s.logger.ErrorContext(ctx, "Failed to publish ledger event",
			log.FieldEventAction, string(ev.Action),
			log.FieldExpenseIndex, ev.Index,
			log.FieldError, err.Error())
	}
}
