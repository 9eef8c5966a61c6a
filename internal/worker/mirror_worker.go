package worker

import (
	"context"
	"errors"
	"fmt"
	"time"

	"smartspend/internal/core"
	"smartspend/internal/events"
	"smartspend/internal/log"
	"smartspend/internal/sheets"
)

type (
	// LedgerLoader is the read side of storage.Store.
	LedgerLoader interface {
		Load(ctx context.Context) ([]core.Expense, error)
	}

	// EventSource delivers ledger events until ctx is done or the
	// underlying connection drops.
	EventSource interface {
		ConsumeLedgerEvents(ctx context.Context, handler func(context.Context, *events.LedgerEvent) error) error
		Reconnect() error
	}
)

// MirrorWorker keeps a spreadsheet copy of the ledger up to date. Every
// event triggers a full rewrite, so lost or reordered events are healed by
// the next one.
type MirrorWorker struct {
	store   LedgerLoader
	sheet   sheets.LedgerSheet
	logger  *log.Logger
	backoff func(attempt int) time.Duration
}

func NewMirrorWorker(store LedgerLoader, sheet sheets.LedgerSheet, logger *log.Logger) *MirrorWorker {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &MirrorWorker{
		store:   store,
		sheet:   sheet,
		logger:  logger.WithComponent(log.ComponentWorker),
		backoff: events.ReconnectDelay,
	}
}

// HandleLedgerEvent processes a single ledger event from AMQP.
func (w *MirrorWorker) HandleLedgerEvent(ctx context.Context, ev *events.LedgerEvent) error {
	w.logger.InfoContext(ctx, "Processing ledger event",
		log.FieldEventAction, string(ev.Action),
		log.FieldExpenseIndex, ev.Index,
		log.FieldLedgerSize, ev.Count)

	ledger, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	if err := w.sheet.MirrorLedger(ctx, ledger); err != nil {
		return fmt.Errorf("mirror ledger: %w", err)
	}

	w.logger.InfoContext(ctx, "Ledger mirrored", log.FieldLedgerSize, len(ledger))
	return nil
}

// Reconcile compares the sheet with the local ledger and rewrites the sheet
// when they differ. It recovers from events missed while the worker was down.
func (w *MirrorWorker) Reconcile(ctx context.Context) error {
	local, err := w.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load ledger: %w", err)
	}
	remote, skipped, err := w.sheet.ReadLedger(ctx)
	if err != nil {
		return fmt.Errorf("read sheet: %w", err)
	}

	if skipped == 0 && sameLedger(local, remote) {
		w.logger.InfoContext(ctx, "Sheet already in sync", log.FieldLedgerSize, len(local))
		return nil
	}

	w.logger.InfoContext(ctx, "Sheet out of sync, rewriting",
		"local_rows", len(local),
		"sheet_rows", len(remote),
		"unparsable_rows", skipped)

	if err := w.sheet.MirrorLedger(ctx, local); err != nil {
		return fmt.Errorf("mirror ledger: %w", err)
	}
	return nil
}

// Run consumes events until ctx is cancelled, reconnecting with backoff
// whenever the consumer stops.
func (w *MirrorWorker) Run(ctx context.Context, src EventSource) error {
	attempt := 0
	for {
		err := src.ConsumeLedgerEvents(ctx, w.HandleLedgerEvent)
		if ctx.Err() != nil {
			return nil
		}
		if err != nil && !errors.Is(err, context.Canceled) {
			w.logger.ErrorContext(ctx, "Message consumption stopped", log.FieldError, err.Error())
		}

		delay := w.backoff(attempt)
		attempt++
		w.logger.InfoContext(ctx, "Reconnecting to broker", "attempt", attempt, "delay", delay)

		select {
		case <-ctx.Done():
			return nil
		case <-time.After(delay):
		}

		if err := src.Reconnect(); err != nil {
			w.logger.ErrorContext(ctx, "Reconnect failed", log.FieldError, err.Error())
			continue
		}
		attempt = 0
	}
}

// RunPeriodicReconcile calls Reconcile every interval until ctx is done.
func (w *MirrorWorker) RunPeriodicReconcile(ctx context.Context, interval time.Duration) {
	if interval <= 0 {
		return
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := w.Reconcile(ctx); err != nil {
				w.logger.ErrorContext(ctx, "Periodic reconcile failed", log.FieldError, err.Error())
			}
		}
	}
}

func sameLedger(a, b []core.Expense) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if !a[i].Date.Equal(b[i].Date.Time) ||
			!a[i].Amount.Equal(b[i].Amount) ||
			a[i].Category != b[i].Category ||
			a[i].Description != b[i].Description {
			return false
		}
	}
	return true
}
