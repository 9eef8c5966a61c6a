package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/shopspring/decimal"

	"smartspend/internal/backend"
	"smartspend/internal/config"
	"smartspend/internal/core"
	"smartspend/internal/events"
	"smartspend/internal/log"
	"smartspend/internal/services"
)

// App carries what every command needs once the root command has loaded
// configuration.
type App struct {
	cfg    *config.Config
	logger *log.Logger
	out    io.Writer
}

// ledgerHandle bundles an opened ledger with whatever must be released
// afterwards.
type ledgerHandle struct {
	ledger *services.LedgerService
	closeF []func() error
}

func (h *ledgerHandle) Close() error {
	var errs []error
	for i := len(h.closeF) - 1; i >= 0; i-- {
		if err := h.closeF[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (a *App) formatter() *core.MoneyFormatter {
	return core.NewMoneyFormatter(a.cfg.CurrencySymbol)
}

func (a *App) defaultBudget() (decimal.Decimal, error) {
	return a.cfg.Budget()
}

// openStore builds the configured store.
func (a *App) openStore(ctx context.Context) (*backend.Opened, error) {
	bcfg, err := backend.FromAppConfig(a.cfg)
	if err != nil {
		return nil, err
	}
	return backend.Open(ctx, bcfg, a.logger)
}

// openLedger opens the store and, when AMQP is configured, an event
// publisher. A broker that cannot be reached only disables events.
func (a *App) openLedger(ctx context.Context) (*ledgerHandle, error) {
	res, err := a.openStore(ctx)
	if err != nil {
		return nil, err
	}
	h := &ledgerHandle{closeF: []func() error{res.Close}}

	var publisher services.Publisher
	if a.cfg.AMQPEnabled() {
		client, err := events.NewClient(a.cfg.AMQPURL, a.cfg.AMQPExchange, a.cfg.AMQPQueue, a.logger)
		if err != nil {
			a.logger.Warn("Ledger events disabled: broker unavailable", log.FieldError, err.Error())
		} else {
			publisher = client
			h.closeF = append(h.closeF, client.Close)
		}
	}

	h.ledger = services.NewLedgerService(res.Store, publisher, a.logger)
	return h, nil
}

func (a *App) printf(format string, args ...any) {
	_, _ = fmt.Fprintf(a.out, format, args...)
}
