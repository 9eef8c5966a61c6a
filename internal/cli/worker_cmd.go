package cli

import (
	"context"
	"errors"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smartspend/internal/events"
	"smartspend/internal/log"
	gsheet "smartspend/internal/sheets/google"
	"smartspend/internal/worker"
)

func newSyncWorkerCmd(app *App) *cobra.Command {
	var interval time.Duration
	cmd := &cobra.Command{
		Use:   "sync-worker",
		Short: "Mirror the ledger to Google Sheets on every ledger event",
		Long: "Consume ledger events from AMQP and rewrite the configured Google Sheet tab with the\n" +
			"whole ledger. The sheet is reconciled at startup and every --reconcile-interval.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := SignalContext(cmd.Context())
			defer stop()
			return runSyncWorker(ctx, app, interval)
		},
	}
	cmd.Flags().DurationVar(&interval, "reconcile-interval", 15*time.Minute, "How often to compare the sheet with the ledger (0 disables)")
	return cmd
}

func runSyncWorker(ctx context.Context, app *App, interval time.Duration) error {
	cfg := app.cfg
	logger := app.logger

	if !cfg.AMQPEnabled() {
		return errors.New("sync-worker needs AMQP_URL")
	}
	if !cfg.SheetsEnabled() {
		return errors.New("sync-worker needs GOOGLE_SPREADSHEET_ID")
	}

	res, err := app.openStore(ctx)
	if err != nil {
		return err
	}
	defer func() { _ = res.Close() }()

	sheet, err := gsheet.NewClient(ctx, gsheet.Config{
		SpreadsheetID:   cfg.GoogleSpreadsheetID,
		SheetName:       cfg.GoogleSheetName,
		CredentialsJSON: cfg.GoogleServiceAccountJSON,
		CredentialsFile: cfg.GoogleServiceAccountFile,
	}, logger)
	if err != nil {
		return err
	}
	logger.Info("Google Sheets client initialized", log.FieldSpreadsheetID, cfg.GoogleSpreadsheetID)

	broker, err := events.NewClient(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
	if err != nil {
		return err
	}
	defer func() { _ = broker.Close() }()

	w := worker.NewMirrorWorker(res.Store, sheet, logger)

	logger.Info("Performing startup reconcile")
	if err := w.Reconcile(ctx); err != nil {
		logger.Error("Startup reconcile failed", log.FieldError, err.Error())
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return w.Run(gctx, broker)
	})
	g.Go(func() error {
		w.RunPeriodicReconcile(gctx, interval)
		return nil
	})

	err = g.Wait()
	logger.Info("Worker shutdown complete")
	return err
}
