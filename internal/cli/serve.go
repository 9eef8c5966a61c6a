package cli

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"smartspend/internal/cache"
	"smartspend/internal/core"
	apphttp "smartspend/internal/http"
	"smartspend/internal/log"
	"smartspend/internal/services"
	"smartspend/internal/session"
)

const (
	shutdownTimeout      = 30 * time.Second
	sessionSweepInterval = 10 * time.Minute
)

func newServeCmd(app *App) *cobra.Command {
	var (
		secureCookies  bool
		trustedProxies []string
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the web dashboard",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := SignalContext(cmd.Context())
			defer stop()
			return runServe(ctx, app, secureCookies, trustedProxies)
		},
	}
	cmd.Flags().BoolVar(&secureCookies, "secure-cookies", false, "Mark the session cookie Secure (serve behind HTTPS)")
	cmd.Flags().StringSliceVar(&trustedProxies, "trusted-proxy", nil, "CIDR of a reverse proxy whose forwarding headers are trusted (repeatable)")
	return cmd
}

func runServe(ctx context.Context, app *App, secureCookies bool, trustedProxies []string) error {
	cfg := app.cfg
	logger := app.logger

	budget, err := cfg.Budget()
	if err != nil {
		return err
	}

	h, err := app.openLedger(ctx)
	if err != nil {
		return err
	}
	defer func() {
		if err := h.Close(); err != nil {
			logger.Error("Failed to release ledger resources", log.FieldError, err.Error())
		}
	}()

	sessions := session.NewManager(budget, cfg.SessionTTL, logger)
	sessions.SetSecureCookies(secureCookies)

	sweeper := cache.NewSweeper(logger.WithComponent(log.ComponentSession))
	sweeper.Register("sessions", sessions.Cleaner())

	srv, err := apphttp.NewServer(apphttp.Options{
		Addr:               ":" + cfg.Port,
		Dashboard:          services.NewDashboard(h.ledger, logger),
		Sessions:           sessions,
		Formatter:          core.NewMoneyFormatter(cfg.CurrencySymbol),
		Currency:           cfg.CurrencySymbol,
		RateLimitPerMinute: cfg.RateLimitPerMinute,
		TrustedProxies:     trustedProxies,
		Logger:             logger,
	})
	if err != nil {
		return err
	}

	srv.RegisterCaches(sweeper)

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		sweeper.Run(gctx, sessionSweepInterval)
		return nil
	})
	g.Go(func() error {
		logger.Info("Starting smartspend server",
			"port", cfg.Port,
			log.FieldBackend, cfg.DataBackend,
			"events", cfg.AMQPEnabled())
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Shutting down server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error("Server shutdown error", log.FieldError, err.Error())
			return err
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return err
	}
	logger.Info("Server stopped gracefully")
	return nil
}
