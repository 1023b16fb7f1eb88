package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/bookbound/library/internal/api"
)

const shutdownTimeout = 15 * time.Second

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (and the job workers unless RUN_WORKERS=false)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	e := api.NewRouter(api.Deps{
		Auth:       a.authSvc,
		Users:      a.userSvc,
		Cards:      a.cardSvc,
		Loans:      a.loanSvc,
		Books:      a.bookSvc,
		Authors:    a.authorSvc,
		Enrichment: a.enrichmentSvc,
		Tokens:     a.tokens,
		Health:     a.healthChecks(),
		Log:        a.log,
	})

	if a.cfg.Queue.RunWorkers {
		workerCtx, cancelWorkers := context.WithCancel(ctx)
		d := a.newDispatcher()
		d.Start(workerCtx)
		defer func() {
			cancelWorkers()
			d.Wait()
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		a.log.Info().Str("port", a.cfg.Port).Msg("server starting")
		if err := e.Start(":" + a.cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
	}

	a.log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), shutdownTimeout)
	defer cancel()
	if err := e.Shutdown(shutdownCtx); err != nil {
		a.log.Error().Err(err).Msg("server shutdown error")
		return err
	}
	a.log.Info().Msg("server stopped")
	return nil
}

// signalContext is used by long-running commands that do not serve HTTP.
func signalContext(parent context.Context) (context.Context, context.CancelFunc) {
	return signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
}
