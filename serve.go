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
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"pcbaerp/internal/config"
	"pcbaerp/internal/server"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the HTTP API server",
	Args:  cobra.NoArgs,
	RunE:  runServe,
}

func runServe(cmd *cobra.Command, _ []string) error {
	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	app, closeDB, err := buildApp(ctx, cfg)
	if err != nil {
		return err
	}
	defer closeDB()

	srv := &http.Server{
		Addr:              cfg.Addr(),
		Handler:           app.Router(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("server listening",
			zap.String("addr", srv.Addr),
			zap.String("company", cfg.CompanyName),
			zap.Bool("persistent", cfg.Store.DBPath != ""),
			zap.Bool("insight", app.Insight.Configured()),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), app.Config().ShutdownTimeout())
		defer cancel()
		logger.Info("shutting down")
		return srv.Shutdown(shutdownCtx)
	})
	if configPath != "" {
		g.Go(func() error {
			return config.Watch(gctx, configPath, logger, func(next *config.Config) {
				applyFlags(next)
				reload(gctx, app, next)
			})
		})
	}
	return g.Wait()
}

// reload applies a changed configuration. Port and storage changes need a
// restart and are only reported.
func reload(ctx context.Context, app *server.App, next *config.Config) {
	prev := app.Config()
	if next.Server.Port != prev.Server.Port || next.Store.DBPath != prev.Store.DBPath {
		logger.Warn("port and storage changes apply after restart")
	}
	if next.Insight != prev.Insight {
		gen, err := newGenerator(ctx, next)
		if err != nil {
			logger.Warn("AI client rebuild failed, keeping previous", zap.Error(err))
		} else {
			app.Insight.SetGenerator(gen)
		}
	}
	app.Reload(next)
}
