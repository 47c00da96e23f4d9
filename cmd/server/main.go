// Command server runs the scout as a daemon: cycles on a cron schedule, plus
// an HTTP API for health, metrics, status and manual runs.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go-casting-scout/internal/api"
	"go-casting-scout/internal/archive"
	"go-casting-scout/internal/config"
	"go-casting-scout/internal/logger"
	"go-casting-scout/internal/metrics"
	"go-casting-scout/internal/runner"
	"go-casting-scout/internal/scheduler"

	"github.com/spf13/cobra"
)

const shutdownTimeout = 30 * time.Second

func main() {
	var cfgFile string
	var runOnStart bool
	cmd := &cobra.Command{
		Use:           "server",
		Short:         "Run scrape cycles on a schedule and serve the HTTP API",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(*cobra.Command, []string) error {
			return serve(cfgFile, runOnStart)
		},
	}
	cmd.Flags().StringVar(&cfgFile, "config", "", "config file (default configs/config.yaml or $CASTING_CONFIG)")
	cmd.Flags().BoolVar(&runOnStart, "run-on-start", false, "run a cycle immediately instead of waiting for the first tick")

	if err := cmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func serve(cfgFile string, runOnStart bool) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return err
	}
	log, err := logger.New(cfg.LogLevel, cfg.Development)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	app, err := runner.Wire(ctx, cfg, log, runner.Options{Metrics: m})
	if err != nil {
		return fmt.Errorf("wire scout: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warnw("Close failed", "error", err)
		}
	}()

	job := func(ctx context.Context) error {
		_, err := app.Runner.Run(ctx)
		return err
	}
	sched, err := scheduler.New(cfg.Schedule, job, cfg.ScrapeTimeout, log.Named("scheduler"))
	if err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}
	defer sched.Stop()

	var history api.History = archive.NewFile(cfg.ArchiveDir)
	if app.Postgres != nil {
		history = app.Postgres
	}
	srv := api.New(":"+cfg.Port, api.Deps{
		Scheduler: sched,
		Seen:      app.Store,
		History:   history,
		Metrics:   m.Handler(),
		Log:       log.Named("api"),
	}, cfg.Development)

	errCh := make(chan error, 1)
	go func() { errCh <- srv.ListenAndServe() }()

	if runOnStart {
		if err := sched.Trigger(); err != nil {
			log.Warnw("Initial run not started", "error", err)
		}
	}

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("http server: %w", err)
		}
	case <-ctx.Done():
		log.Info("Shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
