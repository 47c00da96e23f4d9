// Command scraper runs one casting scrape cycle and manages the seen state.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go-casting-scout/internal/config"
	"go-casting-scout/internal/logger"
	"go-casting-scout/internal/runner"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

var (
	cfgFile string
	dryRun  bool
	debug   bool
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := rootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func rootCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "scraper",
		Short:         "Scrape LA casting calls and deliver a digest",
		Long:          "Collects casting calls from every enabled source, filters them for the profile, drops ones already sent and delivers the rest as a categorized digest.",
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE:          runCycle,
	}
	cmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default configs/config.yaml or $CASTING_CONFIG)")
	cmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the digest instead of sending it and leave the seen state untouched")

	cmd.AddCommand(seenCommand())
	return cmd
}

// setup loads config and builds the logger shared by every subcommand.
func setup() (*config.Config, *zap.SugaredLogger, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, nil, err
	}
	level := cfg.LogLevel
	if debug {
		level = "debug"
	}
	log, err := logger.New(level, cfg.Development)
	if err != nil {
		return nil, nil, err
	}
	return cfg, log, nil
}

func runCycle(cmd *cobra.Command, _ []string) error {
	cfg, log, err := setup()
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()

	app, err := runner.Wire(cmd.Context(), cfg, log, runner.Options{DryRun: dryRun, Console: cmd.OutOrStdout()})
	if err != nil {
		return fmt.Errorf("wire scout: %w", err)
	}
	defer func() {
		if err := app.Close(); err != nil {
			log.Warnw("Close failed", "error", err)
		}
	}()

	rep, err := app.RunOnce(cmd.Context(), cfg.ScrapeTimeout)
	if errors.Is(err, runner.ErrAllSourcesFailed) {
		log.Errorw("Every source failed, no digest sent", "failed", rep.Failed)
	}
	return err
}
