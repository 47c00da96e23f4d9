package main

import (
	"fmt"

	"go-casting-scout/internal/rules"
	"go-casting-scout/internal/runner"

	"github.com/spf13/cobra"
)

func seenCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "seen",
		Short: "Inspect and maintain the seen-listing state",
	}
	cmd.AddCommand(seenStatsCommand(), seenCleanupCommand(), seenForgetCommand())
	return cmd
}

func seenStatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show how many listings are remembered",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			store, err := runner.OpenStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			st := store.Stats()
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "backend:  %s\n", cfg.Seen.Backend)
			fmt.Fprintf(out, "entries:  %d\n", st.Entries)
			if st.Entries > 0 {
				fmt.Fprintf(out, "oldest:   %s\n", st.Oldest.Format("2006-01-02"))
				fmt.Fprintf(out, "newest:   %s\n", st.Newest.Format("2006-01-02"))
			}
			return nil
		},
	}
}

func seenCleanupCommand() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "cleanup",
		Short: "Drop entries older than the retention window",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			if !cmd.Flags().Changed("days") {
				r, err := rules.Load(cfg.RulesPath)
				if err != nil {
					return err
				}
				days = r.RetentionDays()
			}
			store, err := runner.OpenStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Cleanup(cmd.Context(), days)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "removed %d entries older than %d days, %d left\n", n, days, store.Len())
			return nil
		},
	}
	cmd.Flags().IntVar(&days, "days", 0, "retention in days (default from rule tables)")
	return cmd
}

func seenForgetCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "forget KEY...",
		Short: "Remove listings from the seen state so they are sent again",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := setup()
			if err != nil {
				return err
			}
			store, err := runner.OpenStore(cmd.Context(), cfg, log)
			if err != nil {
				return err
			}
			defer store.Close()

			n, err := store.Forget(cmd.Context(), args...)
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "forgot %d of %d keys\n", n, len(args))
			return nil
		},
	}
}
