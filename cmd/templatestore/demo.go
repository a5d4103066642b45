package main

import (
	"context"

	"github.com/spf13/cobra"

	"github.com/vango-dev/templatestore/pkg/store"
)

func demoCmd() *cobra.Command {
	var mode string

	cmd := &cobra.Command{
		Use:   "demo",
		Short: "Run a producer/consumer scenario",
		Long: `Run a scripted scenario against an in-memory store.

Consumers for two cards and one session-wide consumer are mounted, then a
producer changes values. Each consumer prints a line whenever it re-runs,
showing that only the consumers of a changed key are re-run.

Examples:
  templatestore demo
  templatestore demo --mode=deferred`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if err := applyModeFlag(cfg, mode); err != nil {
				return err
			}

			logger := cfg.Logger()
			st := store.New(store.WithLogger(logger))
			sched := newScheduler(cfg)

			out := cmd.OutOrStdout()
			info(out, "scheduler mode: %s", sched.Mode())

			sc := newScenario(out, st, sched)
			sc.run(context.Background())
			sc.dispose()
			return nil
		},
	}

	cmd.Flags().StringVarP(&mode, "mode", "m", "", "Scheduler mode: immediate or deferred (default from config)")

	return cmd
}
