package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/templatestore/internal/config"
	"github.com/vango-dev/templatestore/internal/errors"
	"github.com/vango-dev/templatestore/pkg/reactive"
)

// loadConfig reads the file named by --config, else templatestore.yaml in
// the working directory if present, else returns defaults.
func loadConfig(cmd *cobra.Command) (*config.Config, error) {
	path, _ := cmd.Flags().GetString("config")
	if path != "" {
		return config.LoadFile(path)
	}
	if config.Exists(".") {
		return config.Load(".")
	}
	return config.New(), nil
}

// applyModeFlag overrides the scheduler mode from a --mode flag.
func applyModeFlag(cfg *config.Config, mode string) error {
	if mode == "" {
		return nil
	}
	if _, ok := reactive.ParseMode(mode); !ok {
		return errors.New("C100").
			WithDetail("--mode=" + mode).
			WithSuggestion(`Use --mode=immediate or --mode=deferred`)
	}
	cfg.Scheduler.Mode = mode
	return nil
}

// newScheduler builds the scheduler described by cfg.
func newScheduler(cfg *config.Config) *reactive.Scheduler {
	return reactive.NewScheduler(cfg.SchedulerMode(),
		reactive.WithRunBudget(cfg.SchedulerBudget()),
		reactive.WithSchedulerLogger(cfg.Logger()),
	)
}
