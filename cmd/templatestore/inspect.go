package main

import (
	"context"
	stderrors "errors"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/vango-dev/templatestore/internal/config"
	"github.com/vango-dev/templatestore/internal/errors"
	"github.com/vango-dev/templatestore/pkg/inspect"
	"github.com/vango-dev/templatestore/pkg/middleware"
	"github.com/vango-dev/templatestore/pkg/reactive"
	"github.com/vango-dev/templatestore/pkg/store"
)

func inspectCmd() *cobra.Command {
	var (
		addr     string
		simulate time.Duration
	)

	cmd := &cobra.Command{
		Use:   "inspect",
		Short: "Serve the inspector for a live demo store",
		Long: `Serve a read-only inspector over HTTP.

The store is seeded with the demo keys and consumers. With --simulate, a producer
keeps toggling values so the WebSocket feed at /ws has traffic.

Examples:
  templatestore inspect
  templatestore inspect --addr=0.0.0.0:7070 --simulate=2s
  templatestore inspect --config=templatestore.yaml`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			if addr != "" {
				cfg.Inspector.Addr = addr
				if err := cfg.Validate(); err != nil {
					return err
				}
			}

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			return runInspect(ctx, cfg, simulate)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Listen address (default from config)")
	cmd.Flags().DurationVar(&simulate, "simulate", 0, "Toggle demo values at this interval (0 disables)")

	return cmd
}

func runInspect(ctx context.Context, cfg *config.Config, simulate time.Duration) error {
	logger := cfg.Logger()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	opts := []store.Option{store.WithLogger(logger)}
	if cfg.MetricsEnabled() {
		opts = append(opts, store.WithMetrics(
			store.WithNamespace(cfg.Metrics.Namespace),
			store.WithRegistry(reg),
		))
	}
	st := store.New(opts...)
	sched := newScheduler(cfg)

	sc := newScenario(io.Discard, st, sched)
	sc.mount(ctx)
	sc.seed(ctx)
	defer sc.dispose()

	inspectOpts := []inspect.Option{
		inspect.WithGatherer(reg),
		inspect.WithLogger(logger),
		inspect.WithMiddleware(middleware.OpenTelemetry()),
	}
	if cfg.MetricsEnabled() {
		inspectOpts = append(inspectOpts, inspect.WithMiddleware(middleware.Prometheus(
			middleware.WithNamespace(cfg.Metrics.Namespace),
			middleware.WithRegistry(reg),
		)))
	}

	srv := &http.Server{
		Addr:              cfg.Inspector.Addr,
		Handler:           inspect.New(st, inspectOpts...),
		ReadHeaderTimeout: 5 * time.Second,
	}

	if simulate > 0 {
		simCtx, stopSim := context.WithCancel(ctx)
		done := make(chan struct{})
		go func() {
			defer close(done)
			simulateProducer(simCtx, sc, simulate)
		}()
		// Runs before sc.dispose so no effect re-runs during disposal.
		defer func() {
			stopSim()
			<-done
		}()
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("inspector listening", "addr", cfg.Inspector.Addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if err != nil && !stderrors.Is(err, http.ErrServerClosed) {
			return errors.New("C200").
				WithDetail("listen on " + cfg.Inspector.Addr).
				Wrap(err)
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	logger.Info("inspector shutting down")
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return errors.New("C200").Wrap(err)
	}
	return nil
}

// simulateProducer flips one card's expanded flag every interval.
func simulateProducer(ctx context.Context, sc *scenario, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for n := 0; ; n++ {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			c := sc.cards[n%len(sc.cards)]
			open, _ := store.GetAs[bool](ctx, sc.st, c, propExpanded, store.NonReactive())
			sc.st.Set(ctx, c, propExpanded, !open)
			if sc.sched.Mode() == reactive.Deferred {
				sc.sched.Flush()
			}
		}
	}
}
