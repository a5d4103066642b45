package store

import (
	"log/slog"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"
)

// tracerName is the instrumentation name for store spans.
const tracerName = "github.com/vango-dev/templatestore/pkg/store"

// Option configures a Store.
type Option func(*Store)

// WithLogger sets the logger. Default: slog.Default().
func WithLogger(l *slog.Logger) Option {
	return func(s *Store) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithTracer sets the OpenTelemetry tracer used for mutation spans.
// Default: the global tracer provider's tracer, a no-op unless the
// application installs a provider.
func WithTracer(t trace.Tracer) Option {
	return func(s *Store) {
		if t != nil {
			s.tracer = t
		}
	}
}

// WithMetrics enables Prometheus metrics for the store.
//
// Example:
//
//	st := store.New(store.WithMetrics(
//	    store.WithNamespace("myapp"),
//	    store.WithRegistry(reg),
//	))
func WithMetrics(opts ...MetricsOption) Option {
	return func(s *Store) {
		cfg := defaultMetricsConfig()
		for _, opt := range opts {
			opt(&cfg)
		}
		s.metrics = newMetrics(cfg)
	}
}

func defaultTracer() trace.Tracer {
	return otel.Tracer(tracerName)
}

// CallOption adjusts a single Get, Set, Unset or UnsetAll call.
type CallOption func(*callOptions)

type callOptions struct {
	reactive *bool
}

// Reactive controls whether a call takes part in reactivity.
//
// For Get and Set the default is true: Get registers the active computation
// and Set notifies dependents. For Unset and UnsetAll the default is false:
// deletion is silent unless Reactive(true) is passed, in which case
// dependents are notified before the value is removed.
func Reactive(on bool) CallOption {
	return func(o *callOptions) {
		o.reactive = &on
	}
}

// NonReactive is shorthand for Reactive(false).
func NonReactive() CallOption {
	return Reactive(false)
}

// resolveReactive applies call options over the operation's default.
func resolveReactive(def bool, opts []CallOption) bool {
	var o callOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.reactive == nil {
		return def
	}
	return *o.reactive
}
