package store

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// MetricsConfig configures the store's Prometheus metrics.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "templatestore").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Registry is the Prometheus registry to use.
	// Default: prometheus.DefaultRegisterer
	Registry prometheus.Registerer
}

// MetricsOption configures the store's Prometheus metrics.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Namespace = namespace
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics. Stores sharing a
// registry and names share their collectors; distinct constant labels
// give each store its own series.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry prometheus.Registerer) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

// defaultMetricsConfig returns the default metrics configuration.
func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "templatestore",
		Registry:  prometheus.DefaultRegisterer,
	}
}

// metrics holds the Prometheus metrics for a Store.
// A nil *metrics records nothing.
type metrics struct {
	operations    *prometheus.CounterVec
	notifications *prometheus.CounterVec
	keys          prometheus.Gauge
	trackers      prometheus.Gauge
}

func newMetrics(config MetricsConfig) *metrics {
	reg := config.Registry
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	return &metrics{
		operations: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "operations_total",
			Help:        "Total number of store operations by kind",
			ConstLabels: config.ConstLabels,
		}, []string{"op"})),

		notifications: register(reg, prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "notifications_total",
			Help:        "Total number of dependents notified, by reason",
			ConstLabels: config.ConstLabels,
		}, []string{"reason"})),

		keys: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "keys",
			Help:        "Number of keys holding a value",
			ConstLabels: config.ConstLabels,
		})),

		trackers: register(reg, prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "trackers",
			Help:        "Number of keys with a dependency tracker",
			ConstLabels: config.ConstLabels,
		})),
	}
}

// register adds c to reg, returning the collector already registered
// under the same description if there is one. Other registration errors
// panic, as promauto does.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

func (m *metrics) op(name string) {
	if m == nil {
		return
	}
	m.operations.WithLabelValues(name).Inc()
}

func (m *metrics) notified(reason string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.notifications.WithLabelValues(reason).Add(float64(n))
}

func (m *metrics) sizes(keys, trackers int) {
	if m == nil {
		return
	}
	m.keys.Set(float64(keys))
	m.trackers.Set(float64(trackers))
}
