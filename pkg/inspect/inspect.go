package inspect

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"sync/atomic"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/websocket"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/templatestore/pkg/middleware"
	"github.com/vango-dev/templatestore/pkg/store"
)

// Config configures an Inspector.
type Config struct {
	// Logger receives connection and error logs.
	// If nil, slog.Default() is used.
	Logger *slog.Logger

	// Gatherer serves /metrics. Default: prometheus.DefaultGatherer.
	Gatherer prometheus.Gatherer

	// WriteTimeout bounds each WebSocket write. Default: 10s, also used
	// for zero or negative values.
	WriteTimeout time.Duration

	// EventBuffer is the number of events queued per WebSocket client
	// before further events are dropped. Default: 256.
	EventBuffer int

	// CheckOrigin validates WebSocket origins.
	// If nil, the gorilla default (same origin) applies.
	CheckOrigin func(r *http.Request) bool

	// Middleware wraps every route, after panic recovery.
	Middleware []func(http.Handler) http.Handler
}

// Option configures an Inspector.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

// WithGatherer sets the Prometheus gatherer served on /metrics.
func WithGatherer(g prometheus.Gatherer) Option {
	return func(c *Config) {
		c.Gatherer = g
	}
}

// WithWriteTimeout sets the WebSocket write timeout.
func WithWriteTimeout(d time.Duration) Option {
	return func(c *Config) {
		c.WriteTimeout = d
	}
}

// WithEventBuffer sets the per-client event buffer size.
func WithEventBuffer(n int) Option {
	return func(c *Config) {
		c.EventBuffer = n
	}
}

// WithCheckOrigin sets the WebSocket origin check.
func WithCheckOrigin(fn func(r *http.Request) bool) Option {
	return func(c *Config) {
		c.CheckOrigin = fn
	}
}

// WithMiddleware appends HTTP middleware, applied in order.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(c *Config) {
		c.Middleware = append(c.Middleware, mw...)
	}
}

const defaultWriteTimeout = 10 * time.Second

func defaultConfig() Config {
	return Config{
		Logger:       slog.Default(),
		Gatherer:     prometheus.DefaultGatherer,
		WriteTimeout: defaultWriteTimeout,
		EventBuffer:  256,
	}
}

// Inspector is an http.Handler exposing a store.
type Inspector struct {
	store    *store.Store
	config   Config
	router   chi.Router
	upgrader websocket.Upgrader
	logger   *slog.Logger

	clients atomic.Int64
}

// New creates an inspector for st.
func New(st *store.Store, opts ...Option) *Inspector {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Gatherer == nil {
		cfg.Gatherer = prometheus.DefaultGatherer
	}
	if cfg.EventBuffer <= 0 {
		cfg.EventBuffer = 1
	}
	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = defaultWriteTimeout
	}

	i := &Inspector{
		store:  st,
		config: cfg,
		upgrader: websocket.Upgrader{
			CheckOrigin: cfg.CheckOrigin,
		},
		logger: cfg.Logger.With("component", "inspector"),
	}

	r := chi.NewRouter()
	r.Use(middleware.Recover(i.logger))
	r.Use(cfg.Middleware...)
	r.Get("/healthz", i.handleHealth)
	r.Get("/keys", i.handleKeys)
	r.Get("/keys/{key}", i.handleKey)
	r.Method(http.MethodGet, "/metrics", promhttp.HandlerFor(cfg.Gatherer, promhttp.HandlerOpts{}))
	r.Get("/ws", i.handleWS)
	i.router = r

	return i
}

// ServeHTTP implements http.Handler.
func (i *Inspector) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	i.router.ServeHTTP(w, r)
}

// Clients returns the number of connected WebSocket clients.
func (i *Inspector) Clients() int {
	return int(i.clients.Load())
}

// KeyInfo describes one stored key.
type KeyInfo struct {
	Key        store.Key       `json:"key"`
	Scope      string          `json:"scope"`
	Property   string          `json:"property"`
	Value      json.RawMessage `json:"value"`
	Dependents int             `json:"dependents"`
}

func (i *Inspector) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
		"keys":   i.store.Len(),
	})
}

func (i *Inspector) handleKeys(w http.ResponseWriter, r *http.Request) {
	snap := i.store.Snapshot()
	keys := i.store.Keys()

	out := make([]KeyInfo, 0, len(keys))
	for _, k := range keys {
		v, ok := snap[k]
		if !ok {
			// Deleted between Keys and Snapshot.
			continue
		}
		out = append(out, i.describe(k, v))
	}

	writeJSON(w, http.StatusOK, map[string]any{"keys": out})
}

func (i *Inspector) handleKey(w http.ResponseWriter, r *http.Request) {
	raw := chi.URLParam(r, "key")
	name, err := url.PathUnescape(raw)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": "invalid key escape"})
		return
	}

	key := store.Key(name)
	v, ok := i.store.Peek(key)
	if !ok {
		writeJSON(w, http.StatusNotFound, map[string]string{"error": "key not found"})
		return
	}
	writeJSON(w, http.StatusOK, i.describe(key, v))
}

func (i *Inspector) describe(k store.Key, v any) KeyInfo {
	return KeyInfo{
		Key:        k,
		Scope:      k.Scope(),
		Property:   k.Property(),
		Value:      encodeValue(v),
		Dependents: i.store.Dependents(k),
	}
}

// encodeValue marshals a stored value, falling back to its printed form
// for values JSON cannot represent.
func encodeValue(v any) json.RawMessage {
	data, err := json.Marshal(v)
	if err != nil {
		data, _ = json.Marshal(fmt.Sprintf("%v", v))
	}
	return data
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
