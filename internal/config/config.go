package config

import (
	"fmt"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/vango-dev/templatestore/internal/errors"
	"github.com/vango-dev/templatestore/pkg/reactive"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "templatestore.yaml"

	// DefaultAddr is the default inspector listen address.
	DefaultAddr = "localhost:7070"

	// DefaultNamespace is the default Prometheus namespace.
	DefaultNamespace = "templatestore"
)

// Config represents the complete templatestore.yaml configuration.
type Config struct {
	// Inspector contains inspector server configuration.
	Inspector InspectorConfig `yaml:"inspector"`

	// Log contains logging configuration.
	Log LogConfig `yaml:"log"`

	// Scheduler contains reactive scheduler configuration.
	Scheduler SchedulerConfig `yaml:"scheduler"`

	// Metrics contains Prometheus configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// configPath stores the path where the config was loaded from.
	configPath string

	// root is the parsed document, kept to locate fields in errors.
	root *yaml.Node
}

// InspectorConfig configures the inspector HTTP server.
type InspectorConfig struct {
	// Addr is the host:port to listen on.
	Addr string `yaml:"addr"`
}

// LogConfig configures slog output.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level"`

	// Format is text or json.
	Format string `yaml:"format"`
}

// SchedulerConfig configures the reactive scheduler.
type SchedulerConfig struct {
	// Mode is immediate or deferred.
	Mode string `yaml:"mode"`

	// Budget is the maximum number of effect runs per flush.
	// Zero disables the limit.
	Budget *int `yaml:"budget"`
}

// MetricsConfig configures Prometheus metrics.
type MetricsConfig struct {
	// Enabled turns metrics on.
	Enabled *bool `yaml:"enabled"`

	// Namespace is the metrics namespace.
	Namespace string `yaml:"namespace"`
}

// New creates a new Config with default values.
func New() *Config {
	budget := reactive.DefaultRunBudget
	enabled := true
	return &Config{
		Inspector: InspectorConfig{
			Addr: DefaultAddr,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		Scheduler: SchedulerConfig{
			Mode:   reactive.Immediate.String(),
			Budget: &budget,
		},
		Metrics: MetricsConfig{
			Enabled:   &enabled,
			Namespace: DefaultNamespace,
		},
	}
}

// Load reads templatestore.yaml from the specified directory.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from the specified file path, applies
// defaults for missing fields and validates the result.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, errors.New("C001").
				WithDetail("No " + filepath.Base(path) + " found in " + filepath.Dir(path)).
				WithSuggestion("Create the file or run without --config to use defaults").
				Wrap(err)
		}
		return nil, errors.New("C002").Wrap(err)
	}

	cfg, err := Parse(data)
	if err != nil {
		if e, ok := err.(*errors.Error); ok && e.Location != nil {
			e.Location.File = path
		}
		return nil, err
	}
	cfg.configPath = path
	return cfg, nil
}

// Parse decodes a YAML document over the defaults and validates it.
func Parse(data []byte) (*Config, error) {
	cfg := New()

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, errors.New("C002").
			WithDetail(err.Error()).
			WithSuggestion("Check that the file is valid YAML")
	}
	if len(root.Content) > 0 {
		if err := root.Decode(cfg); err != nil {
			return nil, errors.New("C002").
				WithDetail(err.Error()).
				WithSuggestion("Check field types against the documented structure")
		}
		cfg.root = &root
	}

	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// applyDefaults fills in default values for empty fields.
func (c *Config) applyDefaults() {
	def := New()
	if c.Inspector.Addr == "" {
		c.Inspector.Addr = def.Inspector.Addr
	}
	if c.Log.Level == "" {
		c.Log.Level = def.Log.Level
	}
	if c.Log.Format == "" {
		c.Log.Format = def.Log.Format
	}
	if c.Scheduler.Mode == "" {
		c.Scheduler.Mode = def.Scheduler.Mode
	}
	if c.Scheduler.Budget == nil {
		c.Scheduler.Budget = def.Scheduler.Budget
	}
	if c.Metrics.Enabled == nil {
		c.Metrics.Enabled = def.Metrics.Enabled
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = def.Metrics.Namespace
	}
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	if _, ok := reactive.ParseMode(c.Scheduler.Mode); !ok {
		return c.locate(errors.New("C003").
			WithSuggestion(fmt.Sprintf("Replace %q with \"immediate\" or \"deferred\"", c.Scheduler.Mode)),
			"scheduler", "mode")
	}
	if _, ok := parseLevel(c.Log.Level); !ok {
		return c.locate(errors.New("C004"), "log", "level")
	}
	if c.Log.Format != "text" && c.Log.Format != "json" {
		return c.locate(errors.New("C004").
			WithDetail("The log format must be text or json."), "log", "format")
	}
	if c.Scheduler.Budget != nil && *c.Scheduler.Budget < 0 {
		return c.locate(errors.New("C005"), "scheduler", "budget")
	}
	if _, _, err := net.SplitHostPort(c.Inspector.Addr); err != nil {
		return c.locate(errors.New("C006").
			WithDetail(err.Error()).
			WithSuggestion("Use host:port, for example localhost:7070"),
			"inspector", "addr")
	}
	return nil
}

// locate attaches the line of the field at path to err, if known.
func (c *Config) locate(err *errors.Error, path ...string) *errors.Error {
	if line := findLine(c.root, path...); line > 0 {
		err.WithLocation(c.configPath, line, 0)
		if c.configPath == "" {
			err.Location.File = ConfigFileName
		}
	}
	return err
}

// findLine returns the line of the value at path in a YAML document, or 0.
func findLine(root *yaml.Node, path ...string) int {
	if root == nil {
		return 0
	}
	node := root
	if node.Kind == yaml.DocumentNode && len(node.Content) > 0 {
		node = node.Content[0]
	}
	for _, key := range path {
		if node.Kind != yaml.MappingNode {
			return 0
		}
		var next *yaml.Node
		for i := 0; i+1 < len(node.Content); i += 2 {
			if node.Content[i].Value == key {
				next = node.Content[i+1]
				break
			}
		}
		if next == nil {
			return 0
		}
		node = next
	}
	return node.Line
}

// Path returns the path where the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// SchedulerMode returns the parsed scheduler mode.
func (c *Config) SchedulerMode() reactive.Mode {
	m, _ := reactive.ParseMode(c.Scheduler.Mode)
	return m
}

// SchedulerBudget returns the effect run budget.
func (c *Config) SchedulerBudget() int {
	if c.Scheduler.Budget == nil {
		return reactive.DefaultRunBudget
	}
	return *c.Scheduler.Budget
}

// MetricsEnabled reports whether Prometheus metrics are on.
func (c *Config) MetricsEnabled() bool {
	return c.Metrics.Enabled == nil || *c.Metrics.Enabled
}

// SlogLevel returns the configured log level.
func (c *Config) SlogLevel() slog.Level {
	l, _ := parseLevel(c.Log.Level)
	return l
}

// Logger builds a slog.Logger writing to stderr per the log settings.
func (c *Config) Logger() *slog.Logger {
	opts := &slog.HandlerOptions{Level: c.SlogLevel()}
	if c.Log.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stderr, opts))
}

// Exists checks if a config file exists in the given directory.
func Exists(dir string) bool {
	_, err := os.Stat(filepath.Join(dir, ConfigFileName))
	return err == nil
}

func parseLevel(s string) (slog.Level, bool) {
	switch strings.ToLower(s) {
	case "debug":
		return slog.LevelDebug, true
	case "info":
		return slog.LevelInfo, true
	case "warn", "warning":
		return slog.LevelWarn, true
	case "error":
		return slog.LevelError, true
	default:
		return slog.LevelInfo, false
	}
}
