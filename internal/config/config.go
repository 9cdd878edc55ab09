package config

import (
	"errors"
	"log/slog"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	vberrors "github.com/vango-dev/bindery/internal/errors"
	"gopkg.in/yaml.v3"
)

const (
	// ConfigFileName is the name of the configuration file.
	ConfigFileName = "bindery.yaml"

	// DefaultWidth is the default number of children per workload node.
	DefaultWidth = 4

	// DefaultDepth is the default workload tree depth.
	DefaultDepth = 3

	// DefaultFields is the default number of animated fields.
	DefaultFields = 16

	// DefaultFrames is the default number of frames for a run.
	DefaultFrames = 600

	// DefaultInterval is the default frame interval.
	DefaultInterval = 16 * time.Millisecond

	// DefaultInspectAddr is the default inspector listen address.
	DefaultInspectAddr = "127.0.0.1:7070"

	// DefaultTweenSeconds is the default mean tween duration.
	DefaultTweenSeconds = 1.0

	// DefaultNamespace prefixes every exported metric.
	DefaultNamespace = "bindery"
)

var metricNameRE = regexp.MustCompile(`^[a-zA-Z_][a-zA-Z0-9_]*$`)

// Config represents bindery.yaml.
type Config struct {
	Workload WorkloadConfig `yaml:"workload"`
	Frames   FramesConfig   `yaml:"frames"`
	Runtime  RuntimeConfig  `yaml:"runtime"`
	Log      LogConfig      `yaml:"log"`
	Inspect  InspectConfig  `yaml:"inspect"`
	Report   ReportConfig   `yaml:"report"`
	Metrics  MetricsConfig  `yaml:"metrics"`

	// configPath stores the path the config was loaded from.
	configPath string
}

// WorkloadConfig shapes the synthetic binding tree. Keys left out of the
// file keep their defaults; explicit zeros are kept.
type WorkloadConfig struct {
	// Width is the number of children per interior node.
	Width int `yaml:"width"`

	// Depth is the number of levels below the root. Zero builds a lone root.
	Depth int `yaml:"depth"`

	// Fields is the number of animated reactive fields.
	Fields int `yaml:"fields"`

	// Lazies is the number of lazy aggregates over the fields.
	Lazies int `yaml:"lazies"`

	// Conditionals is how many children of each bottom-level interior node
	// are conditional nodes instead of plain leaves.
	Conditionals int `yaml:"conditionals"`

	// Seed makes tween assignment reproducible.
	Seed int64 `yaml:"seed"`

	// TweenSeconds is the mean time a field takes to reach its target.
	TweenSeconds float64 `yaml:"tweenSeconds"`
}

// FramesConfig controls the frame loop.
type FramesConfig struct {
	// Count is the number of frames a run executes.
	Count int `yaml:"count,omitempty"`

	// Interval is the wall time between frames (e.g. "16ms").
	Interval Duration `yaml:"interval,omitempty"`
}

// RuntimeConfig controls reactive runtime debugging.
type RuntimeConfig struct {
	// VerifyPassive reports passive observers that read new dependencies.
	VerifyPassive bool `yaml:"verifyPassive,omitempty"`

	// StrictPassive panics instead of reporting.
	StrictPassive bool `yaml:"strictPassive,omitempty"`
}

// LogConfig controls logging.
type LogConfig struct {
	// Level is one of debug, info, warn, error.
	Level string `yaml:"level,omitempty"`

	// File, when set, receives JSON logs in addition to stderr.
	File string `yaml:"file,omitempty"`
}

// InspectConfig controls the HTTP inspector.
type InspectConfig struct {
	// Addr is the listen address.
	Addr string `yaml:"addr,omitempty"`
}

// ReportConfig controls where run reports go.
type ReportConfig struct {
	// Output is a file path, or "-" for stdout. Empty disables the file.
	Output string `yaml:"output,omitempty"`

	// S3 uploads the report when Bucket is set.
	S3 S3Config `yaml:"s3,omitempty"`
}

// S3Config names the upload destination.
type S3Config struct {
	Bucket   string `yaml:"bucket,omitempty"`
	Prefix   string `yaml:"prefix,omitempty"`
	Region   string `yaml:"region,omitempty"`
	Endpoint string `yaml:"endpoint,omitempty"`
}

// MetricsConfig names and shapes the exported Prometheus metrics.
type MetricsConfig struct {
	Namespace string `yaml:"namespace,omitempty"`
	Subsystem string `yaml:"subsystem,omitempty"`

	// Labels are constant labels added to every metric.
	Labels map[string]string `yaml:"labels,omitempty"`

	// Buckets are the histogram bounds in seconds. Empty keeps the
	// built-in buckets.
	Buckets []float64 `yaml:"buckets,omitempty"`
}

// Duration is a time.Duration written as a string in YAML.
type Duration time.Duration

// UnmarshalYAML parses values such as "16ms" or "1s".
func (d *Duration) UnmarshalYAML(node *yaml.Node) error {
	var s string
	if err := node.Decode(&s); err != nil {
		return err
	}
	v, err := time.ParseDuration(strings.TrimSpace(s))
	if err != nil {
		return err
	}
	*d = Duration(v)
	return nil
}

// MarshalYAML writes the duration in its string form.
func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

// New creates a Config with default values.
func New() *Config {
	c := &Config{
		Workload: WorkloadConfig{
			Width:        DefaultWidth,
			Depth:        DefaultDepth,
			Fields:       DefaultFields,
			Seed:         1,
			TweenSeconds: DefaultTweenSeconds,
		},
		Frames: FramesConfig{
			Count:    DefaultFrames,
			Interval: Duration(DefaultInterval),
		},
		Metrics: MetricsConfig{Namespace: DefaultNamespace},
	}
	c.applyDefaults()
	return c
}

// Load reads bindery.yaml from dir. A missing file yields defaults.
func Load(dir string) (*Config, error) {
	return LoadFile(filepath.Join(dir, ConfigFileName))
}

// LoadFile reads configuration from path. A missing file yields defaults.
func LoadFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			cfg := New()
			cfg.configPath = path
			return cfg, nil
		}
		return nil, vberrors.New("C001").Wrap(err)
	}

	cfg := New()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, vberrors.New("C001").
			WithDetail("Failed to parse " + filepath.Base(path) + ": " + err.Error()).
			WithSuggestion("Check that " + filepath.Base(path) + " is valid YAML")
	}

	cfg.configPath = path
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// SaveTo writes the configuration to path.
func (c *Config) SaveTo(path string) error {
	data, err := yaml.Marshal(c)
	if err != nil {
		return vberrors.New("C001").Wrap(err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return vberrors.New("C001").Wrap(err)
	}
	c.configPath = path
	return nil
}

// Path returns the path the config was loaded from.
func (c *Config) Path() string {
	return c.configPath
}

// applyDefaults fills in empty strings and derived flags. Numeric defaults
// come from New, so an explicit zero in the file survives.
func (c *Config) applyDefaults() {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Inspect.Addr == "" {
		c.Inspect.Addr = DefaultInspectAddr
	}
	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = DefaultNamespace
	}
	if c.Runtime.StrictPassive {
		c.Runtime.VerifyPassive = true
	}
}

// Validate checks that the configuration is usable.
func (c *Config) Validate() error {
	switch {
	case c.Workload.Width < 1:
		return invalid("workload.width must be at least 1")
	case c.Workload.Depth < 0 || c.Workload.Depth > 8:
		return invalid("workload.depth must be between 0 and 8")
	case c.Workload.Fields < 1:
		return invalid("workload.fields must be at least 1")
	case c.Workload.Lazies < 0:
		return invalid("workload.lazies must not be negative")
	case c.Workload.Conditionals < 0 || c.Workload.Conditionals > c.Workload.Width:
		return invalid("workload.conditionals must be between 0 and workload.width")
	case c.Workload.TweenSeconds <= 0:
		return invalid("workload.tweenSeconds must be positive")
	case c.Frames.Count < 1:
		return invalid("frames.count must be at least 1")
	case c.Frames.Interval < 0:
		return invalid("frames.interval must not be negative")
	}
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	return c.Metrics.validate()
}

func (m MetricsConfig) validate() error {
	if !metricNameRE.MatchString(m.Namespace) {
		return invalid("metrics.namespace must be a valid Prometheus name")
	}
	if m.Subsystem != "" && !metricNameRE.MatchString(m.Subsystem) {
		return invalid("metrics.subsystem must be a valid Prometheus name")
	}
	for name := range m.Labels {
		if !metricNameRE.MatchString(name) {
			return invalid("metrics.labels has an invalid label name " + strconv.Quote(name))
		}
	}
	for i, b := range m.Buckets {
		if b <= 0 || (i > 0 && b <= m.Buckets[i-1]) {
			return invalid("metrics.buckets must be positive and increasing")
		}
	}
	return nil
}

func invalid(detail string) error {
	return vberrors.New("C002").WithDetail(detail)
}

// SlogLevel parses Level.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(l.Level)); err != nil {
		return 0, vberrors.New("C002").
			WithDetail("log.level must be one of debug, info, warn, error").
			Wrap(err)
	}
	return level, nil
}

// Nodes returns how many nodes the workload tree holds, root included.
func (w WorkloadConfig) Nodes() int {
	total, level := 1, 1
	for range w.Depth {
		level *= w.Width
		total += level
	}
	return total
}
