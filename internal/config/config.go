// Package config provides configuration loading and validation for logtrim.
// Supports YAML files with environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/logtrim-io/logtrim/internal/compress"
)

// Configuration errors.
var (
	// ErrNoGroups is returned by Validate when the configuration defines
	// no log groups. A run without groups has nothing to do and aborts
	// before touching the filesystem.
	ErrNoGroups = errors.New("config: no log groups defined")
)

// Config holds all configuration for a logtrim run.
type Config struct {
	Groups        map[string]GroupConfig `yaml:"groups"`
	Lock          LockConfig             `yaml:"lock"`
	Observability ObservabilityConfig    `yaml:"observability"`
}

// GroupConfig describes one log group: a directory plus a name pattern,
// and the rotation policy applied to every file the pattern matches.
//
// MaxAgeDays and Compress are pointers so an absent key can be told apart
// from an explicit zero or false; Normalize fills absent values with the
// defaults.
type GroupConfig struct {
	Directory      string  `yaml:"directory"`
	Pattern        string  `yaml:"pattern"`
	MaxAgeDays     *int    `yaml:"maxAgeDays"`
	MaxGenerations int     `yaml:"maxGenerations"`
	Compress       *bool   `yaml:"compress"`
	Codec          string  `yaml:"codec"`
	MinSizeMB      float64 `yaml:"minSizeMB"`
}

// LockConfig controls the advisory per-group lock.
type LockConfig struct {
	Enabled   bool  `yaml:"enabled" env:"LOGTRIM_LOCK_ENABLED"`
	TimeoutMs int64 `yaml:"timeoutMs" env:"LOGTRIM_LOCK_TIMEOUT_MS"`
}

// ObservabilityConfig controls logging and metrics output.
type ObservabilityConfig struct {
	LogLevel        string `yaml:"logLevel" env:"LOGTRIM_LOG_LEVEL"`
	LogFormat       string `yaml:"logFormat" env:"LOGTRIM_LOG_FORMAT"`
	MetricsTextfile string `yaml:"metricsTextfile" env:"LOGTRIM_METRICS_TEXTFILE"`
}

// Per-group defaults.
const (
	DefaultMaxAgeDays     = 30
	DefaultMaxGenerations = 5
	DefaultPattern        = "*"
	DefaultCodec          = "gzip"
)

// codecNames lists the compression codecs a group may select.
var codecNames = compress.Names()

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Groups: make(map[string]GroupConfig),
		Lock: LockConfig{
			Enabled:   true,
			TimeoutMs: 5000,
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Load returns the default configuration with environment overrides
// applied. Use LoadFromPath when a config file is given.
func Load() (*Config, error) {
	cfg := Default()
	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// LoadFromPath reads a YAML configuration file, layering it over the
// defaults and applying environment overrides on top. Unknown keys are
// rejected. JSON files parse as well, JSON being a YAML subset.
func LoadFromPath(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("config: open %s: %w", path, err)
	}
	defer f.Close()

	cfg := Default()
	dec := yaml.NewDecoder(f)
	dec.KnownFields(true)
	if err := dec.Decode(cfg); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	if err := applyEnv(cfg); err != nil {
		return nil, err
	}
	cfg.Normalize()
	return cfg, nil
}

// Normalize fills absent per-group fields with their defaults.
func (c *Config) Normalize() {
	for name, g := range c.Groups {
		if g.Pattern == "" {
			g.Pattern = DefaultPattern
		}
		if g.MaxAgeDays == nil {
			v := DefaultMaxAgeDays
			g.MaxAgeDays = &v
		}
		if g.MaxGenerations <= 0 {
			g.MaxGenerations = DefaultMaxGenerations
		}
		if g.Compress == nil {
			v := true
			g.Compress = &v
		}
		if g.Codec == "" {
			g.Codec = DefaultCodec
		}
		c.Groups[name] = g
	}
	if c.Lock.TimeoutMs <= 0 {
		c.Lock.TimeoutMs = 5000
	}
}

// Validate checks the configuration for fatal problems. It returns
// ErrNoGroups when no groups are defined and a descriptive error for the
// first malformed group field found. Call after Normalize.
func (c *Config) Validate() error {
	if len(c.Groups) == 0 {
		return ErrNoGroups
	}

	for name, g := range c.Groups {
		if strings.TrimSpace(g.Directory) == "" {
			return fmt.Errorf("config: group %q: directory is required", name)
		}
		if g.MaxAgeDays != nil && *g.MaxAgeDays < 0 {
			return fmt.Errorf("config: group %q: maxAgeDays must be >= 0, got %d", name, *g.MaxAgeDays)
		}
		if g.MinSizeMB < 0 {
			return fmt.Errorf("config: group %q: minSizeMB must be >= 0, got %g", name, g.MinSizeMB)
		}
		if !validCodec(g.Codec) {
			return fmt.Errorf("config: group %q: unknown codec %q (valid: %s)",
				name, g.Codec, strings.Join(codecNames, ", "))
		}
	}
	return nil
}

func validCodec(name string) bool {
	for _, c := range codecNames {
		if c == name {
			return true
		}
	}
	return false
}

// applyEnv overrides config fields from environment variables, using the
// env struct tags on LockConfig and ObservabilityConfig.
func applyEnv(c *Config) error {
	if err := applyEnvTo(&c.Lock); err != nil {
		return err
	}
	return applyEnvTo(&c.Observability)
}

func applyEnvTo(section any) error {
	v := reflect.ValueOf(section).Elem()
	t := v.Type()

	for i := 0; i < t.NumField(); i++ {
		key := t.Field(i).Tag.Get("env")
		if key == "" {
			continue
		}
		raw, ok := os.LookupEnv(key)
		if !ok {
			continue
		}

		field := v.Field(i)
		switch field.Kind() {
		case reflect.String:
			field.SetString(raw)
		case reflect.Bool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return fmt.Errorf("config: invalid value for %s: %w", key, err)
			}
			field.SetBool(b)
		case reflect.Int64:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return fmt.Errorf("config: invalid value for %s: %w", key, err)
			}
			field.SetInt(n)
		case reflect.Float64:
			f, err := strconv.ParseFloat(raw, 64)
			if err != nil {
				return fmt.Errorf("config: invalid value for %s: %w", key, err)
			}
			field.SetFloat(f)
		}
	}
	return nil
}

// SampleYAML returns a commented example configuration, printed by the
// rotate command's -example-config flag.
func SampleYAML() string {
	return `# logtrim configuration
groups:
  apache:
    directory: /var/log/apache2
    pattern: "access.log"      # literal name or glob
    maxAgeDays: 30             # delete generations older than this
    maxGenerations: 7          # keep at most this many generations
    compress: true
    codec: gzip                # gzip, zstd, lz4 or snappy
    minSizeMB: 10              # rotate only when the file is at least this big
  app:
    directory: /var/log/myapp
    pattern: "*.log"           # every .log file in the directory
    maxAgeDays: 14
    maxGenerations: 5

lock:
  enabled: true                # advisory flock per group directory
  timeoutMs: 5000

observability:
  logLevel: info               # debug, info, warn, error
  logFormat: json              # json or text
  metricsTextfile: ""          # e.g. /var/lib/node_exporter/textfile/logtrim.prom
`
}
