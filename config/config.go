// Package config loads termgraph's YAML configuration file.
//
// The file is discovered with first-match semantics: an explicit path,
// then ./termgraph.yaml, then ~/.termgraph/config.yaml. String values may
// reference environment variables ($VAR or ${VAR}).
package config

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/petal-labs/termgraph/core"
)

const (
	projectConfigName = "termgraph.yaml"
	homeConfigDir     = ".termgraph"
	homeConfigName    = "config.yaml"
)

// ErrInvalid is wrapped by every validation failure.
var ErrInvalid = errors.New("invalid config")

// Config is the on-disk configuration shape.
type Config struct {
	// Context holds default EvalContext entries, e.g. ordering: degree.
	Context   map[string]any  `yaml:"context,omitempty"`
	Log       LogConfig       `yaml:"log"`
	Store     StoreConfig     `yaml:"store"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Eval      EvalConfig      `yaml:"eval"`
}

// LogConfig selects the slog handler built by the CLI.
type LogConfig struct {
	Level  string `yaml:"level,omitempty"`  // debug | info | warn | error
	Format string `yaml:"format,omitempty"` // text | json
}

// StoreConfig configures the SQLite evaluation event log.
type StoreConfig struct {
	DSN            string        `yaml:"dsn,omitempty"`
	RetentionCount int           `yaml:"retention_count,omitempty"`
	RetentionAge   time.Duration `yaml:"retention_age,omitempty"`
}

// TelemetryConfig configures OTLP trace export.
type TelemetryConfig struct {
	OTLPEndpoint string `yaml:"otlp_endpoint,omitempty"`
	ServiceName  string `yaml:"service_name,omitempty"`
}

// EvalConfig bounds evaluations.
type EvalConfig struct {
	MaxNodes int `yaml:"max_nodes,omitempty"`
}

// Default returns the configuration used when no file is found.
func Default() Config {
	return Config{
		Log: LogConfig{Level: "info", Format: "text"},
	}
}

// Discover resolves the config location relative to the process working
// directory and the user's home directory.
func Discover(explicitPath string) (string, bool, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return "", false, fmt.Errorf("resolve working directory: %w", err)
	}
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", false, fmt.Errorf("resolve user home: %w", err)
	}
	return DiscoverFrom(explicitPath, cwd, homeDir)
}

// DiscoverFrom is a testable variant of Discover. A missing explicit path
// is an error wrapping os.ErrNotExist; missing implicit candidates are not.
func DiscoverFrom(explicitPath, cwd, homeDir string) (string, bool, error) {
	explicit := strings.TrimSpace(explicitPath)

	var candidates []string
	if explicit != "" {
		candidates = []string{filepath.Clean(explicit)}
	} else {
		candidates = []string{
			filepath.Join(cwd, projectConfigName),
			filepath.Join(homeDir, homeConfigDir, homeConfigName),
		}
	}

	for _, candidate := range candidates {
		info, err := os.Stat(candidate)
		switch {
		case err == nil && !info.IsDir():
			return candidate, true, nil
		case err == nil:
			if explicit != "" {
				return "", false, fmt.Errorf("config path %q is a directory", candidate)
			}
		case errors.Is(err, os.ErrNotExist):
			if explicit != "" {
				return "", false, fmt.Errorf("config file %q: %w", candidate, os.ErrNotExist)
			}
		default:
			return "", false, fmt.Errorf("checking config path %q: %w", candidate, err)
		}
	}
	return "", false, nil
}

// Load reads, expands and validates the config file at path. Unset fields
// keep their Default values.
func Load(path string) (Config, error) {
	// #nosec G304 -- path comes from explicit local config discovery.
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("reading config %q: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes YAML config data.
func Parse(data []byte) (Config, error) {
	cfg := Default()
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&cfg); err != nil && !errors.Is(err, io.EOF) {
		return Config{}, fmt.Errorf("parsing config: %w", err)
	}
	cfg.expand()
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Resolve discovers and loads the config. When no file is found it returns
// Default and an empty path.
func Resolve(explicitPath string) (Config, string, error) {
	path, found, err := Discover(explicitPath)
	if err != nil {
		return Config{}, "", err
	}
	if !found {
		return Default(), "", nil
	}
	cfg, err := Load(path)
	if err != nil {
		return Config{}, path, err
	}
	return cfg, path, nil
}

// Validate reports the first invalid field.
func (c Config) Validate() error {
	if _, err := c.Log.SlogLevel(); err != nil {
		return err
	}
	switch c.Log.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (use text or json)", ErrInvalid, c.Log.Format)
	}
	if c.Store.RetentionCount < 0 {
		return fmt.Errorf("%w: store.retention_count must not be negative", ErrInvalid)
	}
	if c.Store.RetentionAge < 0 {
		return fmt.Errorf("%w: store.retention_age must not be negative", ErrInvalid)
	}
	if c.Eval.MaxNodes < 0 {
		return fmt.Errorf("%w: eval.max_nodes must not be negative", ErrInvalid)
	}
	return nil
}

// SlogLevel parses Level. An empty level means info.
func (l LogConfig) SlogLevel() (slog.Level, error) {
	if strings.TrimSpace(l.Level) == "" {
		return slog.LevelInfo, nil
	}
	var level slog.Level
	if err := level.UnmarshalText([]byte(strings.TrimSpace(l.Level))); err != nil {
		return 0, fmt.Errorf("%w: log.level %q", ErrInvalid, l.Level)
	}
	return level, nil
}

// EvalContext returns a copy of the configured context entries.
func (c Config) EvalContext() core.EvalContext {
	return core.EvalContext(c.Context).Clone()
}

func (c *Config) expand() {
	c.Log.Level = expandEnvValue(c.Log.Level)
	c.Log.Format = expandEnvValue(c.Log.Format)
	c.Store.DSN = expandEnvValue(c.Store.DSN)
	c.Telemetry.OTLPEndpoint = expandEnvValue(c.Telemetry.OTLPEndpoint)
	c.Telemetry.ServiceName = expandEnvValue(c.Telemetry.ServiceName)
	for k, v := range c.Context {
		if s, ok := v.(string); ok {
			c.Context[k] = expandEnvValue(s)
		}
	}
}

func expandEnvValue(value string) string {
	return strings.TrimSpace(os.ExpandEnv(value))
}
