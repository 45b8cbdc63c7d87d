// Package config provides unified configuration loading for epidash.
// It supports loading from YAML files and environment variables.
package config

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"

	"github.com/nvandessel/epidash/internal/constants"
	"gopkg.in/yaml.v3"
)

// DirName is the per-user directory holding config.yaml and run logs.
const DirName = ".epidash"

// EpidashConfig contains all epidash configuration settings.
type EpidashConfig struct {
	// Simulation holds the defaults applied when a request leaves a field unset.
	Simulation SimulationConfig `json:"simulation" yaml:"simulation"`

	// Cull configures trimming of the quiescent trajectory tail.
	Cull CullConfig `json:"cull" yaml:"cull"`

	// Server configures the dashboard HTTP server.
	Server ServerConfig `json:"server" yaml:"server"`

	// Logging contains settings for operational and run logging.
	Logging LoggingConfig `json:"logging" yaml:"logging"`
}

// SimulationConfig sets the integration grid and discretization.
type SimulationConfig struct {
	Dt          float64 `json:"dt" yaml:"dt"`
	MaxTime     float64 `json:"max_time" yaml:"max_time"`
	Exponential bool    `json:"exponential" yaml:"exponential"`

	// Strict rejects negative rates and initial fractions outside [0,1].
	Strict bool `json:"strict" yaml:"strict"`
}

// CullConfig mirrors trajectory.CullOptions.
type CullConfig struct {
	Threshold  float64 `json:"threshold" yaml:"threshold"`
	ExtendTime float64 `json:"extend_time" yaml:"extend_time"`
}

// ServerConfig configures `epidash serve`.
type ServerConfig struct {
	// Addr is the listen address. Port 0 picks a free port.
	Addr        string `json:"addr" yaml:"addr"`
	OpenBrowser bool   `json:"open_browser" yaml:"open_browser"`
}

// LoggingConfig configures epidash's logging behavior.
type LoggingConfig struct {
	// Level sets the log verbosity: "info" (default), "debug", or "trace".
	// "debug" enables run logging to <dir>/runs.jsonl.
	Level string `json:"level" yaml:"level"`

	// Dir is where runs.jsonl is written. Empty means ~/.epidash.
	Dir string `json:"dir,omitempty" yaml:"dir,omitempty"`
}

// Default returns an EpidashConfig with sensible defaults.
func Default() *EpidashConfig {
	return &EpidashConfig{
		Simulation: SimulationConfig{
			Dt:          constants.DefaultDt,
			MaxTime:     constants.DefaultMaxTime,
			Exponential: false,
			Strict:      true,
		},
		Cull: CullConfig{
			Threshold:  constants.DefaultCullThreshold,
			ExtendTime: constants.DefaultCullExtendTime,
		},
		Server: ServerConfig{
			Addr:        "localhost:0",
			OpenBrowser: true,
		},
		Logging: LoggingConfig{
			Level: "info",
		},
	}
}

// DefaultPath returns ~/.epidash/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(homeDir, DirName, "config.yaml"), nil
}

// Load loads configuration from the default locations and environment variables.
// Order: defaults -> ~/.epidash/config.yaml -> environment variables
func Load() (*EpidashConfig, error) {
	config := Default()

	// Try to load from default config file
	if configPath, err := DefaultPath(); err == nil {
		if _, statErr := os.Stat(configPath); statErr == nil {
			fileConfig, loadErr := LoadFromFile(configPath)
			if loadErr != nil {
				return nil, fmt.Errorf("loading config file: %w", loadErr)
			}
			config = fileConfig
		}
	}

	// Apply environment variable overrides
	applyEnvOverrides(config)

	return config, nil
}

// LoadFromFile loads configuration from a specific YAML file.
func LoadFromFile(path string) (*EpidashConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	config := Default()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	config.Logging.Dir = expandEnvVars(config.Logging.Dir)

	return config, nil
}

// Save writes the configuration to path, creating parent directories.
func (c *EpidashConfig) Save(path string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// RunLogDir resolves the directory for runs.jsonl.
func (c *EpidashConfig) RunLogDir() string {
	if c.Logging.Dir != "" {
		return c.Logging.Dir
	}
	if homeDir, err := os.UserHomeDir(); err == nil {
		return filepath.Join(homeDir, DirName)
	}
	return DirName
}

// Validate checks that the configuration is valid.
func (c *EpidashConfig) Validate() error {
	if !positive(c.Simulation.Dt) {
		return fmt.Errorf("simulation.dt must be positive, got %v", c.Simulation.Dt)
	}
	if !positive(c.Simulation.MaxTime) {
		return fmt.Errorf("simulation.max_time must be positive, got %v", c.Simulation.MaxTime)
	}

	if c.Cull.Threshold < 0 || math.IsNaN(c.Cull.Threshold) {
		return fmt.Errorf("cull.threshold must be non-negative, got %v", c.Cull.Threshold)
	}
	if c.Cull.ExtendTime < 0 || math.IsNaN(c.Cull.ExtendTime) {
		return fmt.Errorf("cull.extend_time must be non-negative, got %v", c.Cull.ExtendTime)
	}

	validLevels := map[string]bool{"info": true, "debug": true, "trace": true}
	if c.Logging.Level != "" && !validLevels[c.Logging.Level] {
		return fmt.Errorf("invalid log level: %s (valid: info, debug, trace, or empty for default)", c.Logging.Level)
	}

	return nil
}

func positive(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}

// Keys returns every dot-notation key understood by Get and Set, sorted.
func Keys() []string {
	keys := []string{
		"simulation.dt",
		"simulation.max_time",
		"simulation.exponential",
		"simulation.strict",
		"cull.threshold",
		"cull.extend_time",
		"server.addr",
		"server.open_browser",
		"logging.level",
		"logging.dir",
	}
	sort.Strings(keys)
	return keys
}

// Get retrieves a configuration value by dot-notation key.
func (c *EpidashConfig) Get(key string) (any, bool) {
	switch key {
	case "simulation.dt":
		return c.Simulation.Dt, true
	case "simulation.max_time":
		return c.Simulation.MaxTime, true
	case "simulation.exponential":
		return c.Simulation.Exponential, true
	case "simulation.strict":
		return c.Simulation.Strict, true
	case "cull.threshold":
		return c.Cull.Threshold, true
	case "cull.extend_time":
		return c.Cull.ExtendTime, true
	case "server.addr":
		return c.Server.Addr, true
	case "server.open_browser":
		return c.Server.OpenBrowser, true
	case "logging.level":
		return c.Logging.Level, true
	case "logging.dir":
		return c.Logging.Dir, true
	default:
		return nil, false
	}
}

// Set sets a configuration value by dot-notation key and re-validates.
// On error the config is left unchanged.
func (c *EpidashConfig) Set(key, value string) error {
	next := *c
	switch key {
	case "simulation.dt":
		f, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		next.Simulation.Dt = f
	case "simulation.max_time":
		f, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		next.Simulation.MaxTime = f
	case "simulation.exponential":
		next.Simulation.Exponential = parseBool(value)
	case "simulation.strict":
		next.Simulation.Strict = parseBool(value)
	case "cull.threshold":
		f, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		next.Cull.Threshold = f
	case "cull.extend_time":
		f, err := parseFloat(key, value)
		if err != nil {
			return err
		}
		next.Cull.ExtendTime = f
	case "server.addr":
		next.Server.Addr = value
	case "server.open_browser":
		next.Server.OpenBrowser = parseBool(value)
	case "logging.level":
		next.Logging.Level = value
	case "logging.dir":
		next.Logging.Dir = value
	default:
		return fmt.Errorf("unknown configuration key: %s", key)
	}

	if err := next.Validate(); err != nil {
		return err
	}
	*c = next
	return nil
}

func parseFloat(key, value string) (float64, error) {
	f, err := strconv.ParseFloat(strings.TrimSpace(value), 64)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %q is not a number", key, value)
	}
	return f, nil
}

func parseBool(v string) bool {
	return v == "true" || v == "1"
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(config *EpidashConfig) {
	if v := os.Getenv("EPIDASH_DT"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.Dt = f
		}
	}
	if v := os.Getenv("EPIDASH_MAX_TIME"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Simulation.MaxTime = f
		}
	}
	if v := os.Getenv("EPIDASH_EXPONENTIAL"); v != "" {
		config.Simulation.Exponential = parseBool(v)
	}
	if v := os.Getenv("EPIDASH_STRICT"); v != "" {
		config.Simulation.Strict = parseBool(v)
	}

	if v := os.Getenv("EPIDASH_CULL_THRESHOLD"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Cull.Threshold = f
		}
	}
	if v := os.Getenv("EPIDASH_CULL_EXTEND_TIME"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			config.Cull.ExtendTime = f
		}
	}

	if v := os.Getenv("EPIDASH_ADDR"); v != "" {
		config.Server.Addr = v
	}
	if v := os.Getenv("EPIDASH_OPEN_BROWSER"); v != "" {
		config.Server.OpenBrowser = parseBool(v)
	}

	if v := os.Getenv("EPIDASH_LOG_LEVEL"); v != "" {
		config.Logging.Level = v
	}
	if v := os.Getenv("EPIDASH_LOG_DIR"); v != "" {
		config.Logging.Dir = v
	}
}

// expandEnvVars expands ${VAR} patterns in a string with environment variable values.
func expandEnvVars(s string) string {
	if !strings.Contains(s, "${") {
		return s
	}
	return os.Expand(s, os.Getenv)
}
