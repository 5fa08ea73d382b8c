package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// LokiConfig configures optional Loki integration for logging.
type LokiConfig struct {
	Enabled bool              `yaml:"enabled"`
	URL     string            `yaml:"url"`
	Labels  map[string]string `yaml:"labels"`
}

// LoggingConfig encapsulates runtime logging options.
type LoggingConfig struct {
	Level  string     `yaml:"level"`
	Format string     `yaml:"format,omitempty"`
	Loki   LokiConfig `yaml:"loki"`
}

// TelemetryConfig configures runtime telemetry exporters.
type TelemetryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Provider string `yaml:"provider,omitempty"`
}

// DefaultsConfig provides the initial values a fresh parameter store starts
// from. Zero fields fall back to the built-in defaults.
type DefaultsConfig struct {
	Volume         float64 `yaml:"volume,omitempty"`
	TopType        string  `yaml:"top_type,omitempty"`
	BottomType     string  `yaml:"bottom_type,omitempty"`
	FilterHeight   float64 `yaml:"filter_height,omitempty"`
	FilterDiameter float64 `yaml:"filter_diameter,omitempty"`
	PipeDiameter   float64 `yaml:"pipe_diameter,omitempty"`
	AlignTop       string  `yaml:"align_top,omitempty"`
	AlignFilter    string  `yaml:"align_filter,omitempty"`
}

// LimitsConfig bounds user-entered scalar parameters.
type LimitsConfig struct {
	MaxVolume         float64 `yaml:"max_volume,omitempty"`
	MaxFilterHeight   float64 `yaml:"max_filter_height,omitempty"`
	MaxFilterDiameter float64 `yaml:"max_filter_diameter,omitempty"`
}

// RuleConfig declares one compatibility rule evaluated before a module is
// constructed. Expression must yield a boolean; false fails the build with
// Message as the cause.
type RuleConfig struct {
	ID         string `yaml:"id"`
	Expression string `yaml:"expression"`
	Message    string `yaml:"message,omitempty"`
}

// Config is the root configuration structure for the editor.
type Config struct {
	Logging   LoggingConfig   `yaml:"logging"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
	Catalog   string          `yaml:"catalog,omitempty"`
	Defaults  DefaultsConfig  `yaml:"defaults"`
	Limits    LimitsConfig    `yaml:"limits"`
	Rules     []RuleConfig    `yaml:"rules,omitempty"`
}

// Load reads and decodes the configuration file from disk. An empty path
// yields the built-in defaults.
func Load(path string) (*Config, error) {
	cfg := &Config{}
	if path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, cfg); err != nil {
			return nil, fmt.Errorf("unmarshal config %s: %w", path, err)
		}
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		if path != "" {
			return nil, fmt.Errorf("%s: %w", path, err)
		}
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Defaults.Volume == 0 {
		c.Defaults.Volume = 20
	}
	if c.Defaults.TopType == "" {
		c.Defaults.TopType = "open"
	}
	if c.Defaults.BottomType == "" {
		c.Defaults.BottomType = "flat"
	}
	if c.Defaults.FilterHeight == 0 {
		c.Defaults.FilterHeight = 3
	}
	if c.Defaults.FilterDiameter == 0 {
		c.Defaults.FilterDiameter = 20
	}
	if c.Defaults.PipeDiameter == 0 {
		c.Defaults.PipeDiameter = 3
	}
	if c.Defaults.AlignTop == "" {
		c.Defaults.AlignTop = "expand"
	}
	if c.Defaults.AlignFilter == "" {
		c.Defaults.AlignFilter = "adapt"
	}
	if c.Limits.MaxVolume == 0 {
		c.Limits.MaxVolume = 200
	}
	if c.Limits.MaxFilterHeight == 0 {
		c.Limits.MaxFilterHeight = 1000
	}
	if c.Limits.MaxFilterDiameter == 0 {
		c.Limits.MaxFilterDiameter = 200
	}
	if len(c.Rules) == 0 {
		c.Rules = DefaultRules()
	}
}

func (c *Config) validate() error {
	seen := make(map[string]struct{}, len(c.Rules))
	for _, rule := range c.Rules {
		if err := ensureIdentifier(rule.ID, "rule"); err != nil {
			return err
		}
		if strings.TrimSpace(rule.Expression) == "" {
			return fmt.Errorf("rule %s has an empty expression", rule.ID)
		}
		if _, ok := seen[rule.ID]; ok {
			return fmt.Errorf("duplicate rule id %q", rule.ID)
		}
		seen[rule.ID] = struct{}{}
	}
	return nil
}

// DefaultRules returns the built-in compatibility rule set. The expressions
// run in the environment documented by the rules package.
func DefaultRules() []RuleConfig {
	return []RuleConfig{
		{
			ID:         "volume_positive",
			Expression: "volume > 0",
			Message:    "reaction volume must be positive",
		},
		{
			ID:         "filter_positive",
			Expression: "filter_height > 0 && filter_diameter > 0",
			Message:    "filter dimensions must be positive",
		},
		{
			ID:         "pipe_fits_filter",
			Expression: "!bottom_pipe || (pipe_diameter > 0 && pipe_diameter < filter_diameter)",
			Message:    "internal pipe must be thinner than the filter",
		},
		{
			ID:         "filter_fits_body",
			Expression: "filter_diameter <= 2 * body_radius",
			Message:    "filter too large for the reactor body",
		},
	}
}

func ensureIdentifier(value, kind string) error {
	trimmed := strings.TrimSpace(value)
	if trimmed == "" {
		return fmt.Errorf("%s identifier must not be empty", kind)
	}
	for idx, r := range trimmed {
		if idx == 0 && unicode.IsDigit(r) {
			return fmt.Errorf("%s %q must not start with a digit", kind, trimmed)
		}
		if !(unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_') {
			return fmt.Errorf("%s %q contains invalid character %q", kind, trimmed, r)
		}
	}
	return nil
}

var errEmptyPath = errors.New("path must not be empty")
