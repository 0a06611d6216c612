package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config models miops.yml.
type Config struct {
	Timezone string `yaml:"timezone"`
	Polling  struct {
		IntervalSeconds int `yaml:"interval_seconds"`
	} `yaml:"polling"`
	Workflow struct {
		AdvanceDelayMillis int `yaml:"advance_delay_ms"`
	} `yaml:"workflow"`
	Auth struct {
		CEORole string `yaml:"ceo_role"`
	} `yaml:"auth"`
	// LegacyLabels maps pre-migration label tokens to current ones
	// for aggregation bucketing.
	LegacyLabels map[string]string `yaml:"legacy_labels"`
	Departments  []string          `yaml:"departments"`
}

// Load reads and validates config from workspace.
func Load(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, fmt.Errorf("config %s not found; run mi init to create one", path)
		}
		return nil, err
	}
	return FromYAML(data)
}

// LoadOptional returns the default config if the file does not exist.
func LoadOptional(workspace string) (*Config, error) {
	path := Path(workspace)
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return Default(), nil
		}
		return nil, err
	}
	return FromYAML(data)
}

// Validate ensures the config meets required structure.
func (c *Config) Validate() error {
	if c.Timezone == "" {
		return fmt.Errorf("config.timezone is required")
	}
	if _, err := time.LoadLocation(c.Timezone); err != nil {
		return fmt.Errorf("config.timezone: %w", err)
	}
	if c.Polling.IntervalSeconds < 60 {
		return fmt.Errorf("config.polling.interval_seconds must be at least 60")
	}
	if c.Workflow.AdvanceDelayMillis <= 0 {
		return fmt.Errorf("config.workflow.advance_delay_ms must be positive")
	}
	if c.Auth.CEORole == "" {
		return fmt.Errorf("config.auth.ceo_role is required")
	}
	for token, mapped := range c.LegacyLabels {
		if token == "" {
			return fmt.Errorf("config.legacy_labels contains empty token")
		}
		switch mapped {
		case "otimo", "bom", "medio", "ruim":
		default:
			return fmt.Errorf("legacy label %s maps to unknown label %s", token, mapped)
		}
	}
	return nil
}

// Location resolves the configured timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// PollInterval returns the delay-detection interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Polling.IntervalSeconds) * time.Second
}

// AdvanceDelay returns the workflow item-advance delay.
func (c *Config) AdvanceDelay() time.Duration {
	return time.Duration(c.Workflow.AdvanceDelayMillis) * time.Millisecond
}

// Path returns the config file path for a workspace.
func Path(workspace string) string {
	if workspace == "" {
		workspace = "."
	}
	return filepath.Join(workspace, "miops.yml")
}

// Default returns the default Config struct.
func Default() *Config {
	var cfg Config
	_ = yaml.Unmarshal([]byte(defaultTemplate), &cfg)
	return &cfg
}

// GenerateDefault returns the default config YAML.
func GenerateDefault() string {
	return defaultTemplate
}

// FromYAML parses and validates config from raw YAML bytes.
func FromYAML(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("invalid config yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

const defaultTemplate = `timezone: America/Sao_Paulo

polling:
  interval_seconds: 60

workflow:
  advance_delay_ms: 500

auth:
  ceo_role: ceo

legacy_labels:
  green: otimo
  blue: bom
  yellow: medio
  orange: medio
  red: ruim

departments:
  - ads
  - comercial
  - cs
  - financeiro
  - rh
  - producao
`
