// Package config loads PromptGate configuration from YAML with
// environment-variable expansion.
package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/promptgate-ai/promptgate/pkg/metrics"
	"github.com/promptgate-ai/promptgate/pkg/models"
	"github.com/promptgate-ai/promptgate/pkg/prompt"
	"github.com/promptgate-ai/promptgate/pkg/provider"
)

// Config holds all PromptGate configuration.
type Config struct {
	Listen      string                          `yaml:"listen"`
	LogDir      string                          `yaml:"log_dir"`
	DBPath      string                          `yaml:"db_path"`
	Model       string                          `yaml:"model"`
	Temperature float64                         `yaml:"temperature"`
	MaxTokens   int                             `yaml:"max_tokens"`
	Technique   string                          `yaml:"technique"`
	Provider    ProviderConfig                  `yaml:"provider"`
	Pricing     map[string]metrics.ModelPricing `yaml:"pricing"`
	Detector    DetectorConfig                  `yaml:"detector"`
}

// ProviderConfig defines the upstream generation endpoint.
type ProviderConfig struct {
	URL    string `yaml:"url"`
	APIKey string `yaml:"api_key"`
}

// DetectorConfig appends extra detection rules to the built-in tables.
// Keys are category names: injection, sensitive_info, role_manipulation.
type DetectorConfig struct {
	ExtraRules map[string][]string `yaml:"extra_rules"`
}

// RulesByCategory converts configured extra rules to typed categories.
func (d DetectorConfig) RulesByCategory() map[models.RuleCategory][]string {
	if len(d.ExtraRules) == 0 {
		return nil
	}
	out := make(map[models.RuleCategory][]string, len(d.ExtraRules))
	for name, patterns := range d.ExtraRules {
		out[models.RuleCategory(name)] = patterns
	}
	return out
}

// Default returns a Config with sensible defaults.
func Default() *Config {
	return &Config{
		Listen:      ":8080",
		LogDir:      "logs",
		DBPath:      "promptgate.db",
		Model:       "openai/gpt-3.5-turbo",
		Temperature: 0.7,
		MaxTokens:   500,
		Technique:   prompt.TechniqueFewShot,
		Provider: ProviderConfig{
			URL: provider.DefaultBaseURL,
		},
	}
}

// Load reads a YAML config file and expands environment variables.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := Default()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	return cfg, nil
}
