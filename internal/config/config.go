// Package config loads sqfix configuration from .sqfix/config.json.
package config

import (
	"encoding/json"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
)

// Config represents the complete sqfix configuration.
type Config struct {
	SonarURL string `json:"sonarUrl" mapstructure:"sonarUrl"`
	Provider string `json:"provider" mapstructure:"provider"`
	Model    string `json:"model,omitempty" mapstructure:"model"`

	MaxRetries      int     `json:"maxRetries" mapstructure:"maxRetries"`
	MaxLinesChanged int     `json:"maxLinesChanged" mapstructure:"maxLinesChanged"`
	MaxChangeRatio  float64 `json:"maxChangeRatio" mapstructure:"maxChangeRatio"`
	Limit           int     `json:"limit" mapstructure:"limit"`

	Logging LoggingConfig `json:"logging" mapstructure:"logging"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	Format string `json:"format" mapstructure:"format"`
	Level  string `json:"level" mapstructure:"level"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() *Config {
	return &Config{
		SonarURL:        "https://sonarcloud.io",
		Provider:        "anthropic",
		MaxRetries:      3,
		MaxLinesChanged: 30,
		MaxChangeRatio:  0.1,
		Limit:           10,
		Logging: LoggingConfig{
			Format: "human",
			Level:  "info",
		},
	}
}

// Load reads configuration from <repoRoot>/.sqfix/config.json.
// A missing config file yields the defaults.
func Load(repoRoot string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("sonarUrl", defaults.SonarURL)
	v.SetDefault("provider", defaults.Provider)
	v.SetDefault("maxRetries", defaults.MaxRetries)
	v.SetDefault("maxLinesChanged", defaults.MaxLinesChanged)
	v.SetDefault("maxChangeRatio", defaults.MaxChangeRatio)
	v.SetDefault("limit", defaults.Limit)
	v.SetDefault("logging.format", defaults.Logging.Format)
	v.SetDefault("logging.level", defaults.Logging.Level)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(filepath.Join(repoRoot, ".sqfix"))

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); ok {
			return defaults, nil
		}
		return nil, err
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to <repoRoot>/.sqfix/config.json.
func (c *Config) Save(repoRoot string) error {
	dir := filepath.Join(repoRoot, ".sqfix")
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	data, err := json.MarshalIndent(c, "", "  ")
	if err != nil {
		return err
	}

	return os.WriteFile(filepath.Join(dir, "config.json"), data, 0o644)
}
