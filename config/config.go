// Package config loads council settings from an optional YAML file and the
// environment using viper.
//
// Environment variables use the COUNCIL_ prefix with dots replaced by
// underscores (COUNCIL_BASE_URL, COUNCIL_LOG_LEVEL, ...). POLZAAI_API_KEY is
// honored as a fallback for the API key.
package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Supported providers.
const (
	ProviderOpenAI    = "openai"
	ProviderAnthropic = "anthropic"
)

// Defaults mirror the PolzaAI council deployment.
var (
	DefaultModels = []string{
		"google/gemini-3-flash-preview",
		"anthropic/claude-3.5-haiku",
		"openai/gpt-4o-mini",
		"x-ai/grok-4-fast",
	}
	DefaultSummarizerModel = "google/gemini-3-flash-preview"
)

// Config holds everything needed to build a council.
type Config struct {
	Provider        string        `mapstructure:"provider"`
	APIKey          string        `mapstructure:"api_key"`
	// BaseURL overrides the provider's endpoint. Empty selects the provider
	// default (PolzaAI for openai, Anthropic's API for anthropic).
	BaseURL         string        `mapstructure:"base_url"`
	Models          []string      `mapstructure:"models"`
	SummarizerModel string        `mapstructure:"summarizer_model"`
	Timeout         time.Duration `mapstructure:"timeout"`
	MaxConcurrency  int           `mapstructure:"max_concurrency"`
	Duplicates      string        `mapstructure:"duplicates"`
	Log             LogConfig     `mapstructure:"log"`
}

// LogConfig configures the structured logger.
type LogConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// Default returns the built-in configuration without an API key.
func Default() Config {
	return Config{
		Provider:        ProviderOpenAI,
		Models:          append([]string(nil), DefaultModels...),
		SummarizerModel: DefaultSummarizerModel,
		Timeout:         120 * time.Second,
		MaxConcurrency:  16,
		Duplicates:      "reject",
		Log:             LogConfig{Level: "info", Format: "text"},
	}
}

// Load reads configuration from path (skipped when empty) and the environment.
// The result is validated.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix("COUNCIL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("api_key", "COUNCIL_API_KEY", "POLZAAI_API_KEY"); err != nil {
		return Config{}, fmt.Errorf("bind api key env: %w", err)
	}

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("decode config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("provider", d.Provider)
	v.SetDefault("api_key", "")
	v.SetDefault("base_url", d.BaseURL)
	v.SetDefault("models", d.Models)
	v.SetDefault("summarizer_model", d.SummarizerModel)
	v.SetDefault("timeout", d.Timeout)
	v.SetDefault("max_concurrency", d.MaxConcurrency)
	v.SetDefault("duplicates", d.Duplicates)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
}

// Validate reports the first configuration problem found.
func (c Config) Validate() error {
	if strings.TrimSpace(c.APIKey) == "" {
		return errors.New("api key is required (COUNCIL_API_KEY or POLZAAI_API_KEY)")
	}
	switch c.Provider {
	case ProviderOpenAI, ProviderAnthropic:
	default:
		return fmt.Errorf("unknown provider %q", c.Provider)
	}
	if len(c.Models) == 0 {
		return errors.New("at least one model is required")
	}
	switch c.Duplicates {
	case "", "reject", "dedupe":
	default:
		return fmt.Errorf("unknown duplicate policy %q", c.Duplicates)
	}
	if c.Timeout < 0 {
		return fmt.Errorf("timeout must not be negative: %s", c.Timeout)
	}
	return nil
}
