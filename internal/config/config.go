package config

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Model       string            `mapstructure:"model" yaml:"model"`
	BaseURL     string            `mapstructure:"base_url" yaml:"base_url"`
	APIKey      string            `mapstructure:"api_key" yaml:"api_key,omitempty"`
	Reasoning   ReasoningConfig   `mapstructure:"reasoning" yaml:"reasoning"`
	Tools       ToolsConfig       `mapstructure:"tools" yaml:"tools"`
	Sessions    SessionsConfig    `mapstructure:"sessions" yaml:"sessions"`
	Attachments AttachmentsConfig `mapstructure:"attachments" yaml:"attachments"`
	Recording   RecordingConfig   `mapstructure:"recording" yaml:"recording"`
}

// ReasoningConfig controls reasoning effort and summary verbosity sent
// on requests for models that support it.
type ReasoningConfig struct {
	Effort  string `mapstructure:"effort" yaml:"effort"`   // "low", "medium", "high"
	Summary string `mapstructure:"summary" yaml:"summary"` // "auto" or ""
}

// ToolsConfig lists the provider-side tools enabled on requests.
type ToolsConfig struct {
	Enabled []string `mapstructure:"enabled" yaml:"enabled"` // "web_search", "code_interpreter"
}

// SessionsConfig controls conversation persistence.
type SessionsConfig struct {
	Enabled bool `mapstructure:"enabled" yaml:"enabled"`
}

// AttachmentsConfig bounds what files may be attached to a message.
type AttachmentsConfig struct {
	MaxSizeBytes int64    `mapstructure:"max_size_bytes" yaml:"max_size_bytes"`
	AllowedTypes []string `mapstructure:"allowed_types" yaml:"allowed_types"`
}

// RecordingConfig controls replay-log capture of live turns.
type RecordingConfig struct {
	Enabled bool   `mapstructure:"enabled" yaml:"enabled"`
	Dir     string `mapstructure:"dir" yaml:"dir"` // Override default directory
}

// DefaultAllowedTypes is the attachment MIME allowlist used when the
// config file does not override it.
var DefaultAllowedTypes = []string{
	"image/png",
	"image/jpeg",
	"image/gif",
	"image/webp",
	"text/plain",
	"text/markdown",
	"application/pdf",
	"application/json",
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("model", "gpt-5")
	v.SetDefault("base_url", "https://api.openai.com/v1/responses")
	v.SetDefault("reasoning.effort", "medium")
	v.SetDefault("reasoning.summary", "auto")
	v.SetDefault("tools.enabled", []string{"web_search"})
	v.SetDefault("sessions.enabled", true)
	v.SetDefault("attachments.max_size_bytes", int64(20*1024*1024))
	v.SetDefault("attachments.allowed_types", DefaultAllowedTypes)
	v.SetDefault("recording.enabled", false)
}

// Load reads the config file, merging it over defaults. A missing file
// is fine; every setting then takes its default. PLUME_API_KEY in the
// environment overrides the stored key so it never has to live on disk.
func Load() (*Config, error) {
	configPath, err := GetConfigDir()
	if err != nil {
		return nil, fmt.Errorf("failed to get config dir: %w", err)
	}

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(configPath)
	v.AddConfigPath(".")
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if key := os.Getenv("PLUME_API_KEY"); key != "" {
		cfg.APIKey = key
	}
	return &cfg, nil
}

// GetConfigDir returns the XDG config directory for plume.
func GetConfigDir() (string, error) {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "plume"), nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(home, ".config", "plume"), nil
}

// YAML renders the effective config for `plume config`.
func (c *Config) YAML() (string, error) {
	out, err := yaml.Marshal(c)
	if err != nil {
		return "", fmt.Errorf("marshal config: %w", err)
	}
	return string(out), nil
}
