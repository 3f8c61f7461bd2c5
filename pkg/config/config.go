package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"
)

// Config represents the application configuration
type Config struct {
	Logging    LoggingConfig    `mapstructure:"logging"`
	Render     RenderConfig     `mapstructure:"render"`
	Guardrails GuardrailsConfig `mapstructure:"guardrails"`
	Tokens     TokensConfig     `mapstructure:"tokens"`
}

// LoggingConfig holds logging-related configuration
type LoggingConfig struct {
	LogFile  string `mapstructure:"log_file"`
	Preserve bool   `mapstructure:"preserve"`
	Level    string `mapstructure:"level"`
}

// RenderConfig holds template rendering defaults
type RenderConfig struct {
	Syntax         string `mapstructure:"syntax"`
	MaxPasses      int    `mapstructure:"max_passes"`
	AllowUndefined bool   `mapstructure:"allow_undefined"`
}

// GuardrailsConfig holds guardrail pipeline defaults
type GuardrailsConfig struct {
	ThrowOnFailure bool `mapstructure:"throw_on_failure"`
}

// TokensConfig selects the tokenizer used for exact token counts
type TokensConfig struct {
	Model string `mapstructure:"model"`
}

const (
	DefaultSyntax    = "{{variable}}"
	DefaultMaxPasses = 10
	envPrefix        = "PROMPTSPEC"
)

// Global config instance
var cfg *Config

// Get returns the global config instance
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load loads configuration from file and environment
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}

		xdgConfigHome := os.Getenv("XDG_CONFIG_HOME")
		if xdgConfigHome == "" {
			xdgConfigHome = filepath.Join(home, ".config")
		}

		viper.AddConfigPath("./.promptspec") // Check project directory first
		viper.AddConfigPath(filepath.Join(xdgConfigHome, "promptspec"))
		viper.SetConfigType("yaml")
		viper.SetConfigName("settings")
	}

	viper.SetEnvPrefix(envPrefix)
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// Only a discovered settings file may be absent
		var notFound viper.ConfigFileNotFoundError
		var parseErr viper.ConfigParseError
		switch {
		case cfgFile == "" && errors.As(err, &notFound):
		case errors.As(err, &parseErr):
			return nil, fmt.Errorf("failed to parse config: %w", err)
		default:
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	loaded := &Config{}
	if err := viper.Unmarshal(loaded); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if err := loaded.Validate(); err != nil {
		return nil, err
	}

	cfg = loaded
	return cfg, nil
}

// Validate checks values that would make rendering impossible
func (c *Config) Validate() error {
	if c.Render.MaxPasses < 1 {
		return fmt.Errorf("render.max_passes must be at least 1, got %d", c.Render.MaxPasses)
	}
	if !strings.Contains(c.Render.Syntax, "variable") {
		return fmt.Errorf("render.syntax %q must contain the sentinel \"variable\"", c.Render.Syntax)
	}
	return nil
}

// setDefaults sets all default configuration values
func setDefaults() {
	// Logging defaults
	viper.SetDefault("logging.log_file", "")
	viper.SetDefault("logging.preserve", true)
	viper.SetDefault("logging.level", "info")

	// Render defaults
	viper.SetDefault("render.syntax", DefaultSyntax)
	viper.SetDefault("render.max_passes", DefaultMaxPasses)
	viper.SetDefault("render.allow_undefined", false)

	// Guardrail defaults
	viper.SetDefault("guardrails.throw_on_failure", false)

	// Tokenizer defaults
	viper.SetDefault("tokens.model", "gpt-4")
}
