// Package config loads application settings through viper: defaults first,
// then an optional settings file under ~/.scribe (or the path given on the
// command line), then SCRIBE_* environment overrides.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config represents the application configuration.
type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Assistant AssistantConfig `mapstructure:"assistant"`
	Tools     ToolsConfig     `mapstructure:"tools"`
	Logging   LoggingConfig   `mapstructure:"logging"`
}

// ServerConfig holds backend connection settings.
type ServerConfig struct {
	URL       string        `mapstructure:"url"`
	APIKey    string        `mapstructure:"api_key"`
	Timeout   time.Duration `mapstructure:"timeout"`
	RateLimit float64       `mapstructure:"rate_limit"`
	RateBurst int           `mapstructure:"rate_burst"`
}

// AssistantConfig selects the assistant and its configured server tools.
type AssistantConfig struct {
	ID    string   `mapstructure:"id"`
	Tools []string `mapstructure:"tools"`
}

// ToolsConfig controls client-side tool resolution.
type ToolsConfig struct {
	// Disabled lists server tool ids the user turned off for this session.
	Disabled []string `mapstructure:"disabled"`
	// Geolocation toggles the client-side geolocation function tool.
	Geolocation GeolocationConfig `mapstructure:"geolocation"`
}

// GeolocationConfig configures the geolocation client tool.
type GeolocationConfig struct {
	Enabled bool   `mapstructure:"enabled"`
	URL     string `mapstructure:"url"`
}

// LoggingConfig holds logging-related configuration.
type LoggingConfig struct {
	File    string `mapstructure:"file"`
	Persist bool   `mapstructure:"persist"`
	Level   string `mapstructure:"level"`
}

var cfg *Config

// Get returns the global config instance. It panics when called before Load;
// that is a programmer error, not a runtime condition.
func Get() *Config {
	if cfg == nil {
		panic("config not initialized")
	}
	return cfg
}

// Load reads configuration from file and environment and installs the global
// instance.
func Load(cfgFile string) (*Config, error) {
	setDefaults()

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		home, err := os.UserHomeDir()
		if err != nil {
			return nil, fmt.Errorf("failed to get home directory: %w", err)
		}
		viper.AddConfigPath("./.scribe")
		viper.AddConfigPath(filepath.Join(home, ".scribe"))
		viper.SetConfigName("settings")
		viper.SetConfigType("yaml")
	}

	viper.SetEnvPrefix("SCRIBE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		// A missing settings file is fine; defaults and env cover everything.
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	c := &Config{}
	if err := viper.Unmarshal(c); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	cfg = c
	return c, nil
}

func setDefaults() {
	viper.SetDefault("server.url", "http://localhost:8080/api/v1")
	viper.SetDefault("server.timeout", 30*time.Second)
	viper.SetDefault("server.rate_limit", 5.0)
	viper.SetDefault("server.rate_burst", 10)
	viper.SetDefault("assistant.tools", []string{})
	viper.SetDefault("tools.disabled", []string{})
	viper.SetDefault("tools.geolocation.enabled", true)
	viper.SetDefault("tools.geolocation.url", "http://ip-api.com/json")
	viper.SetDefault("logging.file", "scribe.log")
	viper.SetDefault("logging.persist", false)
	viper.SetDefault("logging.level", "info")
}

// BaseSettingsDir returns the directory holding the active settings file, or
// the explicit config.path override used by tests.
func BaseSettingsDir() string {
	if p := viper.GetString("config.path"); p != "" {
		return p
	}
	if used := viper.ConfigFileUsed(); used != "" {
		return filepath.Dir(used)
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "."
	}
	return filepath.Join(home, ".scribe")
}

// BuildSettingsPath joins target onto the settings directory.
func BuildSettingsPath(target string) string {
	return filepath.Join(BaseSettingsDir(), target)
}
