package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. PIKFRONT_BACKEND_URL
const EnvPrefix = "PIKFRONT"

// Load loads the configuration. An explicit configPath must exist; without
// one the standard locations are searched and a missing file falls back to
// defaults and environment variables.
func Load(configPath string) (*Config, error) {
	v := viper.New()

	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")

		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".pikfront"))
		}
		v.AddConfigPath("/etc/pikfront/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// setDefaults sets default configuration values. Every key needs a default
// so environment overrides are picked up by Unmarshal.
func setDefaults(v *viper.Viper) {
	v.SetDefault("backend.url", "http://localhost:5000")
	v.SetDefault("backend.username", "")
	v.SetDefault("backend.password", "")
	v.SetDefault("backend.timeout", 30*time.Second)

	v.SetDefault("poll.interval", 10*time.Second)

	v.SetDefault("server.listen", "127.0.0.1:8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)

	v.SetDefault("filter.presets", map[string]string{})

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)
}

// validate checks if the configuration is valid
func validate(cfg *Config) error {
	if cfg.Backend.URL == "" {
		return fmt.Errorf("backend.url is required")
	}
	if !strings.HasPrefix(cfg.Backend.URL, "http://") && !strings.HasPrefix(cfg.Backend.URL, "https://") {
		return fmt.Errorf("backend.url must start with http:// or https://: %s", cfg.Backend.URL)
	}

	if cfg.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive")
	}

	if cfg.Poll.Interval < time.Second {
		return fmt.Errorf("poll.interval must be at least 1s, got %s", cfg.Poll.Interval)
	}

	if cfg.Server.Listen == "" {
		return fmt.Errorf("server.listen is required")
	}

	for name, expression := range cfg.Filter.Presets {
		if strings.TrimSpace(expression) == "" {
			return fmt.Errorf("filter preset %q is empty", name)
		}
	}

	validLevels := map[string]bool{
		"trace": true,
		"debug": true,
		"info":  true,
		"warn":  true,
		"error": true,
	}
	if !validLevels[cfg.Logging.Level] {
		return fmt.Errorf("invalid logging level: %s", cfg.Logging.Level)
	}

	validFormats := map[string]bool{
		"console": true,
		"json":    true,
	}
	if !validFormats[cfg.Logging.Format] {
		return fmt.Errorf("invalid logging format: %s", cfg.Logging.Format)
	}

	return nil
}

// HasCredentials reports whether CLI credentials are configured
func (c *Config) HasCredentials() bool {
	return c.Backend.Username != "" && c.Backend.Password != ""
}
