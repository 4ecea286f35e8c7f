package config

import "time"

// Config represents the complete configuration structure
type Config struct {
	Backend BackendConfig `mapstructure:"backend"`
	Poll    PollConfig    `mapstructure:"poll"`
	Server  ServerConfig  `mapstructure:"server"`
	Filter  FilterConfig  `mapstructure:"filter"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// BackendConfig holds the backend API connection details. Username and
// password are only used by CLI commands; the web UI asks for them.
type BackendConfig struct {
	URL      string        `mapstructure:"url"`
	Username string        `mapstructure:"username"`
	Password string        `mapstructure:"password"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// PollConfig controls task status refresh
type PollConfig struct {
	Interval time.Duration `mapstructure:"interval"`
}

// ServerConfig controls the web UI listener
type ServerConfig struct {
	Listen          string        `mapstructure:"listen"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`
}

// FilterConfig contains named filter expressions. Viper lowercases keys, so
// preset names are case-insensitive.
type FilterConfig struct {
	Presets map[string]string `mapstructure:"presets"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}
