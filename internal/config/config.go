// Package config loads and validates the procwatch configuration and
// resolves it into a launchable server description.
package config

import (
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"time"

	"github.com/spf13/viper"

	"github.com/procwatch/procwatch/internal/supervisor"
)

// Config represents the complete procwatch configuration
type Config struct {
	Server  ServerConfig  `mapstructure:"server"`
	Logging LoggingConfig `mapstructure:"logging"`
}

// ServerConfig describes the server process to supervise
type ServerConfig struct {
	// Bin is the server executable, resolved against PATH when not absolute
	Bin string `mapstructure:"bin"`
	// Conf is an optional configuration file passed to the server as its
	// first argument
	Conf string `mapstructure:"conf"`
	// Settings maps option names to values; each entry becomes a
	// "--<name> <value>" argument pair, ordered by name. An entry with an
	// empty value becomes a bare "--<name>" flag.
	Settings map[string]string `mapstructure:"settings"`
	// Daemonize indicates the server detaches after startup
	Daemonize bool `mapstructure:"daemonize"`
	// UsePty runs the server under a pseudo-terminal so it keeps its
	// interactive output format
	UsePty bool `mapstructure:"use_pty"`
	// GracePeriodSeconds is how long a stop waits after SIGTERM before
	// escalating to SIGKILL
	GracePeriodSeconds int `mapstructure:"grace_period_seconds"`
	// StrictKill surfaces signal-delivery failures on close instead of
	// logging them
	StrictKill bool `mapstructure:"strict_kill"`
}

// LoggingConfig controls the structured log output
type LoggingConfig struct {
	// Enabled controls whether logs are written at all
	Enabled bool `mapstructure:"enabled"`
	// Dir is where the log file is written; empty means stderr
	Dir string `mapstructure:"dir"`
	// Level is the minimum log level: debug, info, warn, error
	Level string `mapstructure:"level"`
}

// GracePeriod returns the configured grace period as a duration.
func (s *ServerConfig) GracePeriod() time.Duration {
	return time.Duration(s.GracePeriodSeconds) * time.Second
}

// Default returns the default configuration
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Bin:                "redis-server",
			Settings:           map[string]string{},
			GracePeriodSeconds: 5,
		},
		Logging: LoggingConfig{
			Enabled: true,
			Level:   "info",
		},
	}
}

// SetDefaults registers all default values with viper
func SetDefaults() {
	defaults := Default()

	viper.SetDefault("server.bin", defaults.Server.Bin)
	viper.SetDefault("server.conf", defaults.Server.Conf)
	viper.SetDefault("server.settings", defaults.Server.Settings)
	viper.SetDefault("server.daemonize", defaults.Server.Daemonize)
	viper.SetDefault("server.use_pty", defaults.Server.UsePty)
	viper.SetDefault("server.grace_period_seconds", defaults.Server.GracePeriodSeconds)
	viper.SetDefault("server.strict_kill", defaults.Server.StrictKill)

	viper.SetDefault("logging.enabled", defaults.Logging.Enabled)
	viper.SetDefault("logging.dir", defaults.Logging.Dir)
	viper.SetDefault("logging.level", defaults.Logging.Level)
}

// Load reads the configuration from viper into a Config struct and validates it
func Load() (*Config, error) {
	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if errs := cfg.Validate(); len(errs) > 0 {
		return nil, ValidationErrors(errs)
	}

	return &cfg, nil
}

// Get returns the current configuration (convenience function)
func Get() *Config {
	cfg, err := Load()
	if err != nil {
		// Fall back to defaults if unmarshaling fails
		return Default()
	}
	return cfg
}

// ConfigDir returns the path to the user's config directory
func ConfigDir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "procwatch")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".procwatch"
	}
	return filepath.Join(home, ".config", "procwatch")
}

// ConfigFile returns the path to the config file
func ConfigFile() string {
	return filepath.Join(ConfigDir(), "config.yaml")
}

// Resolve turns the server section into the argument list actually handed to
// the process. The executable is resolved against PATH, the configuration
// file (when set) comes first, and settings follow as name-ordered
// "--name value" pairs so the same configuration always produces the same
// command line.
func (s *ServerConfig) Resolve() (supervisor.ServerConfig, error) {
	bin := s.Bin
	if !filepath.IsAbs(bin) {
		resolved, err := exec.LookPath(bin)
		if err != nil {
			return supervisor.ServerConfig{}, err
		}
		bin = resolved
	}

	args := make([]string, 0, 2*len(s.Settings)+1)
	if s.Conf != "" {
		args = append(args, s.Conf)
	}

	names := make([]string, 0, len(s.Settings))
	for name := range s.Settings {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		args = append(args, "--"+name)
		if v := s.Settings[name]; v != "" {
			args = append(args, v)
		}
	}

	if s.Daemonize {
		args = append(args, "--daemonize", "yes")
	}

	cfg := supervisor.ServerConfig{
		Bin:       bin,
		Args:      args,
		Daemonize: s.Daemonize,
	}
	return cfg, cfg.Validate()
}
