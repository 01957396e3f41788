// ABOUTME: Configuration loading and parsing for the command console
// ABOUTME: Supports YAML or TOML files with environment variable expansion, defaults, and validation

package config

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"gopkg.in/yaml.v3"
)

// EnvConfigPath overrides the default config location.
const EnvConfigPath = "COVEN_CMDMGR_CONFIG"

// Defaults applied by Load.
const (
	DefaultInitDelay    = 15
	DefaultHost         = "0.0.0.0"
	DefaultPort         = 5000
	DefaultDatabasePath = "cmdmgr.db"
	DefaultLogLevel     = "info"
	DefaultLogFormat    = "text"
	DefaultMatrixPrefix = "!"
)

// Config represents the complete command console configuration
type Config struct {
	Console  ConsoleConfig  `yaml:"console" toml:"console"`
	WebUI    WebUIConfig    `yaml:"webui" toml:"webui"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	Matrix   MatrixConfig   `yaml:"matrix" toml:"matrix"`
	Plugins  []PluginConfig `yaml:"plugins" toml:"plugins"`
}

// ConsoleConfig holds the console plugin settings
type ConsoleConfig struct {
	// InitDelay is the delay in seconds before persisted disabled handlers are
	// restored, giving every other plugin time to register.
	InitDelay int `yaml:"init_delay" toml:"init_delay"`
	// Admins may run console commands. Empty allows everyone.
	Admins []string `yaml:"admins" toml:"admins"`
}

// WebUIConfig holds admin server settings
type WebUIConfig struct {
	Host string `yaml:"host" toml:"host"`
	Port int    `yaml:"port" toml:"port"`

	StartupAttempts int           `yaml:"startup_attempts" toml:"startup_attempts"`
	PollInterval    time.Duration `yaml:"-" toml:"-"`
	StopTimeout     time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	PollIntervalRaw string `yaml:"poll_interval" toml:"poll_interval"`
	StopTimeoutRaw  string `yaml:"stop_timeout" toml:"stop_timeout"`
}

// DatabaseConfig holds database configuration
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// MatrixConfig holds Matrix chat frontend configuration
type MatrixConfig struct {
	Enabled      bool     `yaml:"enabled" toml:"enabled"`
	Homeserver   string   `yaml:"homeserver" toml:"homeserver"`
	UserID       string   `yaml:"user_id" toml:"user_id"`
	AccessToken  string   `yaml:"access_token" toml:"access_token"`
	Prefix       string   `yaml:"prefix" toml:"prefix"`
	AllowedRooms []string `yaml:"allowed_rooms" toml:"allowed_rooms"`
}

// PluginConfig describes a plugin and its handlers registered with the host
type PluginConfig struct {
	Name     string          `yaml:"name" toml:"name"`
	Module   string          `yaml:"module" toml:"module"`
	Author   string          `yaml:"author" toml:"author"`
	Version  string          `yaml:"version" toml:"version"`
	Handlers []HandlerConfig `yaml:"handlers" toml:"handlers"`
}

// HandlerConfig describes one command handler. Command builds a command
// filter; Group builds a command group filter from complete paths.
type HandlerConfig struct {
	FullName    string   `yaml:"full_name" toml:"full_name"`
	Description string   `yaml:"description" toml:"description"`
	Command     string   `yaml:"command" toml:"command"`
	Aliases     []string `yaml:"aliases" toml:"aliases"`
	Parents     []string `yaml:"parents" toml:"parents"`
	Group       []string `yaml:"group" toml:"group"`
	Permission  string   `yaml:"permission" toml:"permission"`
}

// DefaultPath returns the config path.
// Priority: COVEN_CMDMGR_CONFIG > XDG_CONFIG_HOME/coven/cmdmgr.yaml > ~/.config/coven/cmdmgr.yaml
func DefaultPath() string {
	if p := os.Getenv(EnvConfigPath); p != "" {
		return p
	}
	configDir := os.Getenv("XDG_CONFIG_HOME")
	if configDir == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			return "cmdmgr.yaml"
		}
		configDir = filepath.Join(home, ".config")
	}
	return filepath.Join(configDir, "coven", "cmdmgr.yaml")
}

// Default returns a Config with every default applied.
func Default() *Config {
	return &Config{
		Console:  ConsoleConfig{InitDelay: DefaultInitDelay},
		WebUI:    WebUIConfig{Host: DefaultHost, Port: DefaultPort},
		Database: DatabaseConfig{Path: DefaultDatabasePath},
		Logging:  LoggingConfig{Level: DefaultLogLevel, Format: DefaultLogFormat},
		Matrix:   MatrixConfig{Prefix: DefaultMatrixPrefix},
	}
}

// Load reads a configuration file over the defaults and returns the result.
// Files ending in .toml are decoded as TOML, everything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded before decoding.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	expanded := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expanded, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := parseDurations(cfg); err != nil {
		return nil, fmt.Errorf("parsing durations: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

var envPattern = regexp.MustCompile(`\$\{([^}]+)\}`)

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	return envPattern.ReplaceAllStringFunc(s, func(match string) string {
		return os.Getenv(envPattern.FindStringSubmatch(match)[1])
	})
}

// InitDelayDuration returns Console.InitDelay as a duration.
func (c *Config) InitDelayDuration() time.Duration {
	return time.Duration(c.Console.InitDelay) * time.Second
}

// Validate checks that all configuration fields are present and valid.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Console.InitDelay < 0 {
		return fmt.Errorf("console.init_delay must not be negative")
	}
	if c.WebUI.Port < 1 || c.WebUI.Port > 65535 {
		return fmt.Errorf("webui.port %d out of range", c.WebUI.Port)
	}
	if c.WebUI.StartupAttempts < 0 {
		return fmt.Errorf("webui.startup_attempts must not be negative")
	}
	if c.Database.Path == "" {
		return fmt.Errorf("database.path is required")
	}

	switch c.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q must be one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "text", "json":
	default:
		return fmt.Errorf("logging.format %q must be text or json", c.Logging.Format)
	}

	if c.Matrix.Enabled {
		if c.Matrix.Homeserver == "" {
			return fmt.Errorf("matrix.homeserver is required when matrix is enabled")
		}
		if c.Matrix.UserID == "" {
			return fmt.Errorf("matrix.user_id is required when matrix is enabled")
		}
		if c.Matrix.AccessToken == "" {
			return fmt.Errorf("matrix.access_token is required when matrix is enabled")
		}
	}

	return c.validatePlugins()
}

func (c *Config) validatePlugins() error {
	seen := make(map[string]string)
	for i, p := range c.Plugins {
		if p.Module == "" {
			return fmt.Errorf("plugins[%d].module is required", i)
		}
		for j, h := range p.Handlers {
			if h.FullName == "" {
				return fmt.Errorf("plugins[%d].handlers[%d].full_name is required", i, j)
			}
			if other, dup := seen[h.FullName]; dup {
				return fmt.Errorf("handler %q declared by both %s and %s", h.FullName, other, p.Module)
			}
			seen[h.FullName] = p.Module
			switch h.Permission {
			case "", "member", "admin":
			default:
				return fmt.Errorf("handler %q: permission %q must be member or admin", h.FullName, h.Permission)
			}
		}
	}
	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.WebUI.PollIntervalRaw != "" {
		cfg.WebUI.PollInterval, err = time.ParseDuration(cfg.WebUI.PollIntervalRaw)
		if err != nil {
			return fmt.Errorf("parsing poll_interval %q: %w", cfg.WebUI.PollIntervalRaw, err)
		}
	}

	if cfg.WebUI.StopTimeoutRaw != "" {
		cfg.WebUI.StopTimeout, err = time.ParseDuration(cfg.WebUI.StopTimeoutRaw)
		if err != nil {
			return fmt.Errorf("parsing stop_timeout %q: %w", cfg.WebUI.StopTimeoutRaw, err)
		}
	}

	return nil
}
