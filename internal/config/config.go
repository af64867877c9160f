// ABOUTME: Configuration loading and parsing for the amazing client
// ABOUTME: Supports YAML or TOML files with environment variable expansion and duration parsing

package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"os"
	"path/filepath"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/cannse/server-client-maze-search/internal/protocol"
)

// Config represents the complete client configuration
type Config struct {
	Server   ServerConfig   `yaml:"server" toml:"server"`
	Run      RunConfig      `yaml:"run" toml:"run"`
	Connect  ConnectConfig  `yaml:"connect" toml:"connect"`
	Logging  LoggingConfig  `yaml:"logging" toml:"logging"`
	LogFile  LogFileConfig  `yaml:"logfile" toml:"logfile"`
	Database DatabaseConfig `yaml:"database" toml:"database"`
	Render   RenderConfig   `yaml:"render" toml:"render"`
}

// ServerConfig locates the maze server's control port
type ServerConfig struct {
	Host        string `yaml:"host" toml:"host"`
	ControlPort int    `yaml:"control_port" toml:"control_port"`
}

// RunConfig describes the maze to request
type RunConfig struct {
	Avatars    int    `yaml:"avatars" toml:"avatars"`
	Difficulty int    `yaml:"difficulty" toml:"difficulty"`
	User       string `yaml:"user" toml:"user"` // defaults to $USER
}

// ConnectConfig bounds connection retries
type ConnectConfig struct {
	MaxAttempts    int           `yaml:"max_attempts" toml:"max_attempts"`
	InitialBackoff time.Duration `yaml:"-" toml:"-"`
	MaxBackoff     time.Duration `yaml:"-" toml:"-"`

	// Raw string values for unmarshaling
	InitialBackoffRaw string `yaml:"initial_backoff" toml:"initial_backoff"`
	MaxBackoffRaw     string `yaml:"max_backoff" toml:"max_backoff"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" toml:"level"`
	Format string `yaml:"format" toml:"format"`
}

// LogFileConfig controls the per-run text log
type LogFileConfig struct {
	Enabled bool   `yaml:"enabled" toml:"enabled"`
	Dir     string `yaml:"dir" toml:"dir"`
}

// DatabaseConfig holds the run ledger location. An empty path disables it.
type DatabaseConfig struct {
	Path string `yaml:"path" toml:"path"`
}

// Render modes
const (
	RenderNone  = "none"
	RenderPlain = "plain"
	RenderTUI   = "tui"
)

// RenderConfig selects how the discovered maze is shown
type RenderConfig struct {
	Mode string `yaml:"mode" toml:"mode"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "localhost",
			ControlPort: protocol.DefaultPort,
		},
		Run: RunConfig{
			Avatars:    protocol.MinAvatars,
			Difficulty: 0,
			User:       os.Getenv("USER"),
		},
		Connect: ConnectConfig{
			MaxAttempts:       5,
			InitialBackoffRaw: "250ms",
			MaxBackoffRaw:     "4s",
			InitialBackoff:    250 * time.Millisecond,
			MaxBackoff:        4 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
		LogFile: LogFileConfig{
			Enabled: true,
			Dir:     ".",
		},
		Render: RenderConfig{
			Mode: RenderNone,
		},
	}
}

// Load reads a configuration file from the given path on top of Default().
// Files ending in .toml are parsed as TOML, anything else as YAML.
// Environment variables in the format ${VAR_NAME} are expanded.
// Duration strings are parsed into time.Duration values.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	// Expand environment variables in the raw content
	expandedData := expandEnvVars(string(data))

	cfg := Default()
	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(expandedData, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	} else {
		if err := yaml.Unmarshal([]byte(expandedData), cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	}

	if err := cfg.Finalize(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// Finalize parses durations and validates. Call it after changing raw fields.
func (c *Config) Finalize() error {
	if err := parseDurations(c); err != nil {
		return fmt.Errorf("parsing durations: %w", err)
	}
	if err := c.Validate(); err != nil {
		return fmt.Errorf("validating config: %w", err)
	}
	return nil
}

// LoadDotEnv loads variables from the given .env files into the process
// environment. Missing files are ignored; existing variables are kept.
func LoadDotEnv(paths ...string) error {
	for _, p := range paths {
		if err := godotenv.Load(p); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return fmt.Errorf("loading %s: %w", p, err)
		}
	}
	return nil
}

// expandEnvVars replaces ${VAR_NAME} patterns with the corresponding environment variable values.
// If the environment variable is not set, it is replaced with an empty string.
func expandEnvVars(s string) string {
	re := regexp.MustCompile(`\$\{([^}]+)\}`)

	return re.ReplaceAllStringFunc(s, func(match string) string {
		varName := re.FindStringSubmatch(match)[1]
		return os.Getenv(varName)
	})
}

// ControlAddr returns host:port of the control port.
func (c *Config) ControlAddr() string {
	return net.JoinHostPort(c.Server.Host, strconv.Itoa(c.Server.ControlPort))
}

// Validate checks that all configuration fields are present and in range.
// Returns an error describing the first validation failure encountered.
func (c *Config) Validate() error {
	if c.Server.Host == "" {
		return fmt.Errorf("server.host is required")
	}
	if c.Server.ControlPort <= 0 || c.Server.ControlPort > 65535 {
		return fmt.Errorf("server.control_port %d out of range", c.Server.ControlPort)
	}

	if c.Run.Avatars < protocol.MinAvatars || c.Run.Avatars > protocol.MaxAvatars {
		return fmt.Errorf("run.avatars must be between %d and %d, got %d",
			protocol.MinAvatars, protocol.MaxAvatars, c.Run.Avatars)
	}
	if c.Run.Difficulty < 0 || c.Run.Difficulty > protocol.MaxDifficulty {
		return fmt.Errorf("run.difficulty must be between 0 and %d, got %d",
			protocol.MaxDifficulty, c.Run.Difficulty)
	}

	if c.Connect.MaxAttempts < 1 {
		return fmt.Errorf("connect.max_attempts must be at least 1")
	}
	if c.Connect.InitialBackoff <= 0 {
		return fmt.Errorf("connect.initial_backoff must be positive")
	}
	if c.Connect.MaxBackoff < c.Connect.InitialBackoff {
		return fmt.Errorf("connect.max_backoff must not be less than connect.initial_backoff")
	}

	switch c.Logging.Level {
	case "", "debug", "info", "warn", "error":
	default:
		return fmt.Errorf("logging.level %q is not one of debug, info, warn, error", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "", "text", "json":
	default:
		return fmt.Errorf("logging.format %q is not one of text, json", c.Logging.Format)
	}

	switch c.Render.Mode {
	case RenderNone, RenderPlain, RenderTUI:
	default:
		return fmt.Errorf("render.mode %q is not one of none, plain, tui", c.Render.Mode)
	}

	if c.LogFile.Enabled && c.LogFile.Dir == "" {
		return fmt.Errorf("logfile.dir is required when logfile is enabled")
	}

	return nil
}

// parseDurations converts the raw duration strings into time.Duration values
func parseDurations(cfg *Config) error {
	var err error

	if cfg.Connect.InitialBackoffRaw != "" {
		cfg.Connect.InitialBackoff, err = time.ParseDuration(cfg.Connect.InitialBackoffRaw)
		if err != nil {
			return fmt.Errorf("parsing initial_backoff %q: %w", cfg.Connect.InitialBackoffRaw, err)
		}
	}

	if cfg.Connect.MaxBackoffRaw != "" {
		cfg.Connect.MaxBackoff, err = time.ParseDuration(cfg.Connect.MaxBackoffRaw)
		if err != nil {
			return fmt.Errorf("parsing max_backoff %q: %w", cfg.Connect.MaxBackoffRaw, err)
		}
	}

	return nil
}
