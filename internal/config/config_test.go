// ABOUTME: Tests for configuration loading and parsing
// ABOUTME: Covers YAML and TOML loading, env var expansion, defaults and validation

package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return path
}

func TestLoad_ValidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
server:
  host: "maze.example.com"
  control_port: 17300

run:
  avatars: 4
  difficulty: 3
  user: "alice"

connect:
  max_attempts: 7
  initial_backoff: "100ms"
  max_backoff: "2s"

logging:
  level: "debug"
  format: "json"

logfile:
  enabled: true
  dir: "./logs"

database:
  path: "./amazing.db"

render:
  mode: "plain"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "maze.example.com" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "maze.example.com")
	}
	if cfg.Server.ControlPort != 17300 {
		t.Errorf("Server.ControlPort = %d, want %d", cfg.Server.ControlPort, 17300)
	}
	if cfg.Run.Avatars != 4 {
		t.Errorf("Run.Avatars = %d, want 4", cfg.Run.Avatars)
	}
	if cfg.Run.Difficulty != 3 {
		t.Errorf("Run.Difficulty = %d, want 3", cfg.Run.Difficulty)
	}
	if cfg.Run.User != "alice" {
		t.Errorf("Run.User = %q, want %q", cfg.Run.User, "alice")
	}
	if cfg.Connect.MaxAttempts != 7 {
		t.Errorf("Connect.MaxAttempts = %d, want 7", cfg.Connect.MaxAttempts)
	}
	if cfg.Connect.InitialBackoff != 100*time.Millisecond {
		t.Errorf("Connect.InitialBackoff = %v, want 100ms", cfg.Connect.InitialBackoff)
	}
	if cfg.Connect.MaxBackoff != 2*time.Second {
		t.Errorf("Connect.MaxBackoff = %v, want 2s", cfg.Connect.MaxBackoff)
	}
	if cfg.Logging.Level != "debug" {
		t.Errorf("Logging.Level = %q, want %q", cfg.Logging.Level, "debug")
	}
	if cfg.Logging.Format != "json" {
		t.Errorf("Logging.Format = %q, want %q", cfg.Logging.Format, "json")
	}
	if cfg.LogFile.Dir != "./logs" {
		t.Errorf("LogFile.Dir = %q, want %q", cfg.LogFile.Dir, "./logs")
	}
	if cfg.Database.Path != "./amazing.db" {
		t.Errorf("Database.Path = %q, want %q", cfg.Database.Path, "./amazing.db")
	}
	if cfg.Render.Mode != RenderPlain {
		t.Errorf("Render.Mode = %q, want %q", cfg.Render.Mode, RenderPlain)
	}
	if got := cfg.ControlAddr(); got != "maze.example.com:17300" {
		t.Errorf("ControlAddr() = %q, want %q", got, "maze.example.com:17300")
	}
}

func TestLoad_ValidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", `
[server]
host = "127.0.0.1"
control_port = 17235

[run]
avatars = 10
difficulty = 9

[connect]
max_attempts = 2
initial_backoff = "1s"
max_backoff = "1s"

[render]
mode = "tui"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Run.Avatars != 10 {
		t.Errorf("Run.Avatars = %d, want 10", cfg.Run.Avatars)
	}
	if cfg.Run.Difficulty != 9 {
		t.Errorf("Run.Difficulty = %d, want 9", cfg.Run.Difficulty)
	}
	if cfg.Connect.InitialBackoff != time.Second {
		t.Errorf("Connect.InitialBackoff = %v, want 1s", cfg.Connect.InitialBackoff)
	}
	if cfg.Render.Mode != RenderTUI {
		t.Errorf("Render.Mode = %q, want %q", cfg.Render.Mode, RenderTUI)
	}
	// Unset sections keep their defaults.
	if cfg.Logging.Level != "info" {
		t.Errorf("Logging.Level = %q, want default %q", cfg.Logging.Level, "info")
	}
}

func TestLoad_PartialFileKeepsDefaults(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
run:
  avatars: 3
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	def := Default()
	if cfg.Server.Host != def.Server.Host {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, def.Server.Host)
	}
	if cfg.Server.ControlPort != def.Server.ControlPort {
		t.Errorf("Server.ControlPort = %d, want %d", cfg.Server.ControlPort, def.Server.ControlPort)
	}
	if cfg.Connect.MaxBackoff != def.Connect.MaxBackoff {
		t.Errorf("Connect.MaxBackoff = %v, want %v", cfg.Connect.MaxBackoff, def.Connect.MaxBackoff)
	}
	if cfg.Run.Avatars != 3 {
		t.Errorf("Run.Avatars = %d, want 3", cfg.Run.Avatars)
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("TEST_MAZE_HOST", "flume.example.edu")
	t.Setenv("TEST_MAZE_USER", "bob")

	path := writeConfig(t, "config.yaml", `
server:
  host: "${TEST_MAZE_HOST}"
run:
  avatars: 2
  user: "${TEST_MAZE_USER}"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Host != "flume.example.edu" {
		t.Errorf("Server.Host = %q, want %q", cfg.Server.Host, "flume.example.edu")
	}
	if cfg.Run.User != "bob" {
		t.Errorf("Run.User = %q, want %q", cfg.Run.User, "bob")
	}
}

func TestLoad_EnvVarExpansion_UnsetVar(t *testing.T) {
	os.Unsetenv("TEST_MAZE_UNSET")

	path := writeConfig(t, "config.yaml", `
server:
  host: "${TEST_MAZE_UNSET}"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for empty host, got nil")
	}
	if !strings.Contains(err.Error(), "server.host") {
		t.Errorf("error = %q, want mention of server.host", err.Error())
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("Load() expected error for missing file, got nil")
	}
	if !strings.Contains(err.Error(), "reading config file") {
		t.Errorf("error = %q, want reading config file", err.Error())
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "config.yaml", "server:\n  host: [unterminated\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid YAML, got nil")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("error = %q, want parsing config file", err.Error())
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	path := writeConfig(t, "config.toml", "[server\nhost = 1\n")

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid TOML, got nil")
	}
	if !strings.Contains(err.Error(), "parsing config file") {
		t.Errorf("error = %q, want parsing config file", err.Error())
	}
}

func TestLoad_InvalidDuration(t *testing.T) {
	path := writeConfig(t, "config.yaml", `
connect:
  initial_backoff: "soon"
`)

	_, err := Load(path)
	if err == nil {
		t.Fatal("Load() expected error for invalid duration, got nil")
	}
	if !strings.Contains(err.Error(), "initial_backoff") {
		t.Errorf("error = %q, want mention of initial_backoff", err.Error())
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		modify  func(*Config)
		wantErr string
	}{
		{"default is valid", func(*Config) {}, ""},
		{"missing host", func(c *Config) { c.Server.Host = "" }, "server.host"},
		{"port zero", func(c *Config) { c.Server.ControlPort = 0 }, "control_port"},
		{"port too large", func(c *Config) { c.Server.ControlPort = 70000 }, "control_port"},
		{"one avatar", func(c *Config) { c.Run.Avatars = 1 }, "run.avatars"},
		{"eleven avatars", func(c *Config) { c.Run.Avatars = 11 }, "run.avatars"},
		{"ten avatars", func(c *Config) { c.Run.Avatars = 10 }, ""},
		{"negative difficulty", func(c *Config) { c.Run.Difficulty = -1 }, "run.difficulty"},
		{"difficulty ten", func(c *Config) { c.Run.Difficulty = 10 }, "run.difficulty"},
		{"no attempts", func(c *Config) { c.Connect.MaxAttempts = 0 }, "max_attempts"},
		{"zero backoff", func(c *Config) { c.Connect.InitialBackoff = 0 }, "initial_backoff"},
		{"max below initial", func(c *Config) { c.Connect.MaxBackoff = time.Millisecond }, "max_backoff"},
		{"bad level", func(c *Config) { c.Logging.Level = "loud" }, "logging.level"},
		{"bad format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
		{"bad render", func(c *Config) { c.Render.Mode = "3d" }, "render.mode"},
		{"logfile without dir", func(c *Config) { c.LogFile.Dir = "" }, "logfile.dir"},
		{"disabled logfile without dir", func(c *Config) { c.LogFile.Enabled = false; c.LogFile.Dir = "" }, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := Default()
			tt.modify(cfg)

			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() expected error containing %q, got nil", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %q, want containing %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestFinalize_ReparsesRawDurations(t *testing.T) {
	cfg := Default()
	cfg.Connect.InitialBackoffRaw = "10ms"
	cfg.Connect.MaxBackoffRaw = "20ms"

	if err := cfg.Finalize(); err != nil {
		t.Fatalf("Finalize() error = %v", err)
	}
	if cfg.Connect.InitialBackoff != 10*time.Millisecond {
		t.Errorf("Connect.InitialBackoff = %v, want 10ms", cfg.Connect.InitialBackoff)
	}
	if cfg.Connect.MaxBackoff != 20*time.Millisecond {
		t.Errorf("Connect.MaxBackoff = %v, want 20ms", cfg.Connect.MaxBackoff)
	}
}

func TestLoadDotEnv(t *testing.T) {
	dir := t.TempDir()
	envPath := filepath.Join(dir, ".env")
	if err := os.WriteFile(envPath, []byte("TEST_DOTENV_HOST=dotenv.example\n"), 0644); err != nil {
		t.Fatalf("failed to write .env: %v", err)
	}
	// Registers cleanup for the variable godotenv sets.
	t.Setenv("TEST_DOTENV_HOST", "")
	os.Unsetenv("TEST_DOTENV_HOST")

	if err := LoadDotEnv(filepath.Join(dir, "missing.env"), envPath); err != nil {
		t.Fatalf("LoadDotEnv() error = %v", err)
	}
	if got := os.Getenv("TEST_DOTENV_HOST"); got != "dotenv.example" {
		t.Errorf("TEST_DOTENV_HOST = %q, want %q", got, "dotenv.example")
	}
}
