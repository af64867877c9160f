// ABOUTME: Entry point for the amazing maze client
// ABOUTME: Runs a cooperative maze session or lists past runs from the ledger

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/cannse/server-client-maze-search/internal/config"
)

// version is set at build time.
var version = "dev"

const banner = `
   __ _ _ __ ___   __ _ _____ _ __   __ _
  / _' | '_ ' _ \ / _' |_  / | '_ \ / _' |
 | (_| | | | | | | (_| |/ /| | | | | (_| |
  \__,_|_| |_| |_|\__,_/___|_|_| |_|\__, |
                                    |___/
`

func usage() {
	fmt.Println("Usage: amazing [run] [flags]")
	fmt.Println("       amazing runs [--db PATH] [--limit N]")
	fmt.Println()
	fmt.Println("Commands:")
	fmt.Println("  run    Solve a maze with cooperating avatars (default)")
	fmt.Println("  runs   List recent runs from the ledger")
	fmt.Println()
	fmt.Println("Run flags:")
	newRunFlags().set.PrintDefaults()
}

func main() {
	args := os.Args[1:]
	command := "run"
	if len(args) > 0 {
		switch args[0] {
		case "run", "runs":
			command, args = args[0], args[1:]
		case "help", "--help":
			usage()
			return
		}
	}

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	var err error
	switch command {
	case "run":
		err = runSession(ctx, args)
	case "runs":
		err = runList(ctx, args)
	}

	if err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// getConfigPath returns the config file to load, or "" for defaults.
// Priority: --config flag > AMAZING_CONFIG env var.
func getConfigPath(flagValue string) string {
	if flagValue != "" {
		return flagValue
	}
	return os.Getenv("AMAZING_CONFIG")
}

// loadConfig reads .env, then the config file (if any) or defaults.
func loadConfig(configFlag string) (*config.Config, error) {
	if err := config.LoadDotEnv(".env"); err != nil {
		return nil, err
	}

	path := getConfigPath(configFlag)
	if path == "" {
		return config.Default(), nil
	}

	cfg, err := config.Load(path)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	return cfg, nil
}

func printBanner() {
	cyan := color.New(color.FgCyan)
	cyan.Print(banner)

	gray := color.New(color.FgHiBlack)
	gray.Printf("    version: %s\n\n", version)
}

// runFlags holds the session command line.
type runFlags struct {
	set *pflag.FlagSet

	avatars    int
	difficulty int
	host       string
	port       int
	configPath string
	logDir     string
	noLogFile  bool
	dbPath     string
	render     string
	logLevel   string
	logFormat  string
}

func newRunFlags() *runFlags {
	f := &runFlags{set: pflag.NewFlagSet("amazing", pflag.ContinueOnError)}
	f.set.IntVarP(&f.avatars, "avatars", "n", 0, "number of avatars (2-10)")
	f.set.IntVarP(&f.difficulty, "difficulty", "d", 0, "maze difficulty (0-9)")
	f.set.StringVarP(&f.host, "host", "h", "", "maze server hostname")
	f.set.IntVar(&f.port, "port", 0, "maze server control port")
	f.set.StringVar(&f.configPath, "config", "", "config file (.yaml or .toml)")
	f.set.StringVar(&f.logDir, "log-dir", "", "directory for the Amazing_*.log run log")
	f.set.BoolVar(&f.noLogFile, "no-log-file", false, "do not write the run log file")
	f.set.StringVar(&f.dbPath, "db", "", "SQLite run ledger path")
	f.set.StringVar(&f.render, "render", "", "maze display: none, plain, tui")
	f.set.StringVar(&f.logLevel, "log-level", "", "log level: debug, info, warn, error")
	f.set.StringVar(&f.logFormat, "log-format", "", "log format: text, json")
	return f
}

// apply overrides cfg with every flag that was set explicitly.
func (f *runFlags) apply(cfg *config.Config) {
	changed := f.set.Changed
	if changed("avatars") {
		cfg.Run.Avatars = f.avatars
	}
	if changed("difficulty") {
		cfg.Run.Difficulty = f.difficulty
	}
	if changed("host") {
		cfg.Server.Host = f.host
	}
	if changed("port") {
		cfg.Server.ControlPort = f.port
	}
	if changed("log-dir") {
		cfg.LogFile.Dir = f.logDir
	}
	if changed("no-log-file") {
		cfg.LogFile.Enabled = !f.noLogFile
	}
	if changed("db") {
		cfg.Database.Path = f.dbPath
	}
	if changed("render") {
		cfg.Render.Mode = f.render
	}
	if changed("log-level") {
		cfg.Logging.Level = f.logLevel
	}
	if changed("log-format") {
		cfg.Logging.Format = f.logFormat
	}
}

// sessionConfig parses args into a validated configuration.
func sessionConfig(args []string) (*config.Config, error) {
	f := newRunFlags()
	if err := f.set.Parse(args); err != nil {
		return nil, err
	}
	if f.set.NArg() > 0 {
		return nil, fmt.Errorf("unexpected arguments: %v", f.set.Args())
	}

	cfg, err := loadConfig(f.configPath)
	if err != nil {
		return nil, err
	}
	f.apply(cfg)

	if cfg.Run.User == "" {
		cfg.Run.User = "anonymous"
	}
	if err := cfg.Finalize(); err != nil {
		return nil, err
	}
	return cfg, nil
}
