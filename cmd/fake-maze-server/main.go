// ABOUTME: Minimal fake maze server for local runs and E2E testing of the avatar client.
// ABOUTME: Usage: fake-maze-server [--addr localhost:17235] [--seed 1] [--max-moves 0] [--solve-on-ready]
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/pflag"

	"github.com/cannse/server-client-maze-search/internal/config"
	"github.com/cannse/server-client-maze-search/internal/logging"
	"github.com/cannse/server-client-maze-search/internal/mazeserver"
	"github.com/cannse/server-client-maze-search/internal/protocol"
)

func main() {
	flags := pflag.NewFlagSet("fake-maze-server", pflag.ExitOnError)
	addr := flags.String("addr", fmt.Sprintf("localhost:%d", protocol.DefaultPort), "control port listen address")
	seed := flags.Uint64("seed", 1, "maze generator seed")
	maxMoves := flags.Int("max-moves", 0, "move budget per maze (0 = 1000 per avatar)")
	size := flags.Int("size", 0, "fixed square maze edge (0 = derived from difficulty)")
	solveOnReady := flags.Bool("solve-on-ready", false, "answer readiness with MazeSolved")
	level := flags.String("log-level", "info", "log level: debug, info, warn, error")
	_ = flags.Parse(os.Args[1:])

	logger := logging.New(config.LoggingConfig{Level: *level}, os.Stderr)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	srv := mazeserver.New(mazeserver.Config{
		Width:        *size,
		Height:       *size,
		MaxMoves:     *maxMoves,
		Seed:         *seed,
		SolveOnReady: *solveOnReady,
		Logger:       logger,
	})

	if err := srv.ListenAndServe(ctx, *addr); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}

	stats := srv.Stats()
	logger.Info("maze server stopped",
		"games", stats.Games,
		"moves", stats.MovesReceived,
		"solved", stats.Solved,
	)
}
