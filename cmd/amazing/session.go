// ABOUTME: The run command: initialize a maze, start the avatars and report the outcome
// ABOUTME: Wires the run log, the SQLite ledger and the render sinks into the supervisor

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"github.com/fatih/color"
	"github.com/google/uuid"
	"github.com/spf13/pflag"

	"github.com/cannse/server-client-maze-search/internal/agent"
	"github.com/cannse/server-client-maze-search/internal/config"
	"github.com/cannse/server-client-maze-search/internal/logging"
	"github.com/cannse/server-client-maze-search/internal/maze"
	"github.com/cannse/server-client-maze-search/internal/render"
	"github.com/cannse/server-client-maze-search/internal/runlog"
	"github.com/cannse/server-client-maze-search/internal/store"
)

func runSession(ctx context.Context, args []string) error {
	cfg, err := sessionConfig(args)
	if errors.Is(err, pflag.ErrHelp) {
		return nil
	}
	if err != nil {
		return err
	}

	logger, closeLog, err := sessionLogger(cfg)
	if err != nil {
		return err
	}
	defer closeLog()

	if cfg.Render.Mode != config.RenderTUI {
		printBanner()
	}

	params := agent.ConnectionParams{
		Retry: agent.RetryPolicy{
			MaxAttempts:    cfg.Connect.MaxAttempts,
			InitialBackoff: cfg.Connect.InitialBackoff,
			MaxBackoff:     cfg.Connect.MaxBackoff,
		},
		Logger: logger,
	}

	ok, err := agent.Initialize(ctx, cfg.ControlAddr(), agent.SessionParams{
		NumAvatars: cfg.Run.Avatars,
		Difficulty: cfg.Run.Difficulty,
		Connection: params,
	})
	if err != nil {
		return fmt.Errorf("initializing maze: %w", err)
	}

	startedAt := time.Now()
	walls := maze.New(ok.MazeWidth, ok.MazeHeight)

	var recorders []agent.Recorder

	if cfg.LogFile.Enabled {
		rl, err := runlog.Create(cfg.LogFile.Dir, runlog.Header{
			User:       cfg.Run.User,
			NumAvatars: cfg.Run.Avatars,
			Difficulty: cfg.Run.Difficulty,
			MazePort:   ok.MazePort,
			Time:       startedAt,
		})
		if err != nil {
			return err
		}
		defer rl.Close()
		recorders = append(recorders, rl)
		logger.Info("writing run log", "path", rl.Path())
	}

	var ledger store.Store
	var runID string
	if cfg.Database.Path != "" {
		db, err := store.NewSQLiteStore(cfg.Database.Path)
		if err != nil {
			return fmt.Errorf("opening run ledger: %w", err)
		}
		defer db.Close()

		runID = uuid.New().String()
		if err := db.CreateRun(ctx, &store.Run{
			ID:         runID,
			User:       cfg.Run.User,
			Host:       cfg.Server.Host,
			MazePort:   ok.MazePort,
			NumAvatars: cfg.Run.Avatars,
			Difficulty: cfg.Run.Difficulty,
			Width:      ok.MazeWidth,
			Height:     ok.MazeHeight,
			StartedAt:  startedAt,
		}); err != nil {
			return fmt.Errorf("recording run: %w", err)
		}
		ledger = db
		recorders = append(recorders, store.NewRecorder(db, runID))
		logger.Info("recording run", "run_id", runID, "db", cfg.Database.Path)
	}

	frames := render.NewBroadcaster(logger)
	var lastMu sync.Mutex
	var last render.Frame
	onTurn := func(turnID int, positions []maze.Position) {
		f := render.NewFrame(walls, turnID, positions)
		lastMu.Lock()
		last = f
		lastMu.Unlock()
		frames.Publish(f)
	}

	renderDone := startRenderer(ctx, cfg.Render.Mode, frames)

	sup := agent.NewSupervisor(agent.Config{
		Addr:       net.JoinHostPort(cfg.Server.Host, strconv.Itoa(ok.MazePort)),
		NumAvatars: cfg.Run.Avatars,
		Maze:       walls,
		Connection: params,
		Recorders:  recorders,
		OnTurn:     onTurn,
		Logger:     logger,
	})

	result, runErr := sup.Run(ctx)

	if runErr == nil {
		lastMu.Lock()
		final := last
		lastMu.Unlock()
		final.Maze = walls.Snapshot()
		final.Solved = true
		frames.Publish(final)
	}
	frames.Close()
	if err := <-renderDone; err != nil && !errors.Is(err, context.Canceled) {
		logger.Warn("render stopped", "error", err)
	}

	if runErr != nil && ledger != nil {
		// The run context may already be cancelled.
		if err := ledger.FailRun(context.WithoutCancel(ctx), runID, runErr.Error(), time.Now()); err != nil {
			logger.Warn("recording failed run", "run_id", runID, "error", err)
		}
	}

	printSummary(sup, result, runErr, time.Since(startedAt))
	return runErr
}

// sessionLogger writes to stderr, or to a file while the TUI owns the terminal.
func sessionLogger(cfg *config.Config) (*slog.Logger, func(), error) {
	if cfg.Render.Mode != config.RenderTUI {
		return logging.New(cfg.Logging, os.Stderr), func() {}, nil
	}

	dir := cfg.LogFile.Dir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, nil, fmt.Errorf("creating log directory: %w", err)
	}
	f, err := os.OpenFile(filepath.Join(dir, "amazing.debug.log"), os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0644)
	if err != nil {
		return nil, nil, fmt.Errorf("opening debug log: %w", err)
	}
	return logging.New(cfg.Logging, f), func() { f.Close() }, nil
}

// startRenderer subscribes the chosen sink. The returned channel yields its
// error once the sink stops.
func startRenderer(ctx context.Context, mode string, frames *render.Broadcaster) <-chan error {
	done := make(chan error, 1)
	if mode == config.RenderNone {
		done <- nil
		return done
	}

	ch, _ := frames.Subscribe(ctx)
	go func() {
		switch mode {
		case config.RenderTUI:
			done <- render.RunTUI(ctx, ch)
		default:
			done <- render.Plain(ctx, ch, os.Stdout)
		}
	}()
	return done
}

func printSummary(sup *agent.Supervisor, result agent.Result, runErr error, elapsed time.Duration) {
	out := color.Output
	gray := color.New(color.FgHiBlack)

	if runErr == nil {
		green := color.New(color.FgGreen, color.Bold)
		green.Fprintln(out, "Maze solved!")
		fmt.Fprintf(out, "  hash:       %d\n", result.Summary.Hash)
		fmt.Fprintf(out, "  moves:      %d\n", result.Summary.NumMoves)
		fmt.Fprintf(out, "  avatars:    %d\n", result.Summary.NumAvatars)
		fmt.Fprintf(out, "  difficulty: %d\n", result.Summary.Difficulty)
	} else {
		red := color.New(color.FgRed, color.Bold)
		red.Fprintln(out, "Maze not solved")
		fmt.Fprintf(out, "  reason:     %v\n", runErr)
	}
	gray.Fprintf(out, "  elapsed:    %s\n", elapsed.Round(time.Millisecond))

	writeAvatarTable(out, sup.Avatars())
}

func writeAvatarTable(w io.Writer, infos []*agent.AvatarInfo) {
	if len(infos) == 0 {
		return
	}
	gray := color.New(color.FgHiBlack)
	gray.Fprintln(w, "  avatar  state      position  moves")
	for _, info := range infos {
		role := ""
		if info.Stationary {
			role = " (anchor)"
		}
		fmt.Fprintf(w, "  %-6d  %-9s  %-8s  %d%s\n", info.ID, info.State, info.Position, info.Moves, role)
	}
}
