// ABOUTME: In-process maze server speaking the avatar wire protocol, for local runs and E2E tests
// ABOUTME: Control port accepts Init; each accepted maze gets its own listener and game loop

package mazeserver

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"net"
	"sync"
	"sync/atomic"

	"github.com/cannse/server-client-maze-search/internal/maze"
	"github.com/cannse/server-client-maze-search/internal/protocol"
)

// Config controls the mazes the server hands out.
type Config struct {
	// Width and Height override the difficulty-derived size when both are set.
	Width  int
	Height int
	// MaxMoves is the move budget per game, counting every AvatarMove.
	// Zero means 1000 per avatar.
	MaxMoves int
	Seed     uint64
	// Layout, if set, replaces generation. It must return a map of the
	// requested size with every wall Open or Blocked.
	Layout func(width, height int) *maze.Map
	// Starts fixes avatar start positions; missing entries are random.
	Starts []maze.Position
	// SolveOnReady answers the last AvatarReady with MazeSolved.
	SolveOnReady bool
	Logger       *slog.Logger
}

// Stats counts server activity across all games.
type Stats struct {
	Games         int64
	MovesReceived int64
	Solved        int64
}

// Server is a fake maze server.
type Server struct {
	cfg    Config
	logger *slog.Logger

	rngMu sync.Mutex
	rng   *rand.Rand

	wg sync.WaitGroup

	games  atomic.Int64
	moves  atomic.Int64
	solved atomic.Int64
}

// New creates a Server.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Server{
		cfg:    cfg,
		logger: logger.With("component", "mazeserver"),
		rng:    rand.New(rand.NewPCG(cfg.Seed, cfg.Seed^0x9e3779b97f4a7c15)),
	}
}

// Stats returns a snapshot of the counters.
func (s *Server) Stats() Stats {
	return Stats{
		Games:         s.games.Load(),
		MovesReceived: s.moves.Load(),
		Solved:        s.solved.Load(),
	}
}

// ListenAndServe listens on addr and serves until ctx is cancelled.
func (s *Server) ListenAndServe(ctx context.Context, addr string) error {
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listening on %s: %w", addr, err)
	}
	return s.Serve(ctx, ln)
}

// Serve accepts control connections on ln until ctx is cancelled. It waits for
// running games to finish before returning.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()
	defer s.wg.Wait()

	s.logger.Info("maze server listening", "addr", ln.Addr().String())

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return nil
			}
			return fmt.Errorf("accepting control connection: %w", err)
		}

		s.wg.Add(1)
		go func() {
			defer s.wg.Done()
			s.handleControl(ctx, conn)
		}()
	}
}

func (s *Server) handleControl(ctx context.Context, conn net.Conn) {
	defer conn.Close()

	msg, err := protocol.ReadMessage(conn)
	if err != nil {
		s.logger.Warn("reading init", "error", err)
		return
	}

	req, ok := msg.(protocol.Init)
	if !ok {
		s.reply(conn, protocol.Fault{Kind: protocol.TypeUnexpectedMsgType})
		return
	}

	if req.NumAvatars < 1 || req.NumAvatars > protocol.MaxAvatars {
		s.reply(conn, protocol.Fault{Kind: protocol.TypeInitFailed, Detail: protocol.InitErrTooManyAvatars})
		return
	}
	if req.Difficulty < 0 || req.Difficulty > protocol.MaxDifficulty {
		s.reply(conn, protocol.Fault{Kind: protocol.TypeInitFailed, Detail: protocol.InitErrBadDifficulty})
		return
	}

	g := s.newGame(req)

	host, _, err := net.SplitHostPort(conn.LocalAddr().String())
	if err != nil {
		host = "127.0.0.1"
	}
	mazeLn, err := net.Listen("tcp", net.JoinHostPort(host, "0"))
	if err != nil {
		s.logger.Error("opening maze port", "error", err)
		s.reply(conn, protocol.Fault{Kind: protocol.TypeServerOutOfMemory})
		return
	}
	port := mazeLn.Addr().(*net.TCPAddr).Port

	s.games.Add(1)
	if !s.reply(conn, protocol.InitOK{MazePort: port, MazeWidth: g.width, MazeHeight: g.height}) {
		mazeLn.Close()
		return
	}

	s.logger.Info("maze created",
		"maze_port", port,
		"avatars", req.NumAvatars,
		"difficulty", req.Difficulty,
		"width", g.width,
		"height", g.height,
	)

	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		if err := g.run(ctx, mazeLn); err != nil {
			s.logger.Warn("game ended with error", "maze_port", port, "error", err)
		}
	}()
}

func (s *Server) reply(conn net.Conn, m protocol.Message) bool {
	if err := protocol.WriteMessage(conn, m); err != nil {
		s.logger.Warn("writing reply", "type", m.Type().String(), "error", err)
		return false
	}
	return true
}

// sizeFor maps difficulty to a square maze edge.
func sizeFor(difficulty int) int {
	return 4 + 4*difficulty
}

func (s *Server) newGame(req protocol.Init) *game {
	width, height := s.cfg.Width, s.cfg.Height
	if width <= 0 || height <= 0 {
		width = sizeFor(req.Difficulty)
		height = width
	}

	s.rngMu.Lock()
	defer s.rngMu.Unlock()

	var truth *maze.Map
	if s.cfg.Layout != nil {
		truth = s.cfg.Layout(width, height)
	} else {
		truth = Generate(width, height, s.rng)
	}

	positions := make([]maze.Position, req.NumAvatars)
	for i := range positions {
		if i < len(s.cfg.Starts) {
			positions[i] = s.cfg.Starts[i]
			continue
		}
		positions[i] = maze.Position{X: s.rng.IntN(width), Y: s.rng.IntN(height)}
	}

	maxMoves := s.cfg.MaxMoves
	if maxMoves <= 0 {
		maxMoves = 1000 * req.NumAvatars
	}

	return &game{
		server:       s,
		numAvatars:   req.NumAvatars,
		difficulty:   req.Difficulty,
		width:        width,
		height:       height,
		truth:        truth,
		positions:    positions,
		maxMoves:     maxMoves,
		solveOnReady: s.cfg.SolveOnReady,
		hash:         LayoutHash(truth),
		logger:       s.logger,
	}
}
