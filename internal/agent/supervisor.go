// ABOUTME: Spawns one task per avatar against a shared maze map and coordinates shutdown.
// ABOUTME: The first MazeSolved fires a one-shot signal; a server fault stops every avatar.

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"golang.org/x/sync/errgroup"

	"github.com/cannse/server-client-maze-search/internal/maze"
	"github.com/cannse/server-client-maze-search/internal/protocol"
)

// ErrUnsolved indicates every avatar stopped without the maze being solved.
var ErrUnsolved = errors.New("avatars stopped before the maze was solved")

// Recorder receives successful moves and the final solution.
type Recorder interface {
	RecordMove(ctx context.Context, avatarID int, pos maze.Position, moveNumber int) error
	RecordSolved(ctx context.Context, solved protocol.MazeSolved) error
}

// Config describes one run.
type Config struct {
	// Addr is host:port of the maze port returned by InitOK.
	Addr       string
	NumAvatars int
	Maze       *maze.Map
	Connection ConnectionParams
	Recorders  []Recorder
	// OnTurn, if set, is called once per turn by the avatar whose turn it is,
	// after the shared map has been updated.
	OnTurn func(turnID int, positions []maze.Position)
	Logger *slog.Logger
}

// Result is the outcome of a solved run.
type Result struct {
	Summary protocol.MazeSolved
	// SolvedBy is the avatar whose connection delivered MazeSolved first.
	SolvedBy int
}

// Supervisor runs every avatar of a maze.
type Supervisor struct {
	cfg    Config
	logger *slog.Logger

	mu      sync.RWMutex
	avatars map[int]*Avatar

	recordMu sync.Mutex

	solved     chan struct{}
	solvedOnce sync.Once
	result     Result
	cancel     context.CancelFunc
}

// NewSupervisor creates a Supervisor. Call Run once.
func NewSupervisor(cfg Config) *Supervisor {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		cfg:     cfg,
		logger:  logger.With("component", "supervisor"),
		avatars: make(map[int]*Avatar),
		solved:  make(chan struct{}),
	}
}

// Solved is closed exactly once, when the first MazeSolved arrives.
func (s *Supervisor) Solved() <-chan struct{} {
	return s.solved
}

// Run starts NumAvatars avatars and blocks until the maze is solved, a server
// fault or connection failure stops the run, or ctx is cancelled.
func (s *Supervisor) Run(ctx context.Context) (Result, error) {
	if s.cfg.NumAvatars < 1 || s.cfg.NumAvatars > protocol.MaxAvatars {
		return Result{}, fmt.Errorf("avatar count %d outside 1..%d", s.cfg.NumAvatars, protocol.MaxAvatars)
	}
	if s.cfg.Maze == nil {
		return Result{}, errors.New("maze map is required")
	}

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.cancel = cancel

	g, gctx := errgroup.WithContext(runCtx)

	for id := range s.cfg.NumAvatars {
		a := newAvatar(id, s)
		s.register(a)
		g.Go(func() error {
			return a.run(gctx)
		})
	}

	s.logger.Info("avatars started", "count", s.cfg.NumAvatars, "addr", s.cfg.Addr)

	err := g.Wait()

	select {
	case <-s.solved:
		return s.result, nil
	default:
	}

	if err != nil {
		s.logger.Error("run failed", "error", err)
		return Result{}, err
	}
	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}
	return Result{}, ErrUnsolved
}

func (s *Supervisor) register(a *Avatar) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.avatars[a.id] = a
}

// Avatars returns the status of every avatar, ordered by id.
func (s *Supervisor) Avatars() []*AvatarInfo {
	s.mu.RLock()
	defer s.mu.RUnlock()

	infos := make([]*AvatarInfo, 0, len(s.avatars))
	for _, a := range s.avatars {
		infos = append(infos, a.Info())
	}
	sort.Slice(infos, func(i, j int) bool { return infos[i].ID < infos[j].ID })
	return infos
}

func (s *Supervisor) connectionParams(logger *slog.Logger) ConnectionParams {
	params := s.cfg.Connection
	params.Logger = logger
	return params
}

func (s *Supervisor) markSolved(ctx context.Context, avatarID int, m protocol.MazeSolved) {
	s.solvedOnce.Do(func() {
		s.result = Result{Summary: m, SolvedBy: avatarID}
		s.logger.Info("maze solved",
			"hash", m.Hash,
			"moves", m.NumMoves,
			"difficulty", m.Difficulty,
			"avatars", m.NumAvatars,
		)

		s.recordMu.Lock()
		for _, r := range s.cfg.Recorders {
			if err := r.RecordSolved(ctx, m); err != nil {
				s.logger.Warn("recording solution failed", "error", err)
			}
		}
		s.recordMu.Unlock()

		close(s.solved)
		s.cancel()
	})
}

func (s *Supervisor) recordMove(ctx context.Context, avatarID int, pos maze.Position, moveNumber int) {
	s.recordMu.Lock()
	defer s.recordMu.Unlock()

	for _, r := range s.cfg.Recorders {
		if err := r.RecordMove(ctx, avatarID, pos, moveNumber); err != nil {
			s.logger.Warn("recording move failed", "avatar_id", avatarID, "error", err)
		}
	}
}

func (s *Supervisor) observeTurn(turnID int, positions []maze.Position) {
	if s.cfg.OnTurn != nil {
		s.cfg.OnTurn(turnID, positions)
	}
}
