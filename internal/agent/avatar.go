// ABOUTME: One avatar task: its maze connection, navigator and turn loop.
// ABOUTME: Runs AwaitingTurn -> Deciding -> AwaitingTurn until solved, faulted or cancelled.

package agent

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/cannse/server-client-maze-search/internal/maze"
	"github.com/cannse/server-client-maze-search/internal/navigate"
	"github.com/cannse/server-client-maze-search/internal/protocol"
)

// AvatarInfo is a point-in-time view of one avatar.
type AvatarInfo struct {
	ID         int
	State      string
	Position   maze.Position
	Moves      int
	Stationary bool
}

// Avatar drives one navigator over one maze connection.
type Avatar struct {
	id     int
	nav    *navigate.Navigator
	sup    *Supervisor
	logger *slog.Logger

	mu   sync.RWMutex
	info AvatarInfo
}

func newAvatar(id int, sup *Supervisor) *Avatar {
	nav := navigate.New(id, sup.cfg.Maze)
	a := &Avatar{
		id:     id,
		nav:    nav,
		sup:    sup,
		logger: sup.logger.With("avatar_id", id),
	}
	a.snapshot()
	return a
}

// Info returns the avatar's current status.
func (a *Avatar) Info() *AvatarInfo {
	a.mu.RLock()
	defer a.mu.RUnlock()
	info := a.info
	return &info
}

func (a *Avatar) snapshot() {
	a.mu.Lock()
	defer a.mu.Unlock()
	a.info = AvatarInfo{
		ID:         a.id,
		State:      a.nav.State().String(),
		Position:   a.nav.Position(),
		Moves:      a.nav.Moves(),
		Stationary: a.nav.Stationary(),
	}
}

func (a *Avatar) finish() {
	a.nav.Finish()
	a.snapshot()
}

// run returns nil when the avatar stops for a normal reason: the maze was
// solved, the run was cancelled, or this avatar alone hit a protocol error.
func (a *Avatar) run(ctx context.Context) error {
	defer a.finish()

	conn, err := Dial(ctx, a.sup.cfg.Addr, a.sup.connectionParams(a.logger))
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("avatar %d: %w", a.id, err)
	}
	defer conn.Close()

	if err := conn.Send(ctx, protocol.AvatarReady{AvatarID: a.id}); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return fmt.Errorf("avatar %d ready: %w", a.id, err)
	}
	a.logger.Debug("avatar ready", "addr", conn.Addr())

	for {
		msg, err := conn.Receive(ctx)
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			var perr *protocol.ProtocolError
			if errors.As(err, &perr) {
				a.logger.Error("undecodable message, avatar stopping", "error", err)
				return nil
			}
			return fmt.Errorf("avatar %d: %w", a.id, err)
		}

		switch m := msg.(type) {
		case protocol.AvatarTurn:
			if err := a.turn(ctx, conn, m); err != nil {
				if ctx.Err() != nil {
					return nil
				}
				var perr *protocol.ProtocolError
				if errors.As(err, &perr) {
					a.logger.Error("bad turn, avatar stopping", "error", err)
					return nil
				}
				return fmt.Errorf("avatar %d move: %w", a.id, err)
			}
		case protocol.MazeSolved:
			a.sup.markSolved(ctx, a.id, m)
			return nil
		case protocol.Fault:
			a.logger.Error("server fault", "kind", m.Kind.String(), "detail", m.Detail)
			return &ServerFaultError{AvatarID: a.id, Fault: m}
		default:
			a.logger.Warn("ignoring unexpected message", "type", msg.Type().String())
		}
	}
}

func (a *Avatar) turn(ctx context.Context, conn *Connection, m protocol.AvatarTurn) error {
	positions, err := a.positions(m)
	if err != nil {
		return err
	}

	d, mine := a.nav.Turn(m.TurnID, positions)
	a.snapshot()
	if !mine {
		return nil
	}

	switch d.Outcome {
	case navigate.Moved:
		a.sup.recordMove(ctx, a.id, d.Position, d.MoveNumber)
	case navigate.Arrived:
		a.logger.Info("reached anchor", "position", d.Position.String(), "moves", d.MoveNumber)
	case navigate.Bumped:
		a.logger.Debug("blocked", "position", d.Position.String())
	}

	a.sup.observeTurn(m.TurnID, positions)

	a.logger.Debug("sending move", "turn_id", m.TurnID, "direction", d.Direction.String())
	return conn.Send(ctx, protocol.AvatarMove{AvatarID: a.id, Direction: d.Direction})
}

// positions trims the turn to the avatars in play and checks that this
// avatar and the anchor stand on the map.
func (a *Avatar) positions(m protocol.AvatarTurn) ([]maze.Position, error) {
	n := min(len(m.Positions), a.sup.cfg.NumAvatars)
	positions := m.Positions[:n]

	for _, id := range []int{navigate.AnchorID, a.id} {
		if id >= n {
			return nil, &protocol.ProtocolError{Reason: fmt.Sprintf("no position for avatar %d", id), Type: m.Type()}
		}
		if !a.sup.cfg.Maze.InBounds(positions[id]) {
			return nil, &protocol.ProtocolError{
				Reason: fmt.Sprintf("position %s of avatar %d out of range", positions[id], id),
				Type:   m.Type(),
			}
		}
	}
	return positions, nil
}
