// ABOUTME: One maze game: accepts avatar connections, runs turns round-robin, judges moves
// ABOUTME: Ends with MazeSolved when all avatars share a cell, or TooManyMoves past the budget

package mazeserver

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"sync"

	"github.com/cannse/server-client-maze-search/internal/maze"
	"github.com/cannse/server-client-maze-search/internal/protocol"
)

type game struct {
	server       *Server
	numAvatars   int
	difficulty   int
	width        int
	height       int
	truth        *maze.Map
	positions    []maze.Position
	maxMoves     int
	solveOnReady bool
	hash         uint32
	logger       *slog.Logger

	conns []net.Conn
	moves int
}

type inbound struct {
	avatarID int
	msg      protocol.Message
	err      error
}

func (g *game) run(ctx context.Context, ln net.Listener) error {
	stop := context.AfterFunc(ctx, func() { ln.Close() })
	defer stop()

	if err := g.accept(ln); err != nil {
		ln.Close()
		g.closeAll()
		return err
	}
	ln.Close()

	done := make(chan struct{})
	events := make(chan inbound)
	var readers sync.WaitGroup
	for id, conn := range g.conns {
		readers.Add(1)
		go func() {
			defer readers.Done()
			g.read(id, conn, events, done)
		}()
	}

	closeConns := context.AfterFunc(ctx, g.closeAll)
	defer closeConns()

	err := g.play(ctx, events)

	// Let clients hang up on their own, then release the readers.
	close(done)
	readers.Wait()
	g.closeAll()
	return err
}

// accept waits for every avatar to connect and announce itself.
func (g *game) accept(ln net.Listener) error {
	g.conns = make([]net.Conn, g.numAvatars)
	for ready := 0; ready < g.numAvatars; {
		conn, err := ln.Accept()
		if err != nil {
			return fmt.Errorf("accepting avatar: %w", err)
		}

		msg, err := protocol.ReadMessage(conn)
		if err != nil {
			conn.Close()
			g.logger.Warn("reading avatar ready", "error", err)
			continue
		}

		r, ok := msg.(protocol.AvatarReady)
		if !ok || r.AvatarID < 0 || r.AvatarID >= g.numAvatars || g.conns[r.AvatarID] != nil {
			_ = protocol.WriteMessage(conn, protocol.Fault{Kind: protocol.TypeUnexpectedMsgType})
			conn.Close()
			continue
		}

		g.conns[r.AvatarID] = conn
		ready++
	}
	return nil
}

// read forwards messages from one avatar until its connection ends. After done
// is closed messages are only counted.
func (g *game) read(id int, conn net.Conn, events chan<- inbound, done <-chan struct{}) {
	for {
		msg, err := protocol.ReadMessage(conn)
		if err == nil {
			if _, ok := msg.(protocol.AvatarMove); ok {
				g.server.moves.Add(1)
			}
		}

		select {
		case events <- inbound{avatarID: id, msg: msg, err: err}:
		case <-done:
		}
		if err != nil {
			return
		}
	}
}

func (g *game) play(ctx context.Context, events <-chan inbound) error {
	if g.solveOnReady {
		g.finish(protocol.MazeSolved{
			NumAvatars: g.numAvatars,
			Difficulty: g.difficulty,
			NumMoves:   0,
			Hash:       g.hash,
		})
		return nil
	}

	turn := 0
	g.broadcast(protocol.AvatarTurn{TurnID: turn, Positions: g.positions})

	for {
		var ev inbound
		select {
		case <-ctx.Done():
			return ctx.Err()
		case ev = <-events:
		}

		if ev.err != nil {
			return fmt.Errorf("avatar %d connection: %w", ev.avatarID, ev.err)
		}

		mv, ok := ev.msg.(protocol.AvatarMove)
		if !ok {
			g.send(ev.avatarID, protocol.Fault{Kind: protocol.TypeUnexpectedMsgType})
			continue
		}
		if ev.avatarID != turn || mv.AvatarID != turn {
			g.send(ev.avatarID, protocol.Fault{Kind: protocol.TypeAvatarOutOfTurn})
			continue
		}

		g.apply(turn, mv.Direction)
		g.moves++

		if g.together() {
			g.finish(protocol.MazeSolved{
				NumAvatars: g.numAvatars,
				Difficulty: g.difficulty,
				NumMoves:   g.moves,
				Hash:       g.hash,
			})
			return nil
		}
		if g.moves >= g.maxMoves {
			g.logger.Info("move budget exhausted", "moves", g.moves)
			g.broadcast(protocol.Fault{Kind: protocol.TypeTooManyMoves})
			return nil
		}

		turn = (turn + 1) % g.numAvatars
		g.broadcast(protocol.AvatarTurn{TurnID: turn, Positions: g.positions})
	}
}

func (g *game) finish(solved protocol.MazeSolved) {
	g.server.solved.Add(1)
	g.logger.Info("maze solved", "moves", solved.NumMoves, "hash", solved.Hash)
	g.broadcast(solved)
}

func (g *game) apply(id int, d maze.Direction) {
	if !d.Valid() {
		return
	}
	p := g.positions[id]
	next := p.Step(d)
	if !g.truth.InBounds(next) || g.truth.GetWall(p.X, p.Y, d) != maze.Open {
		return
	}
	g.positions[id] = next
}

func (g *game) together() bool {
	for _, p := range g.positions[1:] {
		if p != g.positions[0] {
			return false
		}
	}
	return true
}

func (g *game) broadcast(m protocol.Message) {
	for id := range g.conns {
		g.send(id, m)
	}
}

func (g *game) send(id int, m protocol.Message) {
	if err := protocol.WriteMessage(g.conns[id], m); err != nil {
		g.logger.Debug("send to avatar failed", "avatar_id", id, "error", err)
	}
}

func (g *game) closeAll() {
	for _, c := range g.conns {
		if c != nil {
			c.Close()
		}
	}
}
