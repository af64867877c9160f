// ABOUTME: End-to-end tests running the supervisor against the in-process maze server
// ABOUTME: Covers solving, immediate MazeSolved, TooManyMoves shutdown and init failures

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"strconv"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cannse/server-client-maze-search/internal/maze"
	"github.com/cannse/server-client-maze-search/internal/mazeserver"
	"github.com/cannse/server-client-maze-search/internal/protocol"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type recordedMove struct {
	AvatarID   int
	Position   maze.Position
	MoveNumber int
}

type memRecorder struct {
	mu     sync.Mutex
	moves  []recordedMove
	solved []protocol.MazeSolved
}

func (r *memRecorder) RecordMove(ctx context.Context, avatarID int, pos maze.Position, moveNumber int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.moves = append(r.moves, recordedMove{AvatarID: avatarID, Position: pos, MoveNumber: moveNumber})
	return nil
}

func (r *memRecorder) RecordSolved(ctx context.Context, solved protocol.MazeSolved) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.solved = append(r.solved, solved)
	return nil
}

func startMazeServer(t *testing.T, cfg mazeserver.Config) (*mazeserver.Server, string) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	cfg.Logger = testLogger()
	srv := mazeserver.New(cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = srv.Serve(ctx, ln)
	}()
	t.Cleanup(func() {
		cancel()
		select {
		case <-done:
		case <-time.After(5 * time.Second):
			t.Error("maze server did not stop")
		}
	})

	return srv, ln.Addr().String()
}

type runOutcome struct {
	result   Result
	err      error
	walls    *maze.Map
	sup      *Supervisor
	recorder *memRecorder
	turns    int
	// widest is the largest position list seen by OnTurn.
	widest int
}

func runClient(t *testing.T, addr string, numAvatars, difficulty int) runOutcome {
	t.Helper()

	ctx, cancel := context.WithTimeout(t.Context(), 20*time.Second)
	defer cancel()

	params := ConnectionParams{Retry: fastRetry, Logger: testLogger()}
	ok, err := Initialize(ctx, addr, SessionParams{NumAvatars: numAvatars, Difficulty: difficulty, Connection: params})
	require.NoError(t, err)

	host, _, err := net.SplitHostPort(addr)
	require.NoError(t, err)

	out := runOutcome{
		walls:    maze.New(ok.MazeWidth, ok.MazeHeight),
		recorder: &memRecorder{},
	}
	var turnsMu sync.Mutex
	out.sup = NewSupervisor(Config{
		Addr:       net.JoinHostPort(host, strconv.Itoa(ok.MazePort)),
		NumAvatars: numAvatars,
		Maze:       out.walls,
		Connection: params,
		Recorders:  []Recorder{out.recorder},
		OnTurn: func(_ int, positions []maze.Position) {
			turnsMu.Lock()
			out.turns++
			out.widest = max(out.widest, len(positions))
			turnsMu.Unlock()
		},
		Logger: testLogger(),
	})

	out.result, out.err = out.sup.Run(ctx)
	require.NoError(t, ctx.Err(), "run did not finish in time")
	return out
}

// twoByTwo opens a single corridor (0,1) -> (1,1) -> (1,0) -> (0,0).
func twoByTwo(width, height int) *maze.Map {
	m := mazeserver.Closed(width, height)
	m.SetWall(0, 1, maze.East, maze.Open)
	m.SetWall(1, 1, maze.North, maze.Open)
	m.SetWall(1, 0, maze.West, maze.Open)
	return m
}

func TestSupervisor_TwoByTwoSolved(t *testing.T) {
	srv, addr := startMazeServer(t, mazeserver.Config{
		Width:  2,
		Height: 2,
		Layout: func(w, h int) *maze.Map { return twoByTwo(w, h) },
		Starts: []maze.Position{{X: 0, Y: 0}, {X: 0, Y: 1}},
	})

	out := runClient(t, addr, 2, 0)
	require.NoError(t, out.err)

	select {
	case <-out.sup.Solved():
	default:
		t.Fatal("solved signal not fired")
	}

	// Avatar 1 takes seven turns: east, south, east, north, east, north, west.
	// Every turn of avatar 0 counts as a move too.
	assert.Equal(t, 2, out.result.Summary.NumAvatars)
	assert.Equal(t, 14, out.result.Summary.NumMoves)
	assert.Equal(t, 14, out.turns)
	assert.Equal(t, 2, out.widest, "turns carry only the avatars in play")

	assert.Equal(t, maze.Open, out.walls.GetWall(0, 1, maze.East))
	assert.Equal(t, maze.Blocked, out.walls.GetWall(1, 1, maze.South))
	assert.Equal(t, maze.Blocked, out.walls.GetWall(1, 1, maze.East))
	assert.Equal(t, maze.Open, out.walls.GetWall(1, 0, maze.South))
	assert.Equal(t, maze.Blocked, out.walls.GetWall(1, 0, maze.North))

	// The final step onto the anchor is answered with MazeSolved, not a turn.
	assert.Equal(t, []recordedMove{
		{AvatarID: 1, Position: maze.Position{X: 1, Y: 1}, MoveNumber: 1},
		{AvatarID: 1, Position: maze.Position{X: 1, Y: 0}, MoveNumber: 2},
	}, out.recorder.moves)
	require.Len(t, out.recorder.solved, 1)

	for _, info := range out.sup.Avatars() {
		assert.Equal(t, "done", info.State)
	}
	assert.Equal(t, int64(1), srv.Stats().Solved)
}

func TestSupervisor_SolvedRightAfterReady(t *testing.T) {
	srv, addr := startMazeServer(t, mazeserver.Config{SolveOnReady: true})

	out := runClient(t, addr, 3, 2)
	require.NoError(t, out.err)

	assert.Equal(t, 3, out.result.Summary.NumAvatars)
	assert.Equal(t, 2, out.result.Summary.Difficulty)
	assert.Empty(t, out.recorder.moves)
	assert.Len(t, out.recorder.solved, 1, "solution recorded once")
	assert.Zero(t, out.turns)
	assert.Equal(t, int64(0), srv.Stats().MovesReceived)
}

func TestSupervisor_TooManyMovesStopsEveryAvatar(t *testing.T) {
	_, addr := startMazeServer(t, mazeserver.Config{
		Width:    3,
		Height:   3,
		MaxMoves: 5,
		Layout:   func(w, h int) *maze.Map { return mazeserver.Closed(w, h) },
		Starts:   []maze.Position{{X: 0, Y: 0}, {X: 1, Y: 1}, {X: 2, Y: 2}},
	})

	out := runClient(t, addr, 3, 0)

	var fault *ServerFaultError
	require.ErrorAs(t, out.err, &fault)
	assert.Equal(t, protocol.TypeTooManyMoves, fault.Fault.Kind)

	select {
	case <-out.sup.Solved():
		t.Fatal("solved signal fired on a failed run")
	default:
	}
	for _, info := range out.sup.Avatars() {
		assert.Equal(t, "done", info.State, "avatar %d", info.ID)
	}
}

func TestSupervisor_GeneratedMazeSolved(t *testing.T) {
	_, addr := startMazeServer(t, mazeserver.Config{Seed: 42, MaxMoves: 50000})

	out := runClient(t, addr, 3, 1)
	require.NoError(t, out.err)

	assert.Equal(t, 3, out.result.Summary.NumAvatars)
	require.Len(t, out.recorder.solved, 1)

	infos := out.sup.Avatars()
	require.Len(t, infos, 3)
	assert.True(t, infos[0].Stationary)
	assert.Zero(t, infos[0].Moves)
}

func TestInitialize_BadDifficulty(t *testing.T) {
	_, addr := startMazeServer(t, mazeserver.Config{})

	_, err := Initialize(t.Context(), addr, SessionParams{
		NumAvatars: 2,
		Difficulty: 12,
		Connection: ConnectionParams{Retry: fastRetry, Logger: testLogger()},
	})

	var ierr *InitError
	require.ErrorAs(t, err, &ierr)
	assert.Equal(t, protocol.InitErrBadDifficulty, ierr.ErrNum)
}

func TestInitialize_NoServer(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	addr := ln.Addr().String()
	ln.Close()

	_, err = Initialize(t.Context(), addr, SessionParams{
		NumAvatars: 2,
		Connection: ConnectionParams{Retry: fastRetry, Logger: testLogger()},
	})

	var cerr *ConnectError
	require.ErrorAs(t, err, &cerr)
	assert.Equal(t, fastRetry.MaxAttempts, cerr.Attempts)
}

func TestSupervisor_RejectsBadConfig(t *testing.T) {
	_, err := NewSupervisor(Config{NumAvatars: 0, Maze: maze.New(1, 1)}).Run(t.Context())
	assert.Error(t, err)

	_, err = NewSupervisor(Config{NumAvatars: 2}).Run(t.Context())
	assert.Error(t, err)
}

func TestSupervisor_AnchorArrivalIsNotRecorded(t *testing.T) {
	// Avatar 1 probes east and north, then steps west onto the anchor while
	// avatar 2 stays boxed in until the move budget runs out.
	_, addr := startMazeServer(t, mazeserver.Config{
		Width:    3,
		Height:   1,
		MaxMoves: 12,
		Layout: func(w, h int) *maze.Map {
			m := mazeserver.Closed(w, h)
			m.SetWall(0, 0, maze.East, maze.Open)
			return m
		},
		Starts: []maze.Position{{X: 0, Y: 0}, {X: 1, Y: 0}, {X: 2, Y: 0}},
	})

	out := runClient(t, addr, 3, 0)

	var fault *ServerFaultError
	require.ErrorAs(t, out.err, &fault)
	assert.Equal(t, protocol.TypeTooManyMoves, fault.Fault.Kind)

	infos := out.sup.Avatars()
	require.Len(t, infos, 3)
	assert.Equal(t, 1, infos[1].Moves)
	assert.Equal(t, maze.Position{X: 0, Y: 0}, infos[1].Position)
	assert.True(t, infos[1].Stationary)

	assert.Empty(t, out.recorder.moves)
	assert.Empty(t, out.recorder.solved)
}

// scriptedMazePort accepts numAvatars maze connections, pairs each with its
// AvatarReady id and hands them to script. The script's error is sent on the
// returned channel.
func scriptedMazePort(t *testing.T, numAvatars int, script func(conns []net.Conn) error) (string, <-chan error) {
	t.Helper()

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { ln.Close() })

	errc := make(chan error, 1)
	go func() {
		conns := make([]net.Conn, numAvatars)
		defer func() {
			for _, c := range conns {
				if c != nil {
					c.Close()
				}
			}
		}()

		for range numAvatars {
			c, err := ln.Accept()
			if err != nil {
				errc <- err
				return
			}
			msg, err := protocol.ReadMessage(c)
			if err != nil {
				c.Close()
				errc <- err
				return
			}
			ready, ok := msg.(protocol.AvatarReady)
			if !ok || ready.AvatarID < 0 || ready.AvatarID >= numAvatars || conns[ready.AvatarID] != nil {
				c.Close()
				errc <- fmt.Errorf("unexpected ready message %#v", msg)
				return
			}
			conns[ready.AvatarID] = c
		}

		errc <- script(conns)
	}()

	return ln.Addr().String(), errc
}

func TestSupervisor_BadFrameStopsOnlyThatAvatar(t *testing.T) {
	unknownType := make([]byte, protocol.Size)
	unknownType[3] = 0x03

	offMap := protocol.Marshal(protocol.AvatarTurn{
		TurnID:    0,
		Positions: []maze.Position{{X: 0, Y: 0}, {X: 7, Y: 7}},
	})

	tests := []struct {
		name  string
		frame []byte
	}{
		{"unknown message type", unknownType},
		{"position outside the map", offMap},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			addr, scriptErr := scriptedMazePort(t, 2, func(conns []net.Conn) error {
				if _, err := conns[1].Write(tt.frame); err != nil {
					return err
				}
				// Avatar 1 hangs up instead of answering.
				if msg, err := protocol.ReadMessage(conns[1]); err == nil {
					return fmt.Errorf("avatar 1 answered with %#v", msg)
				}

				turn := protocol.AvatarTurn{TurnID: 0, Positions: []maze.Position{{X: 0, Y: 0}, {X: 1, Y: 1}}}
				if err := protocol.WriteMessage(conns[0], turn); err != nil {
					return err
				}
				msg, err := protocol.ReadMessage(conns[0])
				if err != nil {
					return err
				}
				if mv, ok := msg.(protocol.AvatarMove); !ok || mv.AvatarID != 0 || mv.Direction != maze.None {
					return fmt.Errorf("anchor sent %#v", msg)
				}
				return protocol.WriteMessage(conns[0], protocol.MazeSolved{NumAvatars: 2, NumMoves: 1, Hash: 7})
			})

			ctx, cancel := context.WithTimeout(t.Context(), 10*time.Second)
			defer cancel()

			rec := &memRecorder{}
			sup := NewSupervisor(Config{
				Addr:       addr,
				NumAvatars: 2,
				Maze:       maze.New(2, 2),
				Connection: ConnectionParams{Retry: fastRetry, Logger: testLogger()},
				Recorders:  []Recorder{rec},
				Logger:     testLogger(),
			})

			result, err := sup.Run(ctx)
			require.NoError(t, err)
			require.NoError(t, <-scriptErr)

			assert.Equal(t, 0, result.SolvedBy)
			assert.Equal(t, uint32(7), result.Summary.Hash)
			assert.Len(t, rec.solved, 1)

			infos := sup.Avatars()
			require.Len(t, infos, 2)
			for _, info := range infos {
				assert.Equal(t, "done", info.State, "avatar %d", info.ID)
			}
			assert.Zero(t, infos[1].Moves)
		})
	}
}

func TestSupervisor_AllAvatarsRejectingFramesIsUnsolved(t *testing.T) {
	addr, scriptErr := scriptedMazePort(t, 2, func(conns []net.Conn) error {
		bad := protocol.Marshal(protocol.AvatarTurn{Positions: []maze.Position{{X: 9, Y: 0}, {X: 0, Y: 0}}})
		for _, c := range conns {
			if _, err := c.Write(bad); err != nil {
				return err
			}
		}
		for _, c := range conns {
			if _, err := protocol.ReadMessage(c); err == nil {
				return errors.New("avatar answered an off-map turn")
			}
		}
		return nil
	})

	sup := NewSupervisor(Config{
		Addr:       addr,
		NumAvatars: 2,
		Maze:       maze.New(2, 2),
		Connection: ConnectionParams{Retry: fastRetry, Logger: testLogger()},
		Logger:     testLogger(),
	})

	_, err := sup.Run(t.Context())
	assert.ErrorIs(t, err, ErrUnsolved)
	require.NoError(t, <-scriptErr)
}
