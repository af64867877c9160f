// ABOUTME: Control-port handshake that asks the server for a new maze
// ABOUTME: Sends Init and waits for InitOK, mapping failures to typed errors

package agent

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/cannse/server-client-maze-search/internal/protocol"
)

// SessionParams describes the maze to request.
type SessionParams struct {
	NumAvatars int
	Difficulty int
	Connection ConnectionParams
}

// Initialize opens the control connection at addr, requests a maze and
// returns the server's InitOK. The control connection is closed before returning.
func Initialize(ctx context.Context, addr string, params SessionParams) (protocol.InitOK, error) {
	logger := params.Connection.Logger
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := Dial(ctx, addr, params.Connection)
	if err != nil {
		return protocol.InitOK{}, err
	}
	defer conn.Close()

	req := protocol.Init{NumAvatars: params.NumAvatars, Difficulty: params.Difficulty}
	if err := conn.Send(ctx, req); err != nil {
		return protocol.InitOK{}, fmt.Errorf("sending init: %w", err)
	}

	reply, err := conn.Receive(ctx)
	if err != nil {
		return protocol.InitOK{}, fmt.Errorf("waiting for init reply: %w", err)
	}

	switch m := reply.(type) {
	case protocol.InitOK:
		logger.Info("maze initialized",
			"maze_port", m.MazePort,
			"width", m.MazeWidth,
			"height", m.MazeHeight,
		)
		return m, nil
	case protocol.Fault:
		if m.Kind == protocol.TypeInitFailed {
			return protocol.InitOK{}, &InitError{ErrNum: m.Detail}
		}
		return protocol.InitOK{}, &ServerFaultError{AvatarID: -1, Fault: m}
	default:
		return protocol.InitOK{}, fmt.Errorf("%w: %s during init", ErrUnexpectedMessage, reply.Type())
	}
}
