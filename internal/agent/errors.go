// ABOUTME: Error types surfaced by connections, the session handshake and avatars
// ABOUTME: Server faults end the whole run; protocol errors end only one avatar

package agent

import (
	"errors"
	"fmt"

	"github.com/cannse/server-client-maze-search/internal/protocol"
)

// ErrConnectionClosed indicates the server closed the connection.
var ErrConnectionClosed = errors.New("connection closed by server")

// ErrUnexpectedMessage indicates a well-formed message that makes no sense at
// this point of the exchange.
var ErrUnexpectedMessage = errors.New("unexpected message")

// ConnectError is returned once every connection attempt has failed.
type ConnectError struct {
	Addr     string
	Attempts int
	Err      error
}

func (e *ConnectError) Error() string {
	return fmt.Sprintf("connecting to %s: gave up after %d attempts: %v", e.Addr, e.Attempts, e.Err)
}

func (e *ConnectError) Unwrap() error { return e.Err }

// ServerFaultError is an error-class message received by an avatar. It stops
// every avatar of the run.
type ServerFaultError struct {
	AvatarID int
	Fault    protocol.Fault
}

func (e *ServerFaultError) Error() string {
	return fmt.Sprintf("avatar %d: server reported %s", e.AvatarID, e.Fault.Error())
}

// InitError is an InitFailed reply to the session handshake.
type InitError struct {
	ErrNum uint32
}

func (e *InitError) Error() string {
	return "maze initialization failed: " + protocol.InitErrorText(e.ErrNum)
}
