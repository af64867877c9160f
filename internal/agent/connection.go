// ABOUTME: One TCP connection to the maze server carrying fixed-size protocol frames.
// ABOUTME: Dialing retries with exponential backoff and gives up with a ConnectError.

package agent

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"sync"
	"time"

	"github.com/cannse/server-client-maze-search/internal/protocol"
)

// Dialer opens network connections. *net.Dialer satisfies it.
type Dialer interface {
	DialContext(ctx context.Context, network, address string) (net.Conn, error)
}

// RetryPolicy bounds connection attempts.
type RetryPolicy struct {
	MaxAttempts    int
	InitialBackoff time.Duration
	MaxBackoff     time.Duration
}

// DefaultRetryPolicy tries five times starting at 250ms.
var DefaultRetryPolicy = RetryPolicy{
	MaxAttempts:    5,
	InitialBackoff: 250 * time.Millisecond,
	MaxBackoff:     4 * time.Second,
}

// backoff returns the wait before attempt (1-based; attempt 1 has no wait).
func (p RetryPolicy) backoff(attempt int) time.Duration {
	if attempt <= 1 {
		return 0
	}
	d := p.InitialBackoff << (attempt - 2)
	if d <= 0 || (p.MaxBackoff > 0 && d > p.MaxBackoff) {
		return p.MaxBackoff
	}
	return d
}

// ConnectionParams configures Dial.
type ConnectionParams struct {
	Dialer Dialer
	Retry  RetryPolicy
	Logger *slog.Logger
}

// Connection is a framed connection to the control port or a maze port.
// Send and Receive may be called from different goroutines.
type Connection struct {
	addr   string
	conn   net.Conn
	logger *slog.Logger

	sendMu sync.Mutex
	buf    []byte

	closeOnce sync.Once
	stop      func() bool
}

// Dial connects to addr, retrying with exponential backoff. The connection is
// closed automatically when ctx is cancelled, which unblocks a pending Receive.
func Dial(ctx context.Context, addr string, params ConnectionParams) (*Connection, error) {
	dialer := params.Dialer
	if dialer == nil {
		dialer = &net.Dialer{}
	}
	policy := params.Retry
	if policy.MaxAttempts <= 0 {
		policy = DefaultRetryPolicy
	}
	logger := params.Logger
	if logger == nil {
		logger = slog.Default()
	}

	var lastErr error
	for attempt := 1; attempt <= policy.MaxAttempts; attempt++ {
		if wait := policy.backoff(attempt); wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				return nil, ctx.Err()
			case <-timer.C:
			}
		}

		conn, err := dialer.DialContext(ctx, "tcp", addr)
		if err == nil {
			c := &Connection{
				addr:   addr,
				conn:   conn,
				logger: logger,
				buf:    make([]byte, protocol.Size),
			}
			c.stop = context.AfterFunc(ctx, func() { c.closeConn() })
			return c, nil
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		lastErr = err

		logger.Warn("connect failed, retrying",
			"addr", addr,
			"attempt", attempt,
			"max_attempts", policy.MaxAttempts,
			"error", err,
		)
	}

	return nil, &ConnectError{Addr: addr, Attempts: policy.MaxAttempts, Err: lastErr}
}

// Addr returns the remote address the connection was dialed to.
func (c *Connection) Addr() string {
	return c.addr
}

// Send writes one message.
func (c *Connection) Send(ctx context.Context, msg protocol.Message) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	c.sendMu.Lock()
	defer c.sendMu.Unlock()

	if err := protocol.WriteMessage(c.conn, msg); err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		return fmt.Errorf("send to %s: %w", c.addr, err)
	}
	return nil
}

// Receive blocks until one complete frame has arrived and decodes it.
// Zero-length reads mean no data yet and are retried; partial reads accumulate.
// Decode failures are returned as *protocol.ProtocolError.
func (c *Connection) Receive(ctx context.Context) (protocol.Message, error) {
	filled := 0
	for filled < len(c.buf) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		n, err := c.conn.Read(c.buf[filled:])
		filled += n
		if err == nil {
			continue
		}
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		if errors.Is(err, io.EOF) {
			if filled == len(c.buf) {
				break
			}
			if filled > 0 {
				return nil, fmt.Errorf("receive from %s: %w", c.addr, io.ErrUnexpectedEOF)
			}
			return nil, ErrConnectionClosed
		}
		return nil, fmt.Errorf("receive from %s: %w", c.addr, err)
	}

	return protocol.Unmarshal(c.buf)
}

// Close closes the underlying connection. It is safe to call more than once.
func (c *Connection) Close() error {
	c.stop()
	return c.closeConn()
}

func (c *Connection) closeConn() error {
	var err error
	c.closeOnce.Do(func() {
		err = c.conn.Close()
	})
	return err
}
