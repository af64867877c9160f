// ABOUTME: Plain-text per-run log file in the classic Amazing_<user>_<n>_<d>.log format
// ABOUTME: Records the header, every successful avatar move and the final solution

package runlog

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/cannse/server-client-maze-search/internal/maze"
	"github.com/cannse/server-client-maze-search/internal/protocol"
)

// ErrClosed is returned when writing to a closed log.
var ErrClosed = errors.New("run log closed")

// Header is written as the first line of the log.
type Header struct {
	User       string
	NumAvatars int
	Difficulty int
	MazePort   int
	Time       time.Time
}

// FileName returns the log file name for a run.
func FileName(user string, numAvatars, difficulty int) string {
	return fmt.Sprintf("Amazing_%s_%d_%d.log", user, numAvatars, difficulty)
}

// Log appends run events to a file. It is safe for concurrent use.
type Log struct {
	mu     sync.Mutex
	path   string
	file   *os.File
	w      *bufio.Writer
	closed bool
	now    func() time.Time
}

// Create truncates or creates the run's log file in dir and writes the header.
func Create(dir string, h Header) (*Log, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating log directory: %w", err)
	}

	path := filepath.Join(dir, FileName(h.User, h.NumAvatars, h.Difficulty))
	f, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("creating run log: %w", err)
	}

	l := &Log{path: path, file: f, w: bufio.NewWriter(f), now: time.Now}

	ts := h.Time
	if ts.IsZero() {
		ts = l.now()
	}
	fmt.Fprintf(l.w, "Username: %s MazePort: %d Timestamp: %s\n", h.User, h.MazePort, timestamp(ts))
	if err := l.w.Flush(); err != nil {
		f.Close()
		return nil, fmt.Errorf("writing run log header: %w", err)
	}

	return l, nil
}

// Path returns the file the log writes to.
func (l *Log) Path() string {
	return l.path
}

// RecordMove appends one successful move.
func (l *Log) RecordMove(_ context.Context, avatarID int, pos maze.Position, moveNumber int) error {
	return l.write(fmt.Sprintf("Avatar ID: %d (x,y) Position: (%d,%d) Move Number: %d\n",
		avatarID, pos.X, pos.Y, moveNumber))
}

// RecordSolved appends the solution summary and completion time.
func (l *Log) RecordSolved(_ context.Context, s protocol.MazeSolved) error {
	return l.write(fmt.Sprintf("Hash: %d nMoves: %d Difficulty: %d nAvatars: %d\nMaze Solved! Timestamp: %s\n",
		s.Hash, s.NumMoves, s.Difficulty, s.NumAvatars, timestamp(l.now())))
}

func (l *Log) write(line string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return ErrClosed
	}
	if _, err := l.w.WriteString(line); err != nil {
		return fmt.Errorf("writing run log: %w", err)
	}
	return l.w.Flush()
}

// Close flushes and closes the file. Closing twice is a no-op.
func (l *Log) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.closed {
		return nil
	}
	l.closed = true

	flushErr := l.w.Flush()
	closeErr := l.file.Close()
	return errors.Join(flushErr, closeErr)
}

func timestamp(t time.Time) string {
	return t.Local().Format(time.ANSIC)
}
