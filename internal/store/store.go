// ABOUTME: Store interface and data types for the run ledger
// ABOUTME: Defines Run, Move and Solution structs and the Store interface for database operations

package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a requested entity does not exist
var ErrNotFound = errors.New("not found")

// ErrDuplicateRun is returned when trying to create a run that already exists
var ErrDuplicateRun = errors.New("run already exists")

// ErrRunFinished is returned when finishing a run that already has an outcome
var ErrRunFinished = errors.New("run already finished")

// Run status values
const (
	StatusRunning = "running"
	StatusSolved  = "solved"
	StatusFailed  = "failed"
)

// Run is one attempt at solving a maze
type Run struct {
	ID         string
	User       string
	Host       string
	MazePort   int
	NumAvatars int
	Difficulty int
	Width      int
	Height     int
	Status     string // running, solved, failed
	Hash       uint32 // set when solved
	NumMoves   int    // server's count, set when solved
	Error      string // set when failed
	StartedAt  time.Time
	FinishedAt *time.Time
}

// Move is one successful avatar step
type Move struct {
	RunID      string
	AvatarID   int
	X          int
	Y          int
	MoveNumber int
	CreatedAt  time.Time
}

// Solution is the server's MazeSolved summary for a run
type Solution struct {
	Hash       uint32
	NumMoves   int
	FinishedAt time.Time
}

// Store defines the interface for run and move persistence
type Store interface {
	// Runs
	CreateRun(ctx context.Context, run *Run) error
	GetRun(ctx context.Context, id string) (*Run, error)
	ListRuns(ctx context.Context, limit int) ([]*Run, error)
	CompleteRun(ctx context.Context, id string, sol Solution) error
	FailRun(ctx context.Context, id string, reason string, at time.Time) error

	// Moves
	SaveMove(ctx context.Context, move *Move) error
	GetRunMoves(ctx context.Context, runID string, limit int) ([]*Move, error)

	// Close releases any resources held by the store
	Close() error
}

// clampLimit applies the default and maximum page sizes.
func clampLimit(limit int) int {
	if limit <= 0 {
		return 100
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
