// ABOUTME: Adapter that records avatar moves and the maze solution into a Store
// ABOUTME: Bound to one run ID; used as a supervisor recorder

package store

import (
	"context"
	"time"

	"github.com/cannse/server-client-maze-search/internal/maze"
	"github.com/cannse/server-client-maze-search/internal/protocol"
)

// Recorder writes one run's events to a Store.
type Recorder struct {
	store Store
	runID string
	now   func() time.Time
}

// NewRecorder returns a Recorder for the given run.
func NewRecorder(s Store, runID string) *Recorder {
	return &Recorder{store: s, runID: runID, now: time.Now}
}

// RunID returns the run the recorder writes to.
func (r *Recorder) RunID() string {
	return r.runID
}

// RecordMove saves a successful move.
func (r *Recorder) RecordMove(ctx context.Context, avatarID int, pos maze.Position, moveNumber int) error {
	return r.store.SaveMove(ctx, &Move{
		RunID:      r.runID,
		AvatarID:   avatarID,
		X:          pos.X,
		Y:          pos.Y,
		MoveNumber: moveNumber,
		CreatedAt:  r.now(),
	})
}

// RecordSolved completes the run with the server's summary.
func (r *Recorder) RecordSolved(ctx context.Context, solved protocol.MazeSolved) error {
	return r.store.CompleteRun(ctx, r.runID, Solution{
		Hash:       solved.Hash,
		NumMoves:   solved.NumMoves,
		FinishedAt: r.now(),
	})
}
