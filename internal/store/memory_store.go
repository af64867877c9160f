// ABOUTME: In-memory Store implementation for tests and runs without a database
// ABOUTME: Mirrors SQLiteStore semantics for ordering, limits and run status

package store

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is an in-memory Store implementation.
type MemoryStore struct {
	mu    sync.RWMutex
	runs  map[string]*Run   // keyed by run ID
	order []string          // run IDs in creation order
	moves map[string][]Move // keyed by run ID
}

// NewMemoryStore creates a new MemoryStore.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		runs:  make(map[string]*Run),
		moves: make(map[string][]Move),
	}
}

func copyRun(r *Run) *Run {
	c := *r
	if r.FinishedAt != nil {
		at := *r.FinishedAt
		c.FinishedAt = &at
	}
	return &c
}

// CreateRun stores a new run.
func (m *MemoryStore) CreateRun(ctx context.Context, run *Run) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.runs[run.ID]; exists {
		return ErrDuplicateRun
	}

	r := copyRun(run)
	if r.Status == "" {
		r.Status = StatusRunning
	}
	m.runs[r.ID] = r
	m.order = append(m.order, r.ID)
	return nil
}

// GetRun retrieves a run by ID.
func (m *MemoryStore) GetRun(ctx context.Context, id string) (*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	r, ok := m.runs[id]
	if !ok {
		return nil, ErrNotFound
	}
	return copyRun(r), nil
}

// ListRuns returns runs, most recently started first.
func (m *MemoryStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	runs := make([]*Run, 0, len(m.order))
	for i := len(m.order) - 1; i >= 0; i-- {
		runs = append(runs, copyRun(m.runs[m.order[i]]))
	}
	sort.SliceStable(runs, func(i, j int) bool {
		return runs[i].StartedAt.After(runs[j].StartedAt)
	})

	if limit = clampLimit(limit); len(runs) > limit {
		runs = runs[:limit]
	}
	return runs, nil
}

func (m *MemoryStore) finish(id string, apply func(*Run)) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	r, ok := m.runs[id]
	if !ok {
		return ErrNotFound
	}
	if r.Status != StatusRunning {
		return ErrRunFinished
	}
	apply(r)
	return nil
}

// CompleteRun records the solution of a running run.
func (m *MemoryStore) CompleteRun(ctx context.Context, id string, sol Solution) error {
	return m.finish(id, func(r *Run) {
		r.Status = StatusSolved
		r.Hash = sol.Hash
		r.NumMoves = sol.NumMoves
		at := sol.FinishedAt
		r.FinishedAt = &at
	})
}

// FailRun marks a running run as failed.
func (m *MemoryStore) FailRun(ctx context.Context, id string, reason string, at time.Time) error {
	return m.finish(id, func(r *Run) {
		r.Status = StatusFailed
		r.Error = reason
		r.FinishedAt = &at
	})
}

// SaveMove appends a move to its run.
func (m *MemoryStore) SaveMove(ctx context.Context, move *Move) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.runs[move.RunID]; !ok {
		return ErrNotFound
	}
	m.moves[move.RunID] = append(m.moves[move.RunID], *move)
	return nil
}

// GetRunMoves returns a run's moves in the order they were saved.
func (m *MemoryStore) GetRunMoves(ctx context.Context, runID string, limit int) ([]*Move, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	stored := m.moves[runID]
	if limit = clampLimit(limit); len(stored) > limit {
		stored = stored[:limit]
	}

	moves := make([]*Move, 0, len(stored))
	for i := range stored {
		mv := stored[i]
		moves = append(moves, &mv)
	}
	return moves, nil
}

// Close is a no-op.
func (m *MemoryStore) Close() error {
	return nil
}
