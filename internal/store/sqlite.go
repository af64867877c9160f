// ABOUTME: SQLite implementation of the Store interface using modernc.org/sqlite
// ABOUTME: Provides run/move persistence with automatic schema creation

package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteStore implements the Store interface using SQLite
type SQLiteStore struct {
	db     *sql.DB
	logger *slog.Logger
}

// NewSQLiteStore creates a new SQLite store at the given path.
// The schema is automatically created if it doesn't exist.
// Parent directories are created if needed.
func NewSQLiteStore(path string) (*SQLiteStore, error) {
	logger := slog.Default().With("component", "store")

	// Ensure parent directory exists
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("creating database directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("opening database: %w", err)
	}

	// Avatars write concurrently; a single connection serializes the writers.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling foreign keys: %w", err)
	}

	s := &SQLiteStore{
		db:     db,
		logger: logger,
	}

	if err := s.createSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}

	logger.Debug("SQLite store initialized", "path", path)
	return s, nil
}

// createSchema creates the database tables if they don't exist
func (s *SQLiteStore) createSchema() error {
	schema := `
		CREATE TABLE IF NOT EXISTS runs (
			id          TEXT PRIMARY KEY,
			username    TEXT NOT NULL,
			host        TEXT NOT NULL,
			maze_port   INTEGER NOT NULL,
			num_avatars INTEGER NOT NULL,
			difficulty  INTEGER NOT NULL,
			width       INTEGER NOT NULL,
			height      INTEGER NOT NULL,
			status      TEXT NOT NULL DEFAULT 'running',
			hash        INTEGER NOT NULL DEFAULT 0,
			num_moves   INTEGER NOT NULL DEFAULT 0,
			error       TEXT,
			started_at  TEXT NOT NULL,
			finished_at TEXT,

			CHECK (status IN ('running', 'solved', 'failed'))
		);

		CREATE INDEX IF NOT EXISTS idx_runs_started ON runs(started_at DESC);

		CREATE TABLE IF NOT EXISTS moves (
			seq         INTEGER PRIMARY KEY AUTOINCREMENT,
			run_id      TEXT NOT NULL,
			avatar_id   INTEGER NOT NULL,
			x           INTEGER NOT NULL,
			y           INTEGER NOT NULL,
			move_number INTEGER NOT NULL,
			created_at  TEXT NOT NULL,
			FOREIGN KEY (run_id) REFERENCES runs(id)
		);

		CREATE INDEX IF NOT EXISTS idx_moves_run ON moves(run_id, seq);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection
func (s *SQLiteStore) Close() error {
	s.logger.Debug("closing SQLite store")
	return s.db.Close()
}

// isConstraintViolation checks if the error is a SQLite constraint violation
func isConstraintViolation(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "UNIQUE constraint failed") ||
		strings.Contains(errStr, "constraint failed")
}

// nullString converts an empty string to NULL
func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

// CreateRun inserts a new run. Status defaults to running.
// Returns ErrDuplicateRun if the ID is taken.
func (s *SQLiteStore) CreateRun(ctx context.Context, run *Run) error {
	status := run.Status
	if status == "" {
		status = StatusRunning
	}

	query := `
		INSERT INTO runs (id, username, host, maze_port, num_avatars, difficulty, width, height, status, started_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		run.ID,
		run.User,
		run.Host,
		run.MazePort,
		run.NumAvatars,
		run.Difficulty,
		run.Width,
		run.Height,
		status,
		run.StartedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrDuplicateRun
		}
		return fmt.Errorf("inserting run: %w", err)
	}

	s.logger.Debug("created run", "id", run.ID, "maze_port", run.MazePort)
	return nil
}

const runColumns = `id, username, host, maze_port, num_avatars, difficulty, width, height,
	status, hash, num_moves, error, started_at, finished_at`

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRun(row rowScanner) (*Run, error) {
	var run Run
	var hash int64
	var errText, finishedAtStr sql.NullString
	var startedAtStr string

	if err := row.Scan(
		&run.ID,
		&run.User,
		&run.Host,
		&run.MazePort,
		&run.NumAvatars,
		&run.Difficulty,
		&run.Width,
		&run.Height,
		&run.Status,
		&hash,
		&run.NumMoves,
		&errText,
		&startedAtStr,
		&finishedAtStr,
	); err != nil {
		return nil, err
	}

	run.Hash = uint32(hash)
	run.Error = errText.String

	var err error
	run.StartedAt, err = time.Parse(time.RFC3339, startedAtStr)
	if err != nil {
		return nil, fmt.Errorf("parsing started_at: %w", err)
	}

	if finishedAtStr.Valid {
		finishedAt, err := time.Parse(time.RFC3339, finishedAtStr.String)
		if err != nil {
			return nil, fmt.Errorf("parsing finished_at: %w", err)
		}
		run.FinishedAt = &finishedAt
	}

	return &run, nil
}

// GetRun retrieves a run by ID.
// Returns ErrNotFound if the run doesn't exist.
func (s *SQLiteStore) GetRun(ctx context.Context, id string) (*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs WHERE id = ?`

	run, err := scanRun(s.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying run: %w", err)
	}

	return run, nil
}

// ListRuns retrieves runs, most recently started first.
// If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteStore) ListRuns(ctx context.Context, limit int) ([]*Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, rowid DESC LIMIT ?`

	rows, err := s.db.QueryContext(ctx, query, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	defer rows.Close()

	var runs []*Run
	for rows.Next() {
		run, err := scanRun(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning run row: %w", err)
		}
		runs = append(runs, run)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating run rows: %w", err)
	}

	return runs, nil
}

// finishRun moves a running run to a final status.
func (s *SQLiteStore) finishRun(ctx context.Context, id string, query string, args ...any) error {
	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("updating run: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("getting rows affected: %w", err)
	}
	if rowsAffected > 0 {
		return nil
	}

	if _, err := s.GetRun(ctx, id); err != nil {
		return err
	}
	return ErrRunFinished
}

// CompleteRun records the solution of a running run.
// Returns ErrNotFound for an unknown run and ErrRunFinished if it already ended.
func (s *SQLiteStore) CompleteRun(ctx context.Context, id string, sol Solution) error {
	query := `
		UPDATE runs
		SET status = 'solved', hash = ?, num_moves = ?, finished_at = ?
		WHERE id = ? AND status = 'running'
	`

	if err := s.finishRun(ctx, id, query,
		int64(sol.Hash),
		sol.NumMoves,
		sol.FinishedAt.UTC().Format(time.RFC3339),
		id,
	); err != nil {
		return err
	}

	s.logger.Debug("completed run", "id", id, "moves", sol.NumMoves)
	return nil
}

// FailRun marks a running run as failed with the given reason.
func (s *SQLiteStore) FailRun(ctx context.Context, id string, reason string, at time.Time) error {
	query := `
		UPDATE runs
		SET status = 'failed', error = ?, finished_at = ?
		WHERE id = ? AND status = 'running'
	`

	if err := s.finishRun(ctx, id, query,
		nullString(reason),
		at.UTC().Format(time.RFC3339),
		id,
	); err != nil {
		return err
	}

	s.logger.Debug("failed run", "id", id, "reason", reason)
	return nil
}

// SaveMove appends a move to its run.
// Returns ErrNotFound if the run doesn't exist.
func (s *SQLiteStore) SaveMove(ctx context.Context, move *Move) error {
	query := `
		INSERT INTO moves (run_id, avatar_id, x, y, move_number, created_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`

	_, err := s.db.ExecContext(ctx, query,
		move.RunID,
		move.AvatarID,
		move.X,
		move.Y,
		move.MoveNumber,
		move.CreatedAt.UTC().Format(time.RFC3339),
	)
	if err != nil {
		if isConstraintViolation(err) {
			return ErrNotFound
		}
		return fmt.Errorf("inserting move: %w", err)
	}

	return nil
}

// GetRunMoves retrieves a run's moves in the order they were saved.
// If limit is 0 or negative, a default limit of 100 is used.
func (s *SQLiteStore) GetRunMoves(ctx context.Context, runID string, limit int) ([]*Move, error) {
	query := `
		SELECT run_id, avatar_id, x, y, move_number, created_at
		FROM moves
		WHERE run_id = ?
		ORDER BY seq ASC
		LIMIT ?
	`

	rows, err := s.db.QueryContext(ctx, query, runID, clampLimit(limit))
	if err != nil {
		return nil, fmt.Errorf("querying moves: %w", err)
	}
	defer rows.Close()

	var moves []*Move
	for rows.Next() {
		var move Move
		var createdAtStr string

		if err := rows.Scan(
			&move.RunID,
			&move.AvatarID,
			&move.X,
			&move.Y,
			&move.MoveNumber,
			&createdAtStr,
		); err != nil {
			return nil, fmt.Errorf("scanning move row: %w", err)
		}

		move.CreatedAt, err = time.Parse(time.RFC3339, createdAtStr)
		if err != nil {
			return nil, fmt.Errorf("parsing created_at: %w", err)
		}

		moves = append(moves, &move)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating move rows: %w", err)
	}

	return moves, nil
}
