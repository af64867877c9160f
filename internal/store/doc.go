// Package store persists the run ledger: one row per maze run and one per
// successful avatar move.
//
// SQLiteStore uses modernc.org/sqlite with WAL mode and foreign keys:
//
//	PRAGMA journal_mode=WAL;
//	PRAGMA foreign_keys=ON;
//
// MemoryStore implements the same Store interface in memory.
//
// Runs start in StatusRunning and end exactly once, through CompleteRun or
// FailRun. Finishing a finished run returns ErrRunFinished; unknown runs
// return ErrNotFound.
//
// Recorder binds a Store to one run ID so the supervisor can feed it moves
// and the final MazeSolved summary.
package store
