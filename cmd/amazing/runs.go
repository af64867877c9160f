// ABOUTME: The runs command: lists past runs and their moves from the SQLite ledger
// ABOUTME: Moves print in the same line format as the run log file

package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"github.com/fatih/color"
	"github.com/spf13/pflag"

	"github.com/cannse/server-client-maze-search/internal/store"
)

// runList prints the most recent runs in the ledger.
func runList(ctx context.Context, args []string) error {
	flags := pflag.NewFlagSet("runs", pflag.ContinueOnError)
	dbPath := flags.String("db", "", "SQLite run ledger path")
	configPath := flags.String("config", "", "config file (.yaml or .toml)")
	limit := flags.Int("limit", 20, "maximum number of runs to show")
	moves := flags.String("moves", "", "show the recorded moves of this run ID")
	if err := flags.Parse(args); err != nil {
		if errors.Is(err, pflag.ErrHelp) {
			return nil
		}
		return err
	}

	path := *dbPath
	if path == "" {
		cfg, err := loadConfig(*configPath)
		if err != nil {
			return err
		}
		path = cfg.Database.Path
	}
	if path == "" {
		return fmt.Errorf("no run ledger configured: pass --db or set database.path")
	}

	db, err := store.NewSQLiteStore(path)
	if err != nil {
		return fmt.Errorf("opening run ledger: %w", err)
	}
	defer db.Close()

	if *moves != "" {
		return printMoves(ctx, os.Stdout, db, *moves, *limit)
	}
	return printRuns(ctx, os.Stdout, db, *limit)
}

func printRuns(ctx context.Context, w io.Writer, s store.Store, limit int) error {
	runs, err := s.ListRuns(ctx, limit)
	if err != nil {
		return fmt.Errorf("listing runs: %w", err)
	}
	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tSTARTED\tUSER\tAVATARS\tDIFFICULTY\tSIZE\tSTATUS\tMOVES\tHASH")
	for _, r := range runs {
		status := r.Status
		switch r.Status {
		case store.StatusSolved:
			status = color.GreenString(status)
		case store.StatusFailed:
			status = color.RedString(status)
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%d\t%dx%d\t%s\t%d\t%d\n",
			r.ID,
			r.StartedAt.Local().Format(time.DateTime),
			r.User,
			r.NumAvatars,
			r.Difficulty,
			r.Width, r.Height,
			status,
			r.NumMoves,
			r.Hash,
		)
	}
	return tw.Flush()
}

func printMoves(ctx context.Context, w io.Writer, s store.Store, runID string, limit int) error {
	if _, err := s.GetRun(ctx, runID); err != nil {
		return fmt.Errorf("looking up run %s: %w", runID, err)
	}

	moves, err := s.GetRunMoves(ctx, runID, limit)
	if err != nil {
		return fmt.Errorf("listing moves: %w", err)
	}

	for _, m := range moves {
		fmt.Fprintf(w, "Avatar ID: %d (x,y) Position: (%d,%d) Move Number: %d\n", m.AvatarID, m.X, m.Y, m.MoveNumber)
	}
	return nil
}
