package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Amayakite/AutoClicker/internal/engine"
)

// Run is one row of the run log.
type Run struct {
	ID          string
	Script      string
	StartedAt   time.Time
	FinishedAt  time.Time // zero while the run is in flight or was interrupted
	Outcome     engine.Outcome
	Error       string
	Points      int
	LoopEnabled bool
	LoopCount   int
	Iterations  int
	Taps        int
}

// Finished reports whether the run recorded an outcome.
func (r Run) Finished() bool {
	return r.Outcome != ""
}

// Duration returns how long the run took, or 0 if it never finished.
func (r Run) Duration() time.Duration {
	if !r.Finished() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

const runColumns = `id, script, started_at, finished_at, outcome, error, points, loop_enabled, loop_count, iterations, taps`

// ListRuns returns the most recent runs first. limit <= 0 returns all runs.
func (s *Store) ListRuns(ctx context.Context, limit int) ([]Run, error) {
	query := `SELECT ` + runColumns + ` FROM runs ORDER BY started_at DESC, id COLLATE BINARY DESC`
	args := []any{}
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []Run{}
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// GetRun returns one run. Returns an error wrapping ErrNotFound if absent.
func (s *Store) GetRun(ctx context.Context, id string) (Run, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+runColumns+` FROM runs WHERE id = ?`, id)
	r, err := scanRun(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Run{}, fmt.Errorf("run %s: %w", id, ErrNotFound)
	}
	return r, err
}

// ReadTaps returns the taps of a run ordered by seq.
// Returns an empty slice (not nil) if the run has no taps.
func (s *Store) ReadTaps(ctx context.Context, runID string) ([]engine.TapEvent, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT run_id, seq, point_id, idx, iteration, x, y, at
		FROM taps
		WHERE run_id = ?
		ORDER BY seq ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query taps: %w", err)
	}
	defer rows.Close()

	taps := []engine.TapEvent{}
	for rows.Next() {
		var ev engine.TapEvent
		var at int64
		if err := rows.Scan(&ev.RunID, &ev.Seq, &ev.PointID, &ev.Index, &ev.Iteration, &ev.X, &ev.Y, &at); err != nil {
			return nil, fmt.Errorf("scan tap: %w", err)
		}
		ev.At = fromMillis(at)
		taps = append(taps, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate taps: %w", err)
	}
	return taps, nil
}

// MaxSeq returns the highest tap seq in the log, or 0 if it is empty.
// Used to resume the engine's Sequence so seq stays unique across processes.
func (s *Store) MaxSeq(ctx context.Context) (int64, error) {
	var seq sql.NullInt64
	if err := s.db.QueryRowContext(ctx, `SELECT MAX(seq) FROM taps`).Scan(&seq); err != nil {
		return 0, fmt.Errorf("query max seq: %w", err)
	}
	return seq.Int64, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRun(row scanner) (Run, error) {
	var (
		r          Run
		startedAt  int64
		finishedAt sql.NullInt64
		outcome    sql.NullString
		errText    sql.NullString
	)
	err := row.Scan(&r.ID, &r.Script, &startedAt, &finishedAt, &outcome, &errText,
		&r.Points, &r.LoopEnabled, &r.LoopCount, &r.Iterations, &r.Taps)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return Run{}, err
		}
		return Run{}, fmt.Errorf("scan run: %w", err)
	}

	r.StartedAt = fromMillis(startedAt)
	if finishedAt.Valid {
		r.FinishedAt = fromMillis(finishedAt.Int64)
	}
	r.Outcome = engine.Outcome(outcome.String)
	r.Error = errText.String
	return r, nil
}
