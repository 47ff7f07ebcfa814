package store

import (
	"context"
	"fmt"
	"time"

	"github.com/Amayakite/AutoClicker/internal/engine"
)

// BeginRun inserts the run row for info. script names the source of the
// points, typically the script file.
// Uses ON CONFLICT(id) DO NOTHING for idempotency.
func (s *Store) BeginRun(ctx context.Context, script string, info engine.RunInfo) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO runs
		(id, script, started_at, points, loop_enabled, loop_count)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		info.ID,
		script,
		toMillis(info.StartedAt),
		info.Points,
		info.Config.LoopEnabled,
		info.Config.LoopCount,
	)
	if err != nil {
		return fmt.Errorf("begin run: %w", err)
	}
	return nil
}

// WriteTap inserts a tap record.
// Duplicate (run_id, seq) pairs are silently ignored.
//
// Note: The run referenced by ev.RunID must exist (foreign key constraint).
func (s *Store) WriteTap(ctx context.Context, ev engine.TapEvent) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO taps
		(run_id, seq, point_id, idx, iteration, x, y, at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`,
		ev.RunID,
		ev.Seq,
		ev.PointID,
		ev.Index,
		ev.Iteration,
		ev.X,
		ev.Y,
		toMillis(ev.At),
	)
	if err != nil {
		return fmt.Errorf("write tap: %w", err)
	}
	return nil
}

// FinishRun records how a run ended. Returns ErrNotFound if the run was never
// begun.
func (s *Store) FinishRun(ctx context.Context, summary engine.RunSummary) error {
	var errText *string
	if summary.Err != nil {
		msg := summary.Err.Error()
		errText = &msg
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE runs
		SET finished_at = ?, outcome = ?, error = ?, iterations = ?, taps = ?
		WHERE id = ?
	`,
		toMillis(summary.FinishedAt),
		string(summary.Outcome),
		errText,
		summary.Iterations,
		summary.Taps,
		summary.ID,
	)
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("finish run: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("finish run %s: %w", summary.ID, ErrNotFound)
	}
	return nil
}

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
