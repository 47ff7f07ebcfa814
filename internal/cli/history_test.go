package cli

import (
	"context"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Amayakite/AutoClicker/internal/engine"
	"github.com/Amayakite/AutoClicker/internal/point"
	"github.com/Amayakite/AutoClicker/internal/store"
	"github.com/Amayakite/AutoClicker/internal/testutil"
)

var t0 = time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

// seedRunLog writes a finished run (run-a, with taps) and an unfinished run
// (run-b) and returns the database path.
func seedRunLog(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	defer db.Close()
	ctx := context.Background()

	a := engine.RunInfo{ID: "run-a", StartedAt: t0, Points: 2, Config: point.RunConfig{LoopEnabled: true, LoopCount: 3}}
	require.NoError(t, db.BeginRun(ctx, "rewards.yaml", a))
	for i, id := range []string{"open", "claim"} {
		require.NoError(t, db.WriteTap(ctx, engine.TapEvent{
			Seq: int64(i + 1), RunID: "run-a", PointID: id, Index: i,
			X: 540, Y: float64(1200 + 450*i), At: t0.Add(time.Duration(i) * time.Second),
		}))
	}
	require.NoError(t, db.FinishRun(ctx, engine.RunSummary{
		RunInfo:    a,
		FinishedAt: t0.Add(90 * time.Second),
		Outcome:    engine.OutcomeStopped,
		Iterations: 2,
		Taps:       5,
	}))

	b := engine.RunInfo{ID: "run-b", StartedAt: t0.Add(time.Hour), Points: 1, Config: point.DefaultRunConfig()}
	require.NoError(t, db.BeginRun(ctx, "rewards.yaml", b))

	return path
}

func TestHistory_ListJSON(t *testing.T) {
	path := seedRunLog(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "--db", path)
	require.NoError(t, err)

	testutil.AssertGolden(t, "history_json", []byte(out))
}

func TestHistory_ListText(t *testing.T) {
	path := seedRunLog(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", path)
	require.NoError(t, err)

	for _, want := range []string{"RUN", "OUTCOME", "run-a", "run-b", "stopped", "unfinished", "2024-01-01 12:00:00", "1m30s"} {
		assert.Contains(t, out, want)
	}
	assert.Less(t, strings.Index(out, "run-b"), strings.Index(out, "run-a"), "newest first")
}

func TestHistory_Limit(t *testing.T) {
	path := seedRunLog(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "--db", path, "--limit", "1")
	require.NoError(t, err)

	var resp struct {
		Data HistoryResult `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	require.Len(t, resp.Data.Runs, 1)
	assert.Equal(t, "run-b", resp.Data.Runs[0].ID)
}

func TestHistory_ShowRun(t *testing.T) {
	path := seedRunLog(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "json"}), "--db", path, "--run", "run-a")
	require.NoError(t, err)

	var resp struct {
		Data RunDetail `json:"data"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &resp))
	assert.Equal(t, "run-a", resp.Data.Run.ID)
	assert.Equal(t, int64(90000), resp.Data.Run.DurationMS)
	require.Len(t, resp.Data.Taps, 2)
	assert.Equal(t, TapView{Seq: 1, PointID: "open", X: 540, Y: 1200, At: t0}, resp.Data.Taps[0])
	assert.Equal(t, "claim", resp.Data.Taps[1].PointID)
}

func TestHistory_ShowRunText(t *testing.T) {
	path := seedRunLog(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", path, "--run", "run-a")
	require.NoError(t, err)

	assert.Contains(t, out, "outcome: stopped")
	assert.Contains(t, out, "loop:    3 passes")
	assert.Contains(t, out, "taps:    5 over 2 passes")
	assert.Contains(t, out, "SEQ")
	assert.Contains(t, out, "1650.0")
}

func TestHistory_RunWithoutTaps(t *testing.T) {
	path := seedRunLog(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", path, "--run", "run-b")
	require.NoError(t, err)

	assert.Contains(t, out, "outcome: unfinished")
	assert.Contains(t, out, "● no taps recorded")
}

func TestHistory_UnknownRun(t *testing.T) {
	path := seedRunLog(t)

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", path, "--run", "ghost")
	require.Error(t, err)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.ErrorIs(t, err, store.ErrNotFound)
	assert.Contains(t, out, "Error [E002]: run not found: ghost")
}

func TestHistory_MissingDatabase(t *testing.T) {
	path := filepath.Join(t.TempDir(), "missing.db")

	_, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", path)
	require.Error(t, err)

	assert.Equal(t, ExitCommandError, GetExitCode(err))
	assert.NoFileExists(t, path, "history must not create a run log")
}

func TestHistory_EmptyLog(t *testing.T) {
	path := filepath.Join(t.TempDir(), "runs.db")
	db, err := store.Open(path)
	require.NoError(t, err)
	require.NoError(t, db.Close())

	out, err := execute(t, NewHistoryCommand(&RootOptions{Format: "text"}), "--db", path)
	require.NoError(t, err)
	assert.Equal(t, "● no runs recorded\n", out)
}
