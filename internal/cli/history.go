package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/Amayakite/AutoClicker/internal/engine"
	"github.com/Amayakite/AutoClicker/internal/point"
	"github.com/Amayakite/AutoClicker/internal/store"
)

const timeLayout = "2006-01-02 15:04:05"

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Database string
	RunID    string
	Limit    int
}

// RunView is one run in history output.
type RunView struct {
	ID          string     `json:"id"`
	Script      string     `json:"script"`
	StartedAt   time.Time  `json:"started_at"`
	FinishedAt  *time.Time `json:"finished_at,omitempty"`
	Outcome     string     `json:"outcome"`
	Error       string     `json:"error,omitempty"`
	Points      int        `json:"points"`
	LoopEnabled bool       `json:"loop_enabled"`
	LoopCount   int        `json:"loop_count"`
	Iterations  int        `json:"iterations"`
	Taps        int        `json:"taps"`
	DurationMS  int64      `json:"duration_ms"`
}

// TapView is one tap in history output.
type TapView struct {
	Seq       int64     `json:"seq"`
	PointID   string    `json:"point_id"`
	Index     int       `json:"index"`
	Iteration int       `json:"iteration"`
	X         float64   `json:"x"`
	Y         float64   `json:"y"`
	At        time.Time `json:"at"`
}

// HistoryResult is the JSON payload of history without --run.
type HistoryResult struct {
	Runs []RunView `json:"runs"`
}

// RunDetail is the JSON payload of history --run.
type RunDetail struct {
	Run  RunView   `json:"run"`
	Taps []TapView `json:"taps"`
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Show recorded runs",
		Long: `Show runs recorded with run --db, newest first. With --run, show one
run and every tap it dispatched, in order.

Example:
  autoclicker history --db runs.db
  autoclicker history --db runs.db --run 0190a1b2-...`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runHistory(opts, cmd)
		},
	}

	cmd.Flags().StringVar(&opts.Database, "db", "", "path to the SQLite run log (required)")
	cmd.Flags().StringVar(&opts.RunID, "run", "", "show the taps of this run")
	cmd.Flags().IntVar(&opts.Limit, "limit", 20, "maximum runs to list (0 = all)")
	_ = cmd.MarkFlagRequired("db")

	return cmd
}

func runHistory(opts *HistoryOptions, cmd *cobra.Command) error {
	formatter := &OutputFormatter{
		Format:    opts.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   opts.Verbose,
	}
	st := newStyles(cmd.OutOrStdout())

	// Opening would create an empty log; a missing file is a user error.
	if _, err := os.Stat(opts.Database); err != nil {
		return formatter.fail(ExitCommandError, ErrCodeNotFound, "run log not found: "+opts.Database, err)
	}
	db, err := store.Open(opts.Database)
	if err != nil {
		return formatter.fail(ExitCommandError, ErrCodeRunLog, "open run log", err)
	}
	defer db.Close()

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if opts.RunID != "" {
		return showRun(ctx, formatter, st, db, opts.RunID)
	}
	return listRuns(ctx, formatter, st, db, opts.Limit)
}

func listRuns(ctx context.Context, f *OutputFormatter, st *styles, db *store.Store, limit int) error {
	runs, err := db.ListRuns(ctx, limit)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeRunLog, "read run log", err)
	}

	result := HistoryResult{Runs: make([]RunView, 0, len(runs))}
	rows := make([][]string, 0, len(runs))
	for _, r := range runs {
		view := newRunView(r)
		result.Runs = append(result.Runs, view)
		rows = append(rows, []string{
			r.ID,
			r.Script,
			r.StartedAt.Format(timeLayout),
			outcomeLabel(r),
			strconv.Itoa(r.Taps),
			strconv.Itoa(r.Iterations),
			r.Duration().String(),
		})
	}

	if len(runs) == 0 {
		return f.Success(result, st.InfoMsg("no runs recorded"))
	}
	table := st.Table([]string{"RUN", "SCRIPT", "STARTED", "OUTCOME", "TAPS", "PASSES", "DURATION"}, rows)
	return f.Success(result, table)
}

func showRun(ctx context.Context, f *OutputFormatter, st *styles, db *store.Store, id string) error {
	run, err := db.GetRun(ctx, id)
	if errors.Is(err, store.ErrNotFound) {
		return f.fail(ExitCommandError, ErrCodeNotFound, "run not found: "+id, err)
	}
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeRunLog, "read run log", err)
	}
	taps, err := db.ReadTaps(ctx, id)
	if err != nil {
		return f.fail(ExitCommandError, ErrCodeRunLog, "read run log", err)
	}

	detail := RunDetail{Run: newRunView(run), Taps: make([]TapView, 0, len(taps))}
	rows := make([][]string, 0, len(taps))
	for _, t := range taps {
		detail.Taps = append(detail.Taps, newTapView(t))
		rows = append(rows, []string{
			strconv.FormatInt(t.Seq, 10),
			strconv.Itoa(t.Iteration + 1),
			t.PointID,
			fmt.Sprintf("%.1f", t.X),
			fmt.Sprintf("%.1f", t.Y),
			t.At.Format(timeLayout + ".000"),
		})
	}

	var text strings.Builder
	text.WriteString(st.KeyValues("",
		kv("run", run.ID),
		kv("script", run.Script),
		kv("started", run.StartedAt.Format(timeLayout)),
		kv("outcome", outcomeLabel(run)),
		kv("loop", loopLabel(runConfig(run))),
		kv("taps", fmt.Sprintf("%d over %s", run.Taps, plural(run.Iterations, "pass"))),
	))
	if run.Error != "" {
		text.WriteString(st.ErrorMsg("%s", run.Error) + "\n")
	}
	if len(taps) > 0 {
		text.WriteString(st.Table([]string{"SEQ", "PASS", "POINT", "X", "Y", "AT"}, rows))
	} else {
		text.WriteString(st.InfoMsg("no taps recorded"))
	}
	return f.Success(detail, strings.TrimSuffix(text.String(), "\n"))
}

func newRunView(r store.Run) RunView {
	v := RunView{
		ID:          r.ID,
		Script:      r.Script,
		StartedAt:   r.StartedAt,
		Outcome:     outcomeLabel(r),
		Error:       r.Error,
		Points:      r.Points,
		LoopEnabled: r.LoopEnabled,
		LoopCount:   r.LoopCount,
		Iterations:  r.Iterations,
		Taps:        r.Taps,
		DurationMS:  r.Duration().Milliseconds(),
	}
	if r.Finished() {
		finished := r.FinishedAt
		v.FinishedAt = &finished
	}
	return v
}

func newTapView(t engine.TapEvent) TapView {
	return TapView{
		Seq:       t.Seq,
		PointID:   t.PointID,
		Index:     t.Index,
		Iteration: t.Iteration,
		X:         t.X,
		Y:         t.Y,
		At:        t.At,
	}
}

// outcomeLabel names runs that never recorded an outcome, such as those of
// a killed process.
func outcomeLabel(r store.Run) string {
	if !r.Finished() {
		return "unfinished"
	}
	return string(r.Outcome)
}

func runConfig(r store.Run) point.RunConfig {
	return point.RunConfig{LoopEnabled: r.LoopEnabled, LoopCount: r.LoopCount}
}
