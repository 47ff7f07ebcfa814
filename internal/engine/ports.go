package engine

import (
	"context"
	"time"

	"github.com/Amayakite/AutoClicker/internal/point"
)

// Dispatcher synthesizes taps on the target surface.
// Production: dispatch.ADB, desktop.Robot, dispatch.DryRun
// Testing: testutil.RecordingDispatcher
type Dispatcher interface {
	// ServiceEnabled reports whether taps can be dispatched. It is queried
	// once per Execute, never per tap.
	ServiceEnabled(ctx context.Context) bool

	// SimulateClick taps at (x, y). No timeout is imposed by the engine.
	SimulateClick(ctx context.Context, x, y float64) error
}

// Feedback receives best-effort per-tap notifications.
// Production: feedback.Console, dispatch.ADB (vibration), feedback.Multi
// Testing: testutil.RecordingFeedback
type Feedback interface {
	ShowPoint(x, y int, d time.Duration) error
	Vibrate(d time.Duration) error
}

// ProgressFunc is called before each tap with the point's position in the
// execution sequence and the zero-based pass number.
type ProgressFunc func(index, iteration int)

// Outcome describes how a run ended.
type Outcome string

const (
	OutcomeCompleted Outcome = "completed"
	OutcomeStopped   Outcome = "stopped"
	OutcomeCancelled Outcome = "cancelled"
	OutcomeFailed    Outcome = "failed"
)

// RunInfo identifies a run once its preconditions have passed.
type RunInfo struct {
	ID        string
	StartedAt time.Time
	Points    int // enabled points in the execution sequence
	Config    point.RunConfig
}

// TapEvent records one dispatched tap.
type TapEvent struct {
	Seq       int64 // logical order across the engine's lifetime
	RunID     string
	PointID   string
	Index     int
	Iteration int
	X, Y      float64 // effective position after jitter
	At        time.Time
}

// RunSummary is reported when a run ends, whatever the outcome.
type RunSummary struct {
	RunInfo
	FinishedAt time.Time
	Outcome    Outcome
	Iterations int // completed passes
	Taps       int
	Err        error
}

// Observer follows runs. Calls happen synchronously inside the pipeline, so
// implementations must return quickly.
// Production: store.Recorder, cli progress printer
type Observer interface {
	RunStarted(info RunInfo)
	TapDispatched(ev TapEvent)
	RunFinished(summary RunSummary)
}

// RunIDGenerator produces run identifiers.
// Implemented by UUIDv7Generator (production) and FixedGenerator (tests).
type RunIDGenerator interface {
	Generate() string
}
