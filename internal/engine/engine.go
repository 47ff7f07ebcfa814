package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/Amayakite/AutoClicker/internal/jitter"
	"github.com/Amayakite/AutoClicker/internal/point"
)

// Span and event names emitted by the engine.
const (
	TracerName   = "github.com/Amayakite/AutoClicker/internal/engine"
	RunSpanName  = "autoclicker.run"
	TapEventName = "tap"
)

// Engine replays click point sequences through a Dispatcher.
//
// An Engine is an explicit instance: construct one per dispatch target and
// share it between the callers that may start or stop runs.
//
// Thread-safety model:
//   - Execute(): at most one in flight; concurrent calls fail with ErrCodeAlreadyRunning
//   - Stop(), IsRunning(), Stopping(): safe from any goroutine
//
// INVARIANTS:
//   - stopping is only true while running is true
//   - running and stopping are both false once Execute returns
type Engine struct {
	dispatcher Dispatcher
	feedback   Feedback
	observers  []Observer
	clock      Clock
	rand       jitter.Source
	tracer     trace.Tracer
	runIDs     RunIDGenerator
	seq        *Sequence

	// feedbackDrain bounds the wait for queued feedback after a run.
	feedbackDrain time.Duration

	mu       sync.Mutex
	running  bool
	stopping bool
}

// EngineOption allows configuration of engine collaborators.
type EngineOption func(*Engine)

// WithClock replaces the real timer, e.g. with testutil.FakeClock.
func WithClock(c Clock) EngineOption {
	return func(e *Engine) {
		e.clock = c
	}
}

// WithRand sets the jitter random source.
func WithRand(src jitter.Source) EngineOption {
	return func(e *Engine) {
		e.rand = src
	}
}

// WithFeedback sets the feedback sink used when a run enables vibration or
// debug mode. Without one, those toggles are ignored.
//
// Feedback is delivered off the tap loop, so a slow sink never delays taps.
// Calls arriving while the sink is backed up are dropped.
func WithFeedback(f Feedback) EngineOption {
	return func(e *Engine) {
		e.feedback = f
	}
}

// WithObserver adds a run observer. Observers are called in registration order.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) {
		e.observers = append(e.observers, o)
	}
}

// WithTracer sets the OpenTelemetry tracer. Default: no-op.
func WithTracer(t trace.Tracer) EngineOption {
	return func(e *Engine) {
		e.tracer = t
	}
}

// WithRunIDGenerator sets the run ID source. Default: UUIDv7Generator.
func WithRunIDGenerator(g RunIDGenerator) EngineOption {
	return func(e *Engine) {
		e.runIDs = g
	}
}

// WithSequence sets the tap sequence counter, e.g. one resumed from the run log.
func WithSequence(s *Sequence) EngineOption {
	return func(e *Engine) {
		e.seq = s
	}
}

// New creates an idle Engine dispatching through d.
func New(d Dispatcher, opts ...EngineOption) *Engine {
	e := &Engine{
		dispatcher: d,
		clock:      RealClock{},
		rand:       jitter.Global,
		tracer:     noop.NewTracerProvider().Tracer(TracerName),
		runIDs:     UUIDv7Generator{},
		seq:        NewSequence(),

		feedbackDrain: feedbackDrainTimeout,
	}

	for _, opt := range opts {
		opt(e)
	}

	return e
}

// IsRunning reports whether a run is in flight.
func (e *Engine) IsRunning() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.running
}

// Stopping reports whether a stop was requested and not yet observed.
func (e *Engine) Stopping() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.stopping
}

// Stop requests the current run to end before its next point.
//
// Stop is idempotent and does not block: Execute may still be waiting out the
// delay of the point in flight when Stop returns. When idle, Stop is a no-op.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		e.stopping = true
	}
}

// begin claims the engine. Returns false if another run holds it.
func (e *Engine) begin() bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.running {
		return false
	}
	e.running = true
	e.stopping = false
	return true
}

// end releases the engine back to Idle.
func (e *Engine) end() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.running = false
	e.stopping = false
}

// Execute runs points according to cfg and blocks until the run ends.
//
// Preconditions are checked before any state changes, in this order:
// not already running, dispatcher service enabled, at least one enabled
// point, valid config. Each failure returns an *ExecutionError.
//
// Execute returns nil when the run completes all required passes or is
// stopped via Stop. It returns an ErrCodeDispatchFailed error if a tap fails,
// and ctx.Err() if ctx is cancelled. In every case the engine is idle again
// when Execute returns.
//
// onProgress may be nil.
func (e *Engine) Execute(ctx context.Context, points []point.ClickPoint, cfg point.RunConfig, onProgress ProgressFunc) error {
	if e.IsRunning() {
		return NewAlreadyRunningError()
	}
	if !e.dispatcher.ServiceEnabled(ctx) {
		return NewServiceUnavailableError()
	}
	sequence := point.ExecutionOrder(points)
	if len(sequence) == 0 {
		return NewNoEnabledPointsError(len(points))
	}
	if err := cfg.Validate(); err != nil {
		return NewInvalidConfigError(err)
	}

	if !e.begin() {
		return NewAlreadyRunningError()
	}
	defer e.end()

	info := RunInfo{
		ID:        e.runIDs.Generate(),
		StartedAt: e.clock.Now(),
		Points:    len(sequence),
		Config:    cfg,
	}
	log := slog.With("component", "engine", "run", info.ID)

	ctx, span := e.tracer.Start(ctx, RunSpanName, trace.WithAttributes(
		attribute.String("autoclicker.run.id", info.ID),
		attribute.Int("autoclicker.run.points", info.Points),
		attribute.Bool("autoclicker.run.loop_enabled", cfg.LoopEnabled),
		attribute.Int("autoclicker.run.loop_count", cfg.LoopCount),
	))
	defer span.End()

	log.Info("run starting",
		"points", info.Points,
		"start_delay_ms", cfg.StartDelayMS,
		"loop", cfg.LoopEnabled,
		"loop_count", cfg.LoopCount,
	)
	for _, o := range e.observers {
		o.RunStarted(info)
	}

	var fb *feedbackWorker
	if e.feedback != nil && (cfg.DebugMode || cfg.VibrationEnabled) {
		fb = startFeedbackWorker(e.feedback, log)
	}

	summary := RunSummary{RunInfo: info}
	err := e.run(ctx, span, &summary, sequence, fb, onProgress)

	if fb != nil {
		drain := e.feedbackDrain
		if ctx.Err() != nil {
			drain = 0
		}
		fb.close(drain)
	}

	summary.FinishedAt = e.clock.Now()
	summary.Err = err
	switch {
	case err == nil:
		// outcome set by run
	case errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded):
		summary.Outcome = OutcomeCancelled
	default:
		summary.Outcome = OutcomeFailed
	}

	span.SetAttributes(
		attribute.String("autoclicker.run.outcome", string(summary.Outcome)),
		attribute.Int("autoclicker.run.taps", summary.Taps),
		attribute.Int("autoclicker.run.iterations", summary.Iterations),
	)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		log.Warn("run ended with error", "outcome", summary.Outcome, "taps", summary.Taps, "error", err)
	} else {
		log.Info("run finished", "outcome", summary.Outcome, "taps", summary.Taps, "iterations", summary.Iterations)
	}

	for _, o := range e.observers {
		o.RunFinished(summary)
	}
	return err
}

// run is the sequential pipeline. Suspension happens only in clock.Sleep.
func (e *Engine) run(ctx context.Context, span trace.Span, summary *RunSummary, sequence []point.ClickPoint, fb *feedbackWorker, onProgress ProgressFunc) error {
	cfg := summary.Config

	if err := e.clock.Sleep(ctx, cfg.StartDelay()); err != nil {
		return err
	}

	iteration := 0
	for {
		for i, p := range sequence {
			// Checkpoint: the only place a stop is observed mid-pass.
			if e.Stopping() {
				summary.Outcome = OutcomeStopped
				return nil
			}
			if err := ctx.Err(); err != nil {
				return err
			}

			if onProgress != nil {
				onProgress(i, iteration)
			}

			x, y := p.X, p.Y
			if p.Jitter {
				x, y = jitter.Apply(e.rand, x, y, p.JitterRange)
			}

			if err := e.dispatcher.SimulateClick(ctx, x, y); err != nil {
				return NewDispatchError(summary.ID, p.ID, err)
			}
			summary.Taps++

			ev := TapEvent{
				Seq:       e.seq.Next(),
				RunID:     summary.ID,
				PointID:   p.ID,
				Index:     i,
				Iteration: iteration,
				X:         x,
				Y:         y,
				At:        e.clock.Now(),
			}
			span.AddEvent(TapEventName, trace.WithAttributes(
				attribute.Int64("autoclicker.tap.seq", ev.Seq),
				attribute.String("autoclicker.tap.point", p.ID),
				attribute.Int("autoclicker.tap.index", i),
				attribute.Int("autoclicker.tap.iteration", iteration),
				attribute.Float64("autoclicker.tap.x", x),
				attribute.Float64("autoclicker.tap.y", y),
			))
			for _, o := range e.observers {
				o.TapDispatched(ev)
			}

			notifyFeedback(fb, cfg, x, y)

			if err := e.clock.Sleep(ctx, p.Delay()); err != nil {
				return err
			}
		}

		iteration++
		summary.Iterations = iteration

		if !cfg.ShouldContinue(iteration) {
			summary.Outcome = OutcomeCompleted
			return nil
		}
		if e.Stopping() {
			summary.Outcome = OutcomeStopped
			return nil
		}
	}
}

// notifyFeedback queues the enabled feedback hooks. Failures never reach
// the pipeline.
func notifyFeedback(fb *feedbackWorker, cfg point.RunConfig, x, y float64) {
	if fb == nil {
		return
	}
	if cfg.DebugMode {
		px, py := int(math.Round(x)), int(math.Round(y))
		fb.send("show_point", func(f Feedback) error {
			return f.ShowPoint(px, py, point.DebugMarkerDuration)
		})
	}
	if cfg.VibrationEnabled {
		fb.send("vibrate", func(f Feedback) error {
			return f.Vibrate(point.VibrationDuration)
		})
	}
}
