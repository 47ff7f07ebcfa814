package engine

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"

	"github.com/Amayakite/AutoClicker/internal/point"
	"github.com/Amayakite/AutoClicker/internal/testutil"
)

// constSource always returns v.
type constSource float64

func (s constSource) Float64() float64 { return float64(s) }

// recordingObserver captures every observer callback.
type recordingObserver struct {
	mu        sync.Mutex
	started   []RunInfo
	taps      []TapEvent
	summaries []RunSummary
}

func (o *recordingObserver) RunStarted(info RunInfo) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.started = append(o.started, info)
}

func (o *recordingObserver) TapDispatched(ev TapEvent) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.taps = append(o.taps, ev)
}

func (o *recordingObserver) RunFinished(s RunSummary) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.summaries = append(o.summaries, s)
}

func (o *recordingObserver) lastSummary(t *testing.T) RunSummary {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.summaries)
	return o.summaries[len(o.summaries)-1]
}

type fixture struct {
	engine     *Engine
	dispatcher *testutil.RecordingDispatcher
	clock      *testutil.FakeClock
	observer   *recordingObserver
}

func newFixture(t *testing.T, opts ...EngineOption) *fixture {
	t.Helper()
	clock := testutil.NewFakeClock(testutil.Epoch)
	d := testutil.NewRecordingDispatcher(clock)
	obs := &recordingObserver{}

	base := []EngineOption{
		WithClock(clock),
		WithObserver(obs),
		WithRunIDGenerator(testutil.NewSeqIDs("run")),
	}
	return &fixture{
		engine:     New(d, append(base, opts...)...),
		dispatcher: d,
		clock:      clock,
		observer:   obs,
	}
}

// twoPoints returns p0 at (10,10) with 100ms delay and p1 at (20,20) with 200ms.
func twoPoints() []point.ClickPoint {
	p0 := point.New(0, 10, 10, "p0")
	p0.DelayMS = 100
	p1 := point.New(1, 20, 20, "p1")
	p1.DelayMS = 200
	return []point.ClickPoint{p0, p1}
}

func TestEngine_New_Defaults(t *testing.T) {
	e := New(testutil.NewRecordingDispatcher(nil))

	assert.IsType(t, RealClock{}, e.clock)
	assert.NotNil(t, e.rand)
	assert.NotNil(t, e.tracer)
	assert.IsType(t, UUIDv7Generator{}, e.runIDs)
	assert.Equal(t, int64(0), e.seq.Current())
	assert.False(t, e.IsRunning())
	assert.False(t, e.Stopping())
}

func TestEngine_Execute_SinglePass(t *testing.T) {
	f := newFixture(t)

	err := f.engine.Execute(context.Background(), twoPoints(), point.DefaultRunConfig(), nil)
	require.NoError(t, err)

	assert.Equal(t, [][2]float64{{10, 10}, {20, 20}}, f.dispatcher.Positions())
	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond}, f.clock.Sleeps())
	assert.False(t, f.engine.IsRunning())

	s := f.observer.lastSummary(t)
	assert.Equal(t, OutcomeCompleted, s.Outcome)
	assert.Equal(t, 2, s.Taps)
	assert.Equal(t, 1, s.Iterations)
	assert.Equal(t, "run-1", s.ID)
	assert.Equal(t, testutil.Epoch, s.StartedAt)
	assert.Equal(t, testutil.Epoch.Add(300*time.Millisecond), s.FinishedAt)
	assert.NoError(t, s.Err)
}

func TestEngine_Execute_OrdersByOrderNotInput(t *testing.T) {
	f := newFixture(t)

	a := point.New(2, 1, 1, "a")
	b := point.New(0, 2, 2, "b")
	c := point.New(1, 3, 3, "c")

	var progress []int
	err := f.engine.Execute(context.Background(), []point.ClickPoint{a, b, c}, point.DefaultRunConfig(), func(index, _ int) {
		progress = append(progress, index)
	})
	require.NoError(t, err)

	assert.Equal(t, [][2]float64{{2, 2}, {3, 3}, {1, 1}}, f.dispatcher.Positions())
	assert.Equal(t, []int{0, 1, 2}, progress)
}

func TestEngine_Execute_ProgressPrecedesTap(t *testing.T) {
	f := newFixture(t)
	cfg := point.RunConfig{LoopEnabled: true, LoopCount: 2}

	calls := 0
	err := f.engine.Execute(context.Background(), twoPoints(), cfg, func(index, iteration int) {
		calls++
		// Progress announces the tap about to happen, so it has not been sent yet.
		assert.Len(t, f.dispatcher.Clicks(), iteration*2+index)
	})
	require.NoError(t, err)
	assert.Equal(t, 4, calls)
}

func TestEngine_Execute_SkipsDisabledPoints(t *testing.T) {
	f := newFixture(t)
	pts := twoPoints()
	pts[0].Enabled = false

	require.NoError(t, f.engine.Execute(context.Background(), pts, point.DefaultRunConfig(), nil))

	assert.Equal(t, [][2]float64{{20, 20}}, f.dispatcher.Positions())
	assert.Equal(t, 1, f.observer.lastSummary(t).Points)
}

func TestEngine_Execute_LoopCount(t *testing.T) {
	f := newFixture(t)
	cfg := point.RunConfig{LoopEnabled: true, LoopCount: 2}

	type step struct{ index, iteration int }
	var steps []step
	err := f.engine.Execute(context.Background(), twoPoints(), cfg, func(index, iteration int) {
		steps = append(steps, step{index, iteration})
	})
	require.NoError(t, err)

	assert.Len(t, f.dispatcher.Clicks(), 4)
	assert.Equal(t, []step{{0, 0}, {1, 0}, {0, 1}, {1, 1}}, steps)

	s := f.observer.lastSummary(t)
	assert.Equal(t, OutcomeCompleted, s.Outcome)
	assert.Equal(t, 2, s.Iterations)
	assert.Equal(t, 4, s.Taps)
}

func TestEngine_Execute_LoopDisabledIgnoresCount(t *testing.T) {
	f := newFixture(t)
	cfg := point.RunConfig{LoopEnabled: false, LoopCount: 5}

	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), cfg, nil))
	assert.Len(t, f.dispatcher.Clicks(), 2)
}

func TestEngine_Execute_UnboundedLoopUntilStop(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.OnClick = func(n int) {
		if n == 2 {
			f.engine.Stop()
		}
	}
	cfg := point.RunConfig{LoopEnabled: true, LoopCount: 0}

	err := f.engine.Execute(context.Background(), twoPoints(), cfg, nil)
	require.NoError(t, err)

	// Third tap is p0 of the second pass. Its delay is still honored before
	// the stop is observed ahead of p1.
	assert.Len(t, f.dispatcher.Clicks(), 3)
	assert.Equal(t, []time.Duration{0, 100 * time.Millisecond, 200 * time.Millisecond, 100 * time.Millisecond}, f.clock.Sleeps())
	assert.False(t, f.engine.IsRunning())
	assert.False(t, f.engine.Stopping())

	s := f.observer.lastSummary(t)
	assert.Equal(t, OutcomeStopped, s.Outcome)
	assert.Equal(t, 1, s.Iterations)
	assert.Equal(t, 3, s.Taps)
}

func TestEngine_Execute_StopAfterLastPointOfPass(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.OnClick = func(n int) {
		if n == 1 {
			f.engine.Stop()
		}
	}
	cfg := point.RunConfig{LoopEnabled: true, LoopCount: 0}

	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), cfg, nil))

	assert.Len(t, f.dispatcher.Clicks(), 2)
	s := f.observer.lastSummary(t)
	assert.Equal(t, OutcomeStopped, s.Outcome)
	assert.Equal(t, 1, s.Iterations)
}

func TestEngine_Execute_StartDelay(t *testing.T) {
	f := newFixture(t)
	cfg := point.RunConfig{StartDelayMS: 500, LoopCount: 1}

	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), cfg, nil))

	clicks := f.dispatcher.Clicks()
	require.NotEmpty(t, clicks)
	assert.GreaterOrEqual(t, clicks[0].At.Sub(testutil.Epoch), 500*time.Millisecond)
	assert.Equal(t, 500*time.Millisecond, f.clock.Sleeps()[0])
}

func TestEngine_Stop_DuringStartDelay(t *testing.T) {
	f := newFixture(t)
	f.clock.OnSleep = func(time.Duration) { f.engine.Stop() }

	var progress int
	err := f.engine.Execute(context.Background(), twoPoints(), point.RunConfig{StartDelayMS: 500, LoopEnabled: true}, func(int, int) {
		progress++
	})
	require.NoError(t, err)

	assert.Empty(t, f.dispatcher.Clicks())
	assert.Zero(t, progress)
	assert.Equal(t, []time.Duration{500 * time.Millisecond}, f.clock.Sleeps())
	assert.False(t, f.engine.IsRunning())

	s := f.observer.lastSummary(t)
	assert.Equal(t, OutcomeStopped, s.Outcome)
	assert.Zero(t, s.Taps)
	assert.Zero(t, s.Iterations)
}

func TestEngine_Execute_AlreadyRunning(t *testing.T) {
	f := newFixture(t)

	entered := make(chan struct{})
	release := make(chan struct{})
	f.dispatcher.OnClick = func(n int) {
		if n == 0 {
			close(entered)
			<-release
		}
	}

	done := make(chan error, 1)
	go func() {
		done <- f.engine.Execute(context.Background(), twoPoints(), point.DefaultRunConfig(), nil)
	}()

	<-entered
	assert.True(t, f.engine.IsRunning())

	err := f.engine.Execute(context.Background(), twoPoints(), point.DefaultRunConfig(), nil)
	require.Error(t, err)
	assert.True(t, IsAlreadyRunning(err))

	close(release)
	require.NoError(t, <-done)

	// The rejected call dispatched nothing of its own.
	assert.Len(t, f.dispatcher.Clicks(), 2)
	assert.False(t, f.engine.IsRunning())
}

func TestEngine_Execute_ServiceUnavailable(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.SetEnabled(false)

	err := f.engine.Execute(context.Background(), twoPoints(), point.DefaultRunConfig(), nil)
	require.Error(t, err)
	assert.True(t, IsServiceUnavailable(err))

	assert.Empty(t, f.dispatcher.Clicks())
	assert.Empty(t, f.clock.Sleeps())
	assert.Empty(t, f.observer.started)
	assert.False(t, f.engine.IsRunning())
}

func TestEngine_Execute_ServiceCheckedOncePerRun(t *testing.T) {
	f := newFixture(t)
	cfg := point.RunConfig{LoopEnabled: true, LoopCount: 3}

	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), cfg, nil))
	assert.Equal(t, 1, f.dispatcher.ServiceChecks())
}

func TestEngine_Execute_NoEnabledPoints(t *testing.T) {
	tests := []struct {
		name   string
		points []point.ClickPoint
	}{
		{"empty", nil},
		{"all disabled", func() []point.ClickPoint {
			pts := twoPoints()
			pts[0].Enabled = false
			pts[1].Enabled = false
			return pts
		}()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			err := f.engine.Execute(context.Background(), tt.points, point.DefaultRunConfig(), nil)
			require.Error(t, err)
			assert.True(t, IsNoEnabledPoints(err))
			assert.Empty(t, f.dispatcher.Clicks())
			assert.False(t, f.engine.IsRunning())
		})
	}
}

func TestEngine_Execute_PreconditionPrecedence(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.SetEnabled(false)

	// Service check wins over the empty point list.
	err := f.engine.Execute(context.Background(), nil, point.RunConfig{StartDelayMS: -1}, nil)
	assert.True(t, IsServiceUnavailable(err))

	f.dispatcher.SetEnabled(true)
	err = f.engine.Execute(context.Background(), nil, point.RunConfig{StartDelayMS: -1}, nil)
	assert.True(t, IsNoEnabledPoints(err))
}

func TestEngine_Execute_InvalidConfig(t *testing.T) {
	f := newFixture(t)

	err := f.engine.Execute(context.Background(), twoPoints(), point.RunConfig{LoopCount: -1}, nil)
	require.Error(t, err)
	assert.Equal(t, ErrCodeInvalidConfig, CodeOf(err))
	assert.Contains(t, err.Error(), "loop count must not be negative")
	assert.Empty(t, f.dispatcher.Clicks())
}

func TestEngine_Execute_DispatchFailureAborts(t *testing.T) {
	f := newFixture(t)
	boom := errors.New("device offline")
	f.dispatcher.FailOn(1, boom)
	cfg := point.RunConfig{LoopEnabled: true, LoopCount: 0}

	err := f.engine.Execute(context.Background(), twoPoints(), cfg, nil)
	require.Error(t, err)
	assert.True(t, IsDispatchFailed(err))
	assert.ErrorIs(t, err, boom)

	var ee *ExecutionError
	require.ErrorAs(t, err, &ee)
	assert.Equal(t, "run-1", ee.RunID)
	assert.Equal(t, "p1", ee.PointID)

	assert.Len(t, f.dispatcher.Clicks(), 1)
	assert.False(t, f.engine.IsRunning())

	s := f.observer.lastSummary(t)
	assert.Equal(t, OutcomeFailed, s.Outcome)
	assert.Equal(t, 1, s.Taps)

	// The engine is reusable after a failure.
	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), point.DefaultRunConfig(), nil))
}

func TestEngine_Execute_ContextCancelled(t *testing.T) {
	f := newFixture(t)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	f.dispatcher.OnClick = func(n int) {
		if n == 0 {
			cancel()
		}
	}
	cfg := point.RunConfig{LoopEnabled: true, LoopCount: 0}

	err := f.engine.Execute(ctx, twoPoints(), cfg, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Len(t, f.dispatcher.Clicks(), 1)
	assert.False(t, f.engine.IsRunning())
	assert.Equal(t, OutcomeCancelled, f.observer.lastSummary(t).Outcome)
}

func TestEngine_Execute_ContextCancelledDuringStartDelay(t *testing.T) {
	clock := testutil.NewFakeClock(testutil.Epoch)
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	clock.OnSleep = func(time.Duration) { cancel() }

	d := testutil.NewRecordingDispatcher(clock)
	e := New(d, WithClock(clock))

	err := e.Execute(ctx, twoPoints(), point.RunConfig{StartDelayMS: 1000, LoopCount: 1}, nil)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Empty(t, d.Clicks())
	assert.False(t, e.IsRunning())
}

func TestEngine_Stop_WhileIdleIsNoop(t *testing.T) {
	f := newFixture(t)

	f.engine.Stop()
	assert.False(t, f.engine.Stopping())

	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), point.DefaultRunConfig(), nil))
	assert.Len(t, f.dispatcher.Clicks(), 2)
	assert.Equal(t, OutcomeCompleted, f.observer.lastSummary(t).Outcome)
}

func TestEngine_Stop_Idempotent(t *testing.T) {
	f := newFixture(t)
	f.dispatcher.OnClick = func(int) {
		f.engine.Stop()
		f.engine.Stop()
		assert.True(t, f.engine.Stopping())
	}

	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), point.RunConfig{LoopEnabled: true}, nil))
	assert.Len(t, f.dispatcher.Clicks(), 1)
	assert.False(t, f.engine.Stopping())
}

func TestEngine_Execute_Jitter(t *testing.T) {
	f := newFixture(t, WithRand(constSource(0.75)))
	pts := []point.ClickPoint{point.New(0, 100, 200, "p0")}
	pts[0].Jitter = true
	pts[0].JitterRange = 10

	require.NoError(t, f.engine.Execute(context.Background(), pts, point.DefaultRunConfig(), nil))

	// 0.75*2-1 = 0.5, so each axis shifts by +5.
	assert.Equal(t, [][2]float64{{105, 205}}, f.dispatcher.Positions())
	assert.Equal(t, 100.0, pts[0].X, "input points are never mutated")
	assert.Equal(t, 105.0, f.observer.taps[0].X)
}

func TestEngine_Execute_JitterStaysInBounds(t *testing.T) {
	f := newFixture(t)
	p := point.New(0, 500, 500, "p0")
	p.Jitter = true
	p.JitterRange = 25
	p.DelayMS = 0

	cfg := point.RunConfig{LoopEnabled: true, LoopCount: 200}
	require.NoError(t, f.engine.Execute(context.Background(), []point.ClickPoint{p}, cfg, nil))

	for _, pos := range f.dispatcher.Positions() {
		assert.InDelta(t, 500, pos[0], 25)
		assert.InDelta(t, 500, pos[1], 25)
	}
}

func TestEngine_Execute_Feedback(t *testing.T) {
	fb := &testutil.RecordingFeedback{}
	f := newFixture(t, WithFeedback(fb))
	pts := []point.ClickPoint{point.New(0, 10.4, 20.6, "p0")}
	cfg := point.RunConfig{LoopCount: 1, DebugMode: true, VibrationEnabled: true}

	require.NoError(t, f.engine.Execute(context.Background(), pts, cfg, nil))

	assert.Equal(t, []testutil.Marker{{X: 10, Y: 21, Duration: time.Second}}, fb.Markers())
	assert.Equal(t, []time.Duration{50 * time.Millisecond}, fb.Vibrations())
}

func TestEngine_Execute_FeedbackDisabled(t *testing.T) {
	fb := &testutil.RecordingFeedback{}
	f := newFixture(t, WithFeedback(fb))

	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), point.DefaultRunConfig(), nil))
	assert.Empty(t, fb.Markers())
	assert.Empty(t, fb.Vibrations())
}

func TestEngine_Execute_FeedbackFailuresIgnored(t *testing.T) {
	tests := []struct {
		name string
		fb   *testutil.RecordingFeedback
	}{
		{"error", &testutil.RecordingFeedback{Err: errors.New("no vibrator")}},
		{"panic", &testutil.RecordingFeedback{Panic: true}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t, WithFeedback(tt.fb))
			cfg := point.RunConfig{LoopCount: 1, DebugMode: true, VibrationEnabled: true}

			require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), cfg, nil))
			assert.Len(t, f.dispatcher.Clicks(), 2)
			assert.Len(t, tt.fb.Markers(), 2)
			assert.Len(t, tt.fb.Vibrations(), 2)
		})
	}
}

// blockingFeedback holds every call until release is closed.
type blockingFeedback struct {
	testutil.RecordingFeedback
	release chan struct{}
}

func (f *blockingFeedback) ShowPoint(x, y int, d time.Duration) error {
	<-f.release
	return f.RecordingFeedback.ShowPoint(x, y, d)
}

func (f *blockingFeedback) Vibrate(d time.Duration) error {
	<-f.release
	return f.RecordingFeedback.Vibrate(d)
}

func zeroDelayPoints() []point.ClickPoint {
	pts := twoPoints()
	pts[0].DelayMS = 0
	pts[1].DelayMS = 0
	return pts
}

func TestEngine_Execute_SlowFeedbackDoesNotDelayTaps(t *testing.T) {
	fb := &blockingFeedback{release: make(chan struct{})}
	f := newFixture(t, WithFeedback(fb))
	cfg := point.RunConfig{LoopCount: 1, VibrationEnabled: true}

	done := make(chan error, 1)
	go func() {
		done <- f.engine.Execute(context.Background(), zeroDelayPoints(), cfg, nil)
	}()

	// Both taps go out while the first vibration is still stuck in the sink.
	require.Eventually(t, func() bool { return len(f.dispatcher.Clicks()) == 2 }, time.Second, time.Millisecond)
	assert.Empty(t, fb.Vibrations())

	close(fb.release)
	require.NoError(t, <-done)

	// Execute drained the queue before returning.
	assert.Len(t, fb.Vibrations(), 2)
}

func TestEngine_Execute_HungFeedbackDoesNotHangRun(t *testing.T) {
	fb := &blockingFeedback{release: make(chan struct{})}
	t.Cleanup(func() { close(fb.release) })

	f := newFixture(t, WithFeedback(fb))
	f.engine.feedbackDrain = 10 * time.Millisecond
	cfg := point.RunConfig{LoopCount: 1, DebugMode: true, VibrationEnabled: true}

	require.NoError(t, f.engine.Execute(context.Background(), zeroDelayPoints(), cfg, nil))

	assert.Len(t, f.dispatcher.Clicks(), 2)
	assert.False(t, f.engine.IsRunning())
	assert.Equal(t, OutcomeCompleted, f.observer.lastSummary(t).Outcome)
}

func TestEngine_Execute_FeedbackDroppedWhenBacklogged(t *testing.T) {
	fb := &blockingFeedback{release: make(chan struct{})}
	f := newFixture(t, WithFeedback(fb))

	p := point.New(0, 1, 1, "p0")
	p.DelayMS = 0
	taps := feedbackQueueSize * 3
	cfg := point.RunConfig{LoopEnabled: true, LoopCount: taps, VibrationEnabled: true}

	done := make(chan error, 1)
	go func() {
		done <- f.engine.Execute(context.Background(), []point.ClickPoint{p}, cfg, nil)
	}()

	require.Eventually(t, func() bool { return len(f.dispatcher.Clicks()) == taps }, time.Second, time.Millisecond)
	close(fb.release)
	require.NoError(t, <-done)

	// The worker holds one call and the queue the next feedbackQueueSize.
	got := len(fb.Vibrations())
	assert.Less(t, got, taps)
	assert.LessOrEqual(t, got, feedbackQueueSize+1)
}

func TestEngine_Execute_ObserverEvents(t *testing.T) {
	f := newFixture(t, WithSequence(NewSequenceAt(41)))
	cfg := point.RunConfig{LoopEnabled: true, LoopCount: 2}

	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), cfg, nil))

	require.Len(t, f.observer.started, 1)
	assert.Equal(t, 2, f.observer.started[0].Points)
	assert.Equal(t, cfg, f.observer.started[0].Config)

	require.Len(t, f.observer.taps, 4)
	for i, ev := range f.observer.taps {
		assert.Equal(t, int64(42+i), ev.Seq)
		assert.Equal(t, "run-1", ev.RunID)
		assert.Equal(t, i%2, ev.Index)
		assert.Equal(t, i/2, ev.Iteration)
	}
	assert.Equal(t, "p0", f.observer.taps[0].PointID)
	assert.Equal(t, "p1", f.observer.taps[1].PointID)
	assert.Equal(t, testutil.Epoch.Add(100*time.Millisecond), f.observer.taps[1].At)
}

func TestEngine_Execute_RejectedRunsAreNotObserved(t *testing.T) {
	f := newFixture(t)

	_ = f.engine.Execute(context.Background(), nil, point.DefaultRunConfig(), nil)
	assert.Empty(t, f.observer.started)
	assert.Empty(t, f.observer.summaries)
}

func TestEngine_Execute_Tracing(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t, WithTracer(tp.Tracer("test")))
	require.NoError(t, f.engine.Execute(context.Background(), twoPoints(), point.DefaultRunConfig(), nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	span := spans[0]
	assert.Equal(t, RunSpanName, span.Name())
	assert.Len(t, span.Events(), 2)
	assert.Equal(t, TapEventName, span.Events()[0].Name)
	assert.NotEqual(t, codes.Error, span.Status().Code)

	attrs := map[string]string{}
	for _, kv := range span.Attributes() {
		attrs[string(kv.Key)] = kv.Value.Emit()
	}
	assert.Equal(t, "run-1", attrs["autoclicker.run.id"])
	assert.Equal(t, "completed", attrs["autoclicker.run.outcome"])
	assert.Equal(t, "2", attrs["autoclicker.run.taps"])
}

func TestEngine_Execute_TracingRecordsFailure(t *testing.T) {
	rec := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(rec))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	f := newFixture(t, WithTracer(tp.Tracer("test")))
	f.dispatcher.FailOn(0, errors.New("boom"))

	require.Error(t, f.engine.Execute(context.Background(), twoPoints(), point.DefaultRunConfig(), nil))

	spans := rec.Ended()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status().Code)
	require.NotEmpty(t, spans[0].Events())
	assert.Equal(t, "exception", spans[0].Events()[0].Name)
}
