package testutil

import (
	"context"
	"sync"
	"time"
)

// Click is one recorded SimulateClick call.
type Click struct {
	X, Y float64
	At   time.Time
}

// RecordingDispatcher records every tap it is asked to dispatch.
//
// It satisfies engine.Dispatcher. Zero value reports the service disabled;
// use NewRecordingDispatcher for an enabled one.
type RecordingDispatcher struct {
	mu       sync.Mutex
	clicks   []Click
	checks   int
	enabled  bool
	clock    interface{ Now() time.Time }
	failures map[int]error

	// OnClick, when non-nil, runs after the click is recorded, outside the
	// lock, with the zero-based click number. Tests use it to call Stop or to
	// block a run mid-flight.
	OnClick func(n int)
}

// NewRecordingDispatcher returns an enabled dispatcher. If clock is non-nil,
// each click is stamped with clock.Now().
func NewRecordingDispatcher(clock interface{ Now() time.Time }) *RecordingDispatcher {
	return &RecordingDispatcher{enabled: true, clock: clock}
}

// SetEnabled controls the ServiceEnabled answer.
func (d *RecordingDispatcher) SetEnabled(enabled bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.enabled = enabled
}

// FailOn makes the n-th (zero-based) click return err instead of recording.
func (d *RecordingDispatcher) FailOn(n int, err error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.failures == nil {
		d.failures = make(map[int]error)
	}
	d.failures[n] = err
}

// ServiceEnabled implements engine.Dispatcher.
func (d *RecordingDispatcher) ServiceEnabled(context.Context) bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.checks++
	return d.enabled
}

// SimulateClick implements engine.Dispatcher.
func (d *RecordingDispatcher) SimulateClick(_ context.Context, x, y float64) error {
	d.mu.Lock()
	n := len(d.clicks)
	if err, ok := d.failures[n]; ok {
		delete(d.failures, n)
		d.mu.Unlock()
		return err
	}
	c := Click{X: x, Y: y}
	if d.clock != nil {
		c.At = d.clock.Now()
	}
	d.clicks = append(d.clicks, c)
	hook := d.OnClick
	d.mu.Unlock()

	if hook != nil {
		hook(n)
	}
	return nil
}

// Clicks returns a copy of the recorded clicks.
func (d *RecordingDispatcher) Clicks() []Click {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([]Click, len(d.clicks))
	copy(out, d.clicks)
	return out
}

// Positions returns the recorded click coordinates as [x, y] pairs.
func (d *RecordingDispatcher) Positions() [][2]float64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := make([][2]float64, len(d.clicks))
	for i, c := range d.clicks {
		out[i] = [2]float64{c.X, c.Y}
	}
	return out
}

// ServiceChecks returns how many times ServiceEnabled was queried.
func (d *RecordingDispatcher) ServiceChecks() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.checks
}
