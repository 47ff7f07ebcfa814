package testutil

import (
	"sync"
	"time"
)

// Marker is one recorded ShowPoint call.
type Marker struct {
	X, Y     int
	Duration time.Duration
}

// RecordingFeedback records feedback calls. It satisfies engine.Feedback.
//
// Err, when set, is returned from every call after recording. Panic, when
// true, makes every call panic after recording.
type RecordingFeedback struct {
	mu         sync.Mutex
	markers    []Marker
	vibrations []time.Duration

	Err   error
	Panic bool
}

// ShowPoint implements engine.Feedback.
func (f *RecordingFeedback) ShowPoint(x, y int, d time.Duration) error {
	f.mu.Lock()
	f.markers = append(f.markers, Marker{X: x, Y: y, Duration: d})
	err, panics := f.Err, f.Panic
	f.mu.Unlock()

	if panics {
		panic("feedback: show point exploded")
	}
	return err
}

// Vibrate implements engine.Feedback.
func (f *RecordingFeedback) Vibrate(d time.Duration) error {
	f.mu.Lock()
	f.vibrations = append(f.vibrations, d)
	err, panics := f.Err, f.Panic
	f.mu.Unlock()

	if panics {
		panic("feedback: vibrate exploded")
	}
	return err
}

// Markers returns a copy of the recorded ShowPoint calls.
func (f *RecordingFeedback) Markers() []Marker {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Marker, len(f.markers))
	copy(out, f.markers)
	return out
}

// Vibrations returns a copy of the recorded Vibrate durations.
func (f *RecordingFeedback) Vibrations() []time.Duration {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]time.Duration, len(f.vibrations))
	copy(out, f.vibrations)
	return out
}
