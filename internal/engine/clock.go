package engine

import (
	"context"
	"sync/atomic"
	"time"
)

// Clock abstracts waiting so runs can be driven by a fake clock in tests.
type Clock interface {
	Now() time.Time

	// Sleep blocks for d or until ctx is done, whichever comes first.
	// It returns ctx.Err() when interrupted.
	Sleep(ctx context.Context, d time.Duration) error
}

// RealClock implements Clock with the system timer.
type RealClock struct{}

func (RealClock) Now() time.Time { return time.Now() }

func (RealClock) Sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Sequence is a monotonic logical counter used to stamp tap events.
//
// Tap order is taken from seq, never from wall-clock timestamps, so the run
// log orders taps deterministically even if the system clock jumps.
//
// Thread-safety: Sequence is safe for concurrent use.
type Sequence struct {
	seq atomic.Int64
}

// NewSequence creates a sequence starting at 0.
func NewSequence() *Sequence {
	return &Sequence{}
}

// NewSequenceAt creates a sequence resuming after start.
// Used to continue numbering from the last seq in an existing run log.
func NewSequenceAt(start int64) *Sequence {
	s := &Sequence{}
	s.seq.Store(start)
	return s
}

// Next returns the next sequence number. The first call returns start+1.
func (s *Sequence) Next() int64 {
	return s.seq.Add(1)
}

// Current returns the last issued number without advancing.
func (s *Sequence) Current() int64 {
	return s.seq.Load()
}
