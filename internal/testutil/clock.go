// Package testutil provides deterministic fakes for engine collaborators.
package testutil

import (
	"context"
	"sync"
	"time"
)

// FakeClock is a virtual clock whose Sleep advances time instantly.
//
// Every Sleep call is recorded, so tests can assert on the exact suspension
// points of a run without waiting in real time.
//
// Thread-safety: all methods are safe for concurrent use.
type FakeClock struct {
	mu     sync.Mutex
	now    time.Time
	sleeps []time.Duration

	// OnSleep, when non-nil, is called after time has advanced, outside the lock.
	OnSleep func(d time.Duration)
}

// Epoch is the default start time of a FakeClock.
var Epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// NewFakeClock returns a FakeClock starting at start.
func NewFakeClock(start time.Time) *FakeClock {
	return &FakeClock{now: start}
}

// Now returns the current virtual time.
func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

// Sleep advances the virtual time by d, unless ctx is already done.
func (c *FakeClock) Sleep(ctx context.Context, d time.Duration) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	c.mu.Lock()
	if d > 0 {
		c.now = c.now.Add(d)
	}
	c.sleeps = append(c.sleeps, d)
	hook := c.OnSleep
	c.mu.Unlock()

	if hook != nil {
		hook(d)
	}
	return ctx.Err()
}

// Advance moves time forward by d without recording a sleep.
func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// Sleeps returns a copy of every recorded Sleep duration, in call order.
func (c *FakeClock) Sleeps() []time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]time.Duration, len(c.sleeps))
	copy(out, c.sleeps)
	return out
}

// Reset clears recorded sleeps and rewinds to start.
func (c *FakeClock) Reset(start time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = start
	c.sleeps = nil
}
