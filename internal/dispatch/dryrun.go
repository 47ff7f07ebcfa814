package dispatch

import (
	"context"
	"log/slog"
	"sync/atomic"
	"time"
)

// DryRun logs taps instead of performing them. It is always enabled.
type DryRun struct {
	taps atomic.Int64
	log  *slog.Logger
}

// NewDryRun creates a DryRun dispatcher logging through logger, or
// slog.Default() if nil.
func NewDryRun(logger *slog.Logger) *DryRun {
	if logger == nil {
		logger = slog.Default()
	}
	return &DryRun{log: logger.With("component", "dispatch", "dispatcher", "dry-run")}
}

// ServiceEnabled always reports true.
func (d *DryRun) ServiceEnabled(context.Context) bool {
	return true
}

// SimulateClick logs the tap.
func (d *DryRun) SimulateClick(ctx context.Context, x, y float64) error {
	n := d.taps.Add(1)
	d.log.InfoContext(ctx, "tap", "n", n, "x", x, "y", y)
	return nil
}

// Taps returns the number of taps logged so far.
func (d *DryRun) Taps() int64 {
	return d.taps.Load()
}

// ShowPoint logs the marker.
func (d *DryRun) ShowPoint(x, y int, dur time.Duration) error {
	d.log.Debug("show point", "x", x, "y", y, "duration", dur)
	return nil
}

// Vibrate logs the pulse.
func (d *DryRun) Vibrate(dur time.Duration) error {
	d.log.Debug("vibrate", "duration", dur)
	return nil
}
