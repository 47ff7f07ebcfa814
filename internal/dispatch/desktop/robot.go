// Package desktop dispatches taps to the host mouse and listens for a global
// stop hotkey. It requires cgo and a desktop session.
package desktop

import (
	"context"
	"log/slog"
	"math"

	"github.com/go-vgo/robotgo"
	hook "github.com/robotn/gohook"

	"github.com/Amayakite/AutoClicker/internal/dispatch"
)

// DefaultStopKeys is the hotkey that stops a running sequence.
var DefaultStopKeys = []string{"q", "ctrl", "shift"}

// Robot moves the host cursor and clicks the left button.
// It satisfies engine.Dispatcher.
type Robot struct {
	lookup dispatch.LookupEnvFunc
	log    *slog.Logger
}

// NewRobot creates a Robot. lookup feeds the accessibility probe and may be nil.
func NewRobot(lookup dispatch.LookupEnvFunc) *Robot {
	return &Robot{
		lookup: lookup,
		log:    slog.With("component", "dispatch", "dispatcher", "desktop"),
	}
}

// ServiceEnabled reports whether the host allows synthetic input and has a
// usable screen.
func (r *Robot) ServiceEnabled(context.Context) bool {
	res := dispatch.ProbeAccessibility(r.lookup)
	if !res.Allowed() {
		r.log.Warn("accessibility not granted", "status", res.Status, "message", res.Message, "guidance", res.Guidance)
		return false
	}
	w, h := robotgo.GetScreenSize()
	if w <= 0 || h <= 0 {
		r.log.Warn("no screen available")
		return false
	}
	return true
}

// SimulateClick moves to (x, y), rounded, and clicks.
func (r *Robot) SimulateClick(ctx context.Context, x, y float64) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	tx, ty := int(math.Round(x)), int(math.Round(y))
	robotgo.Move(tx, ty)
	robotgo.Click("left", false)
	r.log.Debug("tap", "x", tx, "y", ty)
	return nil
}

// WatchStopKey calls fn each time keys are pressed together, until ctx is
// done. It blocks, so run it in its own goroutine.
//
// gohook keeps one process-wide listener: only one watcher may be active.
func WatchStopKey(ctx context.Context, keys []string, fn func()) {
	if len(keys) == 0 {
		keys = DefaultStopKeys
	}
	log := slog.With("component", "dispatch", "hotkey", keys)

	hook.Register(hook.KeyDown, keys, func(hook.Event) {
		log.Info("stop hotkey pressed")
		fn()
	})

	events := hook.Start()
	go func() {
		<-ctx.Done()
		hook.End()
	}()

	log.Debug("hotkey listener started")
	<-hook.Process(events)
	log.Debug("hotkey listener stopped")
}
