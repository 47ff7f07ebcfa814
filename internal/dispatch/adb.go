// Package dispatch provides tap dispatchers for the execution engine.
//
// ADB drives an Android device through the adb tool. DryRun only logs.
// Host mouse control lives in the desktop subpackage, which needs cgo.
package dispatch

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// adbFeedbackTimeout bounds haptic commands, which carry no caller context.
const adbFeedbackTimeout = 2 * time.Second

// Runner executes an external command and returns its combined output.
// Production: ExecRunner. Testing: a scripted fake.
type Runner interface {
	Run(ctx context.Context, name string, args ...string) ([]byte, error)
}

// ExecRunner runs commands with os/exec.
type ExecRunner struct{}

// Run implements Runner.
func (ExecRunner) Run(ctx context.Context, name string, args ...string) ([]byte, error) {
	out, err := exec.CommandContext(ctx, name, args...).CombinedOutput()
	if err != nil {
		return out, fmt.Errorf("%s %s: %w: %s", name, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return out, nil
}

// ADB taps on an Android device with `adb shell input tap`.
//
// It satisfies engine.Dispatcher, and engine.Feedback for vibration.
type ADB struct {
	path   string
	serial string
	runner Runner
	log    *slog.Logger
}

// ADBOption configures an ADB dispatcher.
type ADBOption func(*ADB)

// WithSerial targets one device when several are attached.
func WithSerial(serial string) ADBOption {
	return func(a *ADB) {
		a.serial = serial
	}
}

// WithADBPath overrides the adb binary. Default: "adb" from PATH.
func WithADBPath(path string) ADBOption {
	return func(a *ADB) {
		a.path = path
	}
}

// WithRunner replaces command execution.
func WithRunner(r Runner) ADBOption {
	return func(a *ADB) {
		a.runner = r
	}
}

// NewADB creates an ADB dispatcher.
func NewADB(opts ...ADBOption) *ADB {
	a := &ADB{
		path:   "adb",
		runner: ExecRunner{},
	}
	for _, opt := range opts {
		opt(a)
	}
	a.log = slog.With("component", "dispatch", "dispatcher", "adb", "serial", a.serial)
	return a
}

func (a *ADB) run(ctx context.Context, args ...string) ([]byte, error) {
	if a.serial != "" {
		args = append([]string{"-s", a.serial}, args...)
	}
	return a.runner.Run(ctx, a.path, args...)
}

// ServiceEnabled reports whether the device is attached and authorized.
func (a *ADB) ServiceEnabled(ctx context.Context) bool {
	out, err := a.run(ctx, "get-state")
	if err != nil {
		a.log.Debug("device not reachable", "error", err)
		return false
	}
	state := strings.TrimSpace(string(out))
	if state != "device" {
		a.log.Debug("device not ready", "state", state)
		return false
	}
	return true
}

// SimulateClick taps at (x, y), rounded to whole pixels.
// If ctx ends while adb runs, ctx.Err() is returned instead of the kill error.
func (a *ADB) SimulateClick(ctx context.Context, x, y float64) error {
	tx, ty := int(math.Round(x)), int(math.Round(y))
	if _, err := a.run(ctx, "shell", "input", "tap", strconv.Itoa(tx), strconv.Itoa(ty)); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("adb tap (%d, %d): %w", tx, ty, err)
	}
	a.log.Debug("tap", "x", tx, "y", ty)
	return nil
}

// Vibrate pulses the device vibrator for d.
func (a *ADB) Vibrate(d time.Duration) error {
	ctx, cancel := context.WithTimeout(context.Background(), adbFeedbackTimeout)
	defer cancel()
	ms := strconv.FormatInt(d.Milliseconds(), 10)
	if _, err := a.run(ctx, "shell", "cmd", "vibrator", "vibrate", ms); err != nil {
		return fmt.Errorf("adb vibrate: %w", err)
	}
	return nil
}

// ShowPoint is a no-op. The device has no overlay; combine ADB with
// feedback.Console to see markers on the host.
func (a *ADB) ShowPoint(int, int, time.Duration) error {
	return nil
}
