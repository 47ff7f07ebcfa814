package point

import (
	"fmt"
	"time"
)

// Limits and defaults for point configuration.
const (
	MaxPoints          = 50
	MaxDelayMS         = 60000
	DefaultDelayMS     = 1000
	MaxJitterRange     = 100
	DefaultJitterRange = 10
	MaxDriftSpeed      = 10
	DefaultDriftSpeed  = 1
)

// Feedback durations used for every dispatched tap.
const (
	DebugMarkerDuration = time.Second
	VibrationDuration   = 50 * time.Millisecond
)

// ClickPoint is one configured tap action.
type ClickPoint struct {
	// ID is opaque and stable across reorders.
	ID string `yaml:"id"`

	// Order ranks the point within its owning list.
	Order int `yaml:"order"`

	X float64 `yaml:"x"`
	Y float64 `yaml:"y"`

	// DelayMS is waited after this tap, before the next one.
	DelayMS int `yaml:"delay_ms"`

	// Enabled points are dispatched. Disabled points are skipped entirely.
	Enabled bool `yaml:"enabled"`

	// Jitter randomizes the tap position within ±JitterRange per axis,
	// independently for every execution.
	Jitter      bool    `yaml:"jitter"`
	JitterRange float64 `yaml:"jitter_range"`

	// Drift and DriftSpeed are reserved. The engine does not read them.
	Drift      bool    `yaml:"drift"`
	DriftSpeed float64 `yaml:"drift_speed"`

	Name string `yaml:"name,omitempty"`
}

// New creates an enabled point with default timing at the given rank.
func New(order int, x, y float64, id string) ClickPoint {
	return ClickPoint{
		ID:          id,
		Order:       order,
		X:           x,
		Y:           y,
		DelayMS:     DefaultDelayMS,
		Enabled:     true,
		JitterRange: DefaultJitterRange,
		DriftSpeed:  DefaultDriftSpeed,
		Name:        fmt.Sprintf("Point %d", order+1),
	}
}

// Delay returns DelayMS as a duration.
func (p ClickPoint) Delay() time.Duration {
	return time.Duration(p.DelayMS) * time.Millisecond
}

// RunConfig holds execution-scoped parameters. It is not part of point data.
type RunConfig struct {
	// StartDelayMS is waited once, before the first tap of a run.
	StartDelayMS int `yaml:"start_delay_ms"`

	// LoopEnabled false runs the sequence exactly once.
	LoopEnabled bool `yaml:"loop_enabled"`

	// LoopCount bounds the number of passes when looping. 0 means unbounded.
	LoopCount int `yaml:"loop_count"`

	VibrationEnabled bool `yaml:"vibration_enabled"`
	DebugMode        bool `yaml:"debug_mode"`
}

// DefaultRunConfig matches a freshly created script: one pass, no start delay.
func DefaultRunConfig() RunConfig {
	return RunConfig{LoopCount: 1}
}

// StartDelay returns StartDelayMS as a duration.
func (c RunConfig) StartDelay() time.Duration {
	return time.Duration(c.StartDelayMS) * time.Millisecond
}

// Validate rejects negative timing and loop values.
func (c RunConfig) Validate() error {
	if c.StartDelayMS < 0 {
		return fmt.Errorf("start delay must not be negative (got %d)", c.StartDelayMS)
	}
	if c.LoopCount < 0 {
		return fmt.Errorf("loop count must not be negative (got %d)", c.LoopCount)
	}
	return nil
}

// ShouldContinue reports whether another pass follows after completed passes.
// iteration is the number of passes already completed.
func (c RunConfig) ShouldContinue(iteration int) bool {
	return c.LoopEnabled && (c.LoopCount == 0 || iteration < c.LoopCount)
}
