// Package jitter randomizes tap positions.
package jitter

import (
	"math"
	"math/rand/v2"
)

// Source yields uniform values in [0, 1). *rand.Rand satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Global draws from the process-wide generator.
var Global Source = globalSource{}

// Apply offsets (x, y) by two independent uniform draws in [-r, +r] and rounds
// each axis to the nearest integer pixel.
//
// No clamping to screen bounds is performed. Call once per tap; results are
// never cached.
func Apply(src Source, x, y, r float64) (float64, float64) {
	dx := (src.Float64()*2 - 1) * r
	dy := (src.Float64()*2 - 1) * r
	return math.Round(x + dx), math.Round(y + dy)
}

// Position is Apply over the global generator.
func Position(x, y, r float64) (float64, float64) {
	return Apply(Global, x, y, r)
}
