// Package simulation advances the synthetic power and generation-mix readings.
//
// Both simulators are pure: they take the current set and a random source and return a new set,
// leaving the input untouched so callers can swap snapshots atomically.
package simulation

import (
	"math"

	"energy-bubbles/internal/domain"
)

// Rand is the only capability the simulators need from a random source. *rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Uniform draws from [lo, hi) using r.
func Uniform(r Rand, lo, hi float64) float64 {
	return lo + r.Float64()*(hi-lo)
}

func clamp(lo, hi, v float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

// StepDevices applies one metrics tick: each device's draw takes a random step of at most 10% of its
// baseline and is clamped back into baseline ±10%. Every device's duration grows by one tick.
func StepDevices(devices []domain.Device, r Rand) []domain.Device {
	next := make([]domain.Device, len(devices))
	for i, d := range devices {
		maxDelta := d.Baseline * domain.DriftFraction
		lo, hi := d.PowerBounds()

		d.Power = clamp(lo, hi, d.Power+Uniform(r, -maxDelta, maxDelta))
		d.Duration++
		next[i] = d
	}
	return next
}
