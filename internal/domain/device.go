package domain

import (
	"math"
	"time"
)

type Mood string

const (
	MoodContent  Mood = "content"
	MoodNeutral  Mood = "neutral"
	MoodDepleted Mood = "depleted"
)

type Color string

const (
	ColorOrange Color = "#FFBA33"
	ColorBlue   Color = "#0984CF"
	ColorRed    Color = "#EA4F44"
	ColorGreen  Color = "#00A655"
)

const (
	// DriftFraction bounds how far a device may wander from its baseline, in either direction.
	DriftFraction = 0.1

	MinBubbleSize = 50.0
	MaxBubbleSize = 200.0
)

// Device is one tracked appliance. Position and velocity belong to the layout engine.
type Device struct {
	ID        int       `json:"id"`
	Name      string    `json:"name"`
	Baseline  float64   `json:"baseline"`
	Color     Color     `json:"color"`
	Power     float64   `json:"power"`
	Duration  int       `json:"duration"`
	Mood      Mood      `json:"mood"`
	LastFed   time.Time `json:"last_fed"`
	StartedAt time.Time `json:"started_at"`
}

// PowerBounds returns the inclusive range the device's power draw must stay within.
func (d Device) PowerBounds() (lo, hi float64) {
	return d.Baseline * (1 - DriftFraction), d.Baseline * (1 + DriftFraction)
}

// BubbleSize maps a power draw to an on-screen diameter in pixels.
func BubbleSize(power float64) float64 {
	if math.IsNaN(power) {
		return MinBubbleSize
	}
	return math.Max(MinBubbleSize, math.Min(MaxBubbleSize, power/10))
}

// TotalPower sums the current draw of every device.
func TotalPower(devices []Device) float64 {
	var total float64
	for _, d := range devices {
		total += d.Power
	}
	return total
}
