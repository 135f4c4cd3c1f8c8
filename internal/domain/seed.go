package domain

import (
	"errors"
	"fmt"
	"time"
)

var (
	ErrInvalidBaseline = errors.New("baseline power must be positive")
	ErrInvalidShare    = errors.New("share must be within [0, 100]")
	ErrDuplicateDevice = errors.New("duplicate device id")
)

// DeviceSpec is the constant part of a device, used to seed a view.
type DeviceSpec struct {
	ID       int
	Name     string
	Baseline float64
	Color    Color
}

// DefaultDevices is the seed appliance table, baselines in watts.
func DefaultDevices() []DeviceSpec {
	return []DeviceSpec{
		{ID: 1, Name: "LED Light", Baseline: 10, Color: ColorGreen},
		{ID: 2, Name: "TV", Baseline: 100, Color: ColorGreen},
		{ID: 3, Name: "Refrigerator", Baseline: 150, Color: ColorBlue},
		{ID: 4, Name: "Phone Charger", Baseline: 5, Color: ColorGreen},
		{ID: 5, Name: "Laptop", Baseline: 50, Color: ColorGreen},
		{ID: 6, Name: "Washing Machine", Baseline: 500, Color: ColorBlue},
		{ID: 7, Name: "Dishwasher", Baseline: 1200, Color: ColorOrange},
		{ID: 8, Name: "Air Conditioner", Baseline: 1500, Color: ColorRed},
		{ID: 9, Name: "Microwave", Baseline: 1100, Color: ColorOrange},
		{ID: 10, Name: "Electric Oven", Baseline: 2000, Color: ColorRed},
		{ID: 11, Name: "Water Heater", Baseline: 4000, Color: ColorRed},
		{ID: 12, Name: "Hair Dryer", Baseline: 1800, Color: ColorRed},
	}
}

// DefaultSources is the British Columbia generation mix the map and table start from.
func DefaultSources() []EnergySource {
	return []EnergySource{
		{Name: "Hydroelectric", Share: 86.3, Location: "Revelstoke, BC", Coord: Coordinate{51.0, -118.2}, Icon: "water_drop"},
		{Name: "Biomass", Share: 8.7, Location: "Prince George, BC", Coord: Coordinate{53.9, -122.8}, Icon: "compost"},
		{Name: "Wind", Share: 2.9, Location: "Northeast BC", Coord: Coordinate{56.2, -120.8}, Icon: "air"},
		{Name: "Natural Gas", Share: 1.9, Location: "Fort Nelson, BC", Coord: Coordinate{58.8, -122.7}, Icon: "local_fire_department"},
		{Name: "Solar", Share: 0.2, Location: "Kimberley, BC", Coord: Coordinate{49.7, -115.8}, Icon: "wb_sunny"},
	}
}

// ValidateSeed checks the invariants the simulators rely on.
func ValidateSeed(devices []DeviceSpec, sources []EnergySource) error {
	seen := make(map[int]bool, len(devices))
	for _, d := range devices {
		if !(d.Baseline > 0) {
			return fmt.Errorf("device %d (%s): %w", d.ID, d.Name, ErrInvalidBaseline)
		}
		if seen[d.ID] {
			return fmt.Errorf("device %d: %w", d.ID, ErrDuplicateDevice)
		}
		seen[d.ID] = true
	}
	for _, s := range sources {
		if s.Share < MinShare || s.Share > MaxShare {
			return fmt.Errorf("source %s: %w", s.Name, ErrInvalidShare)
		}
	}
	return nil
}

// NewDevices builds the live device set. Every device starts at its baseline, content, fed at now.
func NewDevices(specs []DeviceSpec, now time.Time) []Device {
	devices := make([]Device, len(specs))
	for i, s := range specs {
		devices[i] = Device{
			ID:        s.ID,
			Name:      s.Name,
			Baseline:  s.Baseline,
			Color:     s.Color,
			Power:     s.Baseline,
			Mood:      MoodContent,
			LastFed:   now,
			StartedAt: now,
		}
	}
	return devices
}
