package domain_test

import (
	"errors"
	"math"
	"testing"
	"time"

	"energy-bubbles/internal/domain"
)

func TestBubbleSize_BoundedAndMonotonic(t *testing.T) {
	prev := math.Inf(-1)
	for power := 0.0; power <= 5000; power += 7.5 {
		size := domain.BubbleSize(power)
		if size < domain.MinBubbleSize || size > domain.MaxBubbleSize {
			t.Fatalf("BubbleSize(%v) = %v, outside [%v, %v]", power, size, domain.MinBubbleSize, domain.MaxBubbleSize)
		}
		if size < prev {
			t.Fatalf("BubbleSize decreased at %v: %v < %v", power, size, prev)
		}
		prev = size
	}
}

func TestBubbleSize(t *testing.T) {
	tests := []struct {
		name  string
		power float64
		want  float64
	}{
		{name: "tiny draw clamps to minimum", power: 10, want: 50},
		{name: "linear region", power: 1200, want: 120},
		{name: "large draw clamps to maximum", power: 4000, want: 200},
		{name: "negative draw", power: -5, want: 50},
		{name: "nan", power: math.NaN(), want: 50},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := domain.BubbleSize(tt.power); got != tt.want {
				t.Errorf("BubbleSize(%v): got %v, want %v", tt.power, got, tt.want)
			}
		})
	}
}

func TestValidateSeed(t *testing.T) {
	tests := []struct {
		name    string
		devices []domain.DeviceSpec
		sources []domain.EnergySource
		wantErr error
	}{
		{
			name:    "defaults are valid",
			devices: domain.DefaultDevices(),
			sources: domain.DefaultSources(),
		},
		{
			name:    "zero baseline",
			devices: []domain.DeviceSpec{{ID: 1, Name: "Ghost", Baseline: 0}},
			wantErr: domain.ErrInvalidBaseline,
		},
		{
			name: "duplicate id",
			devices: []domain.DeviceSpec{
				{ID: 1, Name: "A", Baseline: 10},
				{ID: 1, Name: "B", Baseline: 20},
			},
			wantErr: domain.ErrDuplicateDevice,
		},
		{
			name:    "share above 100",
			sources: []domain.EnergySource{{Name: "Hydro", Share: 100.5}},
			wantErr: domain.ErrInvalidShare,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := domain.ValidateSeed(tt.devices, tt.sources)
			if tt.wantErr == nil && err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if tt.wantErr != nil && !errors.Is(err, tt.wantErr) {
				t.Fatalf("error: got %v, want %v", err, tt.wantErr)
			}
		})
	}
}

func TestNewDevices_StartAtBaseline(t *testing.T) {
	now := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	devices := domain.NewDevices(domain.DefaultDevices(), now)

	if len(devices) != 12 {
		t.Fatalf("devices count: got %d, want 12", len(devices))
	}
	for _, d := range devices {
		if d.Power != d.Baseline {
			t.Errorf("%s: power %v, want baseline %v", d.Name, d.Power, d.Baseline)
		}
		if d.Mood != domain.MoodContent {
			t.Errorf("%s: mood %s, want content", d.Name, d.Mood)
		}
		if !d.LastFed.Equal(now) {
			t.Errorf("%s: last fed %v, want %v", d.Name, d.LastFed, now)
		}
	}

	if total := domain.TotalPower(devices); total != 12415 {
		t.Errorf("total power: got %v, want 12415", total)
	}
}
