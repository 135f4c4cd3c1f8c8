package config_test

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"energy-bubbles/config"
)

func TestLoad_Defaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte("log:\n  level: debug\n"), 0o600); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := config.Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Log.Level != "debug" {
		t.Errorf("log level: got %q, want debug", cfg.Log.Level)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("addr: got %q, want :8080", cfg.Server.Addr)
	}
	if got := config.Duration(cfg.Simulation.SourcesInterval); got != 5*time.Second {
		t.Errorf("sources interval: got %v, want 5s", got)
	}
	if cfg.Layout.CenterStrength != 0.15 {
		t.Errorf("center strength: got %v, want 0.15", cfg.Layout.CenterStrength)
	}
	if !strings.Contains(cfg.Map.TileURL, "{s}") {
		t.Errorf("tile url missing subdomain placeholder: %q", cfg.Map.TileURL)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := config.Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing file")
	}
}

func TestParse_ExpandsEnvironment(t *testing.T) {
	t.Setenv("DASHBOARD_ADDR", ":9191")

	cfg, err := config.Parse([]byte("server:\n  addr: ${DASHBOARD_ADDR}\n"))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}
	if cfg.Server.Addr != ":9191" {
		t.Errorf("addr: got %q, want :9191", cfg.Server.Addr)
	}
}

func TestParse_Overrides(t *testing.T) {
	doc := `
simulation:
  metrics_interval: 250ms
  normalize_shares: true
home:
  title: Cabin
  devices:
    - id: 1
      name: Kettle
      baseline: 1500
      color: "#EA4F44"
  sources:
    - name: Hydroelectric
      share: 95
      location: Revelstoke, BC
      coordinates: [51.0, -118.2]
      icon: water_drop
`
	cfg, err := config.Parse([]byte(doc))
	if err != nil {
		t.Fatalf("Parse: %v", err)
	}

	if got := config.Duration(cfg.Simulation.MetricsInterval); got != 250*time.Millisecond {
		t.Errorf("metrics interval: got %v", got)
	}
	if !cfg.Simulation.NormalizeShares {
		t.Error("normalize_shares not decoded")
	}
	if len(cfg.Home.Devices) != 1 || cfg.Home.Devices[0].Name != "Kettle" {
		t.Errorf("devices: got %+v", cfg.Home.Devices)
	}
	if cfg.Home.Sources[0].Coord != [2]float64{51.0, -118.2} {
		t.Errorf("coordinates: got %v", cfg.Home.Sources[0].Coord)
	}
}

func TestParse_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		doc     string
		wantErr string
	}{
		{
			name:    "bad duration",
			doc:     "simulation:\n  metrics_interval: soon\n",
			wantErr: "simulation.metrics_interval",
		},
		{
			name:    "negative duration",
			doc:     "simulation:\n  feed_duration: -1s\n",
			wantErr: "simulation.feed_duration",
		},
		{
			name:    "non-positive baseline",
			doc:     "home:\n  devices:\n    - id: 1\n      name: Ghost\n      baseline: 0\n",
			wantErr: "baseline must be positive",
		},
		{
			name:    "share out of range",
			doc:     "home:\n  sources:\n    - name: Wind\n      share: 140\n",
			wantErr: "share must be within",
		},
		{
			name:    "velocity decay out of range",
			doc:     "layout:\n  velocity_decay: 2\n",
			wantErr: "layout.velocity_decay",
		},
		{
			name:    "malformed yaml",
			doc:     "server: [",
			wantErr: "parsing config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := config.Parse([]byte(tt.doc))
			if err == nil {
				t.Fatal("expected error")
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error %q does not mention %q", err, tt.wantErr)
			}
		})
	}
}

func TestLoad_ExampleFile(t *testing.T) {
	t.Setenv("ENERGY_BUBBLES_ADDR", "")

	cfg, err := config.Load(filepath.Join("..", "config.example.yaml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Server.Addr != ":8080" {
		t.Errorf("unset env var should fall back to the default addr, got %q", cfg.Server.Addr)
	}
	if got := config.Duration(cfg.Simulation.FrameInterval); got != 16*time.Millisecond {
		t.Errorf("frame interval: got %v", got)
	}
}
