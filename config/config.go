package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Simulation SimulationConfig `yaml:"simulation"`
	Layout     LayoutConfig     `yaml:"layout"`
	Map        MapConfig        `yaml:"map"`
	Home       HomeConfig       `yaml:"home"`
	Log        LogConfig        `yaml:"log"`
}

type ServerConfig struct {
	Addr         string `yaml:"addr"`
	FeedRate     int    `yaml:"feed_rate"`
	FeedWindow   string `yaml:"feed_window"`
	MaxSessions  int    `yaml:"max_sessions"`
	WriteTimeout string `yaml:"write_timeout"`
}

type SimulationConfig struct {
	MetricsInterval string `yaml:"metrics_interval"`
	SourcesInterval string `yaml:"sources_interval"`
	ImpulseInterval string `yaml:"impulse_interval"`
	FrameInterval   string `yaml:"frame_interval"`
	FeedDuration    string `yaml:"feed_duration"`
	NormalizeShares bool   `yaml:"normalize_shares"`
	Seed            uint64 `yaml:"seed"`
}

type LayoutConfig struct {
	Padding        float64 `yaml:"padding"`
	VelocityDecay  float64 `yaml:"velocity_decay"`
	Alpha          float64 `yaml:"alpha"`
	AlphaDecay     float64 `yaml:"alpha_decay"`
	AlphaMin       float64 `yaml:"alpha_min"`
	ImpulseAlpha   float64 `yaml:"impulse_alpha"`
	CenterStrength float64 `yaml:"center_strength"`
}

type MapConfig struct {
	TileURL       string     `yaml:"tile_url"`
	Attribution   string     `yaml:"attribution"`
	Center        [2]float64 `yaml:"center"`
	Zoom          int        `yaml:"zoom"`
	IconURL       string     `yaml:"icon_url"`
	IconRetinaURL string     `yaml:"icon_retina_url"`
	ShadowURL     string     `yaml:"shadow_url"`
}

// HomeConfig optionally overrides the seeded appliance and source tables.
type HomeConfig struct {
	Title   string         `yaml:"title"`
	Devices []DeviceConfig `yaml:"devices"`
	Sources []SourceConfig `yaml:"sources"`
}

type DeviceConfig struct {
	ID       int     `yaml:"id"`
	Name     string  `yaml:"name"`
	Baseline float64 `yaml:"baseline"`
	Color    string  `yaml:"color"`
}

type SourceConfig struct {
	Name     string     `yaml:"name"`
	Share    float64    `yaml:"share"`
	Location string     `yaml:"location"`
	Coord    [2]float64 `yaml:"coordinates"`
	Icon     string     `yaml:"icon"`
}

type LogConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Load reads a yaml config file, expanding ${VAR} references from the environment.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}
	return Parse(data)
}

// Parse decodes, defaults and validates a config document.
func Parse(data []byte) (*Config, error) {
	expanded := os.ExpandEnv(string(data))

	var cfg Config
	if err := yaml.Unmarshal([]byte(expanded), &cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	cfg.setDefaults()

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return &cfg, nil
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var cfg Config
	cfg.setDefaults()
	return &cfg
}

func (c *Config) setDefaults() {
	if c.Server.Addr == "" {
		c.Server.Addr = ":8080"
	}
	if c.Server.FeedRate == 0 {
		c.Server.FeedRate = 60
	}
	if c.Server.FeedWindow == "" {
		c.Server.FeedWindow = "1m"
	}
	if c.Server.MaxSessions == 0 {
		c.Server.MaxSessions = 64
	}
	if c.Server.WriteTimeout == "" {
		c.Server.WriteTimeout = "5s"
	}
	if c.Simulation.MetricsInterval == "" {
		c.Simulation.MetricsInterval = "1s"
	}
	if c.Simulation.SourcesInterval == "" {
		c.Simulation.SourcesInterval = "5s"
	}
	if c.Simulation.ImpulseInterval == "" {
		c.Simulation.ImpulseInterval = "1s"
	}
	if c.Simulation.FrameInterval == "" {
		c.Simulation.FrameInterval = "16ms"
	}
	if c.Simulation.FeedDuration == "" {
		c.Simulation.FeedDuration = "1s"
	}
	if c.Layout.Padding == 0 {
		c.Layout.Padding = 10
	}
	if c.Layout.VelocityDecay == 0 {
		c.Layout.VelocityDecay = 0.3
	}
	if c.Layout.Alpha == 0 {
		c.Layout.Alpha = 0.3
	}
	if c.Layout.AlphaDecay == 0 {
		c.Layout.AlphaDecay = 0.02
	}
	if c.Layout.AlphaMin == 0 {
		c.Layout.AlphaMin = 0.001
	}
	if c.Layout.ImpulseAlpha == 0 {
		c.Layout.ImpulseAlpha = 0.5
	}
	if c.Layout.CenterStrength == 0 {
		c.Layout.CenterStrength = 0.15
	}
	if c.Map.TileURL == "" {
		c.Map.TileURL = "https://{s}.tile.openstreetmap.org/{z}/{x}/{y}.png"
	}
	if c.Map.Attribution == "" {
		c.Map.Attribution = `&copy; <a href="https://www.openstreetmap.org/copyright">OpenStreetMap</a> contributors`
	}
	if c.Map.Center == [2]float64{} {
		c.Map.Center = [2]float64{53.7267, -127.6476}
	}
	if c.Map.Zoom == 0 {
		c.Map.Zoom = 5
	}
	if c.Map.IconURL == "" {
		c.Map.IconURL = "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.3.1/images/marker-icon.png"
	}
	if c.Map.IconRetinaURL == "" {
		c.Map.IconRetinaURL = "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.3.1/images/marker-icon-2x.png"
	}
	if c.Map.ShadowURL == "" {
		c.Map.ShadowURL = "https://cdnjs.cloudflare.com/ajax/libs/leaflet/1.3.1/images/marker-shadow.png"
	}
	if c.Home.Title == "" {
		c.Home.Title = "My Home"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "text"
	}
}

func (c *Config) validate() error {
	durations := map[string]string{
		"server.feed_window":          c.Server.FeedWindow,
		"server.write_timeout":        c.Server.WriteTimeout,
		"simulation.metrics_interval": c.Simulation.MetricsInterval,
		"simulation.sources_interval": c.Simulation.SourcesInterval,
		"simulation.impulse_interval": c.Simulation.ImpulseInterval,
		"simulation.frame_interval":   c.Simulation.FrameInterval,
		"simulation.feed_duration":    c.Simulation.FeedDuration,
	}
	var errs []error
	for key, value := range durations {
		if _, err := positiveDuration(value); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", key, err))
		}
	}

	if c.Layout.VelocityDecay < 0 || c.Layout.VelocityDecay > 1 {
		errs = append(errs, fmt.Errorf("layout.velocity_decay must be within [0, 1], got %v", c.Layout.VelocityDecay))
	}
	if c.Layout.Padding < 0 {
		errs = append(errs, fmt.Errorf("layout.padding must not be negative, got %v", c.Layout.Padding))
	}
	if c.Server.FeedRate < 0 || c.Server.MaxSessions < 0 {
		errs = append(errs, errors.New("server limits must not be negative"))
	}

	seen := make(map[int]bool, len(c.Home.Devices))
	for _, d := range c.Home.Devices {
		if d.Baseline <= 0 {
			errs = append(errs, fmt.Errorf("home.devices[%d] %q: baseline must be positive", d.ID, d.Name))
		}
		if seen[d.ID] {
			errs = append(errs, fmt.Errorf("home.devices: duplicate id %d", d.ID))
		}
		seen[d.ID] = true
	}
	for _, s := range c.Home.Sources {
		if s.Share < 0 || s.Share > 100 {
			errs = append(errs, fmt.Errorf("home.sources %q: share must be within [0, 100]", s.Name))
		}
	}

	return errors.Join(errs...)
}

func positiveDuration(value string) (time.Duration, error) {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", value)
	}
	return d, nil
}

// Duration parses a duration field that has already been validated.
func Duration(value string) time.Duration {
	d, _ := positiveDuration(value)
	return d
}
