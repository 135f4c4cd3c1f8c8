package main

import (
	"log/slog"
	"math/rand/v2"
	"os"
	"sync/atomic"

	"energy-bubbles/config"
	"energy-bubbles/internal/application"
	"energy-bubbles/internal/domain"
	"energy-bubbles/internal/infra/web"
	"energy-bubbles/internal/layout"
	"energy-bubbles/internal/simulation"
)

func setupLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}

	var handler slog.Handler
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, opts)
	} else {
		handler = slog.NewTextHandler(os.Stderr, opts)
	}

	return slog.New(handler)
}

func loadConfig(path string) (*config.Config, error) {
	if path == "" {
		return config.Default(), nil
	}
	return config.Load(path)
}

// dashboardSettings translates the file config into per-view settings. Home overrides replace the
// built-in appliance and source tables wholesale.
func dashboardSettings(cfg *config.Config) application.Settings {
	s := application.DefaultSettings()
	s.MetricsInterval = config.Duration(cfg.Simulation.MetricsInterval)
	s.SourcesInterval = config.Duration(cfg.Simulation.SourcesInterval)
	s.ImpulseInterval = config.Duration(cfg.Simulation.ImpulseInterval)
	s.FeedDuration = config.Duration(cfg.Simulation.FeedDuration)
	s.NormalizeShares = cfg.Simulation.NormalizeShares
	s.Padding = cfg.Layout.Padding

	s.Layout = layout.DefaultConfig()
	s.Layout.VelocityDecay = cfg.Layout.VelocityDecay
	s.Layout.Alpha = cfg.Layout.Alpha
	s.Layout.AlphaDecay = cfg.Layout.AlphaDecay
	s.Layout.AlphaMin = cfg.Layout.AlphaMin
	s.Layout.ImpulseAlpha = cfg.Layout.ImpulseAlpha
	s.Layout.CenterStrength = cfg.Layout.CenterStrength

	if len(cfg.Home.Devices) > 0 {
		s.Devices = make([]domain.DeviceSpec, 0, len(cfg.Home.Devices))
		for _, d := range cfg.Home.Devices {
			color := domain.Color(d.Color)
			if color == "" {
				color = domain.ColorBlue
			}
			s.Devices = append(s.Devices, domain.DeviceSpec{
				ID:       d.ID,
				Name:     d.Name,
				Baseline: d.Baseline,
				Color:    color,
			})
		}
	}
	if len(cfg.Home.Sources) > 0 {
		s.Sources = make([]domain.EnergySource, 0, len(cfg.Home.Sources))
		for _, src := range cfg.Home.Sources {
			s.Sources = append(s.Sources, domain.EnergySource{
				Name:     src.Name,
				Share:    src.Share,
				Location: src.Location,
				Coord:    domain.Coordinate{Lat: src.Coord[0], Lng: src.Coord[1]},
				Icon:     src.Icon,
			})
		}
	}
	return s
}

func mapSettings(cfg *config.Config) web.MapSettings {
	return web.MapSettings{
		Title:         cfg.Home.Title,
		TileURL:       cfg.Map.TileURL,
		Attribution:   cfg.Map.Attribution,
		Center:        cfg.Map.Center,
		Zoom:          cfg.Map.Zoom,
		IconURL:       cfg.Map.IconURL,
		IconRetinaURL: cfg.Map.IconRetinaURL,
		ShadowURL:     cfg.Map.ShadowURL,
	}
}

// randSource hands every view its own generator. A fixed seed makes runs reproducible; zero seeds
// from the runtime.
func randSource(seed uint64) func() simulation.Rand {
	var stream atomic.Uint64
	return func() simulation.Rand {
		if seed == 0 {
			return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
		}
		return rand.New(rand.NewPCG(seed, stream.Add(1)))
	}
}
