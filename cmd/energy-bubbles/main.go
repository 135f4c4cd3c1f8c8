package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"energy-bubbles/config"
	"energy-bubbles/internal/application"
	"energy-bubbles/internal/infra/metrics"
	"energy-bubbles/internal/infra/web"
	"energy-bubbles/internal/loop"
)

func main() {
	rootCmd := &cobra.Command{
		Use:          "energy-bubbles",
		Short:        "Live household energy dashboard",
		SilenceUsage: true,
	}

	rootCmd.AddCommand(serveCmd())
	rootCmd.AddCommand(simulateCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func serveCmd() *cobra.Command {
	var configPath string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the dashboard over HTTP",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults built in)")
	return cmd
}

func simulateCmd() *cobra.Command {
	var (
		configPath    string
		duration      time.Duration
		width, height float64
	)

	cmd := &cobra.Command{
		Use:   "simulate",
		Short: "Run one view headless on a simulated clock and print its final snapshot",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(configPath)
			if err != nil {
				return err
			}
			return runSimulate(cmd.OutOrStdout(), cfg, duration, width, height)
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "path to config file (defaults built in)")
	cmd.Flags().DurationVarP(&duration, "duration", "d", 10*time.Second, "simulated time to run")
	cmd.Flags().Float64Var(&width, "width", 1200, "container width in pixels")
	cmd.Flags().Float64Var(&height, "height", 800, "container height in pixels")
	return cmd
}

func runServe(ctx context.Context, cfg *config.Config) error {
	logger := setupLogger(cfg.Log)

	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	recorder := metrics.NewRecorder(reg)

	sessions := web.NewSessionManager(web.ManagerOptions{
		Settings:      dashboardSettings(cfg),
		FrameInterval: config.Duration(cfg.Simulation.FrameInterval),
		MaxSessions:   cfg.Server.MaxSessions,
		NewRand:       randSource(cfg.Simulation.Seed),
		Telemetry:     recorder,
		Logger:        logger,
	})

	server := web.NewServer(web.Options{
		Addr:         cfg.Server.Addr,
		FeedRate:     cfg.Server.FeedRate,
		FeedWindow:   config.Duration(cfg.Server.FeedWindow),
		WriteTimeout: config.Duration(cfg.Server.WriteTimeout),
		Map:          mapSettings(cfg),
		Gatherer:     reg,
	}, sessions, logger)

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return server.ListenAndServe(ctx)
	})
	g.Go(func() error {
		reportSessions(ctx, sessions, logger, time.Minute)
		return nil
	})

	if err := g.Wait(); err != nil {
		logger.Error("server stopped", "error", err)
		return err
	}
	logger.Info("shut down cleanly")
	return nil
}

func reportSessions(ctx context.Context, sessions *web.SessionManager, logger *slog.Logger, every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down", "sessions", sessions.Len())
			return
		case <-ticker.C:
			logger.Info("active views", "sessions", sessions.Len())
		}
	}
}

func runSimulate(out io.Writer, cfg *config.Config, duration time.Duration, width, height float64) error {
	logger := setupLogger(cfg.Log)

	settings := dashboardSettings(cfg)
	settings.Layout.Width, settings.Layout.Height = width, height

	clock := loop.NewManual(time.Now().UTC().Truncate(time.Second), config.Duration(cfg.Simulation.FrameInterval))
	dashboard := application.NewDashboard(
		"simulate",
		clock,
		randSource(cfg.Simulation.Seed)(),
		settings,
		nil,
		nil,
		logger,
	)
	if err := dashboard.Mount(); err != nil {
		return fmt.Errorf("mounting view: %w", err)
	}

	fired := clock.Advance(duration)
	snapshot := dashboard.Snapshot()
	dashboard.Teardown()
	logger.Info("simulation finished",
		"duration", duration,
		"callbacks", fired,
		"total_watts", snapshot.TotalWatts,
		"pending", clock.Pending(),
	)

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(snapshot); err != nil {
		return fmt.Errorf("writing snapshot: %w", err)
	}
	return nil
}
