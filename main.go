package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/runner"
	"github.com/pthm-cable/contagion/viewer"
)

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Path to config.yaml or .toml (empty = use defaults)")
	headless := flag.Bool("headless", false, "Run without the viewer window")
	seed := flag.Uint64("seed", 0, "RNG seed (0 = use config, then time-based)")
	maxTicks := flag.Int("max-ticks", -1, "Stop after N ticks (-1 = use config)")
	outputDir := flag.String("output-dir", "", "Output directory (empty = use config)")
	noFrames := flag.Bool("no-frames", false, "Skip frame rendering and video")
	noVideo := flag.Bool("no-video", false, "Render frames but skip the video")
	dbPath := flag.String("db", "", "SQLite file for run and measurement storage")
	streamAddr := flag.String("stream", "", "Serve live measurements over websocket on this address")
	logFormat := flag.String("log-format", "json", "Log format: json or text")
	logLevel := flag.String("log-level", "info", "Log level: debug, info, warn, error")

	flag.Parse()

	logger := newLogger(*logFormat, *logLevel)
	slog.SetDefault(logger)

	cfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}

	// CLI overrides
	if *seed != 0 {
		cfg.Simulation.Seed = *seed
	}
	if *maxTicks >= 0 {
		cfg.Simulation.MaxSteps = *maxTicks
	}
	if *outputDir != "" {
		cfg.Output.Dir = *outputDir
	}
	if *noFrames {
		cfg.Render.Enabled = false
	}
	if *noVideo {
		cfg.Output.VideoName = ""
	}

	r, err := runner.New(cfg, runner.Options{
		DBPath:     *dbPath,
		StreamAddr: *streamAddr,
		Logger:     logger,
	})
	if err != nil {
		slog.Error("failed to start run", "error", err)
		os.Exit(1)
	}
	defer r.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if *headless {
		err = r.Run(ctx)
	} else {
		err = viewer.Run(ctx, r)
	}
	failed := err != nil && !errors.Is(err, context.Canceled)
	if failed {
		slog.Error("run failed", "tick", r.Tick(), "error", err)
	}

	// Outputs are written for the ticks completed so far, even after an
	// interrupt.
	if _, err := r.Finish(context.Background()); err != nil {
		slog.Error("failed to write run outputs", "error", err)
		failed = true
	}
	if failed {
		r.Close()
		os.Exit(1)
	}
}

func newLogger(format, level string) *slog.Logger {
	var lvl slog.Level
	if err := lvl.UnmarshalText([]byte(level)); err != nil {
		lvl = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: lvl}
	if strings.EqualFold(format, "text") {
		return slog.New(slog.NewTextHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stdout, opts))
}
