// Package runner drives one simulation run and feeds its output sinks:
// frames, measurements, census CSV, SQLite and the live stream.
package runner

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"time"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"
	"gopkg.in/yaml.v3"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/epidemic"
	"github.com/pthm-cable/contagion/persistence"
	"github.com/pthm-cable/contagion/render"
	"github.com/pthm-cable/contagion/scenario"
	"github.com/pthm-cable/contagion/stream"
	"github.com/pthm-cable/contagion/telemetry"
	"github.com/pthm-cable/contagion/video"
)

// FrameDir is the subdirectory of the output directory holding frames.
const FrameDir = "frames"

// Options configures the optional sinks of a run.
type Options struct {
	DBPath     string // SQLite file; empty disables persistence
	StreamAddr string // Websocket listen address; empty disables streaming
	Logger     *slog.Logger
}

// Runner owns a simulation and everything that observes it.
type Runner struct {
	cfg    *config.Config
	logger *slog.Logger
	runID  string
	seed   uint64

	sim       *epidemic.Simulation
	series    *telemetry.Series
	collector *telemetry.Collector
	perf      *telemetry.PerfCollector

	out      *telemetry.OutputManager
	renderer *render.Renderer
	frameDir string
	db       *persistence.DB
	hub      *stream.Hub
	server   *stream.Server

	tick      int
	maxTicks  int
	lastStats epidemic.StepStats
	initial   []epidemic.TypeCount // Census before the first tick
	census    []epidemic.TypeCount
	finished  bool
}

// New builds the population described by cfg and opens the sinks.
// A zero seed is replaced by a time-based one and written back to cfg so the
// config snapshot reproduces the run.
func New(cfg *config.Config, opts Options) (*Runner, error) {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Simulation.Seed == 0 {
		cfg.Simulation.Seed = uint64(time.Now().UnixNano())
	}
	seed := cfg.Simulation.Seed

	r := &Runner{
		cfg:       cfg,
		logger:    logger,
		runID:     uuid.NewString(),
		seed:      seed,
		series:    telemetry.NewSeries(),
		collector: telemetry.NewCollector(cfg.Simulation.WriteInterval),
		perf:      telemetry.NewPerfCollector(60),
		maxTicks:  cfg.Simulation.MaxSteps,
	}
	r.logger = logger.With("run_id", r.runID)

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	sim, err := scenario.Build(cfg, rng, r.logger)
	if err != nil {
		return nil, fmt.Errorf("building scenario: %w", err)
	}
	r.sim = sim
	r.census = sim.Census()
	r.initial = r.census

	if err := r.openSinks(opts); err != nil {
		r.Close()
		return nil, err
	}

	r.logger.Info("run created",
		"seed", seed,
		"max_ticks", r.maxTicks,
		"agents", len(sim.Agents()),
		"output_dir", r.out.Dir(),
	)
	return r, nil
}

func (r *Runner) openSinks(opts Options) error {
	cfg := r.cfg

	out, err := telemetry.NewOutputManager(cfg.Output.Dir, cfg.Output)
	if err != nil {
		return err
	}
	r.out = out
	if err := out.WriteConfig(cfg); err != nil {
		return fmt.Errorf("writing config snapshot: %w", err)
	}

	if cfg.Render.Enabled && out != nil {
		r.renderer, err = render.New(r2.Vec{X: cfg.Derived.BoxW, Y: cfg.Derived.BoxH}, render.Options{
			Size:        cfg.Render.FrameSize,
			Margin:      cfg.Render.Margin,
			FillAlpha:   cfg.Render.FillAlpha,
			TypeColors:  cfg.Render.TypeColors,
			StageColors: cfg.Render.StageColors,
		})
		if err != nil {
			return fmt.Errorf("creating renderer: %w", err)
		}
		r.frameDir = out.Path(FrameDir)
		if err := os.MkdirAll(r.frameDir, 0755); err != nil {
			return fmt.Errorf("creating frame directory: %w", err)
		}
	}

	if opts.DBPath != "" {
		if r.db, err = persistence.Open(opts.DBPath); err != nil {
			return err
		}
		snapshot, err := yaml.Marshal(cfg)
		if err != nil {
			return fmt.Errorf("marshal config: %w", err)
		}
		err = r.db.CreateRun(persistence.RunRecord{
			ID:        r.runID,
			Seed:      int64(r.seed),
			StartedAt: time.Now().UTC(),
			BoxW:      cfg.Derived.BoxW,
			BoxH:      cfg.Derived.BoxH,
			DT:        cfg.Simulation.DT,
			MaxSteps:  r.maxTicks,
			Agents:    len(r.sim.Agents()),
			Config:    string(snapshot),
		})
		if err != nil {
			return err
		}
	}

	if opts.StreamAddr != "" {
		r.hub = stream.NewHub(r.logger)
		if r.server, err = stream.Listen(opts.StreamAddr, r.hub); err != nil {
			return err
		}
		r.logger.Info("streaming measurements", "addr", "ws://"+r.server.Addr()+"/ws")
	}
	return nil
}

// ID returns the run identifier.
func (r *Runner) ID() string { return r.runID }

// Seed returns the seed the population was built from.
func (r *Runner) Seed() uint64 { return r.seed }

// Config returns the effective configuration.
func (r *Runner) Config() *config.Config { return r.cfg }

// Simulation returns the simulation. Callers must not mutate it.
func (r *Runner) Simulation() *epidemic.Simulation { return r.sim }

// Series returns the measurements recorded so far.
func (r *Runner) Series() *telemetry.Series { return r.series }

// Tick returns the number of completed ticks.
func (r *Runner) Tick() int { return r.tick }

// MaxTicks returns the length of the run.
func (r *Runner) MaxTicks() int { return r.maxTicks }

// Done reports whether every tick has run.
func (r *Runner) Done() bool { return r.tick >= r.maxTicks }

// LastStats returns the transitions of the most recent tick.
func (r *Runner) LastStats() epidemic.StepStats { return r.lastStats }

// Census returns the census taken after the most recent tick.
func (r *Runner) Census() []epidemic.TypeCount { return r.census }

// Perf returns the runner's timing collector.
func (r *Runner) Perf() *telemetry.PerfCollector { return r.perf }

// Step runs one tick: frame, simulation step, then a measurement when the
// tick index is a multiple of the write interval. Sink errors are returned
// after the tick has completed; the population is never rolled back.
func (r *Runner) Step(ctx context.Context) error {
	if r.Done() {
		return nil
	}
	i := r.tick
	var errs []error

	r.perf.StartTick()
	if r.renderer != nil {
		r.perf.StartPhase(telemetry.PhaseRender)
		if _, err := r.renderer.SaveFrame(r.frameDir, r.cfg.Output.ImageName, r.cfg.Output.ImageFormat, i, r.sim.Agents()); err != nil {
			errs = append(errs, err)
		}
	}

	totals := epidemic.Totals(r.census)
	active := totals[epidemic.Incubating] + totals[epidemic.Infectious]

	r.perf.StartPhase(telemetry.PhaseStep)
	r.lastStats = r.sim.Step()
	r.tick++

	r.perf.StartPhase(telemetry.PhaseMeasure)
	r.census = r.sim.Census()
	r.collector.RecordStep(r.lastStats, active)
	if i%r.cfg.Simulation.WriteInterval == 0 {
		r.series.Record(i, r.census)
	}

	r.perf.StartPhase(telemetry.PhaseSinks)
	if i%r.cfg.Simulation.WriteInterval == 0 {
		errs = append(errs, r.measure(ctx, i))
	}
	if r.collector.ShouldFlush(r.tick) {
		window := r.collector.Flush(r.tick, epidemic.Totals(r.census))
		errs = append(errs, r.out.WriteWindow(window))
		errs = append(errs, r.out.WritePerf(r.perf.Stats(), r.tick))
	}
	r.perf.EndTick()

	if every := r.cfg.Simulation.LogEvery; every > 0 && r.tick%every == 0 {
		r.logProgress()
	}
	return errors.Join(errs...)
}

// measure sends the census taken at tick to every measurement sink.
func (r *Runner) measure(ctx context.Context, tick int) error {
	var errs []error
	errs = append(errs, r.out.WriteCensus(tick, r.census))
	if r.db != nil {
		errs = append(errs, r.db.SaveMeasurements(persistence.Rows(r.runID, tick, r.census)))
	}
	if r.hub != nil {
		// Streaming is best effort; a slow hub never fails the run.
		if err := r.hub.Publish(ctx, stream.NewRecord(r.runID, tick, r.census)); err != nil {
			r.logger.Warn("stream publish failed", "tick", tick, "error", err)
		}
	}
	return errors.Join(errs...)
}

func (r *Runner) logProgress() {
	totals := epidemic.Totals(r.census)
	r.logger.Info("progress",
		"tick", r.tick,
		"susceptible", totals[epidemic.Susceptible],
		"incubating", totals[epidemic.Incubating],
		"infectious", totals[epidemic.Infectious],
		"recovered", totals[epidemic.Recovered],
		"deceased", totals[epidemic.Deceased],
		"perf", r.perf.Stats(),
	)
}

// Run steps until the run is complete. Cancellation is checked between
// ticks only, so a tick is never left half applied.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("starting run", "from_tick", r.tick, "max_ticks", r.maxTicks)
	for !r.Done() {
		if err := ctx.Err(); err != nil {
			r.logger.Info("run interrupted", "tick", r.tick)
			return err
		}
		if err := r.Step(ctx); err != nil {
			return fmt.Errorf("tick %d: %w", r.tick-1, err)
		}
	}
	r.logger.Info("run complete", "ticks", r.tick)
	return nil
}

// Finish writes the end-of-run outputs for the ticks completed so far:
// measurement series, summary, chart, final snapshot and video. It runs at
// most once.
func (r *Runner) Finish(ctx context.Context) (telemetry.Summary, error) {
	summary := telemetry.Summarize(r.series, r.initial, r.census, r.tick)
	summary.RunID = r.runID
	summary.Seed = r.seed
	if r.finished {
		return summary, nil
	}
	r.finished = true
	summary.Log()

	var errs []error
	errs = append(errs, r.out.WriteMeasurements(r.series))
	errs = append(errs, r.out.WriteSummary(summary))
	errs = append(errs, r.out.WriteChart(r.series, fmt.Sprintf("Epidemic curve (seed %d)", r.seed)))
	if path, err := r.out.WriteSnapshot(telemetry.NewSnapshot(r.sim, r.seed)); err != nil {
		errs = append(errs, err)
	} else if path != "" {
		r.logger.Info("snapshot saved", "path", path, "tick", r.tick)
	}

	if r.renderer != nil && r.cfg.Output.VideoName != "" {
		out := r.out.Path(r.cfg.Output.VideoName)
		n, err := video.EncodeDir(ctx, r.frameDir, r.cfg.Output.ImageFormat, out, video.Options{
			FPS:     r.cfg.Output.VideoFPS,
			Quality: r.cfg.Output.VideoQuality,
			Format:  r.cfg.Output.VideoFormat,
		})
		if err != nil {
			errs = append(errs, fmt.Errorf("encoding video: %w", err))
		} else {
			r.logger.Info("video written", "path", out, "frames", n)
		}
	}
	return summary, errors.Join(errs...)
}

// Close releases files, the database and the stream server.
func (r *Runner) Close() error {
	var errs []error
	if r.server != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		errs = append(errs, r.server.Shutdown(ctx))
		cancel()
	}
	if r.hub != nil {
		errs = append(errs, r.hub.Close())
	}
	if r.db != nil {
		errs = append(errs, r.db.Close())
	}
	errs = append(errs, r.out.Close())
	return errors.Join(errs...)
}

// VideoPath returns where Finish writes the video, or "" when disabled.
func (r *Runner) VideoPath() string {
	if r.renderer == nil || r.cfg.Output.VideoName == "" {
		return ""
	}
	return filepath.Clean(r.out.Path(r.cfg.Output.VideoName))
}
