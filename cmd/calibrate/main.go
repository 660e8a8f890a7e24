package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/gocarina/gocsv"
	"gonum.org/v1/gonum/optimize"

	"github.com/pthm-cable/contagion/config"
)

// evalRecord is one line of calibrate_log.csv.
type evalRecord struct {
	Eval         int     `csv:"eval"`
	Fitness      float64 `csv:"fitness"`
	AttackMean   float64 `csv:"attack_mean"`
	AttackStd    float64 `csv:"attack_std"`
	AttackP10    float64 `csv:"attack_p10"`
	AttackP90    float64 `csv:"attack_p90"`
	MeanTicks    float64 `csv:"mean_ticks"`
	Transmission float64 `csv:"transmission_scale"`
	Infection    float64 `csv:"infection_scale"`
	Radius       float64 `csv:"contact_radius"`
}

func newEvalRecord(n int, values []float64, e Evaluation) evalRecord {
	return evalRecord{
		Eval:         n,
		Fitness:      e.Fitness,
		AttackMean:   e.AttackMean,
		AttackStd:    e.AttackStd,
		AttackP10:    e.AttackP10,
		AttackP90:    e.AttackP90,
		MeanTicks:    e.MeanTicks,
		Transmission: values[paramTransmission],
		Infection:    values[paramInfection],
		Radius:       values[paramRadius],
	}
}

// formatDuration formats a duration as HH:MM:SS or MM:SS for shorter durations.
func formatDuration(d time.Duration) string {
	d = d.Round(time.Second)
	h := d / time.Hour
	d -= h * time.Hour
	m := d / time.Minute
	d -= m * time.Minute
	s := d / time.Second

	if h > 0 {
		return fmt.Sprintf("%dh%02dm%02ds", h, m, s)
	}
	return fmt.Sprintf("%dm%02ds", m, s)
}

func main() {
	// CLI flags
	configPath := flag.String("config", "", "Base config file (empty = use defaults)")
	target := flag.Float64("target", -1, "Target attack rate in [0, 1]")
	maxTicks := flag.Int("max-ticks", 0, "Tick cap per run (0 = simulation.max_steps)")
	seeds := flag.Int("seeds", 3, "Number of seeds per evaluation")
	maxEvals := flag.Int("max-evals", 100, "Maximum number of evaluations")
	population := flag.Int("population", 0, "CMA-ES population size (0 = auto)")
	outputDir := flag.String("output", "", "Output directory for results")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	if *outputDir == "" {
		slog.Error("-output is required")
		os.Exit(2)
	}
	if *target < 0 || *target > 1 {
		slog.Error("-target must be in [0, 1]", "target", *target)
		os.Exit(2)
	}
	if err := os.MkdirAll(*outputDir, 0755); err != nil {
		slog.Error("failed to create output directory", "error", err)
		os.Exit(1)
	}

	baseCfg, err := config.Load(*configPath)
	if err != nil {
		slog.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	ticks := *maxTicks
	if ticks <= 0 {
		ticks = baseCfg.Simulation.MaxSteps
	}

	params := NewParamVector(baseCfg)

	// Fixed seeds so every evaluation sees the same initial populations
	evalSeeds := make([]uint64, *seeds)
	for i := range evalSeeds {
		evalSeeds[i] = uint64(i*1000 + 42)
	}

	evaluator := NewFitnessEvaluator(params, baseCfg, evalSeeds, *target, ticks)

	dim := params.Dim()
	initX := params.Normalize(params.DefaultVector())

	popSize := *population
	if popSize == 0 {
		popSize = 4 + int(3.0*float64(dim)/2.0)
	}
	method := &optimize.CmaEsChol{
		InitStepSize: 0.3,
		Population:   popSize,
	}
	settings := &optimize.Settings{
		FuncEvaluations: *maxEvals,
		Concurrent:      0, // Sequential; seeds run in parallel inside Evaluate
	}

	logPath := filepath.Join(*outputDir, "calibrate_log.csv")
	logFile, err := os.Create(logPath)
	if err != nil {
		slog.Error("failed to create log file", "error", err)
		os.Exit(1)
	}
	defer logFile.Close()

	evalCount := 0
	bestFitness := 1e9
	var bestParams []float64
	startTime := time.Now()

	problem := optimize.Problem{
		Func: func(x []float64) float64 {
			values := params.Clamp(params.Denormalize(x))
			fitness := evaluator.Evaluate(values)
			eval := evaluator.Last()
			evalCount++

			if fitness < bestFitness {
				bestFitness = fitness
				bestParams = values
			}

			rec := []evalRecord{newEvalRecord(evalCount, values, eval)}
			var werr error
			if evalCount == 1 {
				werr = gocsv.Marshal(rec, logFile)
			} else {
				werr = gocsv.MarshalWithoutHeaders(rec, logFile)
			}
			if werr != nil {
				slog.Error("failed to write evaluation log", "error", werr)
			}

			elapsed := time.Since(startTime)
			avgPerEval := elapsed / time.Duration(evalCount)
			remaining := time.Duration(*maxEvals-evalCount) * avgPerEval
			slog.Info("evaluation",
				"eval", evalCount,
				"max_evals", *maxEvals,
				"attack_rate", eval.AttackMean,
				"attack_std", eval.AttackStd,
				"fitness", fitness,
				"best", bestFitness,
				"elapsed", formatDuration(elapsed),
				"eta", formatDuration(remaining),
			)
			return fitness
		},
	}

	slog.Info("starting CMA-ES calibration",
		"params", dim,
		"population", popSize,
		"max_evals", *maxEvals,
		"seeds", *seeds,
		"max_ticks", ticks,
		"target", *target,
	)

	result, err := optimize.Minimize(problem, initX, settings, method)
	if err != nil {
		slog.Warn("optimization ended", "error", err)
	}

	// Use best params found (may be from any evaluation, not just final)
	if bestParams == nil && result != nil {
		bestParams = params.Clamp(params.Denormalize(result.X))
	}
	if bestParams == nil {
		slog.Error("no evaluation completed")
		os.Exit(1)
	}

	slog.Info("calibration complete",
		"evals", evalCount,
		"duration", formatDuration(time.Since(startTime)),
		"best_fitness", bestFitness,
		"failed_runs", evaluator.Errors(),
	)
	for i, spec := range params.Specs {
		slog.Info("best parameter", "name", spec.Name, "path", spec.Path, "value", bestParams[i])
	}

	bestCfg := cloneConfig(baseCfg)
	params.ApplyToConfig(bestCfg, bestParams)
	configOutPath := filepath.Join(*outputDir, "best_config.yaml")
	if err := bestCfg.WriteYAML(configOutPath); err != nil {
		slog.Error("failed to write best config", "error", err)
		os.Exit(1)
	}
	slog.Info("best config saved", "path", configOutPath)
}
