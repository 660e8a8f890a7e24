package main

import (
	"fmt"
	"io"
	"log/slog"
	"math"
	"math/rand/v2"
	"slices"
	"sync"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/epidemic"
	"github.com/pthm-cable/contagion/scenario"
	"github.com/pthm-cable/contagion/telemetry"
)

// FitnessEvaluator runs headless simulations and scores how far their
// attack rate lands from the target.
type FitnessEvaluator struct {
	params   *ParamVector
	base     *config.Config
	seeds    []uint64
	target   float64
	maxTicks int
	logger   *slog.Logger // Handed to the simulations; discards by default

	mu         sync.Mutex
	last       Evaluation
	evalErrors int
}

// Evaluation summarizes the seeds of one parameter vector.
type Evaluation struct {
	Fitness    float64
	AttackMean float64
	AttackStd  float64
	AttackP10  float64
	AttackP90  float64
	MeanTicks  float64 // Ticks until the outbreak died out or the cap
}

// NewFitnessEvaluator creates a new evaluator.
func NewFitnessEvaluator(params *ParamVector, base *config.Config, seeds []uint64, target float64, maxTicks int) *FitnessEvaluator {
	return &FitnessEvaluator{
		params:   params,
		base:     base,
		seeds:    seeds,
		target:   target,
		maxTicks: maxTicks,
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
	}
}

// Last returns the summary of the most recent evaluation.
func (fe *FitnessEvaluator) Last() Evaluation {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.last
}

// Errors returns how many seed runs failed to build.
func (fe *FitnessEvaluator) Errors() int {
	fe.mu.Lock()
	defer fe.mu.Unlock()
	return fe.evalErrors
}

// runResult holds the outcome of a single simulation run.
type runResult struct {
	attackRate float64
	ticks      int
	err        error
}

// Evaluate computes fitness for raw parameter values (lower = better):
// the squared distance between the mean attack rate over all seeds and
// the target.
func (fe *FitnessEvaluator) Evaluate(x []float64) float64 {
	values := fe.params.Clamp(x)

	// Run all seeds in parallel; each simulation owns its generator.
	results := make([]runResult, len(fe.seeds))
	var wg sync.WaitGroup
	for i, seed := range fe.seeds {
		wg.Add(1)
		go func(idx int, s uint64) {
			defer wg.Done()
			results[idx] = fe.runSimulation(values, s)
		}(i, seed)
	}
	wg.Wait()

	var rates []float64
	var ticks float64
	failed := 0
	for _, r := range results {
		if r.err != nil {
			failed++
			continue
		}
		rates = append(rates, r.attackRate)
		ticks += float64(r.ticks)
	}

	eval := Evaluation{Fitness: math.Inf(1)}
	if len(rates) > 0 {
		slices.Sort(rates)
		eval.AttackMean, eval.AttackStd = telemetry.MeanStd(rates)
		eval.AttackP10 = telemetry.Percentile(rates, 0.1)
		eval.AttackP90 = telemetry.Percentile(rates, 0.9)
		eval.MeanTicks = ticks / float64(len(rates))
		d := eval.AttackMean - fe.target
		eval.Fitness = d * d
	}

	fe.mu.Lock()
	fe.last = eval
	fe.evalErrors += failed
	fe.mu.Unlock()

	return eval.Fitness
}

// runSimulation executes a single headless run until no carriers remain or
// maxTicks, whichever comes first.
func (fe *FitnessEvaluator) runSimulation(values []float64, seed uint64) runResult {
	cfg := cloneConfig(fe.base)
	applyRadius(cfg, values[paramRadius])

	groups, err := scenario.Groups(cfg)
	if err != nil {
		return runResult{err: err}
	}
	for _, g := range groups {
		a := g.Archetype
		a.DiseaseProfile = epidemic.ScaledProfile{Base: a.DiseaseProfile, Factor: values[paramTransmission]}
		a.InfectionProfile = epidemic.ScaledProfile{Base: a.InfectionProfile, Factor: values[paramInfection]}
	}

	rng := rand.New(rand.NewPCG(seed, seed^0x9e3779b97f4a7c15))
	sim, err := epidemic.New(scenario.Options(cfg, rng, fe.logger))
	if err != nil {
		return runResult{err: err}
	}
	if err := scenario.Populate(sim, groups); err != nil {
		return runResult{err: fmt.Errorf("seed %d: %w", seed, err)}
	}

	initial := sim.Census()
	tick := 0
	for ; tick < fe.maxTicks; tick++ {
		totals := epidemic.Totals(sim.Census())
		if totals[epidemic.Incubating]+totals[epidemic.Infectious] == 0 {
			break
		}
		sim.Step()
	}

	summary := telemetry.Summarize(telemetry.NewSeries(), initial, sim.Census(), tick)
	return runResult{attackRate: summary.Overall.AttackRate, ticks: tick}
}
