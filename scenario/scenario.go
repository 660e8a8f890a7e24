// Package scenario turns a loaded configuration into a populated simulation.
package scenario

import (
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/pthm-cable/contagion/config"
	"github.com/pthm-cable/contagion/epidemic"
)

// Group is an archetype together with the number of agents to create.
type Group struct {
	Name      string
	Archetype *epidemic.Archetype
	Count     int
}

// Param converts a configured distribution into an engine parameter.
func Param(d config.Dist) epidemic.Param {
	switch d.Kind {
	case config.DistNormal:
		return epidemic.Normal(d.Mean, d.StdDev)
	case config.DistUniform:
		return epidemic.Uniform(d.Min, d.Max)
	}
	return epidemic.Fixed(d.Value)
}

// Profile converts a configured profile into an engine profile.
func Profile(p config.ProfileConfig) epidemic.Profile {
	switch p.Kind {
	case config.ProfileLinear:
		return epidemic.LinearProfile{Radius: p.Radius, P: p.Probability}
	case config.ProfileConstant:
		return epidemic.ConstantProfile(p.Probability)
	}
	return epidemic.StepProfile{Radius: p.Radius, P: p.Probability}
}

// Groups builds one Group per configured archetype, in configuration order.
func Groups(cfg *config.Config) ([]Group, error) {
	groups := make([]Group, 0, len(cfg.Archetypes))
	for _, ac := range cfg.Archetypes {
		stage, err := epidemic.ParseStage(ac.Stage)
		if err != nil {
			return nil, fmt.Errorf("archetype %s: %w", ac.Name, err)
		}
		arch := &epidemic.Archetype{
			Type:               ac.Type,
			Stage:              stage,
			Immobile:           ac.Immobile,
			Transparent:        ac.Transparent,
			Size:               Param(ac.Size),
			Mass:               Param(ac.Mass),
			HealthySpeed:       Param(ac.HealthySpeed),
			IncubationSpeed:    Param(ac.IncubationSpeed),
			SicknessSpeed:      Param(ac.SicknessSpeed),
			RecoverProbability: ac.RecoverProbability,
			IncubationTime:     epidemic.TicksFrom(Param(ac.TimeToIncubate)),
			RecoveryTime:       epidemic.TicksFrom(Param(ac.TimeToRecover)),
			DeathTime:          epidemic.TicksFrom(Param(ac.TimeToDie)),
			DiseaseProfile:     Profile(ac.DiseaseProfile),
			InfectionProfile:   Profile(ac.InfectionProfile),
		}
		if err := arch.Validate(); err != nil {
			return nil, err
		}
		groups = append(groups, Group{Name: ac.Name, Archetype: arch, Count: ac.Count})
	}
	return groups, nil
}

// Options builds simulation options for the configured physics.
func Options(cfg *config.Config, rng *rand.Rand, logger *slog.Logger) epidemic.Options {
	box := r2.Vec{X: cfg.Derived.BoxW, Y: cfg.Derived.BoxH}
	opts := epidemic.Options{
		Box:    box,
		DT:     cfg.Simulation.DT,
		Force:  epidemic.LennardJones{C: cfg.Physics.ForceConstant, Offset: cfg.Physics.ForceOffset},
		Drift:  epidemic.NoCompensation{},
		Rand:   rng,
		Logger: logger,
	}
	switch cfg.Physics.Topology {
	case config.TopologyReflecting:
		opts.Metric = epidemic.Euclidean{Min: cfg.Physics.MinDistance}
		opts.Boundary = epidemic.ReflectingWalls{}
	case config.TopologyOpen:
		opts.Metric = epidemic.Euclidean{Min: cfg.Physics.MinDistance}
		opts.Boundary = epidemic.OpenBoundary{}
	default:
		opts.Metric = epidemic.Torus{Box: box, Min: cfg.Physics.MinDistance}
		opts.Boundary = epidemic.PeriodicWrap{}
	}
	if cfg.Drift.Enabled {
		opts.Drift = epidemic.SigmoidCompensation{
			Slope:     cfg.Drift.Slope,
			VMax:      cfg.Drift.VMax,
			ClipSpeed: cfg.Drift.ClipSpeed,
		}
	}
	return opts
}

// Build creates a simulation from cfg and populates it group by group.
func Build(cfg *config.Config, rng *rand.Rand, logger *slog.Logger) (*epidemic.Simulation, error) {
	if logger == nil {
		logger = slog.Default()
	}
	groups, err := Groups(cfg)
	if err != nil {
		return nil, err
	}
	sim, err := epidemic.New(Options(cfg, rng, logger))
	if err != nil {
		return nil, err
	}

	if limit := cfg.Simulation.MaxPacking; limit > 0 && cfg.Derived.Packing > limit {
		// Placement retries without bound; a dense box may take very long.
		logger.Warn("agent footprint is large for the box",
			"packing", cfg.Derived.Packing,
			"max_packing", limit,
			"agents", cfg.Derived.TotalAgents,
		)
	}

	if err := Populate(sim, groups); err != nil {
		return nil, err
	}
	logger.Info("population placed",
		"agents", len(sim.Agents()),
		"types", len(sim.Types()),
		"box_w", cfg.Derived.BoxW,
		"box_h", cfg.Derived.BoxH,
		"topology", cfg.Physics.Topology,
	)
	return sim, nil
}

// Populate adds Count agents of every group to sim.
func Populate(sim *epidemic.Simulation, groups []Group) error {
	for _, g := range groups {
		for range g.Count {
			if _, err := sim.AddAgent(g.Archetype); err != nil {
				return fmt.Errorf("placing %s: %w", g.Name, err)
			}
		}
	}
	return nil
}
