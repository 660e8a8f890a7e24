package epidemic

import (
	"errors"
	"fmt"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"
)

// Archetype is a template from which agents of one kind are created.
// Params are resolved independently for every agent.
type Archetype struct {
	Type        string
	Stage       Stage
	Immobile    bool
	Transparent bool

	Size            Param
	Mass            Param
	HealthySpeed    Param
	IncubationSpeed Param
	SicknessSpeed   Param

	RecoverProbability float64

	IncubationTime DurationSource
	RecoveryTime   DurationSource
	DeathTime      DurationSource

	DiseaseProfile   Profile
	InfectionProfile Profile
}

// Validate checks that the archetype can produce agents.
func (t *Archetype) Validate() error {
	var errs []error
	if !t.Stage.Valid() {
		errs = append(errs, fmt.Errorf("invalid initial stage %d", uint8(t.Stage)))
	}
	if t.RecoverProbability < 0 || t.RecoverProbability > 1 {
		errs = append(errs, fmt.Errorf("recover probability %v outside [0, 1]", t.RecoverProbability))
	}
	if t.IncubationTime == nil || t.RecoveryTime == nil || t.DeathTime == nil {
		errs = append(errs, errors.New("stage durations must all be set"))
	}
	if t.DiseaseProfile == nil || t.InfectionProfile == nil {
		errs = append(errs, errors.New("disease and infection profiles must both be set"))
	}
	if err := errors.Join(errs...); err != nil {
		return fmt.Errorf("archetype %q: %w", t.Type, err)
	}
	return nil
}

// NewAgent creates an agent at a uniformly random position in the box,
// moving in a random direction at the speed of its initial stage.
func (t *Archetype) NewAgent(box r2.Vec, dt float64, rng *rand.Rand) *Agent {
	a := &Agent{
		Type:             t.Type,
		DT:               dt,
		WillRecover:      rng.Float64() < t.RecoverProbability,
		Size:             t.Size.Resolve(rng),
		Mass:             t.Mass.Resolve(rng),
		HealthySpeed:     t.HealthySpeed.Resolve(rng),
		IncubationSpeed:  t.IncubationSpeed.Resolve(rng),
		SicknessSpeed:    t.SicknessSpeed.Resolve(rng),
		DiseaseProfile:   t.DiseaseProfile,
		InfectionProfile: t.InfectionProfile,
		Immobile:         t.Immobile,
		Transparent:      t.Transparent,
		stage:            t.Stage.must(),
		incubation:       t.IncubationTime,
		recovery:         t.RecoveryTime,
		death:            t.DeathTime,
	}
	a.Position = r2.Vec{X: rng.Float64() * box.X, Y: rng.Float64() * box.Y}
	a.Velocity = r2.Scale(a.SpeedFor(a.stage), randomDirection(rng))
	if a.stage == Deceased {
		a.Die()
	}
	a.restartCounter(rng)
	return a
}

// randomDirection draws each component from [-1, 1) and normalizes.
func randomDirection(rng *rand.Rand) r2.Vec {
	for {
		v := r2.Vec{X: 2 * (rng.Float64() - 0.5), Y: 2 * (rng.Float64() - 0.5)}
		if n := r2.Norm(v); n > 0 {
			return r2.Scale(1/n, v)
		}
	}
}
