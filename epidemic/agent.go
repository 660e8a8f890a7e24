package epidemic

import (
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"
)

// Agent is a single individual in the simulation.
//
// Position and Velocity are free for readers (and for hand-placed scenarios).
// The disease stage only changes through the transition methods, which keep
// the velocity magnitude equal to the speed of the stage being entered.
type Agent struct {
	Position r2.Vec
	Velocity r2.Vec

	// Identity, fixed at construction.
	Type            string
	Size            float64
	Mass            float64
	DT              float64
	HealthySpeed    float64
	IncubationSpeed float64
	SicknessSpeed   float64
	WillRecover     bool

	DiseaseProfile   Profile
	InfectionProfile Profile

	// Immobile agents ignore forces and do not move. Transparent agents are
	// drawn without fill. Both are set on death.
	Immobile    bool
	Transparent bool

	stage      Stage
	counter    *StageCounter
	incubation DurationSource
	recovery   DurationSource
	death      DurationSource
}

// Stage returns the current disease stage.
func (a *Agent) Stage() Stage { return a.stage }

// Counter returns the stage counter, or nil in a terminal stage.
func (a *Agent) Counter() *StageCounter { return a.counter }

// SpeedFor returns the canonical speed of a stage for this agent.
func (a *Agent) SpeedFor(s Stage) float64 {
	switch s.must() {
	case Susceptible, Recovered:
		return a.HealthySpeed
	case Incubating:
		return a.IncubationSpeed
	case Infectious:
		return a.SicknessSpeed
	}
	return 0
}

// SetVelocityMagnitude rescales the velocity to magnitude m, keeping its
// direction. A zero velocity has no direction and stays zero.
func (a *Agent) SetVelocityMagnitude(m float64) {
	a.Velocity = withMagnitude(a.Velocity, m)
}

// AddForce applies an impulse F*DT/Mass to the velocity.
func (a *Agent) AddForce(f r2.Vec) {
	if a.Immobile || a.Mass == 0 {
		return
	}
	a.Velocity = r2.Add(a.Velocity, r2.Scale(a.DT/a.Mass, f))
}

// Move advances the position by Velocity*DT.
func (a *Agent) Move() {
	if a.Immobile {
		return
	}
	a.Position = r2.Add(a.Position, r2.Scale(a.DT, a.Velocity))
}

// AttemptInfection moves a susceptible agent into incubation with
// probability p. It reports whether the agent became infected.
func (a *Agent) AttemptInfection(rng *rand.Rand, p float64) bool {
	if a.stage != Susceptible || p <= 0 {
		return false
	}
	if p < 1 && rng.Float64() >= p {
		return false
	}
	a.EnterIncubation(rng)
	return true
}

// EnterIncubation starts the incubation stage.
func (a *Agent) EnterIncubation(rng *rand.Rand) {
	a.stage = Incubating
	a.SetVelocityMagnitude(a.IncubationSpeed)
	a.counter = NewStageCounter(a.incubation.Ticks(rng))
}

// BecomeInfectious starts the symptomatic stage. Its length is the recovery
// time if the agent will recover and the death time otherwise.
func (a *Agent) BecomeInfectious(rng *rand.Rand) {
	a.stage = Infectious
	a.SetVelocityMagnitude(a.SicknessSpeed)
	src := a.death
	if a.WillRecover {
		src = a.recovery
	}
	a.counter = NewStageCounter(src.Ticks(rng))
}

// Recover moves the agent to the recovered stage.
func (a *Agent) Recover() {
	a.stage = Recovered
	a.SetVelocityMagnitude(a.HealthySpeed)
	a.counter = nil
}

// Die moves the agent to the deceased stage. Dead agents stop, become
// immobile and transparent, but still exert forces on others.
func (a *Agent) Die() {
	a.stage = Deceased
	a.Velocity = r2.Vec{}
	a.Immobile = true
	a.Transparent = true
	a.counter = nil
}

// AdvanceDiseaseState ticks the stage counter and performs the transition
// due on expiry. It reports whether the stage changed.
func (a *Agent) AdvanceDiseaseState(rng *rand.Rand) bool {
	switch a.stage.must() {
	case Incubating:
		a.counter.Advance()
		if a.counter.Expired() {
			a.BecomeInfectious(rng)
			return true
		}
	case Infectious:
		a.counter.Advance()
		if a.counter.Expired() {
			if a.WillRecover {
				a.Recover()
			} else {
				a.Die()
			}
			return true
		}
	}
	return false
}

// restartCounter gives an agent created directly into a timed stage its
// counter.
func (a *Agent) restartCounter(rng *rand.Rand) {
	switch a.stage {
	case Incubating:
		a.counter = NewStageCounter(a.incubation.Ticks(rng))
	case Infectious:
		src := a.death
		if a.WillRecover {
			src = a.recovery
		}
		a.counter = NewStageCounter(src.Ticks(rng))
	default:
		a.counter = nil
	}
}

func withMagnitude(v r2.Vec, m float64) r2.Vec {
	n := r2.Norm(v)
	if n == 0 {
		return r2.Vec{}
	}
	return r2.Scale(m/n, v)
}
