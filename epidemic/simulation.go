package epidemic

import (
	"errors"
	"fmt"
	"log/slog"
	"math/rand/v2"

	"gonum.org/v1/gonum/spatial/r2"
)

// Options configures a Simulation. Zero-valued collaborators fall back to
// the periodic model: Torus metric, PeriodicWrap boundary, LennardJones{C: 10,
// Offset: 0.1} and SigmoidCompensation{Slope: 0.25, VMax: 1, ClipSpeed: 1000}.
type Options struct {
	Box      r2.Vec
	DT       float64
	Metric   Metric
	Boundary Boundary
	Force    ForceLaw
	Drift    Compensator
	Rand     *rand.Rand
	Logger   *slog.Logger
}

// Simulation owns the agent population and advances it in discrete ticks.
type Simulation struct {
	box      r2.Vec
	dt       float64
	metric   Metric
	boundary Boundary
	force    ForceLaw
	drift    Compensator
	rng      *rand.Rand
	logger   *slog.Logger

	agents []*Agent
	types  []string
	tick   int
}

// StepStats counts the transitions that happened during one tick.
type StepStats struct {
	Infections int // susceptible -> incubating
	Onsets     int // incubating -> infectious
	Recoveries int
	Deaths     int
}

// Add accumulates o into s.
func (s *StepStats) Add(o StepStats) {
	s.Infections += o.Infections
	s.Onsets += o.Onsets
	s.Recoveries += o.Recoveries
	s.Deaths += o.Deaths
}

// New validates opts and returns an empty simulation.
func New(opts Options) (*Simulation, error) {
	var errs []error
	if !(opts.Box.X > 0) || !(opts.Box.Y > 0) {
		errs = append(errs, fmt.Errorf("box %vx%v must be positive", opts.Box.X, opts.Box.Y))
	}
	if !(opts.DT > 0) {
		errs = append(errs, fmt.Errorf("dt %v must be positive", opts.DT))
	}
	if opts.Rand == nil {
		errs = append(errs, errors.New("random source is required"))
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("epidemic: %w", err)
	}

	s := &Simulation{
		box:      opts.Box,
		dt:       opts.DT,
		metric:   opts.Metric,
		boundary: opts.Boundary,
		force:    opts.Force,
		drift:    opts.Drift,
		rng:      opts.Rand,
		logger:   opts.Logger,
	}
	if s.metric == nil {
		s.metric = Torus{Box: opts.Box}
	}
	if s.boundary == nil {
		s.boundary = PeriodicWrap{}
	}
	if s.force == nil {
		s.force = LennardJones{C: 10, Offset: 0.1}
	}
	if s.drift == nil {
		s.drift = SigmoidCompensation{Slope: 0.25, VMax: 1, ClipSpeed: 1000}
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	return s, nil
}

// Box returns the box dimensions.
func (s *Simulation) Box() r2.Vec { return s.box }

// DT returns the time step.
func (s *Simulation) DT() float64 { return s.dt }

// Tick returns the number of completed steps.
func (s *Simulation) Tick() int { return s.tick }

// Metric returns the distance metric in use.
func (s *Simulation) Metric() Metric { return s.metric }

// Agents returns the population in its current iteration order. The slice
// is owned by the simulation and reordered on every Step.
func (s *Simulation) Agents() []*Agent { return s.agents }

// Types returns the distinct agent type labels in order of first insertion.
func (s *Simulation) Types() []string { return s.types }

// AddAgent creates an agent from t and places it by rejection sampling:
// candidate positions are redrawn until the agent is strictly farther than
// the sum of sizes from every existing agent. There is no retry cap, so an
// overfull box never returns.
func (s *Simulation) AddAgent(t *Archetype) (*Agent, error) {
	if err := t.Validate(); err != nil {
		return nil, err
	}
	for attempt := 1; ; attempt++ {
		a := t.NewAgent(s.box, s.dt, s.rng)
		if other := s.overlapping(a); other != nil {
			s.logger.Debug("placement overlap",
				"type", a.Type,
				"attempt", attempt,
				"x", a.Position.X,
				"y", a.Position.Y,
				"other_x", other.Position.X,
				"other_y", other.Position.Y,
			)
			continue
		}
		s.Insert(a)
		return a, nil
	}
}

// Insert appends a without any placement check.
func (s *Simulation) Insert(a *Agent) {
	s.agents = append(s.agents, a)
	for _, name := range s.types {
		if name == a.Type {
			return
		}
	}
	s.types = append(s.types, a.Type)
}

func (s *Simulation) overlapping(a *Agent) *Agent {
	for _, b := range s.agents {
		if Distance(s.metric, a.Position, b.Position) <= a.Size+b.Size {
			return b
		}
	}
	return nil
}

// Step advances the simulation by one tick.
//
// Agents are processed sequentially in their current order. Each agent
// first advances its disease state, then for every other agent evaluates
// infection and applies the pair force, then has its velocity compensated
// and moves. Later agents see the updated state of earlier ones. After all
// agents moved, the boundary is applied and the order is shuffled.
func (s *Simulation) Step() StepStats {
	var stats StepStats
	for i, a := range s.agents {
		if a.AdvanceDiseaseState(s.rng) {
			switch a.stage {
			case Infectious:
				stats.Onsets++
			case Recovered:
				stats.Recoveries++
			case Deceased:
				stats.Deaths++
			}
		}
		for j, b := range s.agents {
			if i == j {
				continue
			}
			d, r := s.metric.Separation(b.Position, a.Position)
			if b.stage == Susceptible && a.stage.Carrier() {
				p := a.DiseaseProfile.Probability(r) * b.InfectionProfile.Probability(r)
				if b.AttemptInfection(s.rng, p) {
					stats.Infections++
				}
			}
			a.AddForce(s.pairForce(d, r))
		}
		if !a.Immobile {
			a.Velocity = s.drift.Compensate(a.Velocity)
			a.Move()
		}
	}
	for _, a := range s.agents {
		a.Position, a.Velocity = s.boundary.Apply(a.Position, a.Velocity, s.box)
	}
	s.rng.Shuffle(len(s.agents), func(i, j int) {
		s.agents[i], s.agents[j] = s.agents[j], s.agents[i]
	})
	s.tick++
	return stats
}

// pairForce returns the force along the unit vector d. Coincident agents
// have no direction and exert no force.
func (s *Simulation) pairForce(d r2.Vec, r float64) r2.Vec {
	if r2.Norm(d) == 0 {
		return r2.Vec{}
	}
	return withMagnitude(d, s.force.Magnitude(r))
}

// TypeCount is the stage histogram of one agent type.
type TypeCount struct {
	Type   string
	Counts [NumStages]int
}

// Total returns the number of agents of this type.
func (c TypeCount) Total() int {
	n := 0
	for _, v := range c.Counts {
		n += v
	}
	return n
}

// Census counts agents per type and stage. Types appear in order of first
// insertion.
func (s *Simulation) Census() []TypeCount {
	out := make([]TypeCount, len(s.types))
	index := make(map[string]int, len(s.types))
	for i, name := range s.types {
		out[i].Type = name
		index[name] = i
	}
	for _, a := range s.agents {
		out[index[a.Type]].Counts[a.stage.must()]++
	}
	return out
}

// Totals sums a census over all types.
func Totals(census []TypeCount) [NumStages]int {
	var t [NumStages]int
	for _, c := range census {
		for i, v := range c.Counts {
			t[i] += v
		}
	}
	return t
}
