package epidemic

import (
	"math"
	"math/rand/v2"

	"gonum.org/v1/gonum/stat/distuv"
)

// Param is an agent attribute that is either a fixed value or drawn from a
// sampler once, when the agent is constructed.
type Param struct {
	value  float64
	sample func(rng *rand.Rand) float64
}

// Fixed returns a Param that always resolves to v.
func Fixed(v float64) Param {
	return Param{value: v}
}

// Sampled returns a Param resolved by calling f.
func Sampled(f func(rng *rand.Rand) float64) Param {
	return Param{sample: f}
}

// Normal returns a Param drawn from N(mean, stddev).
func Normal(mean, stddev float64) Param {
	return Sampled(func(rng *rand.Rand) float64 {
		return distuv.Normal{Mu: mean, Sigma: stddev, Src: rng}.Rand()
	})
}

// Uniform returns a Param drawn uniformly from [lo, hi).
func Uniform(lo, hi float64) Param {
	if lo == hi {
		return Fixed(lo)
	}
	return Sampled(func(rng *rand.Rand) float64 {
		return distuv.Uniform{Min: lo, Max: hi, Src: rng}.Rand()
	})
}

// IsFixed reports whether p resolves without consuming randomness.
func (p Param) IsFixed() bool { return p.sample == nil }

// Resolve returns the concrete value of p.
func (p Param) Resolve(rng *rand.Rand) float64 {
	if p.sample == nil {
		return p.value
	}
	return p.sample(rng)
}

// DurationSource produces stage lengths in whole ticks.
type DurationSource interface {
	Ticks(rng *rand.Rand) int
}

// FixedDuration is a constant stage length.
type FixedDuration int

// Ticks implements DurationSource. Lengths below one tick are raised to one.
func (d FixedDuration) Ticks(*rand.Rand) int {
	return max(int(d), 1)
}

// DurationFunc adapts a function to DurationSource.
type DurationFunc func(rng *rand.Rand) int

// Ticks implements DurationSource.
func (f DurationFunc) Ticks(rng *rand.Rand) int { return f(rng) }

// TicksFrom converts a real-valued Param into a DurationSource by rounding to
// the nearest tick, with a floor of one tick.
func TicksFrom(p Param) DurationSource {
	return DurationFunc(func(rng *rand.Rand) int {
		v := math.Round(p.Resolve(rng))
		if math.IsNaN(v) || v < 1 {
			return 1
		}
		return int(v)
	})
}
