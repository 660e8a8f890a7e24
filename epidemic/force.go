package epidemic

import "math"

// ForceLaw gives the signed magnitude of the pair force at distance r.
// Positive values push the pair apart.
type ForceLaw interface {
	Magnitude(r float64) float64
}

// ForceFunc adapts a function to ForceLaw.
type ForceFunc func(r float64) float64

// Magnitude implements ForceLaw.
func (f ForceFunc) Magnitude(r float64) float64 { return f(r) }

// LennardJones is the derivative-shaped 12-6 law
//
//	f(r) = -12 C (r+Offset)^-13 + 6 C (r+Offset)^-7
//
// It is attractive below (r+Offset) = 2^(1/6) and repulsive above it,
// decaying quickly with distance.
type LennardJones struct {
	C      float64
	Offset float64
}

// Magnitude implements ForceLaw.
func (lj LennardJones) Magnitude(r float64) float64 {
	x := r + lj.Offset
	return -12*lj.C*math.Pow(x, -13) + 6*lj.C*math.Pow(x, -7)
}
