package epidemic

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Metric measures separation between two points.
type Metric interface {
	// Separation returns the displacement pointing from a to b and the
	// distance used for force and infection evaluation.
	Separation(a, b r2.Vec) (r2.Vec, float64)
}

// Distance is a convenience wrapper around Metric.Separation.
func Distance(m Metric, a, b r2.Vec) float64 {
	_, r := m.Separation(a, b)
	return r
}

// Torus is the minimum-image metric of a periodic box.
// Distances are floored at Min.
type Torus struct {
	Box r2.Vec
	Min float64
}

// Separation implements Metric.
func (t Torus) Separation(a, b r2.Vec) (r2.Vec, float64) {
	d := r2.Vec{
		X: wrapDelta(b.X-a.X, t.Box.X),
		Y: wrapDelta(b.Y-a.Y, t.Box.Y),
	}
	return d, math.Max(r2.Norm(d), t.Min)
}

// Euclidean is the plain metric used by non-periodic boundaries.
type Euclidean struct {
	Min float64
}

// Separation implements Metric.
func (e Euclidean) Separation(a, b r2.Vec) (r2.Vec, float64) {
	d := r2.Sub(b, a)
	return d, math.Max(r2.Norm(d), e.Min)
}

// wrapDelta returns the shortest signed offset equivalent to d on a circle
// of length l. Ties resolve to the negative offset.
func wrapDelta(d, l float64) float64 {
	fwd := floorMod(d, l)
	back := floorMod(-d, l)
	if fwd < back {
		return fwd
	}
	return -back
}

// floorMod returns x mod m in [0, m).
func floorMod(x, m float64) float64 {
	r := math.Mod(x, m)
	if r < 0 {
		r += m
	}
	if r >= m {
		r = 0
	}
	return r
}
