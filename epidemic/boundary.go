package epidemic

import "gonum.org/v1/gonum/spatial/r2"

// Boundary maps positions that left the box back into it.
type Boundary interface {
	Apply(pos, vel, box r2.Vec) (r2.Vec, r2.Vec)
}

// PeriodicWrap wraps each coordinate into [0, box).
type PeriodicWrap struct{}

// Apply implements Boundary.
func (PeriodicWrap) Apply(pos, vel, box r2.Vec) (r2.Vec, r2.Vec) {
	return r2.Vec{X: floorMod(pos.X, box.X), Y: floorMod(pos.Y, box.Y)}, vel
}

// ReflectingWalls mirrors positions at the walls and reverses the normal
// velocity component.
type ReflectingWalls struct{}

// Apply implements Boundary.
func (ReflectingWalls) Apply(pos, vel, box r2.Vec) (r2.Vec, r2.Vec) {
	pos.X, vel.X = reflect(pos.X, vel.X, box.X)
	pos.Y, vel.Y = reflect(pos.Y, vel.Y, box.Y)
	return pos, vel
}

func reflect(x, v, l float64) (float64, float64) {
	switch {
	case x < 0:
		x, v = -x, -v
	case x > l:
		x, v = 2*l-x, -v
	}
	// A step longer than the box can overshoot the opposite wall.
	return min(max(x, 0), l), v
}

// OpenBoundary leaves positions untouched.
type OpenBoundary struct{}

// Apply implements Boundary.
func (OpenBoundary) Apply(pos, vel, _ r2.Vec) (r2.Vec, r2.Vec) {
	return pos, vel
}
