package epidemic

import (
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

// Compensator limits velocity growth caused by accumulated forces.
type Compensator interface {
	Compensate(v r2.Vec) r2.Vec
}

// SigmoidCompensation remaps the speed |v| to
//
//	VMax * (sigmoid(Slope * min(|v|, ClipSpeed)) - 0.5)
//
// keeping the direction. The result never exceeds VMax/2 in magnitude.
// A ClipSpeed of zero or less disables clipping; config rejects it.
type SigmoidCompensation struct {
	Slope     float64
	VMax      float64
	ClipSpeed float64
}

// Compensate implements Compensator.
func (s SigmoidCompensation) Compensate(v r2.Vec) r2.Vec {
	speed := r2.Norm(v)
	if speed == 0 {
		return v
	}
	if s.ClipSpeed > 0 {
		speed = math.Min(speed, s.ClipSpeed)
	}
	return withMagnitude(v, s.VMax*(sigmoid(s.Slope*speed)-0.5))
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// NoCompensation leaves velocities unchanged.
type NoCompensation struct{}

// Compensate implements Compensator.
func (NoCompensation) Compensate(v r2.Vec) r2.Vec { return v }
