package epidemic

// Profile maps a separation distance to a probability in [0, 1].
//
// An agent carries two profiles: its disease profile, used when it is the
// carrier, and its infection profile, used when it is the one being exposed.
// The probability of a transmission is the product of both.
type Profile interface {
	Probability(r float64) float64
}

// ProfileFunc adapts an ordinary function to Profile.
type ProfileFunc func(r float64) float64

// Probability implements Profile.
func (f ProfileFunc) Probability(r float64) float64 { return f(r) }

// StepProfile is P for distances strictly below Radius and zero beyond.
type StepProfile struct {
	Radius float64
	P      float64
}

// Probability implements Profile.
func (p StepProfile) Probability(r float64) float64 {
	if r < p.Radius {
		return p.P
	}
	return 0
}

// LinearProfile falls off linearly from P at contact to zero at Radius.
type LinearProfile struct {
	Radius float64
	P      float64
}

// Probability implements Profile.
func (p LinearProfile) Probability(r float64) float64 {
	if p.Radius <= 0 || r >= p.Radius {
		return 0
	}
	return p.P * (1 - r/p.Radius)
}

// ConstantProfile ignores distance.
type ConstantProfile float64

// Probability implements Profile.
func (p ConstantProfile) Probability(float64) float64 { return float64(p) }

// ScaledProfile multiplies Base by Factor and clamps the result to [0, 1].
type ScaledProfile struct {
	Base   Profile
	Factor float64
}

// Probability implements Profile.
func (p ScaledProfile) Probability(r float64) float64 {
	return clamp01(p.Base.Probability(r) * p.Factor)
}

func clamp01(v float64) float64 {
	switch {
	case v < 0:
		return 0
	case v > 1:
		return 1
	}
	return v
}
