package movement

import "math"

// Intent is one tick's desired movement in the ground plane. X is lateral,
// Z is forward/back (forward is -Z). Components lie in [-1, 1] but the vector
// is not normalized, so a diagonal can have magnitude up to sqrt(2).
type Intent struct {
	X      float64
	Z      float64
	Sprint bool
}

// Idle is the zero intent.
var Idle = Intent{}

// IsZero reports an intent that requests no planar movement.
func (in Intent) IsZero() bool { return in.X == 0 && in.Z == 0 }

// Magnitude is the planar length of the intent.
func (in Intent) Magnitude() float64 { return math.Hypot(in.X, in.Z) }

// Clamped limits each axis to [-1, 1] and maps NaN to 0. Adapters that read
// untrusted input (scripts, network) pass their output through it.
func (in Intent) Clamped() Intent {
	return Intent{X: clampAxis(in.X), Z: clampAxis(in.Z), Sprint: in.Sprint}
}

// Normalized scales the intent down to unit length when it is longer than 1.
func (in Intent) Normalized() Intent {
	m := in.Magnitude()
	if m <= 1 {
		return in
	}
	return Intent{X: in.X / m, Z: in.Z / m, Sprint: in.Sprint}
}

func clampAxis(v float64) float64 {
	switch {
	case math.IsNaN(v):
		return 0
	case v > 1:
		return 1
	case v < -1:
		return -1
	}
	return v
}
