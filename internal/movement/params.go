package movement

import "github.com/go-gl/mathgl/mgl64"

// Params are the resolver's tunables.
type Params struct {
	BaseSpeed        float64    // units per second
	SprintMultiplier float64    // applied to BaseSpeed while sprinting
	ProbeExtent      mgl64.Vec3 // full size of the collision probe
	ProbeLift        float64    // probe center height above the ground-contact point

	// SeparationEpsilon is the margin by which squared peer distance must
	// grow for a move out of an overlap to be allowed.
	SeparationEpsilon float64

	// TurnSmoothing is the fraction of the remaining yaw closed per tick.
	TurnSmoothing float64

	// NormalizeDiagonal scales intents longer than 1 down to unit length
	// before they become a displacement. Off by default.
	NormalizeDiagonal bool

	IdleBobAmplitude float64
	IdleBobFrequency float64
	WalkBobAmplitude float64
	WalkBobFrequency float64
}

func DefaultParams() Params {
	return Params{
		BaseSpeed:         8,
		SprintMultiplier:  1.5,
		ProbeExtent:       mgl64.Vec3{0.8, 2, 0.8},
		ProbeLift:         1,
		SeparationEpsilon: 0.0001,
		TurnSmoothing:     0.15,
		IdleBobAmplitude:  0.02,
		IdleBobFrequency:  2,
		WalkBobAmplitude:  0.08,
		WalkBobFrequency:  15,
	}
}
