package ai

// Params are the chase machine's tunables. Distances are planar units,
// durations are seconds.
type Params struct {
	StuckThreshold  float64 // per-tick displacement below which the chaser counts as stationary
	StuckDuration   float64 // stationary time that triggers UNSTICK
	UnstickDuration float64
	StopDistance    float64 // halt when closer than this
	SprintDistance  float64 // sprint when farther than this
}

func DefaultParams() Params {
	return Params{
		StuckThreshold:  0.01,
		StuckDuration:   0.5,
		UnstickDuration: 1.0,
		StopDistance:    1.5,
		SprintDistance:  10,
	}
}
