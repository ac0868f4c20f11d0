package ai

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/geom"
	"github.com/storechase/server/internal/movement"
)

// Rand supplies escape directions. *math/rand.Rand satisfies it.
type Rand interface {
	Float64() float64
}

// Observation is what the chaser sees at the start of a tick: positions
// resolved by the previous tick.
type Observation struct {
	Self      mgl64.Vec3
	Target    mgl64.Vec3
	HasTarget bool
}

// Mind is the per-character memory of the machine.
type Mind struct {
	State  State
	Last   mgl64.Vec3      // resolved position seen on the previous tick
	Intent movement.Intent // intent emitted on the previous tick
}

func NewMind(spawn mgl64.Vec3) Mind {
	return Mind{State: Chase{}, Last: spawn}
}

// Decision is the outcome of one Step.
type Decision struct {
	Intent  movement.Intent
	From    Kind
	To      Kind
	Skipped bool // no target or bad dt; the previous intent stands
}

// Changed reports a state switch during the step.
func (d Decision) Changed() bool { return d.From != d.To }

// Step advances m by one tick. Without a target the tick is skipped: m is
// returned untouched and the caller keeps applying the previous intent.
func (p Params) Step(m Mind, obs Observation, dt float64, rng Rand) (Mind, Decision) {
	from := m.State.Kind()
	if !obs.HasTarget || !(dt > 0) || math.IsInf(dt, 1) {
		return m, Decision{Intent: m.Intent, From: from, To: from, Skipped: true}
	}

	moved := geom.PlanarDist(obs.Self, m.Last)
	m.Last = obs.Self

	next := p.Detect(m.State, moved, !m.Intent.IsZero(), dt, rng)
	intent, next := p.Act(next, obs, dt)

	m.State = next
	m.Intent = intent
	return m, Decision{Intent: intent, From: from, To: next.Kind()}
}

// Detect applies stuck detection. It is only armed in CHASE while the
// previous intent asked to move; in every other case the accumulator is
// cleared.
func (p Params) Detect(s State, moved float64, pushing bool, dt float64, rng Rand) State {
	c, ok := s.(Chase)
	if !ok {
		return s
	}
	if !pushing || moved >= p.StuckThreshold {
		return Chase{}
	}
	c.Stuck += dt
	if c.Stuck <= p.StuckDuration {
		return c
	}
	return Unstick{
		Direction: mgl64.Vec2{rng.Float64()*2 - 1, rng.Float64()*2 - 1},
		Remaining: p.UnstickDuration,
	}
}

// Act produces the intent for s and the state that follows it.
func (p Params) Act(s State, obs Observation, dt float64) (movement.Intent, State) {
	switch st := s.(type) {
	case Unstick:
		in := movement.Intent{X: st.Direction[0], Z: st.Direction[1], Sprint: true}
		st.Remaining -= dt
		if st.Remaining <= 0 {
			return in, Chase{}
		}
		return in, st
	case Chase:
		return p.chaseIntent(obs), st
	}
	return movement.Idle, Chase{}
}

func (p Params) chaseIntent(obs Observation) movement.Intent {
	dx := obs.Target[0] - obs.Self[0]
	dz := obs.Target[2] - obs.Self[2]
	dist := math.Hypot(dx, dz)
	if dist < p.StopDistance || dist == 0 {
		return movement.Idle
	}
	return movement.Intent{
		X:      dx / dist,
		Z:      dz / dist,
		Sprint: dist > p.SprintDistance,
	}
}
