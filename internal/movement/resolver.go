package movement

import (
	"math"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/geom"
	"github.com/storechase/server/internal/world"
)

// Result is the outcome of one resolution step.
type Result struct {
	Transform world.Transform
	Moved     bool // planar position changed
	BlockedX  bool
	BlockedZ  bool
	Probes    int // candidate positions tested against the world
}

// Resolver turns intents into collision-free displacement. It holds no
// per-character state, so one Resolver serves every character.
type Resolver struct {
	p Params
}

func NewResolver(p Params) *Resolver {
	return &Resolver{p: p}
}

func (r *Resolver) Params() Params { return r.p }

// Probe is the collision box of a character standing at pos. It is lifted
// off the floor so floor-level geometry never registers.
func (r *Resolver) Probe(pos mgl64.Vec3) geom.AABB {
	return geom.FromCenterExtent(pos.Add(mgl64.Vec3{0, r.p.ProbeLift, 0}), r.p.ProbeExtent)
}

// Speed is the planar speed for in, before the intent's magnitude applies.
func (r *Resolver) Speed(in Intent) float64 {
	if in.Sprint {
		return r.p.BaseSpeed * r.p.SprintMultiplier
	}
	return r.p.BaseSpeed
}

// Resolve advances cur by in over dt seconds. peers are the ground-contact
// positions of the other live characters.
//
// Each axis is tried on its own, X first and then Z from the possibly
// updated X, so a character blocked on one axis keeps sliding along the
// other. A non-positive or non-finite dt and a zero intent leave cur as is
// without touching the world.
func (r *Resolver) Resolve(cur world.Transform, in Intent, obstacles []world.Obstacle, peers []mgl64.Vec3, dt float64) Result {
	res := Result{Transform: cur}
	if !(dt > 0) || math.IsInf(dt, 1) {
		return res
	}
	if r.p.NormalizeDiagonal {
		in = in.Normalized()
	}

	distance := r.Speed(in) * dt
	dx := in.X * distance
	dz := in.Z * distance
	if dx == 0 && dz == 0 {
		return res
	}

	pos := cur.Position
	if dx != 0 {
		next := mgl64.Vec3{pos[0] + dx, pos[1], pos[2]}
		if r.blocked(pos, next, obstacles, peers, &res) {
			res.BlockedX = true
		} else {
			pos = next
		}
	}
	if dz != 0 {
		next := mgl64.Vec3{pos[0], pos[1], pos[2] + dz}
		if r.blocked(pos, next, obstacles, peers, &res) {
			res.BlockedZ = true
		} else {
			pos = next
		}
	}

	res.Transform.Position = pos
	res.Moved = pos[0] != cur.Position[0] || pos[2] != cur.Position[2]

	// facing follows the requested direction even when the move was blocked
	target := geom.YawQuat(math.Atan2(dx, dz))
	res.Transform.Facing = geom.SlerpShortest(cur.Facing, target, r.p.TurnSmoothing)
	return res
}

// blocked tests a move from `from` to `to`. Static obstacles always block.
// An overlapping peer blocks unless the move strictly increases the squared
// planar distance to it, which lets two characters that drifted into each
// other separate but never press deeper.
func (r *Resolver) blocked(from, to mgl64.Vec3, obstacles []world.Obstacle, peers []mgl64.Vec3, res *Result) bool {
	res.Probes++
	probe := r.Probe(to)
	for i := range obstacles {
		if geom.Intersects(probe, obstacles[i].Bounds()) {
			return true
		}
	}
	for _, peer := range peers {
		if !geom.Intersects(probe, r.Probe(peer)) {
			continue
		}
		if geom.PlanarDistSq(to, peer) > geom.PlanarDistSq(from, peer)+r.p.SeparationEpsilon {
			continue
		}
		return true
	}
	return false
}

// OverlapsStatic reports whether a character standing at pos would overlap
// any obstacle. Spawn validation uses it.
func (r *Resolver) OverlapsStatic(pos mgl64.Vec3, obstacles []world.Obstacle) bool {
	probe := r.Probe(pos)
	for i := range obstacles {
		if geom.Intersects(probe, obstacles[i].Bounds()) {
			return true
		}
	}
	return false
}

// Bob is the cosmetic vertical offset at elapsed seconds. Walking bounces
// faster and higher than idle breathing.
func (p Params) Bob(elapsed float64, moving bool) float64 {
	if moving {
		return math.Abs(math.Sin(elapsed*p.WalkBobFrequency) * p.WalkBobAmplitude)
	}
	return math.Max(0, math.Sin(elapsed*p.IdleBobFrequency)*p.IdleBobAmplitude)
}
