package system

import (
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/core/ecs"
	coresys "github.com/storechase/server/internal/core/system"
	"github.com/storechase/server/internal/movement"
	"github.com/storechase/server/internal/world"
)

// MovementSystem resolves every character's intent against the level and the
// other characters and writes the result back. Phase 3 (Move).
//
// Characters resolve one after another in spawn order; each sees its peers
// where they stand at that moment.
type MovementSystem struct {
	state    *world.State
	comps    *Components
	resolver *movement.Resolver
	clock    *Clock
	peers    []mgl64.Vec3 // reused scratch
}

func NewMovementSystem(state *world.State, comps *Components, resolver *movement.Resolver, clock *Clock) *MovementSystem {
	return &MovementSystem{state: state, comps: comps, resolver: resolver, clock: clock}
}

func (s *MovementSystem) Phase() coresys.Phase { return coresys.PhaseMove }

func (s *MovementSystem) Update(dt time.Duration) {
	seconds := dt.Seconds()
	obstacles := s.state.Level().Obstacles()
	ids := s.state.IDs()

	for _, id := range ids {
		cur, ok := s.state.Transform(id)
		if !ok {
			continue
		}
		s.peers = s.peers[:0]
		for _, other := range ids {
			if other == id {
				continue
			}
			if t, ok := s.state.Transform(other); ok {
				s.peers = append(s.peers, t.Position)
			}
		}

		in := s.comps.Intent(id)
		res := s.resolver.Resolve(cur, in, obstacles, s.peers, seconds)
		s.state.SetTransform(id, res.Transform)
		s.record(id, in, res)
	}
}

func (s *MovementSystem) record(id ecs.EntityID, in movement.Intent, res movement.Result) {
	m := Motion{Moved: res.Moved, BlockedX: res.BlockedX, BlockedZ: res.BlockedZ, Sprint: in.Sprint && res.Moved}
	if cur, ok := s.comps.Motion.Get(id); ok {
		*cur = m
	} else {
		s.comps.Motion.Set(id, &m)
	}
	if c, ok := s.state.Character(id); ok {
		c.Bob = s.resolver.Params().Bob(s.clock.Elapsed, res.Moved)
	}
}
