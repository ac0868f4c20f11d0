package system

import (
	"time"

	"github.com/storechase/server/internal/ai"
	"github.com/storechase/server/internal/core/ecs"
	"github.com/storechase/server/internal/core/event"
	coresys "github.com/storechase/server/internal/core/system"
	"github.com/storechase/server/internal/world"
	"go.uber.org/zap"
)

// AISystem steps the chase machine of every AI character. Phase 2 (Think).
//
// It reads a snapshot of positions taken before anyone moves this tick, so
// every chaser sees the world as the previous tick resolved it. While the
// system is inactive no new intents are produced and each chaser keeps
// applying the last one it emitted.
type AISystem struct {
	state  *world.State
	comps  *Components
	params ai.Params
	rng    ai.Rand
	bus    *event.Bus
	clock  *Clock
	active bool
	log    *zap.Logger
}

func NewAISystem(state *world.State, comps *Components, params ai.Params, rng ai.Rand, bus *event.Bus, clock *Clock, active bool, log *zap.Logger) *AISystem {
	return &AISystem{
		state:  state,
		comps:  comps,
		params: params,
		rng:    rng,
		bus:    bus,
		clock:  clock,
		active: active,
		log:    log,
	}
}

func (s *AISystem) Phase() coresys.Phase { return coresys.PhaseThink }

func (s *AISystem) Active() bool { return s.active }

// SetActive switches the AI on or off. Switching has no effect on any
// transform.
func (s *AISystem) SetActive(active bool) {
	if s.active == active {
		return
	}
	s.active = active
	event.Emit(s.bus, event.AIToggled{Active: active})
	s.log.Info("ai toggled", zap.Bool("active", active))
}

func (s *AISystem) Update(dt time.Duration) {
	if !s.active || s.comps.Minds.Len() == 0 {
		return
	}
	positions := s.state.Positions()
	seconds := dt.Seconds()

	s.comps.Minds.Each(func(id ecs.EntityID, m *ai.Mind) {
		c, ok := s.state.Character(id)
		if !ok {
			return
		}
		obs := ai.Observation{Self: positions[id]}
		if tp, ok := positions[c.Target]; ok && s.state.Alive(c.Target) {
			obs.Target = tp
			obs.HasTarget = true
		}

		next, d := s.params.Step(*m, obs, seconds, s.rng)
		*m = next
		if d.Skipped {
			return
		}
		s.comps.SetIntent(id, d.Intent)

		if d.Changed() {
			event.Emit(s.bus, event.AIStateChanged{
				EntityID: id,
				Name:     c.Name,
				From:     d.From.String(),
				To:       d.To.String(),
				Tick:     s.clock.Tick,
			})
			s.log.Debug("ai state changed",
				zap.String("name", c.Name),
				zap.Stringer("from", d.From),
				zap.Stringer("to", d.To),
				zap.Uint64("tick", s.clock.Tick),
			)
		}
	})
}
