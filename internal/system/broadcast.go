package system

import (
	"time"

	"github.com/storechase/server/internal/core/ecs"
	coresys "github.com/storechase/server/internal/core/system"
	"github.com/storechase/server/internal/net"
	"github.com/storechase/server/internal/world"
	"go.uber.org/zap"
)

// BroadcastSystem sends a snapshot of every character to connected clients
// every few ticks and flushes all session output. Phase 4 (Output).
type BroadcastSystem struct {
	store *net.SessionStore
	state *world.State
	comps *Components
	clock *Clock
	ai    interface{ Active() bool }
	every uint64
	log   *zap.Logger
}

func NewBroadcastSystem(store *net.SessionStore, state *world.State, comps *Components, clock *Clock, ai interface{ Active() bool }, every int, log *zap.Logger) *BroadcastSystem {
	return &BroadcastSystem{
		store: store,
		state: state,
		comps: comps,
		clock: clock,
		ai:    ai,
		every: uint64(max(every, 1)),
		log:   log,
	}
}

func (s *BroadcastSystem) Phase() coresys.Phase { return coresys.PhaseOutput }

func (s *BroadcastSystem) Update(_ time.Duration) {
	if s.store.Count() == 0 {
		return
	}
	if s.clock.Tick%s.every == 0 {
		frame, err := net.Encode(s.Snapshot())
		if err != nil {
			s.log.Error("encode snapshot", zap.Error(err))
		} else {
			s.store.Each(func(sess *net.Session) { sess.Send(frame) })
		}
	}
	s.store.Each(func(sess *net.Session) { sess.FlushOutput() })
}

// Snapshot describes every live character as of the end of this tick.
func (s *BroadcastSystem) Snapshot() net.SnapshotMessage {
	msg := net.SnapshotMessage{
		Type:       net.TypeSnapshot,
		Tick:       s.clock.Tick,
		AIActive:   s.ai != nil && s.ai.Active(),
		Characters: make([]net.CharacterView, 0, s.state.Len()),
	}
	s.state.Each(func(id ecs.EntityID, c *world.Character, t world.Transform) {
		msg.Characters = append(msg.Characters, View(s.comps, id, c, t))
	})
	return msg
}

// View is the wire form of one character.
func View(comps *Components, id ecs.EntityID, c *world.Character, t world.Transform) net.CharacterView {
	v := net.CharacterView{
		Name:       c.Name,
		Controller: c.Controller.String(),
		Position:   [3]float64(t.Position),
		Yaw:        t.Yaw(),
		Bob:        c.Bob,
		Color:      c.Color,
	}
	if m, ok := comps.Minds.Get(id); ok {
		v.State = m.State.Kind().String()
	}
	return v
}
