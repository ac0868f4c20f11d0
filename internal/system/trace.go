package system

import (
	"time"

	"github.com/storechase/server/internal/core/ecs"
	coresys "github.com/storechase/server/internal/core/system"
	"github.com/storechase/server/internal/trace"
	"github.com/storechase/server/internal/world"
)

// Recorder receives trace samples.
type Recorder interface {
	Record(samples ...trace.Sample)
}

// TraceSystem samples every character's pose every few ticks.
// Phase 5 (Persist).
type TraceSystem struct {
	state    *world.State
	comps    *Components
	clock    *Clock
	recorder Recorder
	every    uint64
	buf      []trace.Sample
}

func NewTraceSystem(state *world.State, comps *Components, clock *Clock, recorder Recorder, every int) *TraceSystem {
	return &TraceSystem{
		state:    state,
		comps:    comps,
		clock:    clock,
		recorder: recorder,
		every:    uint64(max(every, 1)),
	}
}

func (s *TraceSystem) Phase() coresys.Phase { return coresys.PhasePersist }

func (s *TraceSystem) Update(_ time.Duration) {
	if s.clock.Tick%s.every != 0 {
		return
	}
	s.buf = s.buf[:0]
	s.state.Each(func(id ecs.EntityID, c *world.Character, t world.Transform) {
		smp := trace.Sample{
			Tick: s.clock.Tick,
			Name: c.Name,
			X:    t.Position[0],
			Y:    t.Position[1],
			Z:    t.Position[2],
			Yaw:  t.Yaw(),
		}
		if m, ok := s.comps.Minds.Get(id); ok {
			smp.State = m.State.Kind().String()
		}
		if m, ok := s.comps.Motion.Get(id); ok {
			smp.Sprint = m.Sprint
		}
		s.buf = append(s.buf, smp)
	})
	s.recorder.Record(s.buf...)
}
