package system

import (
	"time"

	"github.com/storechase/server/internal/core/event"
	coresys "github.com/storechase/server/internal/core/system"
	"github.com/storechase/server/internal/world"
)

// CleanupSystem flushes the deferred character destruction queue at tick
// end and announces each removal. Phase 6 (Cleanup).
type CleanupSystem struct {
	state *world.State
	bus   *event.Bus
}

func NewCleanupSystem(state *world.State, bus *event.Bus) *CleanupSystem {
	return &CleanupSystem{state: state, bus: bus}
}

func (s *CleanupSystem) Phase() coresys.Phase { return coresys.PhaseCleanup }

func (s *CleanupSystem) Update(_ time.Duration) {
	for id, name := range s.state.Flush() {
		event.Emit(s.bus, event.CharacterDespawned{EntityID: id, Name: name})
	}
}
