package system

import (
	"time"

	coresys "github.com/storechase/server/internal/core/system"
)

// ClockSystem advances the shared clock. Phase 0 (Input), registered first.
type ClockSystem struct {
	clock *Clock
}

func NewClockSystem(clock *Clock) *ClockSystem {
	return &ClockSystem{clock: clock}
}

func (s *ClockSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ClockSystem) Update(dt time.Duration) {
	s.clock.Tick++
	s.clock.Elapsed += dt.Seconds()
}
