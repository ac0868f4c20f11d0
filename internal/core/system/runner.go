package system

import (
	"slices"
	"time"

	"go.uber.org/zap"
)

// Runner executes systems in phase order each tick. Systems sharing a phase
// run in registration order.
type Runner struct {
	systems []System
	sorted  bool
	ticks   uint64
	log     *zap.Logger
}

func NewRunner(log *zap.Logger) *Runner {
	if log == nil {
		log = zap.NewNop()
	}
	return &Runner{
		systems: make([]System, 0, 8),
		log:     log,
	}
}

func (r *Runner) Register(s System) {
	r.systems = append(r.systems, s)
	r.sorted = false
}

// Tick runs every system once. A non-positive dt is a no-op tick; it is
// logged and otherwise ignored. It reports whether the tick ran.
func (r *Runner) Tick(dt time.Duration) bool {
	if dt <= 0 {
		r.log.Debug("skipping tick with non-positive delta", zap.Duration("dt", dt))
		return false
	}
	r.ensureSorted()
	for _, s := range r.systems {
		s.Update(dt)
	}
	r.ticks++
	return true
}

// TickPhase runs only the systems registered for phase.
func (r *Runner) TickPhase(phase Phase, dt time.Duration) {
	if dt <= 0 {
		return
	}
	r.ensureSorted()
	for _, s := range r.systems {
		if s.Phase() == phase {
			s.Update(dt)
		}
	}
}

// Ticks is the number of completed ticks.
func (r *Runner) Ticks() uint64 { return r.ticks }

func (r *Runner) ensureSorted() {
	if r.sorted {
		return
	}
	slices.SortStableFunc(r.systems, func(a, b System) int {
		return int(a.Phase()) - int(b.Phase())
	})
	r.sorted = true
}
