package system

import (
	"time"

	"github.com/storechase/server/internal/core/ecs"
	coresys "github.com/storechase/server/internal/core/system"
	"github.com/storechase/server/internal/movement"
	"github.com/storechase/server/internal/scripting"
	"github.com/storechase/server/internal/world"
)

// Driver runs a named script function for a character.
type Driver interface {
	Drive(fn string, ctx scripting.DriveContext) (movement.Intent, bool)
}

// ScriptSystem asks Lua drivers for the intents of script-controlled
// characters. Phase 0 (Input). A failing driver keeps its previous intent.
type ScriptSystem struct {
	state  *world.State
	comps  *Components
	driver Driver
	clock  *Clock
}

func NewScriptSystem(state *world.State, comps *Components, driver Driver, clock *Clock) *ScriptSystem {
	return &ScriptSystem{state: state, comps: comps, driver: driver, clock: clock}
}

func (s *ScriptSystem) Phase() coresys.Phase { return coresys.PhaseInput }

func (s *ScriptSystem) Update(dt time.Duration) {
	if s.driver == nil {
		return
	}
	s.state.Each(func(id ecs.EntityID, c *world.Character, t world.Transform) {
		if c.Controller != world.ControllerScript || c.Script == "" {
			return
		}
		ctx := scripting.DriveContext{
			Name:    c.Name,
			Tick:    s.clock.Tick,
			Elapsed: s.clock.Elapsed,
			Dt:      dt.Seconds(),
			Self:    point(t.Position),
			Yaw:     t.Yaw(),
		}
		if tt, ok := s.state.Transform(c.Target); ok {
			ctx.Target = point(tt.Position)
			ctx.HasTarget = true
		}
		if in, ok := s.driver.Drive(c.Script, ctx); ok {
			s.comps.SetIntent(id, in)
		}
	})
}
