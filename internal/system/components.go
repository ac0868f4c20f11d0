package system

import (
	"github.com/storechase/server/internal/ai"
	"github.com/storechase/server/internal/core/ecs"
	"github.com/storechase/server/internal/input"
	"github.com/storechase/server/internal/movement"
	"github.com/storechase/server/internal/world"
)

// Controls is a human character's key binding and held keys.
type Controls struct {
	Scheme input.Scheme
	Keys   *input.KeyState
}

// Motion is what the movement phase reports about a character's last tick.
type Motion struct {
	Moved    bool
	BlockedX bool
	BlockedZ bool
	Sprint   bool
}

// Components are the per-character stores the systems share. They are
// registered with the state's entity world, so destroying a character
// removes its rows everywhere.
type Components struct {
	Intents  *ecs.Store[movement.Intent]
	Controls *ecs.Store[Controls]
	Minds    *ecs.Store[ai.Mind]
	Motion   *ecs.Store[Motion]
}

func NewComponents(st *world.State) *Components {
	c := &Components{
		Intents:  ecs.NewStore[movement.Intent](),
		Controls: ecs.NewStore[Controls](),
		Minds:    ecs.NewStore[ai.Mind](),
		Motion:   ecs.NewStore[Motion](),
	}
	st.ECS().Register(c.Intents)
	st.ECS().Register(c.Controls)
	st.ECS().Register(c.Minds)
	st.ECS().Register(c.Motion)
	return c
}

// Intent returns id's current intent, Idle when it has none.
func (c *Components) Intent(id ecs.EntityID) movement.Intent {
	if in, ok := c.Intents.Get(id); ok {
		return *in
	}
	return movement.Idle
}

func (c *Components) SetIntent(id ecs.EntityID, in movement.Intent) {
	if cur, ok := c.Intents.Get(id); ok {
		*cur = in
		return
	}
	c.Intents.Set(id, &in)
}

// Clock counts ticks and simulated seconds. ClockSystem advances it first
// thing every tick; everyone else only reads it.
type Clock struct {
	Tick    uint64
	Elapsed float64
}
