package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/core/ecs"
)

// Character is the simulation-side record of a spawned character. Other
// characters refer to it only through its EntityID.
type Character struct {
	Name       string
	Controller Controller
	Binding    string
	Script     string
	Color      string
	Spawn      mgl64.Vec3

	// Target is the handle an AI chases. It may go stale when the target
	// despawns; lookups then report absence.
	Target ecs.EntityID

	// Bob is the cosmetic vertical offset for rendering. It never feeds
	// collision.
	Bob float64
}

// State holds every live character. Transforms are owned by their character
// and exposed to everyone else by value through Transform.
type State struct {
	ecs        *ecs.World
	level      *Level
	characters *ecs.Store[Character]
	transforms *ecs.Store[Transform]
	byName     map[string]ecs.EntityID
	leaving    map[ecs.EntityID]string // queued for the next Flush
}

func NewState(level *Level) *State {
	s := &State{
		ecs:        ecs.NewWorld(),
		level:      level,
		characters: ecs.NewStore[Character](),
		transforms: ecs.NewStore[Transform](),
		byName:     make(map[string]ecs.EntityID),
		leaving:    make(map[ecs.EntityID]string),
	}
	s.ecs.Register(s.characters)
	s.ecs.Register(s.transforms)
	return s
}

// ECS exposes the entity world so systems can register their own stores.
func (s *State) ECS() *ecs.World { return s.ecs }

func (s *State) Level() *Level { return s.level }

// Spawn places a character at sp.Position facing +Z. Names are unique among
// live characters.
func (s *State) Spawn(sp Spawn) (ecs.EntityID, error) {
	if sp.Name == "" {
		return 0, fmt.Errorf("spawn: empty character name")
	}
	if _, taken := s.byName[sp.Name]; taken {
		return 0, fmt.Errorf("spawn %q: name already in use", sp.Name)
	}
	id := s.ecs.CreateEntity()
	s.characters.Set(id, &Character{
		Name:       sp.Name,
		Controller: sp.Controller,
		Binding:    sp.Binding,
		Script:     sp.Script,
		Color:      sp.Color,
		Spawn:      sp.Position,
	})
	t := NewTransform(sp.Position)
	s.transforms.Set(id, &t)
	s.byName[sp.Name] = id
	return id, nil
}

// Despawn queues id for removal at the end of the tick. It reports whether
// id referred to a live character.
func (s *State) Despawn(id ecs.EntityID) bool {
	c, ok := s.Character(id)
	if !ok {
		return false
	}
	if _, queued := s.leaving[id]; !queued {
		s.leaving[id] = c.Name
		s.ecs.MarkForDestruction(id)
	}
	return true
}

// Flush removes every queued character and returns the removed records.
func (s *State) Flush() map[ecs.EntityID]string {
	if len(s.leaving) == 0 {
		return nil
	}
	destroyed := s.ecs.Flush()
	out := make(map[ecs.EntityID]string, len(destroyed))
	for _, id := range destroyed {
		name := s.leaving[id]
		delete(s.byName, name)
		out[id] = name
	}
	clear(s.leaving)
	return out
}

// Transform returns a copy of id's resolved pose. ok is false when id is
// stale or never existed.
func (s *State) Transform(id ecs.EntityID) (Transform, bool) {
	if !s.ecs.Alive(id) {
		return Transform{}, false
	}
	t, ok := s.transforms.Get(id)
	if !ok {
		return Transform{}, false
	}
	return *t, true
}

// SetTransform overwrites id's pose. Only the movement system calls this,
// for the character it is resolving.
func (s *State) SetTransform(id ecs.EntityID, t Transform) bool {
	cur, ok := s.transforms.Get(id)
	if !ok || !s.ecs.Alive(id) {
		return false
	}
	*cur = t
	return true
}

// Alive reports whether id is a live character.
func (s *State) Alive(id ecs.EntityID) bool {
	return s.ecs.Alive(id) && s.characters.Has(id)
}

func (s *State) Character(id ecs.EntityID) (*Character, bool) {
	if !s.ecs.Alive(id) {
		return nil, false
	}
	return s.characters.Get(id)
}

// Lookup finds a live character by name.
func (s *State) Lookup(name string) (ecs.EntityID, bool) {
	id, ok := s.byName[name]
	return id, ok
}

// IDs lists live characters in spawn order.
func (s *State) IDs() []ecs.EntityID { return s.characters.IDs() }

func (s *State) Len() int { return s.characters.Len() }

// Each visits characters in spawn order with their current pose.
func (s *State) Each(fn func(ecs.EntityID, *Character, Transform)) {
	ecs.Each2(s.characters, s.transforms, func(id ecs.EntityID, c *Character, t *Transform) {
		fn(id, c, *t)
	})
}

// Positions snapshots every character's position. Systems that must read the
// previous tick's state take this before anyone moves.
func (s *State) Positions() map[ecs.EntityID]mgl64.Vec3 {
	out := make(map[ecs.EntityID]mgl64.Vec3, s.transforms.Len())
	s.transforms.Each(func(id ecs.EntityID, t *Transform) {
		out[id] = t.Position
	})
	return out
}

// LinkTargets resolves each spawn's Target name into a handle. Unknown names
// leave the target empty, so the chaser idles.
func (s *State) LinkTargets(spawns []Spawn) {
	for _, sp := range spawns {
		if sp.Target == "" {
			continue
		}
		id, ok := s.byName[sp.Name]
		if !ok {
			continue
		}
		c, _ := s.characters.Get(id)
		if target, ok := s.byName[sp.Target]; ok && target != id {
			c.Target = target
		}
	}
}
