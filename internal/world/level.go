package world

import (
	"fmt"

	"github.com/go-gl/mathgl/mgl64"
)

// Controller selects what produces a character's intents.
type Controller uint8

const (
	ControllerHuman  Controller = iota // key states from an input adapter
	ControllerAI                       // chase state machine
	ControllerScript                   // Lua driver function
)

func (c Controller) String() string {
	switch c {
	case ControllerHuman:
		return "human"
	case ControllerAI:
		return "ai"
	case ControllerScript:
		return "script"
	}
	return "unknown"
}

// ParseController maps a level-file controller name.
func ParseController(s string) (Controller, error) {
	switch s {
	case "human":
		return ControllerHuman, nil
	case "ai":
		return ControllerAI, nil
	case "script":
		return ControllerScript, nil
	}
	return 0, fmt.Errorf("unknown controller %q", s)
}

// Spawn describes a character placed when the level starts.
type Spawn struct {
	Name       string
	Position   mgl64.Vec3
	Controller Controller
	Binding    string // key-binding scheme for human controllers
	Script     string // Lua function for script controllers
	Target     string // name of the character an AI chases
	Color      string
}

// Level is the static world: a fixed obstacle list and the spawn table. It
// is built once before the simulation starts and only read afterwards.
type Level struct {
	name      string
	obstacles []Obstacle
	spawns    []Spawn
}

func NewLevel(name string, obstacles []Obstacle, spawns []Spawn) *Level {
	l := &Level{
		name:      name,
		obstacles: make([]Obstacle, len(obstacles)),
		spawns:    make([]Spawn, len(spawns)),
	}
	copy(l.obstacles, obstacles)
	copy(l.spawns, spawns)
	return l
}

func (l *Level) Name() string { return l.name }

// Obstacles returns the shared obstacle list. Callers must treat it as
// read-only; it is handed to every resolution step without copying.
func (l *Level) Obstacles() []Obstacle { return l.obstacles }

func (l *Level) Spawns() []Spawn {
	out := make([]Spawn, len(l.spawns))
	copy(out, l.spawns)
	return out
}

func (l *Level) Count() int { return len(l.obstacles) }
