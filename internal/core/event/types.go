package event

import "github.com/storechase/server/internal/core/ecs"

type CharacterSpawned struct {
	EntityID ecs.EntityID
	Name     string
}

type CharacterDespawned struct {
	EntityID ecs.EntityID
	Name     string
}

// AIStateChanged is emitted when a chaser's state machine switches state.
type AIStateChanged struct {
	EntityID ecs.EntityID
	Name     string
	From     string
	To       string
	Tick     uint64
}

// AIToggled is emitted when the AI is switched on or off at runtime.
type AIToggled struct {
	Active bool
}
