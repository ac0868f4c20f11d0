package system

import "time"

// Phase orders systems within one tick.
type Phase int

const (
	PhaseInput   Phase = iota // 0: drain sessions, human and scripted intents
	PhaseEvents               // 1: dispatch last tick's events
	PhaseThink                // 2: AI decisions from last tick's positions
	PhaseMove                 // 3: collision resolution, transform writes
	PhaseOutput               // 4: snapshots to connected clients
	PhasePersist              // 5: trace sampling and flushes
	PhaseCleanup              // 6: destroy queued entities
)

func (p Phase) String() string {
	switch p {
	case PhaseInput:
		return "input"
	case PhaseEvents:
		return "events"
	case PhaseThink:
		return "think"
	case PhaseMove:
		return "move"
	case PhaseOutput:
		return "output"
	case PhasePersist:
		return "persist"
	case PhaseCleanup:
		return "cleanup"
	}
	return "unknown"
}

// System is one stage of the tick pipeline.
type System interface {
	Phase() Phase
	Update(dt time.Duration)
}
