// Package input turns held keys into movement intents. Key codes are the
// browser KeyboardEvent.code names the presentation layer forwards.
package input

import (
	"fmt"
	"sort"

	"github.com/storechase/server/internal/movement"
)

// Action is a movement control a key can be bound to.
type Action uint8

const (
	ActionForward Action = iota
	ActionBackward
	ActionLeft
	ActionRight
	ActionSprint
)

// Scheme maps key codes to actions for one player.
type Scheme struct {
	Name string
	keys map[string]Action
}

// DefaultScheme is used when a spawn names no binding. It accepts both key
// clusters and either Shift.
const DefaultScheme = "keyboard"

var schemes = map[string]map[string]Action{
	"keyboard": {
		"KeyW": ActionForward, "ArrowUp": ActionForward,
		"KeyS": ActionBackward, "ArrowDown": ActionBackward,
		"KeyA": ActionLeft, "ArrowLeft": ActionLeft,
		"KeyD": ActionRight, "ArrowRight": ActionRight,
		"ShiftLeft": ActionSprint, "ShiftRight": ActionSprint,
	},
	"wasd": {
		"KeyW":      ActionForward,
		"KeyS":      ActionBackward,
		"KeyA":      ActionLeft,
		"KeyD":      ActionRight,
		"ShiftLeft": ActionSprint,
	},
	"arrows": {
		"ArrowUp":    ActionForward,
		"ArrowDown":  ActionBackward,
		"ArrowLeft":  ActionLeft,
		"ArrowRight": ActionRight,
		"ShiftRight": ActionSprint,
	},
}

// Lookup returns the named scheme. An empty name selects DefaultScheme.
func Lookup(name string) (Scheme, error) {
	if name == "" {
		name = DefaultScheme
	}
	keys, ok := schemes[name]
	if !ok {
		return Scheme{}, fmt.Errorf("unknown key binding %q", name)
	}
	return Scheme{Name: name, keys: keys}, nil
}

// Schemes lists the registered scheme names.
func Schemes() []string {
	out := make([]string, 0, len(schemes))
	for name := range schemes {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// Binds reports whether code means anything in s.
func (s Scheme) Binds(code string) bool {
	_, ok := s.keys[code]
	return ok
}

// Produce maps the held keys to an intent. Forward is -Z. Opposite keys
// cancel each other, and each axis stays within [-1, 1] however many keys
// share an action.
func (s Scheme) Produce(held *KeyState) movement.Intent {
	var fwd, back, left, right, sprint bool
	held.Each(func(code string) {
		a, ok := s.keys[code]
		if !ok {
			return
		}
		switch a {
		case ActionForward:
			fwd = true
		case ActionBackward:
			back = true
		case ActionLeft:
			left = true
		case ActionRight:
			right = true
		case ActionSprint:
			sprint = true
		}
	})

	var in movement.Intent
	if fwd {
		in.Z--
	}
	if back {
		in.Z++
	}
	if left {
		in.X--
	}
	if right {
		in.X++
	}
	in.Sprint = sprint
	return in
}
