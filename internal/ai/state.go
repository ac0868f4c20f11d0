// Package ai drives non-player characters. The chase behavior is a two-state
// machine expressed as a tagged variant: every transition is a pure function
// from the current state value to the next one.
package ai

import "github.com/go-gl/mathgl/mgl64"

// Kind names a state of the chase machine.
type Kind uint8

const (
	KindChase Kind = iota
	KindUnstick
)

func (k Kind) String() string {
	switch k {
	case KindChase:
		return "CHASE"
	case KindUnstick:
		return "UNSTICK"
	}
	return "UNKNOWN"
}

// State is either Chase or Unstick.
type State interface {
	Kind() Kind
}

// Chase steers toward the target. Stuck accumulates the time spent pushing
// without getting anywhere.
type Chase struct {
	Stuck float64
}

func (Chase) Kind() Kind { return KindChase }

// Unstick drives in a fixed random direction until Remaining runs out.
type Unstick struct {
	Direction mgl64.Vec2 // x, z; not normalized
	Remaining float64
}

func (Unstick) Kind() Kind { return KindUnstick }
