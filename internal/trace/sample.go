// Package trace records sampled character transforms for offline replay and
// tuning. Samples are batched on the tick goroutine and written by a
// background recorder so sinks never stall the simulation.
package trace

import "context"

// Sample is one character's pose at one tick.
type Sample struct {
	Tick   uint64  `json:"tick"`
	Name   string  `json:"name"`
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Z      float64 `json:"z"`
	Yaw    float64 `json:"yaw"`
	State  string  `json:"state,omitempty"` // AI state, empty for other controllers
	Sprint bool    `json:"sprint"`
}

// Sink persists batches of samples.
type Sink interface {
	WriteSamples(ctx context.Context, batch []Sample) error
	Close() error
}

// Discard drops everything. It stands in when tracing is off.
type Discard struct{}

func (Discard) WriteSamples(context.Context, []Sample) error { return nil }
func (Discard) Close() error                                  { return nil }
