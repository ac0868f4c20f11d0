package system

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type recorder struct {
	name  string
	phase Phase
	log   *[]string
}

func (r recorder) Phase() Phase { return r.phase }
func (r recorder) Update(time.Duration) {
	*r.log = append(*r.log, r.name)
}

func TestRunnerOrdersByPhaseThenRegistration(t *testing.T) {
	var calls []string
	r := NewRunner(nil)
	r.Register(recorder{"move", PhaseMove, &calls})
	r.Register(recorder{"input-a", PhaseInput, &calls})
	r.Register(recorder{"think", PhaseThink, &calls})
	r.Register(recorder{"input-b", PhaseInput, &calls})

	assert.True(t, r.Tick(time.Second/60))
	assert.Equal(t, []string{"input-a", "input-b", "think", "move"}, calls)
	assert.Equal(t, uint64(1), r.Ticks())
}

func TestRunnerSkipsNonPositiveDelta(t *testing.T) {
	var calls []string
	r := NewRunner(nil)
	r.Register(recorder{"move", PhaseMove, &calls})

	assert.False(t, r.Tick(0))
	assert.False(t, r.Tick(-time.Millisecond))
	assert.Empty(t, calls)
	assert.Zero(t, r.Ticks())
}

func TestTickPhaseRunsSinglePhase(t *testing.T) {
	var calls []string
	r := NewRunner(nil)
	r.Register(recorder{"move", PhaseMove, &calls})
	r.Register(recorder{"input", PhaseInput, &calls})

	r.TickPhase(PhaseInput, time.Millisecond)
	assert.Equal(t, []string{"input"}, calls)
}
