package event

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEventsArriveOneTickLater(t *testing.T) {
	b := NewBus()
	var got []string
	Subscribe(b, func(ev AIStateChanged) { got = append(got, ev.To) })

	Emit(b, AIStateChanged{From: "CHASE", To: "UNSTICK"})
	b.DispatchAll()
	assert.Empty(t, got, "emitted events wait for the swap")

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []string{"UNSTICK"}, got)

	b.SwapBuffers()
	b.DispatchAll()
	assert.Equal(t, []string{"UNSTICK"}, got, "delivered events are not replayed")
}

func TestHandlersOnlySeeTheirType(t *testing.T) {
	b := NewBus()
	spawned, toggled := 0, 0
	Subscribe(b, func(CharacterSpawned) { spawned++ })
	Subscribe(b, func(AIToggled) { toggled++ })

	Emit(b, CharacterSpawned{Name: "human"})
	Emit(b, CharacterSpawned{Name: "clerk"})
	b.SwapBuffers()
	b.DispatchAll()

	assert.Equal(t, 2, spawned)
	assert.Equal(t, 0, toggled)
}
