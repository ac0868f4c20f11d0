package system

import (
	"encoding/json"
	"math/rand"
	"testing"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/ai"
	"github.com/storechase/server/internal/core/ecs"
	"github.com/storechase/server/internal/core/event"
	"github.com/storechase/server/internal/input"
	"github.com/storechase/server/internal/movement"
	"github.com/storechase/server/internal/net"
	"github.com/storechase/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fixture struct {
	state *world.State
	comps *Components
	ids   map[string]ecs.EntityID
}

func newFixture(t *testing.T, spawns ...world.Spawn) *fixture {
	t.Helper()
	f := &fixture{
		state: world.NewState(world.NewLevel("test", nil, spawns)),
		ids:   make(map[string]ecs.EntityID),
	}
	f.comps = NewComponents(f.state)
	for _, sp := range spawns {
		id, err := f.state.Spawn(sp)
		require.NoError(t, err)
		f.ids[sp.Name] = id
		f.comps.SetIntent(id, movement.Idle)
		switch sp.Controller {
		case world.ControllerHuman:
			scheme, err := input.Lookup(sp.Binding)
			require.NoError(t, err)
			f.comps.Controls.Set(id, &Controls{Scheme: scheme, Keys: input.NewKeyState()})
		case world.ControllerAI:
			m := ai.NewMind(sp.Position)
			f.comps.Minds.Set(id, &m)
		}
	}
	f.state.LinkTargets(spawns)
	return f
}

type fakeSource struct {
	fresh    chan *net.Session
	dead     chan uint64
	notified []uint64
}

func newFakeSource() *fakeSource {
	return &fakeSource{fresh: make(chan *net.Session, 4), dead: make(chan uint64, 4)}
}

func (f *fakeSource) NewSessions() <-chan *net.Session { return f.fresh }
func (f *fakeSource) DeadSessions() <-chan uint64      { return f.dead }
func (f *fakeSource) NotifyDead(id uint64)             { f.notified = append(f.notified, id) }

type fakeToggle struct{ calls []bool }

func (f *fakeToggle) SetActive(active bool) { f.calls = append(f.calls, active) }

func testSession(id uint64) *net.Session {
	return &net.Session{
		ID:       id,
		InQueue:  make(chan net.ClientMessage, 16),
		OutQueue: make(chan []byte, 16),
	}
}

// replies flushes sess and decodes every frame it produced.
func replies(t *testing.T, sess *net.Session) []map[string]any {
	t.Helper()
	sess.FlushOutput()
	var out []map[string]any
	for {
		select {
		case b := <-sess.OutQueue:
			var m map[string]any
			require.NoError(t, json.Unmarshal(b, &m))
			out = append(out, m)
		default:
			return out
		}
	}
}

func humanAndClerk() []world.Spawn {
	return []world.Spawn{
		{Name: "shopper", Position: mgl64.Vec3{0, 0, 12}, Controller: world.ControllerHuman, Binding: "wasd"},
		{Name: "clerk", Position: mgl64.Vec3{10, 0, -10}, Controller: world.ControllerAI, Target: "shopper"},
	}
}

func TestInputSystemBindsSessionsAndAppliesKeys(t *testing.T) {
	f := newFixture(t, humanAndClerk()...)
	src := newFakeSource()
	store := net.NewSessionStore()
	toggle := &fakeToggle{}
	sys := NewInputSystem(src, store, 8, f.state, f.comps, toggle, zap.NewNop())

	a, b := testSession(1), testSession(2)
	src.fresh <- a
	src.fresh <- b

	a.InQueue <- net.ClientMessage{Type: net.TypeKey, Code: "KeyW", Down: true}
	a.InQueue <- net.ClientMessage{Type: net.TypeHello, Player: "shopper"}
	a.InQueue <- net.ClientMessage{Type: net.TypeKey, Code: "KeyW", Down: true}
	a.InQueue <- net.ClientMessage{Type: net.TypeKey, Code: "KeyP", Down: true}
	b.InQueue <- net.ClientMessage{Type: net.TypeHello, Player: "shopper"}
	b.InQueue <- net.ClientMessage{Type: net.TypeHello, Player: "clerk"}
	off := false
	b.InQueue <- net.ClientMessage{Type: net.TypeAI, Active: &off}

	sys.Update(time.Millisecond)
	assert.Equal(t, 2, store.Count())

	got := replies(t, a)
	require.Len(t, got, 2)
	assert.Equal(t, "error", got[0]["type"], "keys before hello are rejected")
	assert.Equal(t, "welcome", got[1]["type"])
	assert.Equal(t, "shopper", got[1]["player"])
	assert.Equal(t, "test", got[1]["level"])

	got = replies(t, b)
	require.Len(t, got, 2)
	assert.Contains(t, got[0]["message"], "already controlled")
	assert.Contains(t, got[1]["message"], "no human player")
	assert.Equal(t, []bool{false}, toggle.calls)

	assert.Equal(t, movement.Intent{Z: -1}, f.comps.Intent(f.ids["shopper"]))
	c, _ := f.comps.Controls.Get(f.ids["shopper"])
	assert.False(t, c.Keys.Held("KeyP"), "keys outside the scheme are ignored")
}

func TestInputSystemReleasesKeysOfDeadSessions(t *testing.T) {
	f := newFixture(t, humanAndClerk()...)
	src := newFakeSource()
	store := net.NewSessionStore()
	sys := NewInputSystem(src, store, 8, f.state, f.comps, nil, zap.NewNop())

	sess := testSession(7)
	src.fresh <- sess
	sess.InQueue <- net.ClientMessage{Type: net.TypeHello, Player: "shopper"}
	sess.InQueue <- net.ClientMessage{Type: net.TypeKey, Code: "KeyD", Down: true}
	sys.Update(time.Millisecond)
	require.Equal(t, movement.Intent{X: 1}, f.comps.Intent(f.ids["shopper"]))

	src.dead <- 7
	sys.Update(time.Millisecond)
	assert.Equal(t, 0, store.Count())
	assert.Equal(t, movement.Idle, f.comps.Intent(f.ids["shopper"]))
	assert.Nil(t, store.Bound("shopper"))
}

func TestInputSystemLimitsMessagesPerTick(t *testing.T) {
	f := newFixture(t, humanAndClerk()...)
	src := newFakeSource()
	store := net.NewSessionStore()
	sys := NewInputSystem(src, store, 2, f.state, f.comps, nil, zap.NewNop())

	sess := testSession(1)
	src.fresh <- sess
	for i := 0; i < 5; i++ {
		sess.InQueue <- net.ClientMessage{Type: net.TypeHello, Player: "shopper"}
	}
	sys.Update(time.Millisecond)
	assert.Len(t, sess.InQueue, 3)
	sys.Update(time.Millisecond)
	assert.Len(t, sess.InQueue, 1)
}

func TestAISystemChasesAndSkipsLostTargets(t *testing.T) {
	f := newFixture(t,
		world.Spawn{Name: "shopper", Position: mgl64.Vec3{0, 0, 5}, Controller: world.ControllerHuman},
		world.Spawn{Name: "clerk", Position: mgl64.Vec3{0, 0, 0}, Controller: world.ControllerAI, Target: "shopper"},
	)
	bus := event.NewBus()
	clock := &Clock{Tick: 1}
	sys := NewAISystem(f.state, f.comps, ai.DefaultParams(), rand.New(rand.NewSource(1)), bus, clock, true, zap.NewNop())

	sys.Update(16 * time.Millisecond)
	assert.Equal(t, movement.Intent{Z: 1}, f.comps.Intent(f.ids["clerk"]), "walks inside sprint distance")

	require.True(t, f.state.Despawn(f.ids["shopper"]))
	f.state.Flush()
	f.comps.SetIntent(f.ids["clerk"], movement.Intent{X: 0.5})
	sys.Update(16 * time.Millisecond)
	assert.Equal(t, movement.Intent{X: 0.5}, f.comps.Intent(f.ids["clerk"]), "a lost target keeps the previous intent")
}

func TestAISystemToggle(t *testing.T) {
	f := newFixture(t, humanAndClerk()...)
	bus := event.NewBus()
	var toggles []bool
	event.Subscribe(bus, func(ev event.AIToggled) { toggles = append(toggles, ev.Active) })
	sys := NewAISystem(f.state, f.comps, ai.DefaultParams(), rand.New(rand.NewSource(1)), bus, &Clock{}, true, zap.NewNop())

	sys.SetActive(false)
	sys.SetActive(false)
	sys.Update(16 * time.Millisecond)
	assert.Equal(t, movement.Idle, f.comps.Intent(f.ids["clerk"]), "inactive AI decides nothing")

	bus.SwapBuffers()
	bus.DispatchAll()
	assert.Equal(t, []bool{false}, toggles)
}

func TestMovementSystemResolvesInSpawnOrder(t *testing.T) {
	f := newFixture(t,
		world.Spawn{Name: "a", Position: mgl64.Vec3{0, 0, 0}, Controller: world.ControllerScript},
		world.Spawn{Name: "b", Position: mgl64.Vec3{1.2, 0, 0}, Controller: world.ControllerScript},
	)
	f.comps.SetIntent(f.ids["a"], movement.Intent{X: 1})
	f.comps.SetIntent(f.ids["b"], movement.Intent{X: -1})
	sys := NewMovementSystem(f.state, f.comps, movement.NewResolver(movement.DefaultParams()), &Clock{Elapsed: 0.3})

	sys.Update(31250 * time.Microsecond)

	a, _ := f.state.Transform(f.ids["a"])
	b, _ := f.state.Transform(f.ids["b"])
	assert.Equal(t, 0.25, a.Position.X())
	assert.Equal(t, 1.2, b.Position.X(), "b sees a where a already moved to")

	mb, ok := f.comps.Motion.Get(f.ids["b"])
	require.True(t, ok)
	assert.True(t, mb.BlockedX)
	assert.False(t, mb.Moved)
	ma, _ := f.comps.Motion.Get(f.ids["a"])
	assert.True(t, ma.Moved)

	ca, _ := f.state.Character(f.ids["a"])
	assert.Equal(t, movement.DefaultParams().Bob(0.3, true), ca.Bob)
}

func TestBroadcastSystemSendsEveryNthTick(t *testing.T) {
	f := newFixture(t, humanAndClerk()...)
	store := net.NewSessionStore()
	sess := testSession(1)
	store.Add(sess)
	clock := &Clock{}
	sys := NewBroadcastSystem(store, f.state, f.comps, clock, nil, 2, zap.NewNop())

	var frames [][]byte
	for i := 0; i < 4; i++ {
		clock.Tick++
		sys.Update(time.Millisecond)
		for len(sess.OutQueue) > 0 {
			frames = append(frames, <-sess.OutQueue)
		}
	}
	require.Len(t, frames, 2)

	var snap net.SnapshotMessage
	require.NoError(t, json.Unmarshal(frames[1], &snap))
	assert.Equal(t, net.TypeSnapshot, snap.Type)
	assert.Equal(t, uint64(4), snap.Tick)
	assert.False(t, snap.AIActive)
	require.Len(t, snap.Characters, 2)
	assert.Equal(t, [3]float64{10, 0, -10}, snap.Characters[1].Position)
	assert.Equal(t, "CHASE", snap.Characters[1].State)
}

func TestCleanupSystemAnnouncesRemovals(t *testing.T) {
	f := newFixture(t, humanAndClerk()...)
	bus := event.NewBus()
	var gone []string
	event.Subscribe(bus, func(ev event.CharacterDespawned) { gone = append(gone, ev.Name) })
	sys := NewCleanupSystem(f.state, bus)

	require.True(t, f.state.Despawn(f.ids["clerk"]))
	sys.Update(time.Millisecond)
	bus.SwapBuffers()
	bus.DispatchAll()

	assert.Equal(t, []string{"clerk"}, gone)
	_, ok := f.comps.Minds.Get(f.ids["clerk"])
	assert.False(t, ok, "component rows go with the character")
}
