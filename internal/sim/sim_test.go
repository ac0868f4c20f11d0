package sim

import (
	"math"
	"math/rand"
	"testing"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/ai"
	"github.com/storechase/server/internal/core/event"
	"github.com/storechase/server/internal/data"
	"github.com/storechase/server/internal/geom"
	"github.com/storechase/server/internal/movement"
	"github.com/storechase/server/internal/scripting"
	"github.com/storechase/server/internal/trace"
	"github.com/storechase/server/internal/world"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

const frame = 1.0 / 60

func shell() []world.Obstacle {
	return []world.Obstacle{
		world.NewObstacle(mgl64.Vec3{0, 2, -15}, mgl64.Vec3{40, 4, 0.5}, world.CategoryWall),
		world.NewObstacle(mgl64.Vec3{-20, 2, 0}, mgl64.Vec3{0.5, 4, 30}, world.CategoryWall),
		world.NewObstacle(mgl64.Vec3{20, 2, 0}, mgl64.Vec3{0.5, 4, 30}, world.CategoryWall),
		world.NewObstacle(mgl64.Vec3{0, 2, 15}, mgl64.Vec3{40, 4, 0.5}, world.CategoryWall),
	}
}

func chaseLevel(extra []world.Obstacle, shopper, clerk mgl64.Vec3) *world.Level {
	return world.NewLevel("test", append(shell(), extra...), []world.Spawn{
		{Name: "shopper", Position: shopper, Controller: world.ControllerHuman, Binding: "wasd"},
		{Name: "clerk", Position: clerk, Controller: world.ControllerAI, Target: "shopper"},
	})
}

func newSim(t *testing.T, lvl *world.Level, mutate ...func(*Options)) *Simulation {
	t.Helper()
	opts := DefaultOptions()
	opts.Seed = 1
	for _, m := range mutate {
		m(&opts)
	}
	s, err := New(lvl, opts, zaptest.NewLogger(t))
	require.NoError(t, err)
	return s
}

func dist(t *testing.T, s *Simulation, a, b string) float64 {
	t.Helper()
	ta, ok := s.Transform(a)
	require.True(t, ok)
	tb, ok := s.Transform(b)
	require.True(t, ok)
	return geom.PlanarDist(ta.Position, tb.Position)
}

func TestChaserCatchesStationaryShopper(t *testing.T) {
	s := newSim(t, chaseLevel(nil, mgl64.Vec3{0, 0, 12}, mgl64.Vec3{0, 0, -8}))
	require.Equal(t, 20.0, dist(t, s, "clerk", "shopper"))

	prev := 20.0
	for tick := 0; tick < 600; tick++ {
		require.True(t, s.Step(frame))
		d := dist(t, s, "clerk", "shopper")
		require.LessOrEqual(t, d, prev, "tick %d: chaser backed off", tick)
		prev = d
	}

	assert.Less(t, prev, 1.5)
	assert.Greater(t, prev, 0.8)
	in, ok := s.Intent("clerk")
	require.True(t, ok)
	assert.Equal(t, movement.Idle, in)
	kind, _ := s.AIState("clerk")
	assert.Equal(t, ai.KindChase, kind)

	shopper, _ := s.Transform("shopper")
	assert.Equal(t, mgl64.Vec3{0, 0, 12}, shopper.Position, "the target was never pushed")
}

func TestChaserBehindWallUnsticksForOneSecond(t *testing.T) {
	divider := world.NewObstacle(mgl64.Vec3{0, 2, 0}, mgl64.Vec3{40, 4, 0.5}, world.CategoryWall)
	s := newSim(t, chaseLevel([]world.Obstacle{divider}, mgl64.Vec3{0, 0, 10}, mgl64.Vec3{0, 0, -10}))

	var changes []event.AIStateChanged
	event.Subscribe(s.Bus(), func(ev event.AIStateChanged) { changes = append(changes, ev) })

	const dt = 0.125
	for tick := 0; tick < 200; tick++ {
		require.True(t, s.Step(dt))
		clerk, _ := s.Transform("clerk")
		require.False(t, s.Resolver().OverlapsStatic(clerk.Position, s.State().Level().Obstacles()))
	}

	require.GreaterOrEqual(t, len(changes), 2, "the chaser never got stuck")
	assert.Equal(t, "CHASE", changes[0].From)
	assert.Equal(t, "UNSTICK", changes[0].To)
	for i := 0; i+1 < len(changes); i += 2 {
		enter, leave := changes[i], changes[i+1]
		require.Equal(t, "UNSTICK", enter.To)
		require.Equal(t, "CHASE", leave.To)
		// the escape intent applies on ticks enter..leave inclusive
		assert.Equal(t, uint64(1.0/dt), leave.Tick-enter.Tick+1)
	}
}

func TestToggledOffChaserKeepsLastIntent(t *testing.T) {
	s := newSim(t, chaseLevel(nil, mgl64.Vec3{0, 0, 12}, mgl64.Vec3{0, 0, -8}))
	var toggles []bool
	event.Subscribe(s.Bus(), func(ev event.AIToggled) { toggles = append(toggles, ev.Active) })

	require.True(t, s.Step(frame))
	before, _ := s.Intent("clerk")
	require.Equal(t, movement.Intent{Z: 1, Sprint: true}, before)
	pose, _ := s.Transform("clerk")

	s.SetAIActive(false)
	assert.False(t, s.AIActive())
	after, _ := s.Transform("clerk")
	assert.Equal(t, pose, after, "toggling never touches a transform")

	// the last intent keeps being applied without new decisions
	for i := 0; i < 10; i++ {
		require.True(t, s.Step(frame))
		in, _ := s.Intent("clerk")
		assert.Equal(t, before, in)
	}
	moved, _ := s.Transform("clerk")
	assert.Greater(t, moved.Position.Z(), pose.Position.Z())

	s.SetAIActive(true)
	s.SetAIActive(true)
	require.True(t, s.Step(frame))
	assert.Equal(t, []bool{false, true}, toggles)
}

func TestDespawnedTargetIsSkipped(t *testing.T) {
	s := newSim(t, chaseLevel(nil, mgl64.Vec3{0, 0, 12}, mgl64.Vec3{0, 0, -8}))
	require.True(t, s.Step(frame))
	before, _ := s.Intent("clerk")

	require.NoError(t, s.Despawn("shopper"))
	require.True(t, s.Step(frame)) // removed at the end of this tick
	_, ok := s.Transform("shopper")
	assert.False(t, ok)

	for i := 0; i < 5; i++ {
		require.True(t, s.Step(frame))
		in, _ := s.Intent("clerk")
		assert.Equal(t, before, in, "no target, no new intent")
	}
	assert.ErrorIs(t, s.Despawn("shopper"), ErrUnknownCharacter)
	assert.Equal(t, 1, s.State().Len())
}

func TestKeysDriveHumans(t *testing.T) {
	s := newSim(t, chaseLevel(nil, mgl64.Vec3{0, 0, 12}, mgl64.Vec3{15, 0, -12}), func(o *Options) {
		o.AIActive = false
	})
	require.NoError(t, s.SetKey("shopper", "KeyW", true))
	require.True(t, s.Step(0.5))
	tr, _ := s.Transform("shopper")
	assert.InDelta(t, 8, tr.Position.Z(), 1e-9, "forward is -Z at base speed")

	require.NoError(t, s.SetKey("shopper", "ShiftLeft", true))
	require.True(t, s.Step(0.5))
	tr, _ = s.Transform("shopper")
	assert.InDelta(t, 2, tr.Position.Z(), 1e-9)

	require.NoError(t, s.SetKey("shopper", "KeyW", false))
	require.True(t, s.Step(0.5))
	tr, _ = s.Transform("shopper")
	assert.InDelta(t, 2, tr.Position.Z(), 1e-9)

	assert.ErrorIs(t, s.SetKey("clerk", "KeyW", true), ErrNotHuman)
	assert.ErrorIs(t, s.SetKey("nobody", "KeyW", true), ErrUnknownCharacter)
}

func TestInvalidDeltaIsNoOp(t *testing.T) {
	s := newSim(t, chaseLevel(nil, mgl64.Vec3{0, 0, 12}, mgl64.Vec3{0, 0, -8}))
	before := s.Snapshot()
	for _, dt := range []float64{0, -frame, math.NaN(), math.Inf(1)} {
		assert.False(t, s.Step(dt), "dt=%v", dt)
	}
	assert.False(t, s.Tick(0))
	assert.Equal(t, uint64(0), s.Clock().Tick)
	assert.Equal(t, before, s.Snapshot())
}

func TestSpawnValidation(t *testing.T) {
	table := world.NewObstacle(mgl64.Vec3{0, 0.5, -5}, mgl64.Vec3{6, 1, 3}, world.CategoryProp)
	s := newSim(t, chaseLevel([]world.Obstacle{table}, mgl64.Vec3{0, 0, 12}, mgl64.Vec3{0, 0, -10}))

	_, err := s.Spawn(world.Spawn{Name: "stuck", Position: mgl64.Vec3{0, 0, -5}, Controller: world.ControllerAI})
	assert.ErrorIs(t, err, ErrBlockedSpawn)

	_, err = s.Spawn(world.Spawn{Name: "nan", Position: mgl64.Vec3{math.NaN(), 0, 0}, Controller: world.ControllerAI})
	assert.Error(t, err)

	_, err = s.Spawn(world.Spawn{Name: "pad", Position: mgl64.Vec3{5, 0, 5}, Controller: world.ControllerHuman, Binding: "gamepad"})
	assert.Error(t, err)
	_, ok := s.Transform("pad")
	assert.False(t, ok, "a rejected spawn leaves nothing behind")

	// overlapping another character is allowed; separation sorts it out
	_, err = s.Spawn(world.Spawn{Name: "twin", Position: mgl64.Vec3{0.2, 0, 12}, Controller: world.ControllerAI, Target: "clerk"})
	require.NoError(t, err)
	require.True(t, s.Step(frame))
	assert.Greater(t, dist(t, s, "twin", "shopper"), 0.2-1e-9)
}

func TestNewRejectsBlockedLevelSpawn(t *testing.T) {
	pillar := world.NewObstacle(mgl64.Vec3{0, 2, 12}, mgl64.Vec3{1, 4, 1}, world.CategoryWall)
	_, err := New(chaseLevel([]world.Obstacle{pillar}, mgl64.Vec3{0, 0, 12}, mgl64.Vec3{0, 0, -8}), DefaultOptions(), nil)
	assert.ErrorIs(t, err, ErrBlockedSpawn)
}

func TestStoreLevelRandomKeysNeverEnterGeometry(t *testing.T) {
	lvl, err := data.LoadLevel("../../data/yaml/store_level.yaml")
	require.NoError(t, err)
	s := newSim(t, lvl)

	keys := []string{"KeyW", "KeyA", "KeyS", "KeyD", "ShiftLeft", "ArrowUp", "ArrowLeft"}
	rng := rand.New(rand.NewSource(3))
	obstacles := lvl.Obstacles()
	for tick := 0; tick < 3000; tick++ {
		if tick%20 == 0 {
			for _, k := range keys {
				require.NoError(t, s.SetKey("shopper", k, rng.Intn(3) == 0))
			}
		}
		require.True(t, s.Step(frame))
		for _, name := range []string{"shopper", "clerk"} {
			tr, ok := s.Transform(name)
			require.True(t, ok)
			require.False(t, s.Resolver().OverlapsStatic(tr.Position, obstacles), "tick %d: %s at %v", tick, name, tr.Position)
		}
	}
}

type stubDriver struct {
	calls []scripting.DriveContext
	out   movement.Intent
	ok    bool
}

func (d *stubDriver) Drive(fn string, ctx scripting.DriveContext) (movement.Intent, bool) {
	d.calls = append(d.calls, ctx)
	return d.out, d.ok
}

func TestScriptedCharacterFollowsDriver(t *testing.T) {
	lvl := world.NewLevel("test", shell(), []world.Spawn{
		{Name: "shopper", Position: mgl64.Vec3{0, 0, 12}, Controller: world.ControllerHuman},
		{Name: "bot", Position: mgl64.Vec3{0, 0, 0}, Controller: world.ControllerScript, Script: "east", Target: "shopper"},
	})
	drv := &stubDriver{out: movement.Intent{X: 1}, ok: true}
	s := newSim(t, lvl, func(o *Options) { o.Driver = drv })

	require.True(t, s.Step(0.25))
	bot, _ := s.Transform("bot")
	assert.InDelta(t, 2, bot.Position.X(), 1e-9)
	require.Len(t, drv.calls, 1)
	assert.Equal(t, "bot", drv.calls[0].Name)
	assert.True(t, drv.calls[0].HasTarget)
	assert.Equal(t, 12.0, drv.calls[0].Target.Z)
	assert.Equal(t, uint64(1), drv.calls[0].Tick)

	// a failing driver keeps the previous intent
	drv.ok = false
	drv.out = movement.Idle
	require.True(t, s.Step(0.25))
	bot, _ = s.Transform("bot")
	assert.InDelta(t, 4, bot.Position.X(), 1e-9)
}

type memRecorder struct{ samples []trace.Sample }

func (m *memRecorder) Record(samples ...trace.Sample) { m.samples = append(m.samples, samples...) }

func TestTraceSamplesEveryNthTick(t *testing.T) {
	rec := &memRecorder{}
	s := newSim(t, chaseLevel(nil, mgl64.Vec3{0, 0, 12}, mgl64.Vec3{0, 0, -8}), func(o *Options) {
		o.Recorder = rec
		o.TraceEvery = 3
	})
	for i := 0; i < 9; i++ {
		require.True(t, s.Step(frame))
	}
	require.Len(t, rec.samples, 6)
	assert.Equal(t, uint64(3), rec.samples[0].Tick)
	assert.Equal(t, "shopper", rec.samples[0].Name)
	assert.Equal(t, "clerk", rec.samples[1].Name)
	assert.Equal(t, "CHASE", rec.samples[1].State)
	assert.True(t, rec.samples[1].Sprint)
	assert.Empty(t, rec.samples[0].State)
}

func TestSnapshotDescribesCharacters(t *testing.T) {
	s := newSim(t, chaseLevel(nil, mgl64.Vec3{0, 0, 12}, mgl64.Vec3{0, 0, -8}))
	require.True(t, s.Step(frame))

	snap := s.Snapshot()
	assert.Equal(t, uint64(1), snap.Tick)
	assert.True(t, snap.AIActive)
	require.Len(t, snap.Characters, 2)
	assert.Equal(t, "shopper", snap.Characters[0].Name)
	assert.Equal(t, "human", snap.Characters[0].Controller)
	assert.Empty(t, snap.Characters[0].State)
	assert.Equal(t, "clerk", snap.Characters[1].Name)
	assert.Equal(t, "CHASE", snap.Characters[1].State)
	assert.InDelta(t, -8+12*frame, snap.Characters[1].Position[2], 1e-6)
	assert.LessOrEqual(t, snap.Characters[1].Bob, movement.DefaultParams().WalkBobAmplitude)
}
