// Package sim assembles the tick pipeline: the world state, the component
// stores and the systems that run over them in phase order.
package sim

import (
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/storechase/server/internal/ai"
	"github.com/storechase/server/internal/core/ecs"
	"github.com/storechase/server/internal/core/event"
	coresys "github.com/storechase/server/internal/core/system"
	"github.com/storechase/server/internal/geom"
	"github.com/storechase/server/internal/input"
	"github.com/storechase/server/internal/movement"
	"github.com/storechase/server/internal/net"
	"github.com/storechase/server/internal/system"
	"github.com/storechase/server/internal/world"
	"go.uber.org/zap"
)

var (
	ErrUnknownCharacter = errors.New("unknown character")
	ErrBlockedSpawn     = errors.New("spawn point overlaps static geometry")
	ErrNotHuman         = errors.New("character is not key controlled")
)

// Options wires the optional collaborators. Zero values give a headless
// simulation with no scripts, no network and no tracing.
type Options struct {
	Movement movement.Params
	AI       ai.Params
	AIActive bool
	Seed     int64 // 0 seeds from the clock

	Driver   system.Driver        // Lua drivers for script controllers
	Sessions system.SessionSource // websocket gateway
	// MaxMessagesPerTick bounds how many client messages one session may
	// have applied per tick.
	MaxMessagesPerTick int
	SnapshotEvery      int

	Recorder   system.Recorder
	TraceEvery int
}

// DefaultOptions are the stock tunables with the AI switched on.
func DefaultOptions() Options {
	return Options{
		Movement:           movement.DefaultParams(),
		AI:                 ai.DefaultParams(),
		AIActive:           true,
		MaxMessagesPerTick: 32,
		SnapshotEvery:      1,
		TraceEvery:         1,
	}
}

// Simulation owns one running level.
type Simulation struct {
	state    *world.State
	comps    *system.Components
	bus      *event.Bus
	clock    *system.Clock
	resolver *movement.Resolver
	runner   *coresys.Runner
	sessions *net.SessionStore

	aiSys     *system.AISystem
	broadcast *system.BroadcastSystem

	spawns []world.Spawn
	log    *zap.Logger
}

// New builds the pipeline and spawns every character the level lists.
func New(level *world.Level, opts Options, log *zap.Logger) (*Simulation, error) {
	if log == nil {
		log = zap.NewNop()
	}
	seed := opts.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	s := &Simulation{
		state:    world.NewState(level),
		bus:      event.NewBus(),
		clock:    &system.Clock{},
		resolver: movement.NewResolver(opts.Movement),
		runner:   coresys.NewRunner(log),
		sessions: net.NewSessionStore(),
		log:      log,
	}
	s.comps = system.NewComponents(s.state)
	s.aiSys = system.NewAISystem(s.state, s.comps, opts.AI, rand.New(rand.NewSource(seed)), s.bus, s.clock, opts.AIActive, log)
	s.broadcast = system.NewBroadcastSystem(s.sessions, s.state, s.comps, s.clock, s.aiSys, opts.SnapshotEvery, log)

	// registration order matters within a phase: the clock advances first
	s.runner.Register(system.NewClockSystem(s.clock))
	s.runner.Register(system.NewInputSystem(opts.Sessions, s.sessions, opts.MaxMessagesPerTick, s.state, s.comps, s.aiSys, log))
	s.runner.Register(system.NewScriptSystem(s.state, s.comps, opts.Driver, s.clock))
	s.runner.Register(system.NewEventSystem(s.bus))
	s.runner.Register(s.aiSys)
	s.runner.Register(system.NewMovementSystem(s.state, s.comps, s.resolver, s.clock))
	s.runner.Register(s.broadcast)
	if opts.Recorder != nil {
		s.runner.Register(system.NewTraceSystem(s.state, s.comps, s.clock, opts.Recorder, opts.TraceEvery))
	}
	s.runner.Register(system.NewCleanupSystem(s.state, s.bus))

	s.subscribe()

	for _, sp := range level.Spawns() {
		if _, err := s.Spawn(sp); err != nil {
			return nil, err
		}
	}
	return s, nil
}

func (s *Simulation) subscribe() {
	event.Subscribe(s.bus, func(ev event.CharacterSpawned) {
		s.log.Debug("character spawned", zap.String("name", ev.Name), zap.Stringer("id", ev.EntityID))
	})
	event.Subscribe(s.bus, func(ev event.CharacterDespawned) {
		s.log.Debug("character despawned", zap.String("name", ev.Name), zap.Stringer("id", ev.EntityID))
	})
	event.Subscribe(s.bus, func(ev event.AIStateChanged) {
		s.log.Info("chaser state",
			zap.String("name", ev.Name),
			zap.String("from", ev.From),
			zap.String("to", ev.To),
			zap.Uint64("tick", ev.Tick),
		)
	})
}

// Spawn adds a character. The probe at the spawn point must be clear of
// static geometry; dynamic overlap is allowed and resolves by separation.
func (s *Simulation) Spawn(sp world.Spawn) (ecs.EntityID, error) {
	if !geom.IsFinite(sp.Position) {
		return 0, fmt.Errorf("spawn %q: position %v is not finite", sp.Name, sp.Position)
	}
	if s.resolver.OverlapsStatic(sp.Position, s.state.Level().Obstacles()) {
		return 0, fmt.Errorf("spawn %q at %v: %w", sp.Name, sp.Position, ErrBlockedSpawn)
	}

	var controls *system.Controls
	if sp.Controller == world.ControllerHuman {
		scheme, err := input.Lookup(sp.Binding)
		if err != nil {
			return 0, fmt.Errorf("spawn %q: %w", sp.Name, err)
		}
		controls = &system.Controls{Scheme: scheme, Keys: input.NewKeyState()}
	}

	id, err := s.state.Spawn(sp)
	if err != nil {
		return 0, err
	}
	s.comps.SetIntent(id, movement.Idle)
	switch sp.Controller {
	case world.ControllerHuman:
		s.comps.Controls.Set(id, controls)
	case world.ControllerAI:
		mind := ai.NewMind(sp.Position)
		s.comps.Minds.Set(id, &mind)
	}

	s.spawns = append(s.spawns, sp)
	s.state.LinkTargets(s.spawns)
	event.Emit(s.bus, event.CharacterSpawned{EntityID: id, Name: sp.Name})
	return id, nil
}

// Despawn queues a character for removal at the end of the next tick.
func (s *Simulation) Despawn(name string) error {
	id, ok := s.state.Lookup(name)
	if !ok || !s.state.Despawn(id) {
		return fmt.Errorf("%w %q", ErrUnknownCharacter, name)
	}
	for i, sp := range s.spawns {
		if sp.Name == name {
			s.spawns = append(s.spawns[:i], s.spawns[i+1:]...)
			break
		}
	}
	return nil
}

// Tick advances the simulation by dt. A non-positive dt is a logged no-op.
func (s *Simulation) Tick(dt time.Duration) bool {
	return s.runner.Tick(dt)
}

// Step is Tick for a delta in seconds. NaN, infinite and non-positive deltas
// are no-ops.
func (s *Simulation) Step(seconds float64) bool {
	if !(seconds > 0) || math.IsInf(seconds, 1) {
		s.log.Debug("skipping step with invalid delta", zap.Float64("dt", seconds))
		return false
	}
	return s.Tick(time.Duration(seconds * float64(time.Second)))
}

func (s *Simulation) SetAIActive(active bool) { s.aiSys.SetActive(active) }

func (s *Simulation) AIActive() bool { return s.aiSys.Active() }

// SetKey presses or releases a key for a key-controlled character.
func (s *Simulation) SetKey(name, code string, down bool) error {
	id, ok := s.state.Lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownCharacter, name)
	}
	c, ok := s.comps.Controls.Get(id)
	if !ok {
		return fmt.Errorf("%q: %w", name, ErrNotHuman)
	}
	c.Keys.Set(code, down)
	return nil
}

// SetIntent overrides a character's intent for the coming tick. Key-bound
// characters recompute theirs from held keys in the input phase and AI
// characters in the think phase, so this only sticks for characters no
// system drives.
func (s *Simulation) SetIntent(name string, in movement.Intent) error {
	id, ok := s.state.Lookup(name)
	if !ok {
		return fmt.Errorf("%w %q", ErrUnknownCharacter, name)
	}
	s.comps.SetIntent(id, in.Clamped())
	return nil
}

// Transform returns a character's resolved pose.
func (s *Simulation) Transform(name string) (world.Transform, bool) {
	id, ok := s.state.Lookup(name)
	if !ok {
		return world.Transform{}, false
	}
	return s.state.Transform(id)
}

// Intent returns the intent a character will move with on the next tick.
func (s *Simulation) Intent(name string) (movement.Intent, bool) {
	id, ok := s.state.Lookup(name)
	if !ok {
		return movement.Idle, false
	}
	return s.comps.Intent(id), true
}

// AIState reports the chase state of an AI character.
func (s *Simulation) AIState(name string) (ai.Kind, bool) {
	id, ok := s.state.Lookup(name)
	if !ok {
		return 0, false
	}
	m, ok := s.comps.Minds.Get(id)
	if !ok {
		return 0, false
	}
	return m.State.Kind(), true
}

// Snapshot describes every character as the last tick left them.
func (s *Simulation) Snapshot() net.SnapshotMessage { return s.broadcast.Snapshot() }

func (s *Simulation) State() *world.State { return s.state }

func (s *Simulation) Bus() *event.Bus { return s.bus }

func (s *Simulation) Clock() system.Clock { return *s.clock }

func (s *Simulation) Resolver() *movement.Resolver { return s.resolver }

// Sessions is the number of connected clients.
func (s *Simulation) Sessions() int { return s.sessions.Count() }
