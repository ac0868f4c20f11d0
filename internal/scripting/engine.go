package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/storechase/server/internal/movement"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
)

// Engine wraps a single gopher-lua VM running driver scripts.
// Single-goroutine access only (game loop).
type Engine struct {
	vm     *lua.LState
	log    *zap.Logger
	memory map[string]*lua.LTable // per-character scratch tables
}

// NewEngine creates a Lua engine and loads every .lua file in dir. A missing
// directory yields an engine with no drivers.
func NewEngine(dir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, log: log, memory: make(map[string]*lua.LTable)}
	if err := e.loadDir(dir); err != nil {
		vm.Close()
		return nil, fmt.Errorf("load driver scripts: %w", err)
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// LoadString runs a chunk of Lua source in the engine.
func (e *Engine) LoadString(src string) error {
	return e.vm.DoString(src)
}

// Has reports whether a global function named fn exists.
func (e *Engine) Has(fn string) bool {
	_, ok := e.vm.GetGlobal(fn).(*lua.LFunction)
	return ok
}

// Point is a planar position plus height.
type Point struct {
	X, Y, Z float64
}

// DriveContext is what a driver function sees each tick.
type DriveContext struct {
	Name      string
	Tick      uint64
	Elapsed   float64 // seconds since the simulation started
	Dt        float64
	Self      Point
	Yaw       float64
	Target    Point
	HasTarget bool
}

// Drive calls the global Lua function fn with a context table and converts
// its {x, z, sprint} result into an intent. ok is false when the function is
// missing or fails; the caller should then keep the previous intent.
//
// The context table carries a "memory" field that persists across calls for
// the same character name.
func (e *Engine) Drive(fn string, ctx DriveContext) (movement.Intent, bool) {
	f := e.vm.GetGlobal(fn)
	if f == lua.LNil {
		e.log.Error("lua driver not found", zap.String("func", fn))
		return movement.Idle, false
	}

	t := e.vm.NewTable()
	t.RawSetString("name", lua.LString(ctx.Name))
	t.RawSetString("tick", lua.LNumber(ctx.Tick))
	t.RawSetString("elapsed", lua.LNumber(ctx.Elapsed))
	t.RawSetString("dt", lua.LNumber(ctx.Dt))

	self := e.vm.NewTable()
	self.RawSetString("x", lua.LNumber(ctx.Self.X))
	self.RawSetString("y", lua.LNumber(ctx.Self.Y))
	self.RawSetString("z", lua.LNumber(ctx.Self.Z))
	self.RawSetString("yaw", lua.LNumber(ctx.Yaw))
	t.RawSetString("self", self)

	if ctx.HasTarget {
		tgt := e.vm.NewTable()
		tgt.RawSetString("x", lua.LNumber(ctx.Target.X))
		tgt.RawSetString("y", lua.LNumber(ctx.Target.Y))
		tgt.RawSetString("z", lua.LNumber(ctx.Target.Z))
		t.RawSetString("target", tgt)
	}

	mem, ok := e.memory[ctx.Name]
	if !ok {
		mem = e.vm.NewTable()
		e.memory[ctx.Name] = mem
	}
	t.RawSetString("memory", mem)

	if err := e.vm.CallByParam(lua.P{
		Fn:      f,
		NRet:    1,
		Protect: true,
	}, t); err != nil {
		e.log.Error("lua driver error", zap.String("func", fn), zap.Error(err))
		return movement.Idle, false
	}

	result := e.vm.Get(-1)
	e.vm.Pop(1)

	if result == lua.LNil {
		return movement.Idle, true
	}
	rt, ok := result.(*lua.LTable)
	if !ok {
		e.log.Error("lua driver returned non-table", zap.String("func", fn))
		return movement.Idle, false
	}

	in := movement.Intent{
		X:      float64(lua.LVAsNumber(rt.RawGetString("x"))),
		Z:      float64(lua.LVAsNumber(rt.RawGetString("z"))),
		Sprint: lua.LVAsBool(rt.RawGetString("sprint")),
	}
	return in.Clamped(), true
}

// Forget drops the scratch table kept for a character.
func (e *Engine) Forget(name string) {
	delete(e.memory, name)
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
