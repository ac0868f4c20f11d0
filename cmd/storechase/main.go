package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-gl/mathgl/mgl64"
	"github.com/storechase/server/internal/ai"
	"github.com/storechase/server/internal/config"
	"github.com/storechase/server/internal/data"
	"github.com/storechase/server/internal/movement"
	gonet "github.com/storechase/server/internal/net"
	"github.com/storechase/server/internal/persist"
	"github.com/storechase/server/internal/scripting"
	"github.com/storechase/server/internal/sim"
	"github.com/storechase/server/internal/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

// ── Startup display helpers ────────────────────────────────────────

func printBanner(serverName, level string) {
	fmt.Println()
	fmt.Println("\033[36;1m  ┌───────────────────────────────────────────┐\033[0m")
	fmt.Println("\033[36;1m  │\033[0m            storechase  v0.1.0             \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  │\033[0m       store chase · simulation server     \033[36;1m│\033[0m")
	fmt.Println("\033[36;1m  └───────────────────────────────────────────┘\033[0m")
	fmt.Println()
	fmt.Printf("  \033[1mserver:\033[0m %s \033[90m(level: %s)\033[0m\n\n", serverName, level)
}

func printSection(title string) {
	lineLen := max(46-len(title)-1, 3)
	fmt.Printf("  \033[33m── %s %s\033[0m\n", title, strings.Repeat("─", lineLen))
}

func printStat(label string, count int) {
	numStr := fmt.Sprintf("%d", count)
	dotsLen := max(42-len(label)-len(numStr), 3)
	fmt.Printf("  %s \033[90m%s\033[0m \033[32m%s\033[0m\n", label, strings.Repeat("·", dotsLen), numStr)
}

func printOK(msg string) {
	fmt.Printf("  \033[32m✓\033[0m %s\n", msg)
}

func printReady(msg string) {
	fmt.Printf("  \033[32m▶\033[0m %s\n", msg)
}

// ── Main server logic ─────────────────────────────────────────────

func run() error {
	// 1. Load config
	cfg, err := config.Load(config.Path())
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}

	// 2. Init logger
	log, err := newLogger(cfg.Logging)
	if err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer log.Sync()

	printBanner(cfg.Server.Name, cfg.Level.Path)

	// 3. Load the level
	printSection("level")
	level, err := data.LoadLevel(cfg.Level.Path)
	if err != nil {
		return fmt.Errorf("load level: %w", err)
	}
	printStat("obstacles", level.Count())
	printStat("spawns", len(level.Spawns()))

	// 4. Lua drivers
	luaEngine, err := scripting.NewEngine(cfg.Scripting.Dir, log)
	if err != nil {
		return fmt.Errorf("lua engine: %w", err)
	}
	defer luaEngine.Close()
	printOK("lua drivers loaded")
	fmt.Println()

	seed := cfg.AI.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	// 5. Trace sink
	printSection("trace")
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	sink, closeDB, err := openTraceSink(ctx, cfg, level.Name(), seed, log)
	if err != nil {
		return err
	}
	defer closeDB()

	var recorder *trace.Recorder
	if sink != nil {
		recorder = trace.NewRecorder(sink, cfg.Trace.BatchSize, 8, log)
		defer recorder.Close()
		printOK(fmt.Sprintf("recording every %d ticks to %s", cfg.Trace.EveryTicks, cfg.Trace.Sink))
	} else {
		printOK("tracing off")
	}
	fmt.Println()

	// 6. Network gateway
	opts := sim.DefaultOptions()
	opts.Movement = movementParams(cfg.Movement)
	opts.AI = aiParams(cfg.AI)
	opts.AIActive = cfg.AI.Active
	opts.Seed = seed
	opts.Driver = luaEngine
	opts.SnapshotEvery = cfg.Network.SnapshotEvery
	if recorder != nil {
		opts.Recorder = recorder
		opts.TraceEvery = cfg.Trace.EveryTicks
	}

	var netServer *gonet.Server
	if cfg.Network.Enabled {
		netServer, err = gonet.NewServer(cfg.Network.BindAddress, gonet.SessionOptions{
			InQueueSize:  cfg.Network.InQueueSize,
			OutQueueSize: cfg.Network.OutQueueSize,
			ReadTimeout:  cfg.Network.ReadTimeout,
			WriteTimeout: cfg.Network.WriteTimeout,
		}, log)
		if err != nil {
			return fmt.Errorf("net server: %w", err)
		}
		go netServer.AcceptLoop()
		opts.Sessions = netServer
	}

	// 7. Build the simulation
	simulation, err := sim.New(level, opts, log)
	if err != nil {
		return fmt.Errorf("simulation: %w", err)
	}

	// 8. Start the tick loop
	shutdownCh := make(chan os.Signal, 1)
	signal.Notify(shutdownCh, syscall.SIGINT, syscall.SIGTERM)

	ticker := time.NewTicker(cfg.Server.TickRate)
	defer ticker.Stop()

	printSection("ready")
	if netServer != nil {
		printReady(fmt.Sprintf("listening on ws://%s%s", netServer.Addr().String(), gonet.Path))
	}
	printReady(fmt.Sprintf("tick loop started (tick: %s, seed: %d)", cfg.Server.TickRate, seed))
	fmt.Println()

	for {
		select {
		case <-ticker.C:
			simulation.Tick(cfg.Server.TickRate)
		case sig := <-shutdownCh:
			log.Info("shutdown signal received", zap.String("signal", sig.String()))
			if netServer != nil {
				netServer.Shutdown()
			}
			if recorder != nil {
				if err := recorder.Close(); err != nil {
					log.Error("close trace recorder", zap.Error(err))
				}
				if recorder.Dropped() > 0 {
					log.Warn("trace samples dropped", zap.Uint64("count", recorder.Dropped()))
				}
			}
			log.Info("server stopped", zap.Uint64("ticks", simulation.Clock().Tick))
			return nil
		}
	}
}

// openTraceSink opens the configured sink. The returned close func releases
// the database pool when the postgres sink is used; it is never nil.
func openTraceSink(ctx context.Context, cfg *config.Config, level string, seed int64, log *zap.Logger) (trace.Sink, func(), error) {
	noop := func() {}
	switch cfg.Trace.Sink {
	case "file":
		if err := os.MkdirAll(cfg.Trace.Dir, 0o755); err != nil {
			return nil, noop, fmt.Errorf("create trace dir: %w", err)
		}
		return trace.NewFileSink(cfg.Trace.Dir, level), noop, nil
	case "postgres":
		db, err := persist.NewDB(ctx, cfg.Database, log)
		if err != nil {
			return nil, noop, fmt.Errorf("database: %w", err)
		}
		printOK("PostgreSQL connected")

		version, err := persist.RunMigrations(ctx, db.Pool)
		if err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("migrations: %w", err)
		}
		printStat("schema version", int(version))

		sink, err := persist.NewTraceSink(ctx, persist.NewTraceRepo(db), level, seed)
		if err != nil {
			db.Close()
			return nil, noop, fmt.Errorf("start trace run: %w", err)
		}
		printStat("trace run", int(sink.RunID()))
		return sink, db.Close, nil
	}
	return nil, noop, nil
}

func movementParams(c config.MovementConfig) movement.Params {
	return movement.Params{
		BaseSpeed:         c.BaseSpeed,
		SprintMultiplier:  c.SprintMultiplier,
		ProbeExtent:       mgl64.Vec3(c.ProbeSize),
		ProbeLift:         c.ProbeLift,
		SeparationEpsilon: c.SeparationEpsilon,
		TurnSmoothing:     c.TurnSmoothing,
		NormalizeDiagonal: c.NormalizeDiagonal,
		IdleBobAmplitude:  c.IdleBobAmplitude,
		IdleBobFrequency:  c.IdleBobFrequency,
		WalkBobAmplitude:  c.WalkBobAmplitude,
		WalkBobFrequency:  c.WalkBobFrequency,
	}
}

func aiParams(c config.AIConfig) ai.Params {
	return ai.Params{
		StuckThreshold:  c.StuckThreshold,
		StuckDuration:   c.StuckDuration,
		UnstickDuration: c.UnstickDuration,
		StopDistance:    c.StopDistance,
		SprintDistance:  c.SprintDistance,
	}
}

func newLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapCfg.EncoderConfig.EncodeTime = zapcore.TimeEncoderOfLayout("15:04:05")
		zapCfg.EncoderConfig.ConsoleSeparator = "  "
		zapCfg.DisableCaller = true
		zapCfg.DisableStacktrace = true
	}
	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
