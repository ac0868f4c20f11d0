package config

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	ErrTraceSink    = errors.New("unknown trace sink")
	ErrTraceNeedsDB = errors.New("postgres trace sink requires database.enabled")
	ErrLogFormat    = errors.New("unknown logging format")
	ErrLevelPath    = errors.New("level.path is empty")
)

func clampInt(v, minV, maxV int) int {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func clampFloat(v, minV, maxV float64) float64 {
	if math.IsNaN(v) {
		return minV
	}
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

func clampDuration(v, minV, maxV time.Duration) time.Duration {
	if v < minV {
		return minV
	}
	if v > maxV {
		return maxV
	}
	return v
}

// Validate clamps tunables into safe ranges in place and rejects values that
// cannot be clamped into meaning.
func (c *Config) Validate() error {
	c.Server.TickRate = clampDuration(c.Server.TickRate, time.Millisecond, time.Second)

	m := &c.Movement
	m.BaseSpeed = clampFloat(m.BaseSpeed, 0.1, 100)
	m.SprintMultiplier = clampFloat(m.SprintMultiplier, 1, 5)
	for i := range m.ProbeSize {
		m.ProbeSize[i] = clampFloat(m.ProbeSize[i], 0, 20)
	}
	m.ProbeLift = clampFloat(m.ProbeLift, 0, 20)
	m.SeparationEpsilon = clampFloat(m.SeparationEpsilon, 0, 1)
	m.TurnSmoothing = clampFloat(m.TurnSmoothing, 0.01, 1)
	m.IdleBobAmplitude = clampFloat(m.IdleBobAmplitude, 0, 1)
	m.IdleBobFrequency = clampFloat(m.IdleBobFrequency, 0, 100)
	m.WalkBobAmplitude = clampFloat(m.WalkBobAmplitude, 0, 1)
	m.WalkBobFrequency = clampFloat(m.WalkBobFrequency, 0, 100)

	a := &c.AI
	a.StuckThreshold = clampFloat(a.StuckThreshold, 0, 10)
	a.StuckDuration = clampFloat(a.StuckDuration, 0.01, 60)
	a.UnstickDuration = clampFloat(a.UnstickDuration, 0.01, 60)
	a.StopDistance = clampFloat(a.StopDistance, 0, 1000)
	a.SprintDistance = clampFloat(a.SprintDistance, a.StopDistance, 1000)

	if c.Level.Path == "" {
		return ErrLevelPath
	}

	n := &c.Network
	n.InQueueSize = clampInt(n.InQueueSize, 1, 4096)
	n.OutQueueSize = clampInt(n.OutQueueSize, 1, 4096)
	n.SnapshotEvery = clampInt(n.SnapshotEvery, 1, 600)

	d := &c.Database
	d.MaxOpenConns = clampInt(d.MaxOpenConns, 1, 64)
	d.MaxIdleConns = clampInt(d.MaxIdleConns, 0, d.MaxOpenConns)

	t := &c.Trace
	t.EveryTicks = clampInt(t.EveryTicks, 1, 10000)
	t.BatchSize = clampInt(t.BatchSize, 1, 100000)
	switch t.Sink {
	case "", "none":
		t.Sink = "none"
	case "file":
	case "postgres":
		if !d.Enabled {
			return ErrTraceNeedsDB
		}
	default:
		return fmt.Errorf("%w %q", ErrTraceSink, t.Sink)
	}

	switch c.Logging.Format {
	case "json", "console":
	default:
		return fmt.Errorf("%w %q", ErrLogFormat, c.Logging.Format)
	}
	return nil
}
