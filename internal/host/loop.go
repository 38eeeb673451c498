package host

import (
	"context"
	"errors"
	"io"
	"log"
	"time"

	"rts-terrain/internal/physics"
	"rts-terrain/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

// Probe is a point walking across the map at constant velocity, standing in
// for a unit that queries the terrain under it every tick.
type Probe struct {
	Position mgl32.Vec2
	Velocity mgl32.Vec2
	// Altitude above the terrain the probe casts its downward ray from.
	Altitude float32
}

// Advance moves the probe by dt seconds.
func (p *Probe) Advance(dt float64) {
	p.Position = p.Position.Add(p.Velocity.Mul(float32(dt)))
}

// TickReport is what one loop iteration observed.
type TickReport struct {
	Stats   terrain.TickStats
	Sampled bool
	Sample  terrain.SampleResult
	Ray     physics.RaycastResult
	Evicted int
}

// Loop drives an Engine at its configured tick rate.
type Loop struct {
	engine   *Engine
	probe    *Probe
	limiter  *TickLimiter
	logger   *log.Logger
	logEvery int

	ticks    int
	lastTime time.Time
}

// NewLoop creates a loop. logEvery is the number of ticks between profiling
// summaries; <= 0 disables them.
func NewLoop(e *Engine, probe *Probe, logger *log.Logger, logEvery int) *Loop {
	if logger == nil {
		logger = log.New(io.Discard, "", 0)
	}
	return &Loop{
		engine:   e,
		probe:    probe,
		limiter:  NewTickLimiter(e.Settings.TickHz),
		logger:   logger,
		logEvery: logEvery,
	}
}

// Run ticks until ctx is done. A cancelled context is not an error.
func (l *Loop) Run(ctx context.Context) error {
	l.lastTime = time.Now()
	for {
		if _, err := l.Tick(ctx); err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				return nil
			}
			return err
		}
		if err := l.limiter.Wait(ctx); err != nil {
			return nil
		}
	}
}

// Tick runs one iteration: generate queued chunks, move the probe, query the
// terrain under it and evict chunks it has left behind.
func (l *Loop) Tick(ctx context.Context) (TickReport, error) {
	prof := l.engine.Profiler
	s := l.engine.Streamer
	cfg := l.engine.Settings

	prof.ResetTick()
	now := time.Now()
	dt := l.limiter.Interval().Seconds()
	if !l.lastTime.IsZero() {
		dt = now.Sub(l.lastTime).Seconds()
	}
	l.lastTime = now

	var rep TickReport
	stats, err := s.ProcessTick(ctx)
	if err != nil {
		return rep, err
	}
	rep.Stats = stats

	if l.probe != nil {
		func() { defer prof.Track("host.Probe")(); l.probe.Advance(dt) }()
		rep.Sample, rep.Sampled = s.TrySample(l.probe.Position, cfg.PrefetchNeighbors)

		start := mgl32.Vec3{l.probe.Position[0], l.probe.Altitude, l.probe.Position[1]}
		if rep.Sampled {
			start[1] += rep.Sample.Height
		}
		func() {
			defer prof.Track("physics.Raycast")()
			rep.Ray = physics.Raycast(s, start, mgl32.Vec3{0, -1, 0}, physics.MinReachDistance, physics.MaxReachDistance)
		}()

		if cfg.EvictRadius > 0 {
			rep.Evicted = s.EvictFarChunks(l.probe.Position, cfg.EvictRadius)
		}
	}

	l.ticks++
	if l.logEvery > 0 && l.ticks%l.logEvery == 0 {
		l.logger.Printf("tick %d: cached=%d pending=%d top=[%s]", stats.Tick, s.Store().Len(), s.Pending(), prof.TopN(5))
	}
	return rep, nil
}
