package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"math"
	"os"
	"os/signal"
	"syscall"
	"time"

	"rts-terrain/internal/config"
	"rts-terrain/internal/entity"
	"rts-terrain/internal/host"
	"rts-terrain/internal/ledger"

	"github.com/go-gl/mathgl/mgl32"
)

type runOptions struct {
	configPath string
	ledgerPath string
	duration   time.Duration
	speed      float64
	heading    float64
	altitude   float64
	logEvery   int
}

func main() {
	var opts runOptions
	flag.StringVar(&opts.configPath, "config", "", "path to settings yaml (empty uses defaults)")
	flag.StringVar(&opts.ledgerPath, "ledger", "", "sqlite feature ledger path (empty keeps features in memory)")
	flag.DurationVar(&opts.duration, "duration", 0, "stop after this long (0 runs until interrupted)")
	flag.Float64Var(&opts.speed, "probe_speed", 40, "probe speed in world units per second")
	flag.Float64Var(&opts.heading, "probe_heading", 30, "probe heading in degrees from east")
	flag.Float64Var(&opts.altitude, "probe_altitude", 50, "probe ray origin above the terrain")
	flag.IntVar(&opts.logEvery, "log_every", 100, "ticks between profiling summaries")
	flag.Parse()

	logger := log.New(os.Stdout, "[terrain] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := signalContext()
	err := run(ctx, opts, logger)
	cancel()
	if err != nil {
		logger.Fatalf("%v", err)
	}
}

// run streams terrain until ctx ends or the duration elapses. Everything it
// opens is closed before it returns.
func run(ctx context.Context, opts runOptions, logger *log.Logger) error {
	settings := config.Defaults().Normalize()
	if opts.configPath != "" {
		s, err := config.Load(opts.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		settings = s
	}

	var spawner entity.Spawner
	if opts.ledgerPath != "" {
		led, err := ledger.Open(opts.ledgerPath)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer led.Close()
		spawner = led
	}

	engine, err := host.NewEngine(settings, spawner, logger)
	if err != nil {
		return fmt.Errorf("build engine: %w", err)
	}
	defer engine.Close()

	rad := float64(mgl32.DegToRad(float32(opts.heading)))
	probe := &host.Probe{
		Velocity: mgl32.Vec2{float32(math.Cos(rad)), float32(math.Sin(rad))}.Mul(float32(opts.speed)),
		Altitude: float32(opts.altitude),
	}

	if opts.duration > 0 {
		var stop context.CancelFunc
		ctx, stop = context.WithTimeout(ctx, opts.duration)
		defer stop()
	}

	logger.Printf("streaming: vpl=%d mesh_scale=%g basis=%s executor=%s tick_hz=%d evict_radius=%d",
		settings.VerticesPerLine, settings.MeshScale, settings.Basis, settings.Executor, settings.TickHz, settings.EvictRadius)
	start := time.Now()
	loop := host.NewLoop(engine, probe, logger, opts.logEvery)
	if err := loop.Run(ctx); err != nil {
		return fmt.Errorf("run: %w", err)
	}
	logger.Printf("stopped after %s: %d chunks cached, probe at %v", time.Since(start).Round(time.Millisecond), engine.Streamer.Store().Len(), probe.Position)
	return nil
}

func signalContext() (context.Context, context.CancelFunc) {
	ctx, cancel := context.WithCancel(context.Background())
	ch := make(chan os.Signal, 2)
	signal.Notify(ch, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-ch:
			cancel()
		case <-ctx.Done():
		}
		signal.Stop(ch)
	}()
	return ctx, cancel
}
