package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"rts-terrain/internal/bake"
	"rts-terrain/internal/config"
	"rts-terrain/internal/ledger"
	"rts-terrain/internal/profiling"
	"rts-terrain/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

type runOptions struct {
	configPath string
	region     bake.Region
	dumpPath   string
	ledgerPath string
	verifyPath string
}

func main() {
	var (
		opts             runOptions
		minX, minY       float64
		maxX, maxY, step float64
	)
	flag.StringVar(&opts.configPath, "config", "", "path to settings yaml (empty uses defaults)")
	flag.Float64Var(&minX, "min_x", -128, "region west edge")
	flag.Float64Var(&minY, "min_y", -128, "region south edge")
	flag.Float64Var(&maxX, "max_x", 128, "region east edge")
	flag.Float64Var(&maxY, "max_y", 128, "region north edge")
	flag.Float64Var(&step, "step", 1, "sample spacing in world units")
	flag.StringVar(&opts.dumpPath, "dump", "", "write generated chunks to this zstd dump")
	flag.StringVar(&opts.ledgerPath, "ledger", "", "scatter features into this sqlite ledger")
	flag.StringVar(&opts.verifyPath, "verify", "", "regenerate the chunks in this dump and compare")
	flag.Parse()
	opts.region = bake.Region{
		Min:  mgl32.Vec2{float32(minX), float32(minY)},
		Max:  mgl32.Vec2{float32(maxX), float32(maxY)},
		Step: float32(step),
	}

	logger := log.New(os.Stdout, "[bake] ", log.LstdFlags|log.Lmicroseconds)

	ctx, cancel := signalContext()
	err := run(ctx, opts, logger)
	cancel()
	if err != nil {
		logger.Fatalf("%v", err)
	}
}

// run bakes or verifies according to opts. Everything it opens is closed
// before it returns.
func run(ctx context.Context, opts runOptions, logger *log.Logger) error {
	settings := config.Defaults().Normalize()
	if opts.configPath != "" {
		s, err := config.Load(opts.configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		settings = s
	}
	gen, err := settings.Generator()
	if err != nil {
		return fmt.Errorf("generator: %w", err)
	}

	if opts.verifyPath != "" {
		return verify(opts.verifyPath, settings, gen, logger)
	}

	scatter, err := settings.Scatterer()
	if err != nil {
		return fmt.Errorf("scatterer: %w", err)
	}
	prof := profiling.NewRecorder()
	baker := bake.New(bake.Options{
		Mapper:    settings.Mapper(),
		Generator: gen,
		Scatterer: scatter,
		Workers:   settings.Workers,
		Logger:    logger,
		Profiler:  prof,
	})

	start := time.Now()
	raster, err := baker.SampleRegion(ctx, opts.region)
	if err != nil {
		return fmt.Errorf("sample region: %w", err)
	}
	lo, hi := raster.Heights[0], raster.Heights[0]
	for _, h := range raster.Heights {
		lo, hi = min(lo, h), max(hi, h)
	}
	logger.Printf("baked %dx%d samples from %d chunks in %s, height %.2f..%.2f",
		raster.Cols, raster.Rows, baker.Generated(), time.Since(start).Round(time.Millisecond), lo, hi)

	if opts.dumpPath != "" {
		if err := writeDump(opts.dumpPath, baker.Chunks()); err != nil {
			return fmt.Errorf("write dump: %w", err)
		}
		logger.Printf("wrote %s", opts.dumpPath)
	}

	if opts.ledgerPath != "" {
		led, err := ledger.Open(opts.ledgerPath)
		if err != nil {
			return fmt.Errorf("open ledger: %w", err)
		}
		defer led.Close()
		n, err := baker.Scatter(ctx, led)
		if err != nil {
			return fmt.Errorf("scatter: %w", err)
		}
		logger.Printf("recorded %d features in %s", n, opts.ledgerPath)
	}
	logger.Printf("profile: %s", prof.TopN(5))
	return nil
}

func verify(path string, settings config.Settings, gen terrain.HeightmapGenerator, logger *log.Logger) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open dump: %w", err)
	}
	entries, err := bake.ReadDump(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("read dump: %w", err)
	}
	if err := bake.Verify(entries, settings.Mapper(), gen); err != nil {
		return fmt.Errorf("verify: %w", err)
	}
	logger.Printf("verified %d chunks in %s", len(entries), path)
	return nil
}

func writeDump(path string, entries []bake.Entry) error {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if err := bake.WriteDump(f, entries); err != nil {
		f.Close()
		return err
	}
	return f.Close()
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
