package terrain

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"rts-terrain/internal/entity"
	"rts-terrain/internal/noise"
	"rts-terrain/internal/parallel"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// rampGenerator produces height x + 10y at every chunk and counts how many
// chunks it generated.
func rampGenerator(count *atomic.Int64) FuncGenerator {
	return func(x, y int, _ mgl32.Vec2) float32 {
		if x == 0 && y == 0 && count != nil {
			count.Add(1)
		}
		return float32(x + 10*y)
	}
}

func TestStreamerUnavailableThenAvailable(t *testing.T) {
	s := NewStreamer(StreamerOptions{
		Mapper:    NewMapper(5, 10),
		Generator: rampGenerator(nil),
	})
	pos := mgl32.Vec2{-5, 5}

	_, ok := s.TrySample(pos, false)
	require.False(t, ok)
	assert.Equal(t, Pending, s.State(ChunkCoord{}))
	assert.Equal(t, 1, s.Pending())

	stats, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Generated)
	assert.Equal(t, uint64(1), stats.Tick)
	assert.Equal(t, Cached, s.State(ChunkCoord{}))
	assert.Equal(t, 0, s.Pending())

	res, ok := s.TrySample(pos, false)
	require.True(t, ok)
	assert.InDelta(t, 16.5, res.Height, 1e-4)
	assert.InDelta(t, 1, res.Normal.Len(), 1e-5)
}

func TestStreamerEmptyTickIsNoop(t *testing.T) {
	s := NewStreamer(StreamerOptions{Mapper: NewMapper(5, 10), Generator: FlatGenerator{}})
	stats, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Generated)
	assert.Equal(t, 0, s.Store().Len())
}

func TestStreamerDeduplicatesRequests(t *testing.T) {
	var generated atomic.Int64
	s := NewStreamer(StreamerOptions{
		Mapper:    NewMapper(5, 10),
		Generator: rampGenerator(&generated),
	})

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, ok := s.TrySample(mgl32.Vec2{1, 1}, false)
			assert.False(t, ok)
		}()
	}
	wg.Wait()
	assert.Equal(t, 1, s.Pending())
	assert.False(t, s.Request(ChunkCoord{}))

	_, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, int64(1), generated.Load())

	assert.False(t, s.Request(ChunkCoord{}), "cached chunks are not requeued")
	stats, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, stats.Generated)
	assert.Equal(t, int64(1), generated.Load())
}

func TestStreamerPrefetchesNeighbors(t *testing.T) {
	s := NewStreamer(StreamerOptions{Mapper: NewMapper(5, 10), Generator: FlatGenerator{Height: 1}})

	_, ok := s.TrySample(mgl32.Vec2{}, true)
	require.False(t, ok)
	assert.Equal(t, 5, s.Pending())
	for _, n := range (ChunkCoord{}).Neighbors() {
		assert.Equal(t, Pending, s.State(n), "neighbour %v", n)
	}

	stats, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 5, stats.Generated)
	assert.Equal(t, []ChunkCoord{{-1, 0}, {0, -1}, {0, 0}, {0, 1}, {1, 0}}, s.Store().Keys())

	// A hit does not prefetch.
	_, ok = s.TrySample(mgl32.Vec2{}, true)
	require.True(t, ok)
	assert.Equal(t, 0, s.Pending())
}

// TestStreamerRequestDuringTick verifies a chunk queued while a tick is
// generating waits for the next tick, and an in-flight chunk is not requeued.
func TestStreamerRequestDuringTick(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	var once sync.Once
	gen := FuncGenerator(func(x, y int, centre mgl32.Vec2) float32 {
		if x == 0 && y == 0 && centre == (mgl32.Vec2{}) {
			once.Do(func() { close(started) })
			<-release
		}
		return 0
	})
	s := NewStreamer(StreamerOptions{Mapper: NewMapper(5, 10), Generator: gen})
	require.True(t, s.Request(ChunkCoord{}))

	done := make(chan TickStats, 1)
	go func() {
		stats, err := s.ProcessTick(context.Background())
		assert.NoError(t, err)
		done <- stats
	}()

	select {
	case <-started:
	case <-time.After(5 * time.Second):
		t.Fatal("generation never started")
	}

	_, ok := s.TrySample(mgl32.Vec2{}, false)
	assert.False(t, ok)
	assert.Equal(t, Pending, s.State(ChunkCoord{}))
	assert.True(t, s.Request(ChunkCoord{X: 4, Y: 4}))
	assert.Equal(t, 2, s.Pending())
	close(release)

	stats := <-done
	assert.Equal(t, 1, stats.Generated)
	assert.Equal(t, Cached, s.State(ChunkCoord{}))
	assert.Equal(t, Pending, s.State(ChunkCoord{X: 4, Y: 4}))

	stats, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Generated)
	assert.Equal(t, Cached, s.State(ChunkCoord{X: 4, Y: 4}))
}

func TestStreamerCancelledTickKeepsQueue(t *testing.T) {
	s := NewStreamer(StreamerOptions{Mapper: NewMapper(5, 10), Generator: FlatGenerator{}})
	s.Request(ChunkCoord{X: 1})
	s.Request(ChunkCoord{X: 2})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := s.ProcessTick(ctx)
	require.Error(t, err)
	assert.True(t, errors.Is(err, context.Canceled))
	assert.Equal(t, 2, s.Pending())
	assert.Equal(t, 0, s.Store().Len())

	stats, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, stats.Generated)
}

func TestStreamerWithPool(t *testing.T) {
	pool := parallel.NewPool(4, 16)
	defer pool.Shutdown()

	s := NewStreamer(StreamerOptions{
		Mapper:    NewMapper(9, 1),
		Generator: NewNoiseGenerator(noise.DefaultParams(), noise.BasisSimplex, 10),
		Executor:  pool,
	})
	for x := -3; x <= 3; x++ {
		for y := -3; y <= 3; y++ {
			s.Request(ChunkCoord{X: x, Y: y})
		}
	}
	stats, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 49, stats.Generated)
}

// TestStreamerDeterministic verifies two engines with the same configuration
// publish bit-identical heightfields regardless of request order.
func TestStreamerDeterministic(t *testing.T) {
	build := func(order []ChunkCoord) *Streamer {
		s := NewStreamer(StreamerOptions{
			Mapper:    NewMapper(17, 1),
			Generator: NewNoiseGenerator(noise.Params{Scale: 13, Octaves: 4, Persistence: 0.5, Lacunarity: 2, Seed: 77}, noise.BasisPerlin, 25),
			Executor:  parallel.NewGroup(3),
		})
		for _, c := range order {
			s.Request(c)
		}
		_, err := s.ProcessTick(context.Background())
		require.NoError(t, err)
		return s
	}
	order := []ChunkCoord{{0, 0}, {1, 0}, {0, 1}, {-1, -1}, {5, -3}}
	reversed := []ChunkCoord{{5, -3}, {-1, -1}, {0, 1}, {1, 0}, {0, 0}}
	a, b := build(order), build(reversed)
	for _, c := range order {
		ha, _ := a.Heightfield(c)
		hb, _ := b.Heightfield(c)
		require.NotNil(t, ha)
		require.NotNil(t, hb)
		assert.Equal(t, ha.Checksum(), hb.Checksum(), "chunk %v", c)
	}
}

func TestStreamerSpawnsFeaturesOnce(t *testing.T) {
	m := NewMapper(9, 2)
	reg := entity.NewRegistry()
	s := NewStreamer(StreamerOptions{
		Mapper:    m,
		Generator: NewNoiseGenerator(noise.DefaultParams(), noise.BasisValue, 20),
		Scatterer: NewScatterer(m, nil, SeedLegacy),
		Spawner:   reg,
	})
	c := ChunkCoord{X: 3, Y: -2}
	s.Request(c)
	stats, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	require.GreaterOrEqual(t, stats.Features, 1)
	require.LessOrEqual(t, stats.Features, 7)
	assert.Equal(t, stats.Features, reg.Len())

	spawned := reg.InChunk(c.X, c.Y)
	require.Len(t, spawned, stats.Features)
	for _, e := range spawned {
		assert.Equal(t, DefaultFeatureKind, e.Descriptor.Kind)
		assert.Equal(t, entity.FeatureParams, e.Descriptor.Params)
	}

	first, _ := s.Heightfield(c)
	far := m.ChunkToWorld(ChunkCoord{X: 100, Y: 100})
	assert.Equal(t, 1, s.EvictFarChunks(far, 1))
	assert.Equal(t, Absent, s.State(c))

	s.Request(c)
	stats, err = s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Generated)
	assert.Equal(t, 0, stats.Features, "regenerated chunks do not spawn again")
	assert.Equal(t, len(spawned), reg.Len())

	second, _ := s.Heightfield(c)
	assert.Equal(t, first.Checksum(), second.Checksum())
}

func TestStreamerSpawnErrorsDoNotBlockPublish(t *testing.T) {
	m := NewMapper(9, 2)
	failing := entity.SpawnFunc(func(entity.Descriptor, mgl32.Vec3, mgl32.Quat) (uuid.UUID, error) {
		return uuid.Nil, errors.New("spawner offline")
	})
	s := NewStreamer(StreamerOptions{
		Mapper:    m,
		Generator: FlatGenerator{Height: 4},
		Scatterer: NewScatterer(m, nil, SeedLegacy),
		Spawner:   failing,
	})
	s.Request(ChunkCoord{})
	stats, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, stats.Generated)
	assert.Equal(t, 0, stats.Features)
	assert.GreaterOrEqual(t, stats.SpawnErrors, 1)
	assert.Equal(t, Cached, s.State(ChunkCoord{}))
}

// TestStreamerConcurrentReaders hammers TrySample from several goroutines
// while ticks run; every requested chunk must end up cached exactly once.
func TestStreamerConcurrentReaders(t *testing.T) {
	var generated atomic.Int64
	s := NewStreamer(StreamerOptions{
		Mapper:    NewMapper(5, 10),
		Generator: rampGenerator(&generated),
	})

	stop := make(chan struct{})
	var ticks sync.WaitGroup
	ticks.Add(1)
	go func() {
		defer ticks.Done()
		for {
			select {
			case <-stop:
				return
			default:
			}
			_, err := s.ProcessTick(context.Background())
			assert.NoError(t, err)
		}
	}()

	var readers sync.WaitGroup
	for r := 0; r < 8; r++ {
		readers.Add(1)
		go func() {
			defer readers.Done()
			for i := 0; i < 200; i++ {
				x := float32((i*7+r*13)%100) - 50
				y := float32((i*11+r*5)%100) - 50
				if res, ok := s.TrySample(mgl32.Vec2{x, y}, true); ok {
					assert.Greater(t, res.Normal.Y(), float32(0))
				}
			}
		}()
	}
	readers.Wait()
	close(stop)
	ticks.Wait()

	_, err := s.ProcessTick(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 0, s.Pending())
	assert.Equal(t, int64(s.Store().Len()), generated.Load())
}

func TestNewStreamerPanicsWithoutGenerator(t *testing.T) {
	assert.Panics(t, func() { NewStreamer(StreamerOptions{Mapper: NewMapper(5, 1)}) })
	assert.Panics(t, func() { NewStreamer(StreamerOptions{Mapper: NewMapper(3, 1), Generator: FlatGenerator{}}) })
}

func BenchmarkProcessTick(b *testing.B) {
	gen := NewNoiseGenerator(noise.DefaultParams(), noise.BasisValue, 30)
	b.ReportAllocs()
	for i := 0; i < b.N; i++ {
		s := NewStreamer(StreamerOptions{Mapper: NewMapper(65, 1), Generator: gen})
		for x := -2; x <= 2; x++ {
			for y := -2; y <= 2; y++ {
				s.Request(ChunkCoord{X: x, Y: y})
			}
		}
		if _, err := s.ProcessTick(context.Background()); err != nil {
			b.Fatal(err)
		}
	}
}
