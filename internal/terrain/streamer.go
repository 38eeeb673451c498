package terrain

import (
	"context"
	"fmt"
	"io"
	"log"
	"sync"
	"time"

	"rts-terrain/internal/entity"
	"rts-terrain/internal/parallel"
	"rts-terrain/internal/profiling"

	"github.com/go-gl/mathgl/mgl32"
)

// ChunkState is the lifecycle position of a chunk coordinate.
type ChunkState int

const (
	Absent ChunkState = iota
	Pending
	Cached
)

func (s ChunkState) String() string {
	switch s {
	case Pending:
		return "pending"
	case Cached:
		return "cached"
	default:
		return "absent"
	}
}

// StreamerOptions wires a Streamer to its collaborators. Mapper and Generator
// are required; everything else has a default.
type StreamerOptions struct {
	Mapper    Mapper
	Generator HeightmapGenerator

	// Scatterer and Spawner together enable feature placement. Either nil
	// disables it.
	Scatterer *Scatterer
	Spawner   entity.Spawner

	// Executor runs per-chunk generation. Defaults to a GOMAXPROCS-bounded
	// parallel.Group.
	Executor parallel.Executor
	// Store defaults to an empty store.
	Store *Store

	Logger   *log.Logger
	Profiler *profiling.Recorder
}

// TickStats summarises one ProcessTick call.
type TickStats struct {
	Tick        uint64
	Generated   int
	Features    int
	SpawnErrors int
	Elapsed     time.Duration
}

// Streamer generates chunks on demand and answers height queries.
//
// Chunk coordinates move Absent -> Pending -> Cached. TrySample never blocks:
// a miss queues the chunk and reports unavailable. ProcessTick generates every
// queued chunk in parallel and publishes the whole batch at once, so a chunk
// queued before a tick becomes sampleable once that tick returns.
type Streamer struct {
	mapper  Mapper
	sampler Sampler
	gen     HeightmapGenerator
	scatter *Scatterer
	spawner entity.Spawner
	exec    parallel.Executor
	store   *Store
	logger  *log.Logger
	prof    *profiling.Recorder

	// queue keeps insertion order; pending is the membership set. A coordinate
	// stays in pending until its batch is published.
	pendingMu sync.Mutex
	queue     []ChunkCoord
	pending   map[ChunkCoord]struct{}

	// tickMu serialises ProcessTick and guards the fields below.
	tickMu    sync.Mutex
	tick      uint64
	scattered map[ChunkCoord]struct{}
}

// NewStreamer creates a streamer. It panics if Mapper or Generator is missing.
func NewStreamer(opts StreamerOptions) *Streamer {
	if opts.Generator == nil {
		panic("terrain: StreamerOptions.Generator is required")
	}
	if opts.Mapper.VerticesPerLine < 4 || opts.Mapper.MeshScale <= 0 {
		panic(fmt.Sprintf("terrain: invalid mapper %+v", opts.Mapper))
	}
	s := &Streamer{
		mapper:    opts.Mapper,
		sampler:   NewSampler(opts.Mapper),
		gen:       opts.Generator,
		scatter:   opts.Scatterer,
		spawner:   opts.Spawner,
		exec:      opts.Executor,
		store:     opts.Store,
		logger:    opts.Logger,
		prof:      opts.Profiler,
		pending:   make(map[ChunkCoord]struct{}),
		scattered: make(map[ChunkCoord]struct{}),
	}
	if s.exec == nil {
		s.exec = parallel.NewGroup(0)
	}
	if s.store == nil {
		s.store = NewStore()
	}
	if s.logger == nil {
		s.logger = log.New(io.Discard, "", 0)
	}
	return s
}

// Mapper returns the coordinate mapper shared by generation and sampling.
func (s *Streamer) Mapper() Mapper { return s.mapper }

// Store returns the backing cache.
func (s *Streamer) Store() *Store { return s.store }

// TrySample returns the height and normal at pos if its chunk is cached. On a
// miss the chunk is queued for generation, together with its four neighbours
// when includeNeighbors is set, and ok is false. TrySample never blocks on
// generation and is safe for concurrent use.
func (s *Streamer) TrySample(pos mgl32.Vec2, includeNeighbors bool) (SampleResult, bool) {
	defer s.prof.Track("terrain.TrySample")()
	c := s.mapper.WorldToChunk(pos)
	if hf, cached := s.store.Get(c); cached {
		res, err := s.sampler.Sample(pos, c, hf)
		if err != nil {
			// The chunk was chosen by the same mapper; an error here means the
			// mapper and the cached data disagree.
			panic(err)
		}
		return res, true
	}

	s.Request(c)
	if includeNeighbors {
		for _, n := range c.Neighbors() {
			s.Request(n)
		}
	}
	return SampleResult{}, false
}

// Request queues c for generation unless it is already pending or cached. It
// reports whether c was newly queued.
func (s *Streamer) Request(c ChunkCoord) bool {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if _, ok := s.pending[c]; ok {
		return false
	}
	if s.store.Has(c) {
		return false
	}
	s.pending[c] = struct{}{}
	s.queue = append(s.queue, c)
	return true
}

// State reports where c is in its lifecycle.
func (s *Streamer) State(c ChunkCoord) ChunkState {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	if _, ok := s.pending[c]; ok {
		return Pending
	}
	if s.store.Has(c) {
		return Cached
	}
	return Absent
}

// Pending returns the number of coordinates waiting for generation, including
// a batch currently being generated.
func (s *Streamer) Pending() int {
	s.pendingMu.Lock()
	defer s.pendingMu.Unlock()
	return len(s.pending)
}

// Heightfield returns the cached heightfield for c.
func (s *Streamer) Heightfield(c ChunkCoord) (*Heightfield, bool) {
	return s.store.Get(c)
}

// ProcessTick generates every queued chunk, places features on chunks seen for
// the first time and publishes the batch. It is a no-op when nothing is queued.
//
// Generation runs on the executor, one task per chunk, each writing only its
// own pre-allocated buffer; the tick waits for all of them before publishing.
// If ctx is cancelled before publish the batch is returned to the front of the
// queue and the context error is reported.
func (s *Streamer) ProcessTick(ctx context.Context) (TickStats, error) {
	defer s.prof.Track("terrain.ProcessTick")()
	s.tickMu.Lock()
	defer s.tickMu.Unlock()

	s.tick++
	stats := TickStats{Tick: s.tick}

	s.pendingMu.Lock()
	batch := s.queue
	s.queue = nil
	s.pendingMu.Unlock()
	if len(batch) == 0 {
		return stats, nil
	}

	start := time.Now()
	vpl := s.mapper.VerticesPerLine
	bufs := make([][]float32, len(batch))
	for i := range bufs {
		bufs[i] = make([]float32, vpl*vpl)
	}
	results := make([]*Heightfield, len(batch))

	placeFeatures := s.scatter != nil && s.spawner != nil
	needScatter := make([]bool, len(batch))
	if placeFeatures {
		for i, c := range batch {
			_, done := s.scattered[c]
			needScatter[i] = !done
		}
	}
	placements := make([][]Feature, len(batch))

	err := s.exec.ForEach(ctx, len(batch), func(ctx context.Context, i int) error {
		s.gen.GenerateInto(bufs[i], vpl, s.mapper.GridCentre(batch[i]))
		results[i] = NewHeightfield(vpl, bufs[i])
		if needScatter[i] {
			placements[i] = s.scatter.Scatter(batch[i], results[i])
		}
		return nil
	})
	if err == nil {
		err = ctx.Err()
	}
	if err != nil {
		s.pendingMu.Lock()
		s.queue = append(batch, s.queue...)
		s.pendingMu.Unlock()
		return stats, fmt.Errorf("terrain: tick %d: %w", s.tick, err)
	}

	if placeFeatures {
		stats.Features, stats.SpawnErrors = s.spawnFeatures(batch, needScatter, placements)
	}

	s.pendingMu.Lock()
	stats.Generated = s.store.AddBatch(batch, results)
	for _, c := range batch {
		delete(s.pending, c)
	}
	s.pendingMu.Unlock()

	stats.Elapsed = time.Since(start)
	s.logger.Printf("tick %d: generated %d chunks, %d features in %s", stats.Tick, stats.Generated, stats.Features, stats.Elapsed)
	return stats, nil
}

// spawnFeatures hands placements to the spawner in queue order. A failing
// spawner is logged and skipped so terrain publication is never held back.
func (s *Streamer) spawnFeatures(batch []ChunkCoord, needScatter []bool, placements [][]Feature) (spawned, failed int) {
	defer s.prof.Track("terrain.SpawnFeatures")()
	for i, c := range batch {
		if !needScatter[i] {
			continue
		}
		s.scattered[c] = struct{}{}
		for _, f := range placements[i] {
			d := entity.Descriptor{
				Kind:   f.Kind,
				Chunk:  [2]int{c.X, c.Y},
				Params: entity.FeatureParams,
			}
			if _, err := s.spawner.Spawn(d, f.Position, f.Orientation()); err != nil {
				s.logger.Printf("spawn %s in chunk %s: %v", f.Kind, c, err)
				failed++
				continue
			}
			spawned++
		}
	}
	return spawned, failed
}

// EvictFarChunks drops cached chunks farther than radius chunks from pos.
// Evicted chunks regenerate identically when sampled again; their features are
// not spawned a second time.
func (s *Streamer) EvictFarChunks(pos mgl32.Vec2, radius int) int {
	defer s.prof.Track("terrain.EvictFarChunks")()
	removed := s.store.EvictFarChunks(s.mapper.WorldToChunk(pos), radius)
	if len(removed) > 0 {
		s.logger.Printf("evicted %d chunks beyond radius %d", len(removed), radius)
	}
	return len(removed)
}
