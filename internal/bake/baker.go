package bake

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log"
	"math"
	"runtime"
	"sort"
	"sync/atomic"

	"rts-terrain/internal/dedup"
	"rts-terrain/internal/entity"
	"rts-terrain/internal/profiling"
	"rts-terrain/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
	"golang.org/x/sync/errgroup"
)

// ErrBadRegion is returned for an empty or degenerate region.
var ErrBadRegion = errors.New("bake: invalid region")

// Region is an axis-aligned world rectangle sampled every Step units,
// inclusive of Min and of Max when it falls on the step grid.
type Region struct {
	Min, Max mgl32.Vec2
	Step     float32
}

// Size returns the number of sample columns and rows.
func (r Region) Size() (cols, rows int) {
	cols = int(math.Floor(float64((r.Max[0]-r.Min[0])/r.Step))) + 1
	rows = int(math.Floor(float64((r.Max[1]-r.Min[1])/r.Step))) + 1
	return cols, rows
}

// Point returns the world position of sample (col, row).
func (r Region) Point(col, row int) mgl32.Vec2 {
	return mgl32.Vec2{r.Min[0] + float32(float32(col)*r.Step), r.Min[1] + float32(float32(row)*r.Step)}
}

func (r Region) validate() error {
	if !(r.Step > 0) || math.IsInf(float64(r.Step), 0) {
		return fmt.Errorf("%w: step %v", ErrBadRegion, r.Step)
	}
	if !(r.Max[0] >= r.Min[0]) || !(r.Max[1] >= r.Min[1]) {
		return fmt.Errorf("%w: min %v max %v", ErrBadRegion, r.Min, r.Max)
	}
	return nil
}

// Raster holds the samples of a region in row-major order.
type Raster struct {
	Region  Region
	Cols    int
	Rows    int
	Heights []float32
	Normals []mgl32.Vec3
}

// At returns sample (col, row).
func (r *Raster) At(col, row int) terrain.SampleResult {
	i := row*r.Cols + col
	return terrain.SampleResult{Height: r.Heights[i], Normal: r.Normals[i]}
}

// Options configures a Baker. Mapper and Generator are required.
type Options struct {
	Mapper    terrain.Mapper
	Generator terrain.HeightmapGenerator
	// Scatterer enables Scatter. Nil disables it.
	Scatterer *terrain.Scatterer
	// Workers bounds concurrent sampling rows; < 1 means GOMAXPROCS.
	Workers  int
	Logger   *log.Logger
	Profiler *profiling.Recorder
}

// Baker generates chunks synchronously on demand. Every chunk is generated at
// most once for the Baker's lifetime however many samplers ask for it
// concurrently.
type Baker struct {
	mapper    terrain.Mapper
	sampler   terrain.Sampler
	gen       terrain.HeightmapGenerator
	scatter   *terrain.Scatterer
	workers   int
	logger    *log.Logger
	prof      *profiling.Recorder
	chunks    *dedup.Memo[terrain.ChunkCoord, *terrain.Heightfield]
	generated atomic.Int64
}

// New creates a Baker. It panics if Generator is nil.
func New(opts Options) *Baker {
	if opts.Generator == nil {
		panic("bake: Options.Generator is required")
	}
	b := &Baker{
		mapper:  opts.Mapper,
		sampler: terrain.NewSampler(opts.Mapper),
		gen:     opts.Generator,
		scatter: opts.Scatterer,
		workers: opts.Workers,
		logger:  opts.Logger,
		prof:    opts.Profiler,
		chunks:  dedup.NewMemo[terrain.ChunkCoord, *terrain.Heightfield](),
	}
	if b.workers < 1 {
		b.workers = runtime.GOMAXPROCS(0)
	}
	if b.logger == nil {
		b.logger = log.New(io.Discard, "", 0)
	}
	return b
}

// Mapper returns the baker's coordinate mapper.
func (b *Baker) Mapper() terrain.Mapper { return b.mapper }

// Generated returns how many chunks have been generated so far.
func (b *Baker) Generated() int { return int(b.generated.Load()) }

// Heightfield returns the heightfield for c, generating it if needed.
func (b *Baker) Heightfield(ctx context.Context, c terrain.ChunkCoord) (*terrain.Heightfield, error) {
	return b.chunks.Get(ctx, c, func(context.Context) (*terrain.Heightfield, error) {
		defer b.prof.Track("bake.Generate")()
		vpl := b.mapper.VerticesPerLine
		buf := make([]float32, vpl*vpl)
		b.gen.GenerateInto(buf, vpl, b.mapper.GridCentre(c))
		b.generated.Add(1)
		return terrain.NewHeightfield(vpl, buf), nil
	})
}

// Sample returns the height and normal at pos.
func (b *Baker) Sample(ctx context.Context, pos mgl32.Vec2) (terrain.SampleResult, error) {
	c := b.mapper.WorldToChunk(pos)
	hf, err := b.Heightfield(ctx, c)
	if err != nil {
		return terrain.SampleResult{}, err
	}
	return b.sampler.Sample(pos, c, hf)
}

// SampleRegion samples every point of r. Rows are sampled concurrently.
func (b *Baker) SampleRegion(ctx context.Context, r Region) (*Raster, error) {
	defer b.prof.Track("bake.SampleRegion")()
	if err := r.validate(); err != nil {
		return nil, err
	}
	cols, rows := r.Size()
	out := &Raster{
		Region:  r,
		Cols:    cols,
		Rows:    rows,
		Heights: make([]float32, cols*rows),
		Normals: make([]mgl32.Vec3, cols*rows),
	}

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for row := 0; row < rows; row++ {
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			for col := 0; col < cols; col++ {
				res, err := b.Sample(ctx, r.Point(col, row))
				if err != nil {
					return fmt.Errorf("bake: sample (%d,%d): %w", col, row, err)
				}
				i := row*cols + col
				out.Heights[i] = res.Height
				out.Normals[i] = res.Normal
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	b.logger.Printf("sampled %dx%d region, %d chunks generated", cols, rows, b.Generated())
	return out, nil
}

// Chunks returns every generated chunk ordered by (Y, X).
func (b *Baker) Chunks() []Entry {
	keys := b.chunks.Keys()
	sortCoords(keys)
	out := make([]Entry, 0, len(keys))
	for _, c := range keys {
		if hf, ok := b.chunks.Peek(c); ok {
			out = append(out, Entry{Coord: c, Heightfield: hf})
		}
	}
	return out
}

// Scatter places features on every generated chunk, in Chunks order, and
// hands them to sp. It returns the number of features spawned.
func (b *Baker) Scatter(ctx context.Context, sp entity.Spawner) (int, error) {
	if b.scatter == nil {
		return 0, nil
	}
	defer b.prof.Track("bake.Scatter")()
	n := 0
	for _, e := range b.Chunks() {
		if err := ctx.Err(); err != nil {
			return n, err
		}
		for _, f := range b.scatter.Scatter(e.Coord, e.Heightfield) {
			d := entity.Descriptor{
				Kind:   f.Kind,
				Chunk:  [2]int{e.Coord.X, e.Coord.Y},
				Params: entity.FeatureParams,
			}
			if _, err := sp.Spawn(d, f.Position, f.Orientation()); err != nil {
				return n, fmt.Errorf("bake: spawn in chunk %s: %w", e.Coord, err)
			}
			n++
		}
	}
	return n, nil
}

func sortCoords(cs []terrain.ChunkCoord) {
	sort.Slice(cs, func(i, j int) bool {
		if cs[i].Y != cs[j].Y {
			return cs[i].Y < cs[j].Y
		}
		return cs[i].X < cs[j].X
	})
}
