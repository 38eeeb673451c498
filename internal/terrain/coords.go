package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrOutOfBounds is wrapped by every BoundsError.
var ErrOutOfBounds = errors.New("terrain: grid coordinate out of bounds")

// gridSnap absorbs float32 rounding when a world offset lands on a grid line.
const gridSnap = 1e-4

// ChunkCoord identifies a chunk. It is the key for all per-chunk data.
type ChunkCoord struct {
	X, Y int
}

// Neighbors returns the four axis-adjacent chunks.
func (c ChunkCoord) Neighbors() [4]ChunkCoord {
	return [4]ChunkCoord{
		{X: c.X - 1, Y: c.Y},
		{X: c.X + 1, Y: c.Y},
		{X: c.X, Y: c.Y - 1},
		{X: c.X, Y: c.Y + 1},
	}
}

func (c ChunkCoord) String() string {
	return fmt.Sprintf("(%d,%d)", c.X, c.Y)
}

// GridCoord indexes a vertex of a chunk's heightfield. X grows east, Y grows
// south (downward in the grid) starting from the top-left border vertex.
type GridCoord struct {
	X, Y int
}

// BoundsError reports a grid index outside [0, VerticesPerLine). It always
// indicates a mapper/caller mismatch.
type BoundsError struct {
	Op    string
	Coord GridCoord
	Size  int
}

func (e *BoundsError) Error() string {
	return fmt.Sprintf("terrain: %s: grid coordinate (%d,%d) outside [0,%d)", e.Op, e.Coord.X, e.Coord.Y, e.Size)
}

func (e *BoundsError) Unwrap() error { return ErrOutOfBounds }

// Mapper converts between world space, chunk coordinates and grid coordinates.
//
// A chunk's heightfield has VerticesPerLine vertices per side. Index 0 and
// VerticesPerLine-1 are border vertices outside the chunk's mesh, kept so that
// interpolation and normals work across seams. The mesh therefore spans
// VerticesPerLine-3 cells and the chunk origin sits at the centre of that span.
//
// World space is 2D with y pointing north. Sampled points are lifted to 3D as
// (x, height, y).
type Mapper struct {
	VerticesPerLine int
	MeshScale       float32
}

// NewMapper returns a mapper for the given resolution and cell size.
func NewMapper(verticesPerLine int, meshScale float32) Mapper {
	return Mapper{VerticesPerLine: verticesPerLine, MeshScale: meshScale}
}

// MeshWorldSize is the world span of one chunk, excluding border vertices.
func (m Mapper) MeshWorldSize() float32 {
	return float32(m.VerticesPerLine-3) * m.MeshScale
}

// DataPointWorldSize is the world distance between adjacent grid vertices.
func (m Mapper) DataPointWorldSize() float32 {
	return m.MeshWorldSize() / float32(m.VerticesPerLine-3)
}

// ChunkToWorld returns the world-space origin (centre) of a chunk.
func (m Mapper) ChunkToWorld(c ChunkCoord) mgl32.Vec2 {
	s := m.MeshWorldSize()
	return mgl32.Vec2{float32(c.X) * s, float32(c.Y) * s}
}

// GridCentre returns the chunk origin in noise grid units, the centre passed
// to a HeightmapGenerator. Adjacent chunks share their seam vertices exactly.
func (m Mapper) GridCentre(c ChunkCoord) mgl32.Vec2 {
	cells := float32(m.VerticesPerLine - 3)
	return mgl32.Vec2{float32(c.X) * cells, float32(c.Y) * cells}
}

// WorldToChunk returns the chunk whose origin is nearest to pos. It is meant
// for sampling rather than exact containment: a caller sampling a point that
// sits exactly on a seam should offset it by half a grid cell first.
func (m Mapper) WorldToChunk(pos mgl32.Vec2) ChunkCoord {
	s := float64(m.MeshWorldSize())
	return ChunkCoord{
		X: int(math.Round(float64(pos[0]) / s)),
		Y: int(math.Round(float64(pos[1]) / s)),
	}
}

// InRange reports whether g indexes an existing vertex.
func (m Mapper) InRange(g GridCoord) bool {
	return g.X >= 0 && g.X < m.VerticesPerLine && g.Y >= 0 && g.Y < m.VerticesPerLine
}

// DataToWorld returns the chunk-relative world offset of grid vertex g.
func (m Mapper) DataToWorld(g GridCoord) (mgl32.Vec2, error) {
	if !m.InRange(g) {
		return mgl32.Vec2{}, &BoundsError{Op: "DataToWorld", Coord: g, Size: m.VerticesPerLine}
	}
	dp := m.DataPointWorldSize()
	half := m.MeshWorldSize() / 2
	return mgl32.Vec2{
		float32(float32(g.X-1)*dp) - half,
		half - float32(float32(g.Y-1)*dp),
	}, nil
}

// WorldToDataF maps a chunk-relative world offset to continuous grid
// coordinates. It does no range checking.
func (m Mapper) WorldToDataF(rel mgl32.Vec2) mgl32.Vec2 {
	dp := m.DataPointWorldSize()
	half := m.MeshWorldSize() / 2
	return mgl32.Vec2{
		(rel[0]+half)/dp + 1,
		(half-rel[1])/dp + 1,
	}
}

// WorldToData returns the grid vertex at the top-left corner of the cell that
// contains the chunk-relative offset rel.
func (m Mapper) WorldToData(rel mgl32.Vec2) (GridCoord, error) {
	f := m.WorldToDataF(rel)
	g := GridCoord{X: snapFloor(f[0]), Y: snapFloor(f[1])}
	if !m.InRange(g) {
		return g, &BoundsError{Op: "WorldToData", Coord: g, Size: m.VerticesPerLine}
	}
	return g, nil
}

func snapFloor(v float32) int {
	return int(math.Floor(float64(v) + gridSnap))
}
