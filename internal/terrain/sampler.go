package terrain

import (
	"errors"
	"fmt"
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

// ErrResolutionMismatch is returned when a heightfield does not have the
// resolution the sampler's mapper expects.
var ErrResolutionMismatch = errors.New("terrain: heightfield resolution does not match mapper")

// Up is the normal of flat ground.
var Up = mgl32.Vec3{0, 1, 0}

// SampleResult is an interpolated height and unit surface normal.
type SampleResult struct {
	Height float32
	Normal mgl32.Vec3
}

// Sampler interpolates heights and normals from a chunk's heightfield.
//
// Each grid cell is split into two triangles along the diagonal from its
// top-left to its bottom-right vertex. The mesh builder must triangulate cells
// the same way or rendered and gameplay heights disagree.
type Sampler struct {
	mapper Mapper
}

func NewSampler(m Mapper) Sampler {
	return Sampler{mapper: m}
}

// Sample returns the height and normal at worldPos using chunk's heightfield hf.
func (s Sampler) Sample(worldPos mgl32.Vec2, chunk ChunkCoord, hf *Heightfield) (SampleResult, error) {
	vpl := s.mapper.VerticesPerLine
	if hf.VerticesPerLine() != vpl {
		return SampleResult{}, fmt.Errorf("%w: got %d want %d", ErrResolutionMismatch, hf.VerticesPerLine(), vpl)
	}

	rel := worldPos.Sub(s.mapper.ChunkToWorld(chunk))
	g, err := s.mapper.WorldToData(rel)
	if err != nil {
		return SampleResult{}, err
	}

	h00 := hf.At(g.X, g.Y)
	if g.X == vpl-1 || g.Y == vpl-1 {
		// No cell to the right or below: nothing to interpolate against.
		return SampleResult{Height: h00, Normal: Up}, nil
	}
	h10 := hf.At(g.X+1, g.Y)
	h01 := hf.At(g.X, g.Y+1)
	h11 := hf.At(g.X+1, g.Y+1)

	f := s.mapper.WorldToDataF(rel)
	dx := mgl32.Clamp(f[0]-float32(g.X), 0, 1)
	dz := mgl32.Clamp(f[1]-float32(g.Y), 0, 1)
	return interpolateCell(h00, h10, h01, h11, dx, dz, s.mapper.DataPointWorldSize()), nil
}

// interpolateCell blends the triangle containing (dx, dz). dx grows east and dz
// grows south within the cell; cell is the world size of one cell edge.
//
// Products are converted to float32 before they are summed so no FMA can be
// formed: sampled heights and normals must agree bit for bit on every
// architecture.
func interpolateCell(h00, h10, h01, h11, dx, dz, cell float32) SampleResult {
	var height float32
	var e1, e2 mgl32.Vec3
	if dz < dx {
		// (h00, h10, h11)
		height = h00 + float32(dx*(h10-h00)) + float32(dz*(h11-h10))
		e1 = mgl32.Vec3{cell, h10 - h00, 0}
		e2 = mgl32.Vec3{cell, h11 - h00, -cell}
	} else {
		// (h00, h11, h01)
		height = h00 + float32(dz*(h01-h00)) + float32(dx*(h11-h01))
		e1 = mgl32.Vec3{cell, h11 - h00, -cell}
		e2 = mgl32.Vec3{0, h01 - h00, -cell}
	}
	return SampleResult{Height: height, Normal: unitCross(e1, e2)}
}

// unitCross is a.Cross(b).Normalize() with every product rounded on its own.
func unitCross(a, b mgl32.Vec3) mgl32.Vec3 {
	n := mgl32.Vec3{
		float32(a[1]*b[2]) - float32(a[2]*b[1]),
		float32(a[2]*b[0]) - float32(a[0]*b[2]),
		float32(a[0]*b[1]) - float32(a[1]*b[0]),
	}
	sq := float32(n[0]*n[0]) + float32(n[1]*n[1]) + float32(n[2]*n[2])
	l := float32(math.Sqrt(float64(sq)))
	return mgl32.Vec3{n[0] / l, n[1] / l, n[2] / l}
}
