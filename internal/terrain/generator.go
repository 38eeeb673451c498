package terrain

import (
	"rts-terrain/internal/noise"

	"github.com/go-gl/mathgl/mgl32"
)

// HeightmapGenerator fills a chunk's grid. Implementations must be pure:
// identical inputs give bit-identical output, and concurrent calls with
// distinct dst slices must be safe.
type HeightmapGenerator interface {
	// GenerateInto writes verticesPerLine² heights into dst. centre is the chunk
	// origin in grid units (world position divided by the mesh scale).
	GenerateInto(dst []float32, verticesPerLine int, centre mgl32.Vec2)
}

// NoiseGenerator produces heights from layered octave noise.
type NoiseGenerator struct {
	field      *noise.Field
	multiplier float32
}

// NewNoiseGenerator validates p and builds the noise field once.
func NewNoiseGenerator(p noise.Params, kind noise.BasisKind, heightMultiplier float32) *NoiseGenerator {
	return &NoiseGenerator{
		field:      noise.NewField(p, kind),
		multiplier: heightMultiplier,
	}
}

// Field exposes the noise field backing the generator.
func (g *NoiseGenerator) Field() *noise.Field { return g.field }

func (g *NoiseGenerator) GenerateInto(dst []float32, verticesPerLine int, centre mgl32.Vec2) {
	fillHeights(dst, verticesPerLine, verticesPerLine, g.multiplier, centre, g.field)
}

// GenerateHeightmap is the standalone form of the generator: it evaluates value
// noise for a width×height grid centred on centre and scales it by
// heightMultiplier.
func GenerateHeightmap(width, height int, heightMultiplier float32, centre mgl32.Vec2, p noise.Params) []float32 {
	out := make([]float32, width*height)
	fillHeights(out, width, height, heightMultiplier, centre, noise.NewField(p, noise.BasisValue))
	return out
}

// fillHeights samples the field on the integer lattice of world grid units so
// that border vertices of adjacent chunks land on exactly the same points.
func fillHeights(dst []float32, width, height int, multiplier float32, centre mgl32.Vec2, field *noise.Field) {
	halfW := float64(width-1) / 2
	halfH := float64(height-1) / 2
	cx := float64(centre[0])
	cy := float64(centre[1])
	for y := 0; y < height; y++ {
		sy := cy + halfH - float64(y)
		row := dst[y*width : (y+1)*width]
		for x := range row {
			sx := cx + float64(x) - halfW
			row[x] = float32(field.At(sx, sy)) * multiplier
		}
	}
}

// FlatGenerator produces a constant height everywhere.
type FlatGenerator struct {
	Height float32
}

func (g FlatGenerator) GenerateInto(dst []float32, verticesPerLine int, centre mgl32.Vec2) {
	for i := range dst[:verticesPerLine*verticesPerLine] {
		dst[i] = g.Height
	}
}

// FuncGenerator evaluates a function per grid vertex.
type FuncGenerator func(x, y int, centre mgl32.Vec2) float32

func (f FuncGenerator) GenerateInto(dst []float32, verticesPerLine int, centre mgl32.Vec2) {
	for y := 0; y < verticesPerLine; y++ {
		for x := 0; x < verticesPerLine; x++ {
			dst[y*verticesPerLine+x] = f(x, y, centre)
		}
	}
}
