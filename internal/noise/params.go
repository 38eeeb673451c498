package noise

import (
	"math"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	// MinScale is the smallest scale Validated keeps; anything at or below zero is raised to it.
	MinScale float32 = 0.0001
	// MaxOctaves bounds the per-sample cost of a Field.
	MaxOctaves int32 = 16
)

// Params describes a layered (octave) noise function.
// Treat a value returned by Validated as immutable.
type Params struct {
	Scale       float32
	Octaves     int32
	Persistence float32
	Lacunarity  float32
	Seed        int32
	Offset      mgl32.Vec2
}

// DefaultParams returns the parameters used when configuration omits them.
func DefaultParams() Params {
	return Params{
		Scale:       50,
		Octaves:     6,
		Persistence: 0.5,
		Lacunarity:  2,
		Seed:        0,
	}
}

// Validated returns a copy with every degenerate field clamped to the nearest
// valid value. It never fails: configuration errors are corrected here so that
// generation has no error path.
func (p Params) Validated() Params {
	def := DefaultParams()

	if isNaN32(p.Scale) {
		p.Scale = def.Scale
	}
	if p.Scale < MinScale {
		p.Scale = MinScale
	}

	if p.Octaves < 1 {
		p.Octaves = 1
	}
	if p.Octaves > MaxOctaves {
		p.Octaves = MaxOctaves
	}

	if isNaN32(p.Persistence) {
		p.Persistence = def.Persistence
	}
	p.Persistence = mgl32.Clamp(p.Persistence, 0, 1)

	if isNaN32(p.Lacunarity) {
		p.Lacunarity = def.Lacunarity
	}
	if p.Lacunarity < 1 {
		p.Lacunarity = 1
	}

	if isNaN32(p.Offset[0]) {
		p.Offset[0] = 0
	}
	if isNaN32(p.Offset[1]) {
		p.Offset[1] = 0
	}
	return p
}

// Valid reports whether Validated would leave p unchanged.
func (p Params) Valid() bool {
	return p == p.Validated()
}

func isNaN32(v float32) bool {
	return math.IsNaN(float64(v))
}
