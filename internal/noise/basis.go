package noise

import (
	"fmt"

	"github.com/aquilax/go-perlin"
	"github.com/ojrac/opensimplex-go"
)

// Basis is a single-octave 2D noise source with output in [0,1].
// Implementations must be safe for concurrent Eval2 calls.
type Basis interface {
	Eval2(x, y float64) float64
}

// BasisKind selects the single-octave noise a Field layers.
type BasisKind string

const (
	BasisValue   BasisKind = "value"
	BasisPerlin  BasisKind = "perlin"
	BasisSimplex BasisKind = "simplex"
)

// ParseBasisKind maps a configuration string to a BasisKind. The empty string
// selects value noise.
func ParseBasisKind(s string) (BasisKind, error) {
	switch BasisKind(s) {
	case "", BasisValue:
		return BasisValue, nil
	case BasisPerlin:
		return BasisPerlin, nil
	case BasisSimplex:
		return BasisSimplex, nil
	default:
		return "", fmt.Errorf("unknown noise basis %q", s)
	}
}

// NewBasis builds a basis of the given kind for one seed. Unknown kinds fall
// back to value noise.
func NewBasis(kind BasisKind, seed int64) Basis {
	switch kind {
	case BasisPerlin:
		// One octave: layering is done by Field so every basis sees the same
		// persistence/lacunarity schedule.
		return perlinBasis{p: perlin.NewPerlin(2, 2, 1, seed)}
	case BasisSimplex:
		return simplexBasis{n: opensimplex.NewNormalized(seed)}
	default:
		return valueBasis{seed: seed}
	}
}

type perlinBasis struct {
	p *perlin.Perlin
}

func (b perlinBasis) Eval2(x, y float64) float64 {
	v := (b.p.Noise2D(x, y) + 1) * 0.5
	if v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}

type simplexBasis struct {
	n opensimplex.Noise
}

func (b simplexBasis) Eval2(x, y float64) float64 {
	return b.n.Eval2(x, y)
}
