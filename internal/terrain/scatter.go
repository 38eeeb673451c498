package terrain

import (
	"fmt"
	"math"
	"math/rand/v2"

	"rts-terrain/internal/noise"

	"github.com/go-gl/mathgl/mgl32"
)

// SeedMode selects how a chunk coordinate becomes a feature PRNG seed.
type SeedMode string

const (
	// SeedLegacy seeds with |x|+|y|. Distinct chunks such as (3,0), (0,3) and
	// (2,-1) share a layout; kept because existing worlds depend on it.
	SeedLegacy SeedMode = "legacy"
	// SeedHash2D seeds with a full 2D hash of the coordinate. Changes every
	// feature layout relative to SeedLegacy.
	SeedHash2D SeedMode = "hash2d"
)

// ParseSeedMode maps a configuration string to a SeedMode. The empty string
// selects SeedLegacy.
func ParseSeedMode(s string) (SeedMode, error) {
	switch SeedMode(s) {
	case "", SeedLegacy:
		return SeedLegacy, nil
	case SeedHash2D:
		return SeedHash2D, nil
	default:
		return "", fmt.Errorf("unknown feature seed mode %q", s)
	}
}

const (
	// DefaultFeatureKind is used when no kinds are configured.
	DefaultFeatureKind = "resource_deposit"

	minFeatures = 1
	maxFeatures = 8 // exclusive
)

// Feature is a point feature placed on the terrain surface.
type Feature struct {
	Kind     string
	Chunk    ChunkCoord
	Position mgl32.Vec3
	Normal   mgl32.Vec3
}

// Orientation rotates +Y onto the feature's normal. It is the half-angle
// quaternion (1+n.y, n.z, 0, -n.x) normalised, computed with explicitly rounded
// products so every participant stores the same rotation.
func (f Feature) Orientation() mgl32.Quat {
	n := f.Normal
	w := 1 + n[1]
	if w < 1e-6 {
		// Upside down: half a turn about X.
		return mgl32.Quat{W: 0, V: mgl32.Vec3{1, 0, 0}}
	}
	sq := float32(w*w) + float32(n[2]*n[2]) + float32(n[0]*n[0])
	l := float32(math.Sqrt(float64(sq)))
	return mgl32.Quat{W: w / l, V: mgl32.Vec3{n[2] / l, 0, -n[0] / l}}
}

// Scatterer places a small deterministic set of features on a freshly
// generated chunk. The output depends only on the chunk coordinate, the
// heightfield and the scatterer's configuration.
type Scatterer struct {
	mapper  Mapper
	sampler Sampler
	kinds   []string
	mode    SeedMode
}

func NewScatterer(m Mapper, kinds []string, mode SeedMode) *Scatterer {
	if len(kinds) == 0 {
		kinds = []string{DefaultFeatureKind}
	}
	return &Scatterer{
		mapper:  m,
		sampler: NewSampler(m),
		kinds:   append([]string(nil), kinds...),
		mode:    mode,
	}
}

// Seed returns the PRNG seed for chunk c.
func (s *Scatterer) Seed(c ChunkCoord) uint64 {
	if s.mode == SeedHash2D {
		return noise.Hash2(int64(c.X), int64(c.Y), 0)
	}
	return uint64(abs(c.X) + abs(c.Y))
}

// Scatter returns between 1 and 7 features for chunk c, sampled against hf
// only.
func (s *Scatterer) Scatter(c ChunkCoord, hf *Heightfield) []Feature {
	rng := rand.New(rand.NewPCG(s.Seed(c), 0))
	n := minFeatures + rng.IntN(maxFeatures-minFeatures)

	origin := s.mapper.ChunkToWorld(c)
	dp := s.mapper.DataPointWorldSize()
	cells := s.mapper.VerticesPerLine - 3

	out := make([]Feature, 0, n)
	for range n {
		g := GridCoord{X: 1 + rng.IntN(cells), Y: 1 + rng.IntN(cells)}
		jx := rng.Float32()
		jy := rng.Float32()
		kind := s.kinds[rng.IntN(len(s.kinds))]

		rel, err := s.mapper.DataToWorld(g)
		if err != nil {
			panic(err)
		}
		pos := origin.Add(rel).Add(mgl32.Vec2{float32(jx * dp), float32(-jy * dp)})
		res, err := s.sampler.Sample(pos, c, hf)
		if err != nil {
			panic(err)
		}
		out = append(out, Feature{
			Kind:     kind,
			Chunk:    c,
			Position: mgl32.Vec3{pos[0], res.Height, pos[1]},
			Normal:   res.Normal,
		})
	}
	return out
}

func abs(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
