package config

import (
	"rts-terrain/internal/noise"
	"rts-terrain/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

// NoiseParams returns the noise section as noise.Params.
func (s Settings) NoiseParams() noise.Params {
	return noise.Params{
		Scale:       s.Noise.Scale,
		Octaves:     s.Noise.Octaves,
		Persistence: s.Noise.Persistence,
		Lacunarity:  s.Noise.Lacunarity,
		Seed:        s.Noise.Seed,
		Offset:      mgl32.Vec2{s.Noise.Offset[0], s.Noise.Offset[1]},
	}
}

func fromParams(p noise.Params) NoiseSettings {
	return NoiseSettings{
		Scale:       p.Scale,
		Octaves:     p.Octaves,
		Persistence: p.Persistence,
		Lacunarity:  p.Lacunarity,
		Seed:        p.Seed,
		Offset:      [2]float32{p.Offset[0], p.Offset[1]},
	}
}

// Mapper returns the coordinate mapper for the configured resolution.
func (s Settings) Mapper() terrain.Mapper {
	return terrain.NewMapper(s.VerticesPerLine, s.MeshScale)
}

// BasisKind returns the configured noise basis.
func (s Settings) BasisKind() (noise.BasisKind, error) {
	return noise.ParseBasisKind(s.Basis)
}

// SeedMode returns the configured feature seed mode.
func (s Settings) SeedMode() (terrain.SeedMode, error) {
	return terrain.ParseSeedMode(s.Features.SeedMode)
}

// Generator builds the heightmap generator described by s.
func (s Settings) Generator() (*terrain.NoiseGenerator, error) {
	kind, err := s.BasisKind()
	if err != nil {
		return nil, err
	}
	return terrain.NewNoiseGenerator(s.NoiseParams(), kind, s.HeightMultiplier), nil
}

// Scatterer builds the feature scatterer, or nil when features are disabled.
func (s Settings) Scatterer() (*terrain.Scatterer, error) {
	if !s.Features.Enabled {
		return nil, nil
	}
	mode, err := s.SeedMode()
	if err != nil {
		return nil, err
	}
	return terrain.NewScatterer(s.Mapper(), s.Features.Kinds, mode), nil
}
