package config

import (
	"os"
	"path/filepath"
	"testing"

	"rts-terrain/internal/noise"
	"rts-terrain/internal/terrain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultsAreNormal(t *testing.T) {
	d := Defaults()
	assert.Equal(t, d, d.Normalize())
	assert.True(t, d.NoiseParams().Valid())
}

func TestParseEmptyGivesDefaults(t *testing.T) {
	s, err := Parse(nil)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), s)
}

func TestParseOverlaysDefaults(t *testing.T) {
	s, err := Parse([]byte(`
noise:
  seed: 1234
  octaves: 4
  offset: [10, -5.5]
basis: simplex
vertices_per_line: 33
mesh_scale: 2.5
executor: pool
workers: 3
features:
  kinds: [ore, " crystal "]
  seed_mode: hash2d
evict_radius: 6
tick_hz: 30
`))
	require.NoError(t, err)

	assert.Equal(t, int32(1234), s.Noise.Seed)
	assert.Equal(t, int32(4), s.Noise.Octaves)
	assert.Equal(t, float32(50), s.Noise.Scale, "unset keys keep their default")
	assert.Equal(t, [2]float32{10, -5.5}, s.Noise.Offset)
	assert.Equal(t, 33, s.VerticesPerLine)
	assert.Equal(t, float32(2.5), s.MeshScale)
	assert.Equal(t, ExecutorPool, s.Executor)
	assert.Equal(t, 3, s.Workers)
	assert.Equal(t, []string{"ore", "crystal"}, s.Features.Kinds)
	assert.True(t, s.Features.Enabled)
	assert.Equal(t, 6, s.EvictRadius)
	assert.Equal(t, 30, s.TickHz)

	kind, err := s.BasisKind()
	require.NoError(t, err)
	assert.Equal(t, noise.BasisSimplex, kind)
	mode, err := s.SeedMode()
	require.NoError(t, err)
	assert.Equal(t, terrain.SeedHash2D, mode)
	assert.Equal(t, terrain.NewMapper(33, 2.5), s.Mapper())
}

func TestParseClampsRanges(t *testing.T) {
	s, err := Parse([]byte(`
noise:
  scale: -1
  octaves: 0
  persistence: 3
  lacunarity: 0.5
height_multiplier: 12
vertices_per_line: 4
mesh_scale: 0
workers: -3
evict_radius: -1
tick_hz: 0
`))
	require.NoError(t, err)
	assert.Equal(t, noise.MinScale, s.Noise.Scale)
	assert.Equal(t, int32(1), s.Noise.Octaves)
	assert.Equal(t, float32(1), s.Noise.Persistence)
	assert.Equal(t, float32(1), s.Noise.Lacunarity)
	assert.Equal(t, 5, s.VerticesPerLine)
	assert.Equal(t, float32(1), s.MeshScale)
	assert.Equal(t, 0, s.Workers)
	assert.Equal(t, 0, s.EvictRadius)
	assert.Equal(t, defaultTickHz, s.TickHz)

	even, err := Parse([]byte("vertices_per_line: 64\ntick_hz: 100000"))
	require.NoError(t, err)
	assert.Equal(t, 65, even.VerticesPerLine)
	assert.Equal(t, maxTickHz, even.TickHz)
}

func TestParseRejectsBadShapes(t *testing.T) {
	cases := map[string]string{
		"unknown key":    "render_distance: 12",
		"unknown basis":  "basis: worley",
		"wrong type":     "vertices_per_line: big",
		"fractional int": "noise:\n  seed: 1.5",
		"seed overflow":  "noise:\n  seed: 3000000000",
		"bad executor":   "executor: threads",
		"bad seed mode":  "features:\n  seed_mode: random",
		"nested unknown": "features:\n  density: 3",
		"short offset":   "noise:\n  offset: [1]",
		"not yaml":       "noise: [unterminated",
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.ErrorIs(t, err, ErrInvalidConfig)
		})
	}
}

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "terrain.yaml")
	require.NoError(t, os.WriteFile(path, []byte("basis: perlin\nfeatures:\n  enabled: false\n"), 0o644))

	s, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "perlin", s.Basis)

	sc, err := s.Scatterer()
	require.NoError(t, err)
	assert.Nil(t, sc)

	gen, err := s.Generator()
	require.NoError(t, err)
	assert.Equal(t, noise.BasisPerlin, gen.Field().Kind())

	_, err = Load(filepath.Join(dir, "missing.yaml"))
	assert.Error(t, err)

	bad := filepath.Join(dir, "bad.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("basis: nope\n"), 0o644))
	_, err = Load(bad)
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestScattererEnabledByDefault(t *testing.T) {
	sc, err := Defaults().Scatterer()
	require.NoError(t, err)
	require.NotNil(t, sc)
}
