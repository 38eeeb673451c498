package config

import (
	"bytes"
	_ "embed"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"
	"gopkg.in/yaml.v3"
)

// ErrInvalidConfig wraps every parse and schema failure.
var ErrInvalidConfig = errors.New("config: invalid settings")

//go:embed schema.json
var schemaJSON string

// Settings is the full engine configuration.
type Settings struct {
	Noise             NoiseSettings   `yaml:"noise"`
	Basis             string          `yaml:"basis"`
	HeightMultiplier  float32         `yaml:"height_multiplier"`
	VerticesPerLine   int             `yaml:"vertices_per_line"`
	MeshScale         float32         `yaml:"mesh_scale"`
	PrefetchNeighbors bool            `yaml:"prefetch_neighbors"`
	Workers           int             `yaml:"workers"`
	Executor          string          `yaml:"executor"`
	Features          FeatureSettings `yaml:"features"`
	EvictRadius       int             `yaml:"evict_radius"`
	TickHz            int             `yaml:"tick_hz"`
}

// NoiseSettings mirrors noise.Params.
type NoiseSettings struct {
	Scale       float32    `yaml:"scale"`
	Octaves     int32      `yaml:"octaves"`
	Persistence float32    `yaml:"persistence"`
	Lacunarity  float32    `yaml:"lacunarity"`
	Seed        int32      `yaml:"seed"`
	Offset      [2]float32 `yaml:"offset"`
}

// FeatureSettings controls feature scattering on new chunks.
type FeatureSettings struct {
	Enabled  bool     `yaml:"enabled"`
	Kinds    []string `yaml:"kinds"`
	SeedMode string   `yaml:"seed_mode"`
}

const (
	ExecutorGroup = "group"
	ExecutorPool  = "pool"

	minVerticesPerLine = 5
	maxVerticesPerLine = 4097
	defaultTickHz      = 20
	maxTickHz          = 1000
)

// Defaults returns the settings used for any key a file leaves out.
func Defaults() Settings {
	return Settings{
		Noise: NoiseSettings{
			Scale:       50,
			Octaves:     6,
			Persistence: 0.5,
			Lacunarity:  2,
		},
		Basis:             "value",
		HeightMultiplier:  30,
		VerticesPerLine:   65,
		MeshScale:         1,
		PrefetchNeighbors: true,
		Executor:          ExecutorGroup,
		Features: FeatureSettings{
			Enabled:  true,
			Kinds:    []string{"resource_deposit"},
			SeedMode: "legacy",
		},
		TickHz: defaultTickHz,
	}
}

// Load reads and parses the settings file at path.
func Load(path string) (Settings, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return Settings{}, err
	}
	s, err := Parse(raw)
	if err != nil {
		return Settings{}, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Parse validates raw YAML against the settings schema, overlays it on
// Defaults and normalises the result.
func Parse(raw []byte) (Settings, error) {
	if err := validate(raw); err != nil {
		return Settings{}, err
	}
	s := Defaults()
	if err := yaml.Unmarshal(raw, &s); err != nil {
		return Settings{}, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return s.Normalize(), nil
}

var compileSchema = sync.OnceValues(func() (*jsonschema.Schema, error) {
	return jsonschema.CompileString("settings.schema.json", schemaJSON)
})

// validate checks the document shape. Value ranges are not rejected here;
// Normalize clamps them.
func validate(raw []byte) error {
	schema, err := compileSchema()
	if err != nil {
		return err
	}

	var doc any
	if err := yaml.Unmarshal(raw, &doc); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if doc == nil {
		doc = map[string]any{}
	}
	// Round-trip through JSON so the validator sees JSON types.
	b, err := json.Marshal(doc)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var v any
	if err := dec.Decode(&v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	if err := schema.Validate(v); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	return nil
}

// Normalize clamps every field into its usable range. It never fails.
func (s Settings) Normalize() Settings {
	s.Noise = fromParams(s.NoiseParams().Validated())
	s.Basis = strings.ToLower(s.Basis)
	if s.Basis == "" {
		s.Basis = "value"
	}
	if isBad(s.HeightMultiplier) {
		s.HeightMultiplier = 0
	}

	if s.VerticesPerLine < minVerticesPerLine {
		s.VerticesPerLine = minVerticesPerLine
	}
	if s.VerticesPerLine > maxVerticesPerLine {
		s.VerticesPerLine = maxVerticesPerLine
	}
	if s.VerticesPerLine%2 == 0 {
		s.VerticesPerLine++
	}
	if isBad(s.MeshScale) || s.MeshScale <= 0 {
		s.MeshScale = 1
	}

	if s.Workers < 0 {
		s.Workers = 0
	}
	if s.Executor == "" {
		s.Executor = ExecutorGroup
	}

	kinds := s.Features.Kinds[:0:0]
	for _, k := range s.Features.Kinds {
		if k = strings.TrimSpace(k); k != "" {
			kinds = append(kinds, k)
		}
	}
	if len(kinds) == 0 {
		kinds = []string{"resource_deposit"}
	}
	s.Features.Kinds = kinds
	if s.Features.SeedMode == "" {
		s.Features.SeedMode = "legacy"
	}

	if s.EvictRadius < 0 {
		s.EvictRadius = 0
	}
	if s.TickHz < 1 {
		s.TickHz = defaultTickHz
	}
	if s.TickHz > maxTickHz {
		s.TickHz = maxTickHz
	}
	return s
}

func isBad(v float32) bool {
	f := float64(v)
	return math.IsNaN(f) || math.IsInf(f, 0)
}
