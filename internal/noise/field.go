package noise

// octaveSeedStride separates per-octave seeds so octaves never share lattices.
const octaveSeedStride = 131

// octaveOffsetRange bounds the per-octave lattice shift derived from the seed.
const octaveOffsetRange = 10000.0

type octave struct {
	basis     Basis
	amplitude float64
	frequency float64
	offX      float64
	offY      float64
}

// Field is layered octave noise. Octave i uses amplitude persistence^i and
// frequency lacunarity^i. A Field is read-only after construction and safe for
// concurrent use.
type Field struct {
	params  Params
	kind    BasisKind
	octaves []octave
	norm    float64
}

// NewField validates p and precomputes the octave schedule.
func NewField(p Params, kind BasisKind) *Field {
	p = p.Validated()
	f := &Field{
		params:  p,
		kind:    kind,
		octaves: make([]octave, p.Octaves),
	}

	amplitude := 1.0
	frequency := 1.0
	for i := range f.octaves {
		seed := int64(p.Seed) + int64(i*octaveSeedStride)
		h := Hash2(int64(i), int64(p.Seed), 0x5EED)
		f.octaves[i] = octave{
			basis:     NewBasis(kind, seed),
			amplitude: amplitude,
			frequency: frequency,
			offX:      float64(unitFromBits(h)*octaveOffsetRange) + float64(p.Offset[0]),
			offY:      float64(unitFromBits(h>>32)*octaveOffsetRange) - float64(p.Offset[1]),
		}
		f.norm += amplitude
		amplitude *= float64(p.Persistence)
		frequency *= float64(p.Lacunarity)
	}
	return f
}

// Params returns the validated parameters the field was built from.
func (f *Field) Params() Params { return f.params }

// Kind returns the basis the field layers.
func (f *Field) Kind() BasisKind { return f.kind }

// At samples the field at (x, y) in grid units. The result is in [0,1].
func (f *Field) At(x, y float64) float64 {
	if f.norm == 0 {
		return 0
	}
	scale := float64(f.params.Scale)
	sum := 0.0
	for _, o := range f.octaves {
		sx := (x + o.offX) / scale * o.frequency
		sy := (y + o.offY) / scale * o.frequency
		// Rounded before accumulating; see value.go.
		sum += float64(o.basis.Eval2(sx, sy) * o.amplitude)
	}
	return sum / f.norm
}

// unitFromBits maps the low 32 bits of h to [-1,1).
func unitFromBits(h uint64) float64 {
	return float64(float64(h&0xFFFFFFFF)/float64(1<<31)) - 1
}
