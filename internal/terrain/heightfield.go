package terrain

import (
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"
)

// Heightfield is the generated elevation grid of one chunk, row-major with
// VerticesPerLine² values. It is never mutated once constructed, so any number
// of goroutines may read it without locking.
type Heightfield struct {
	vpl    int
	values []float32
}

// NewHeightfield takes ownership of values. It panics if the length does not
// match verticesPerLine².
func NewHeightfield(verticesPerLine int, values []float32) *Heightfield {
	if verticesPerLine <= 0 || len(values) != verticesPerLine*verticesPerLine {
		panic(fmt.Sprintf("terrain: heightfield of %d values for %d vertices per line", len(values), verticesPerLine))
	}
	return &Heightfield{vpl: verticesPerLine, values: values}
}

// VerticesPerLine returns the side length of the grid.
func (h *Heightfield) VerticesPerLine() int { return h.vpl }

// At returns the height of grid vertex (x, y). An index outside the grid is a
// programmer error and panics with a *BoundsError.
func (h *Heightfield) At(x, y int) float32 {
	if x < 0 || x >= h.vpl || y < 0 || y >= h.vpl {
		panic(&BoundsError{Op: "Heightfield.At", Coord: GridCoord{X: x, Y: y}, Size: h.vpl})
	}
	return h.values[y*h.vpl+x]
}

// Values returns a copy of the raw grid.
func (h *Heightfield) Values() []float32 {
	out := make([]float32, len(h.values))
	copy(out, h.values)
	return out
}

// MinMax returns the lowest and highest vertex heights.
func (h *Heightfield) MinMax() (lo, hi float32) {
	lo, hi = h.values[0], h.values[0]
	for _, v := range h.values[1:] {
		lo = min(lo, v)
		hi = max(hi, v)
	}
	return lo, hi
}

// Checksum hashes the exact bit pattern of every value.
func (h *Heightfield) Checksum() [32]byte {
	buf := make([]byte, 4+4*len(h.values))
	binary.LittleEndian.PutUint32(buf, uint32(h.vpl))
	for i, v := range h.values {
		binary.LittleEndian.PutUint32(buf[4+4*i:], math.Float32bits(v))
	}
	return sha256.Sum256(buf)
}

// Equal reports whether both heightfields are bit-identical.
func (h *Heightfield) Equal(o *Heightfield) bool {
	if h.vpl != o.vpl {
		return false
	}
	for i, v := range h.values {
		if math.Float32bits(v) != math.Float32bits(o.values[i]) {
			return false
		}
	}
	return true
}
