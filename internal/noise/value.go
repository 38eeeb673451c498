package noise

import "math"

// Deterministic 2D value noise on an integer lattice.
// Lattice values come from a SplitMix64-style hash so output is stable across
// runs and processes for the same inputs.
//
// Every product that feeds an addition is wrapped in an explicit float64
// conversion. Go may otherwise fuse x*y+z into one FMA instruction on arm64,
// ppc64le and s390x but not on amd64, and the two round differently. Heights
// must be bit-identical on every architecture.

// fade is the quintic smoothstep 6t^5 - 15t^4 + 10t^3.
func fade(t float64) float64 {
	p := float64(t*6) - 15
	p = float64(t*p) + 10
	return t * t * t * p
}

func lerp(a, b, t float64) float64 {
	return a + float64(t*(b-a))
}

// Hash2 mixes a 2D lattice coordinate and a seed into 64 bits.
func Hash2(x, z, seed int64) uint64 {
	v := uint64(x)*0x9E3779B97F4A7C15 + uint64(z)*0x517CC1B727220A95 + uint64(seed)
	v += 0x9E3779B97F4A7C15
	v = (v ^ (v >> 30)) * 0xBF58476D1CE4E5B9
	v = (v ^ (v >> 27)) * 0x94D049BB133111EB
	return v ^ (v >> 31)
}

func latticeValue(x, z, seed int64) float64 {
	h := Hash2(x, z, seed)
	return float64(h&0xFFFFFFFF) / float64(0xFFFFFFFF)
}

// valueBasis is value noise for a single seed. Output is in [0,1].
type valueBasis struct {
	seed int64
}

func (b valueBasis) Eval2(x, z float64) float64 {
	x0 := math.Floor(x)
	z0 := math.Floor(z)

	fx := fade(x - x0)
	fz := fade(z - z0)

	ix := int64(x0)
	iz := int64(z0)
	v00 := latticeValue(ix, iz, b.seed)
	v10 := latticeValue(ix+1, iz, b.seed)
	v01 := latticeValue(ix, iz+1, b.seed)
	v11 := latticeValue(ix+1, iz+1, b.seed)

	i0 := lerp(v00, v10, fx)
	i1 := lerp(v01, v11, fx)
	return lerp(i0, i1, fz)
}
