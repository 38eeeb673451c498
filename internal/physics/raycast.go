package physics

import (
	"rts-terrain/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

const (
	MinReachDistance = 0.1
	MaxReachDistance = 500.0

	stepSize      = float32(0.25)
	refineSteps   = 16
	refineEpsilon = float32(1e-4)
)

// HeightQuery answers non-blocking terrain height queries. *terrain.Streamer
// implements it.
type HeightQuery interface {
	TrySample(pos mgl32.Vec2, includeNeighbors bool) (terrain.SampleResult, bool)
}

// RaycastResult stores the result of a raycast operation
type RaycastResult struct {
	Position mgl32.Vec3
	Normal   mgl32.Vec3
	Distance float32
	Hit      bool
	// Pending is set when the ray reached terrain that is not generated yet.
	// The chunk has been requested; casting again after a tick may hit.
	Pending bool
}

// Raycast marches from start along direction until it passes below the
// terrain surface, then bisects to the crossing point. Samples prefetch
// neighbouring chunks, so a ray crossing a seam warms the next chunk.
func Raycast(q HeightQuery, start, direction mgl32.Vec3, minDist, maxDist float32) RaycastResult {
	result := RaycastResult{}
	if direction.Len() == 0 {
		return result
	}
	direction = direction.Normalize()
	steps := int(maxDist / stepSize)

	var prev float32
	above := false
	for i := 0; i <= steps; i++ {
		dist := float32(i) * stepSize
		if dist < minDist {
			continue
		}

		pos := start.Add(direction.Mul(dist))
		s, ok := q.TrySample(mgl32.Vec2{pos.X(), pos.Z()}, true)
		if !ok {
			result.Pending = true
			return result
		}
		if pos.Y() <= s.Height {
			if above {
				dist, s = refine(q, start, direction, prev, dist, s)
			}
			result.Position = start.Add(direction.Mul(dist))
			result.Position[1] = s.Height
			result.Normal = s.Normal
			result.Distance = dist
			result.Hit = true
			return result
		}
		prev, above = dist, true
	}
	return result
}

// refine bisects [lo, hi] where lo is above the surface and hi is not.
func refine(q HeightQuery, start, direction mgl32.Vec3, lo, hi float32, best terrain.SampleResult) (float32, terrain.SampleResult) {
	for i := 0; i < refineSteps && hi-lo > refineEpsilon; i++ {
		mid := (lo + hi) / 2
		pos := start.Add(direction.Mul(mid))
		s, ok := q.TrySample(mgl32.Vec2{pos.X(), pos.Z()}, false)
		if !ok {
			break
		}
		if pos.Y() <= s.Height {
			hi, best = mid, s
		} else {
			lo = mid
		}
	}
	return hi, best
}
