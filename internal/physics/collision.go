package physics

import (
	"rts-terrain/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

// GroundLevel returns the highest terrain height under a square footprint of
// half-size radius centred on (x, z). ok is false if any corner is not yet
// generated.
func GroundLevel(q HeightQuery, x, z, radius float32) (float32, bool) {
	corners := [...]mgl32.Vec2{
		{x, z},
		{x - radius, z - radius},
		{x + radius, z - radius},
		{x - radius, z + radius},
		{x + radius, z + radius},
	}
	var ground float32
	for i, c := range corners {
		s, ok := q.TrySample(c, true)
		if !ok {
			return 0, false
		}
		if i == 0 || s.Height > ground {
			ground = s.Height
		}
	}
	return ground, true
}

// Collides reports whether a unit at pos with the given footprint is below the
// terrain. Unknown terrain never collides.
func Collides(q HeightQuery, pos mgl32.Vec3, radius float32) bool {
	ground, ok := GroundLevel(q, pos.X(), pos.Z(), radius)
	return ok && pos.Y() < ground
}

// SnapToGround moves pos onto the terrain surface and returns the surface
// normal under its centre.
func SnapToGround(q HeightQuery, pos mgl32.Vec3, radius float32) (mgl32.Vec3, mgl32.Vec3, bool) {
	ground, ok := GroundLevel(q, pos.X(), pos.Z(), radius)
	if !ok {
		return pos, terrain.Up, false
	}
	s, ok := q.TrySample(mgl32.Vec2{pos.X(), pos.Z()}, false)
	if !ok {
		s.Normal = terrain.Up
	}
	pos[1] = ground
	return pos, s.Normal, true
}
