package physics

import (
	"context"
	"testing"

	"rts-terrain/internal/noise"
	"rts-terrain/internal/terrain"

	"github.com/go-gl/mathgl/mgl32"
)

func makeStreamerForPhysics(b *testing.B) *terrain.Streamer {
	s := terrain.NewStreamer(terrain.StreamerOptions{
		Mapper:    terrain.NewMapper(65, 1),
		Generator: terrain.NewNoiseGenerator(noise.DefaultParams(), noise.BasisValue, 30),
	})
	for x := -2; x <= 2; x++ {
		for y := -2; y <= 2; y++ {
			s.Request(terrain.ChunkCoord{X: x, Y: y})
		}
	}
	if _, err := s.ProcessTick(context.Background()); err != nil {
		b.Fatal(err)
	}
	return s
}

func BenchmarkCollides(b *testing.B) {
	s := makeStreamerForPhysics(b)
	pos := mgl32.Vec3{0, 10, 0}
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Collides(s, pos, 0.5)
	}
}

func BenchmarkRaycast(b *testing.B) {
	s := makeStreamerForPhysics(b)
	start := mgl32.Vec3{0, 40, 0}
	dir := mgl32.Vec3{1, -0.2, 0}.Normalize()
	b.ReportAllocs()
	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = Raycast(s, start, dir, MinReachDistance, 100)
	}
}
