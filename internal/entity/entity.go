package entity

import (
	"rts-terrain/internal/command"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Descriptor describes what to spawn, like a prefab reference.
type Descriptor struct {
	Kind   string
	Chunk  [2]int
	Params command.ParamList
}

// Spawner creates an entity at a world position and orientation. The terrain
// engine only produces placements; whatever owns entities implements this.
type Spawner interface {
	Spawn(d Descriptor, pos mgl32.Vec3, rot mgl32.Quat) (uuid.UUID, error)
}

// SpawnFunc adapts a function to the Spawner interface.
type SpawnFunc func(d Descriptor, pos mgl32.Vec3, rot mgl32.Quat) (uuid.UUID, error)

func (f SpawnFunc) Spawn(d Descriptor, pos mgl32.Vec3, rot mgl32.Quat) (uuid.UUID, error) {
	return f(d, pos, rot)
}

// FeatureParams is the parameter layout of a terrain feature spawn command.
var FeatureParams = command.MustParamList(command.TagKind, command.TagChunk, command.TagPosition, command.TagOrientation)

// Spawned is a record of one entity created by a Registry.
type Spawned struct {
	ID         uuid.UUID
	Descriptor Descriptor
	Position   mgl32.Vec3
	Rotation   mgl32.Quat
}
