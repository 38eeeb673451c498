package entity

import (
	"sync"

	"github.com/go-gl/mathgl/mgl32"
	"github.com/google/uuid"
)

// Registry is an in-memory Spawner that keeps every spawned entity.
type Registry struct {
	entities []Spawned
	byChunk  map[[2]int][]int
	mu       sync.RWMutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		entities: make([]Spawned, 0),
		byChunk:  make(map[[2]int][]int),
	}
}

// Spawn records the entity and returns its new ID.
func (r *Registry) Spawn(d Descriptor, pos mgl32.Vec3, rot mgl32.Quat) (uuid.UUID, error) {
	id := uuid.New()
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byChunk[d.Chunk] = append(r.byChunk[d.Chunk], len(r.entities))
	r.entities = append(r.entities, Spawned{
		ID:         id,
		Descriptor: d,
		Position:   pos,
		Rotation:   rot,
	})
	return id, nil
}

// Len returns the number of spawned entities.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.entities)
}

// All returns a copy of every spawned entity in spawn order.
func (r *Registry) All() []Spawned {
	r.mu.RLock()
	defer r.mu.RUnlock()

	// Copy so callers can iterate while new entities are spawned
	result := make([]Spawned, len(r.entities))
	copy(result, r.entities)
	return result
}

// InChunk returns the entities spawned for chunk (x, y) in spawn order.
func (r *Registry) InChunk(x, y int) []Spawned {
	r.mu.RLock()
	defer r.mu.RUnlock()
	idx := r.byChunk[[2]int{x, y}]
	out := make([]Spawned, 0, len(idx))
	for _, i := range idx {
		out = append(out, r.entities[i])
	}
	return out
}
