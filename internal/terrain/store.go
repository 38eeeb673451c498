package terrain

import (
	"sort"
	"sync"
)

// Store holds published heightfields keyed by chunk coordinate. Readers take a
// shared lock for the map lookup only; heightfields themselves are immutable.
type Store struct {
	mu       sync.RWMutex
	chunks   map[ChunkCoord]*Heightfield
	modCount uint64 // Increases on any add/remove
}

// NewStore creates an empty store.
func NewStore() *Store {
	return &Store{
		chunks: make(map[ChunkCoord]*Heightfield),
	}
}

// Get returns the heightfield for c if it has been published.
func (s *Store) Get(c ChunkCoord) (*Heightfield, bool) {
	s.mu.RLock()
	hf, ok := s.chunks[c]
	s.mu.RUnlock()
	return hf, ok
}

// Has reports whether c has been published.
func (s *Store) Has(c ChunkCoord) bool {
	_, ok := s.Get(c)
	return ok
}

// AddBatch publishes a batch under a single write lock so readers observe
// either none or all of it. Coordinates already present keep their existing
// heightfield. coords and hfs must have equal length.
func (s *Store) AddBatch(coords []ChunkCoord, hfs []*Heightfield) int {
	s.mu.Lock()
	defer s.mu.Unlock()

	added := 0
	for i, c := range coords {
		if _, ok := s.chunks[c]; ok {
			continue
		}
		s.chunks[c] = hfs[i]
		added++
	}
	if added > 0 {
		s.modCount++
	}
	return added
}

// Len returns the number of published chunks.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.chunks)
}

// Keys returns every published coordinate sorted by X then Y.
func (s *Store) Keys() []ChunkCoord {
	s.mu.RLock()
	keys := make([]ChunkCoord, 0, len(s.chunks))
	for k := range s.chunks {
		keys = append(keys, k)
	}
	s.mu.RUnlock()

	sort.Slice(keys, func(i, j int) bool {
		if keys[i].X != keys[j].X {
			return keys[i].X < keys[j].X
		}
		return keys[i].Y < keys[j].Y
	})
	return keys
}

// ModCount returns a counter that changes whenever chunks are added or removed.
func (s *Store) ModCount() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.modCount
}

// EvictFarChunks removes chunks whose distance from center exceeds radius
// (in chunks) and returns the removed coordinates.
func (s *Store) EvictFarChunks(center ChunkCoord, radius int) []ChunkCoord {
	var removed []ChunkCoord
	s.mu.Lock()
	for c := range s.chunks {
		dx := c.X - center.X
		dy := c.Y - center.Y
		if dx*dx+dy*dy > radius*radius {
			delete(s.chunks, c)
			removed = append(removed, c)
		}
	}
	if len(removed) > 0 {
		s.modCount++
	}
	s.mu.Unlock()
	return removed
}
