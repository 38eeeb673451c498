package host

import (
	"fmt"
	"log"

	"rts-terrain/internal/config"
	"rts-terrain/internal/entity"
	"rts-terrain/internal/parallel"
	"rts-terrain/internal/profiling"
	"rts-terrain/internal/terrain"
)

// Engine is a configured streamer and the collaborators it owns.
type Engine struct {
	Settings config.Settings
	Streamer *terrain.Streamer
	Profiler *profiling.Recorder
	Spawner  entity.Spawner

	pool *parallel.Pool
}

// NewEngine builds an engine from normalised settings. A nil spawner gets an
// in-memory entity.Registry.
func NewEngine(s config.Settings, spawner entity.Spawner, logger *log.Logger) (*Engine, error) {
	gen, err := s.Generator()
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	scatter, err := s.Scatterer()
	if err != nil {
		return nil, fmt.Errorf("host: %w", err)
	}
	if spawner == nil {
		spawner = entity.NewRegistry()
	}

	e := &Engine{
		Settings: s,
		Profiler: profiling.NewRecorder(),
		Spawner:  spawner,
	}

	var exec parallel.Executor
	switch s.Executor {
	case config.ExecutorPool:
		workers := s.Workers
		if workers < 1 {
			workers = parallel.NewGroup(0).Limit()
		}
		e.pool = parallel.NewPool(workers, workers*4)
		exec = e.pool
	default:
		exec = parallel.NewGroup(s.Workers)
	}

	e.Streamer = terrain.NewStreamer(terrain.StreamerOptions{
		Mapper:    s.Mapper(),
		Generator: gen,
		Scatterer: scatter,
		Spawner:   spawner,
		Executor:  exec,
		Logger:    logger,
		Profiler:  e.Profiler,
	})
	return e, nil
}

// Close stops any worker goroutines the engine started.
func (e *Engine) Close() {
	if e.pool != nil {
		e.pool.Shutdown()
	}
}
