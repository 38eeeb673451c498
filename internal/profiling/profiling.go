package profiling

import (
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"
)

// Recorder accumulates per-tick CPU time by name.
// Usage: defer rec.Track("subsystem.Operation")()
//
// A nil *Recorder is valid and records nothing.
type Recorder struct {
	mu     sync.Mutex
	totals map[string]time.Duration
	counts map[string]int
}

// NewRecorder creates an empty recorder.
func NewRecorder() *Recorder {
	return &Recorder{
		totals: make(map[string]time.Duration),
		counts: make(map[string]int),
	}
}

// Track returns a stop function that records the elapsed time under name.
func (r *Recorder) Track(name string) func() {
	if r == nil {
		return func() {}
	}
	start := time.Now()
	return func() {
		d := time.Since(start)
		r.mu.Lock()
		r.totals[name] += d
		r.counts[name]++
		r.mu.Unlock()
	}
}

// ResetTick clears the current totals. Call at the start of each tick.
func (r *Recorder) ResetTick() {
	if r == nil {
		return
	}
	r.mu.Lock()
	clear(r.totals)
	clear(r.counts)
	r.mu.Unlock()
}

// Snapshot returns a copy of the current totals.
func (r *Recorder) Snapshot() map[string]time.Duration {
	out := make(map[string]time.Duration)
	if r == nil {
		return out
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, v := range r.totals {
		out[k] = v
	}
	return out
}

// Count returns how many times name was tracked since the last reset.
func (r *Recorder) Count(name string) int {
	if r == nil {
		return 0
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[name]
}

// TopN formats the n most expensive entries.
// Example: "terrain.ProcessTick:4.2ms, physics.Raycast:0.3ms"
func (r *Recorder) TopN(n int) string {
	ss := r.Snapshot()
	type pair struct {
		name string
		dur  time.Duration
	}
	list := make([]pair, 0, len(ss))
	for k, v := range ss {
		list = append(list, pair{name: k, dur: v})
	}
	sort.Slice(list, func(i, j int) bool {
		if list[i].dur != list[j].dur {
			return list[i].dur > list[j].dur
		}
		return list[i].name < list[j].name
	})
	n = min(n, len(list))
	parts := make([]string, 0, n)
	for _, p := range list[:n] {
		parts = append(parts, p.name+":"+formatMs(p.dur))
	}
	return strings.Join(parts, ", ")
}

func formatMs(d time.Duration) string {
	ms := float64(d.Microseconds()) / 1000.0
	s := fmt.Sprintf("%.1f", ms)
	return strings.TrimSuffix(s, ".0") + "ms"
}
