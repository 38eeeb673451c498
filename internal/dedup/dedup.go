// Package dedup coalesces concurrent requests for the same key into a single
// production run.
//
// Instances are constructed and owned explicitly; there is no package-level
// state. A Group forgets a key once its production finishes, a Memo keeps the
// successful result for instant later reads.
package dedup

import (
	"context"
	"fmt"
	"sync"
)

// Func produces the value for a key. It runs on its own goroutine with a
// context that is not cancelled when individual callers give up.
type Func[V any] func(ctx context.Context) (V, error)

type call[V any] struct {
	done    chan struct{}
	val     V
	err     error
	waiters int
}

// Group runs at most one production per key at a time. Any number of callers
// may wait on the same in-flight production. The zero value is ready to use.
type Group[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*call[V]
}

// NewGroup returns an empty Group.
func NewGroup[K comparable, V any]() *Group[K, V] {
	return &Group[K, V]{calls: make(map[K]*call[V])}
}

// Do returns the result of fn for key, starting fn only if no production for
// key is in flight. shared reports whether the result was produced for more
// than one caller. If ctx ends first Do returns ctx.Err(); the production keeps
// running for the other waiters.
func (g *Group[K, V]) Do(ctx context.Context, key K, fn Func[V]) (v V, shared bool, err error) {
	return g.do(ctx, key, fn, nil, nil)
}

// InFlight reports how many keys currently have a production running.
func (g *Group[K, V]) InFlight() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return len(g.calls)
}

// do is Do with two hooks that run under the group lock: lookup short-circuits
// before a production is started and store sees a successful value before the
// in-flight marker is cleared, so no caller can observe neither.
func (g *Group[K, V]) do(ctx context.Context, key K, fn Func[V], lookup func() (V, bool), store func(V)) (V, bool, error) {
	g.mu.Lock()
	if lookup != nil {
		if v, ok := lookup(); ok {
			g.mu.Unlock()
			return v, false, nil
		}
	}
	if g.calls == nil {
		g.calls = make(map[K]*call[V])
	}
	c, ok := g.calls[key]
	if ok {
		c.waiters++
	} else {
		c = &call[V]{done: make(chan struct{}), waiters: 1}
		g.calls[key] = c
		go g.produce(context.WithoutCancel(ctx), key, c, fn, store)
	}
	g.mu.Unlock()

	select {
	case <-c.done:
		g.mu.Lock()
		shared := c.waiters > 1
		g.mu.Unlock()
		return c.val, shared, c.err
	case <-ctx.Done():
		var zero V
		return zero, false, ctx.Err()
	}
}

func (g *Group[K, V]) produce(ctx context.Context, key K, c *call[V], fn Func[V], store func(V)) {
	defer func() {
		if r := recover(); r != nil {
			c.err = fmt.Errorf("dedup: production for %v panicked: %v", key, r)
		}
		g.mu.Lock()
		if c.err == nil && store != nil {
			store(c.val)
		}
		delete(g.calls, key)
		g.mu.Unlock()
		close(c.done)
	}()
	c.val, c.err = fn(ctx)
}

// Memo is a Group that also keeps every successful result. Errors are not
// memoised, so a failed key is produced again on the next request.
type Memo[K comparable, V any] struct {
	group Group[K, V]
	vals  map[K]V
}

// NewMemo returns an empty Memo.
func NewMemo[K comparable, V any]() *Memo[K, V] {
	return &Memo[K, V]{vals: make(map[K]V)}
}

// Get returns the memoised value for key, producing it with fn on first use.
func (m *Memo[K, V]) Get(ctx context.Context, key K, fn Func[V]) (V, error) {
	v, _, err := m.group.do(ctx, key, fn,
		func() (V, bool) {
			v, ok := m.vals[key]
			return v, ok
		},
		func(v V) {
			if m.vals == nil {
				m.vals = make(map[K]V)
			}
			m.vals[key] = v
		},
	)
	return v, err
}

// Peek returns the memoised value for key without producing it.
func (m *Memo[K, V]) Peek(key K) (V, bool) {
	m.group.mu.Lock()
	defer m.group.mu.Unlock()
	v, ok := m.vals[key]
	return v, ok
}

// Forget drops the memoised value for key. A production already in flight is
// unaffected and will memoise its result when it finishes.
func (m *Memo[K, V]) Forget(key K) {
	m.group.mu.Lock()
	delete(m.vals, key)
	m.group.mu.Unlock()
}

// Len returns the number of memoised values.
func (m *Memo[K, V]) Len() int {
	m.group.mu.Lock()
	defer m.group.mu.Unlock()
	return len(m.vals)
}

// Keys returns the memoised keys in no particular order.
func (m *Memo[K, V]) Keys() []K {
	m.group.mu.Lock()
	defer m.group.mu.Unlock()
	keys := make([]K, 0, len(m.vals))
	for k := range m.vals {
		keys = append(keys, k)
	}
	return keys
}

// InFlight reports how many keys currently have a production running.
func (m *Memo[K, V]) InFlight() int {
	return m.group.InFlight()
}
