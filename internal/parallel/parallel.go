package parallel

import (
	"context"
	"runtime"

	"golang.org/x/sync/errgroup"
)

// Executor runs fn once for every index in [0, n) and returns after all calls
// finished. The first error cancels the context passed to calls not yet started
// and is returned. fn must only touch state owned by its own index.
type Executor interface {
	ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error
}

// Group starts a goroutine per item, bounded by a concurrency limit.
type Group struct {
	limit int
}

// NewGroup returns a Group running at most limit items at once. A limit below
// one uses GOMAXPROCS.
func NewGroup(limit int) *Group {
	if limit < 1 {
		limit = runtime.GOMAXPROCS(0)
	}
	return &Group{limit: limit}
}

// Limit returns the concurrency limit.
func (g *Group) Limit() int { return g.limit }

func (g *Group) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	eg, ctx := errgroup.WithContext(ctx)
	eg.SetLimit(g.limit)
	for i := range n {
		eg.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			return fn(ctx, i)
		})
	}
	return eg.Wait()
}
