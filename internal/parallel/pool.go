package parallel

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolClosed is returned by ForEach after Shutdown.
var ErrPoolClosed = errors.New("parallel: pool is shut down")

// job is a single item of a ForEach batch.
type job struct {
	ctx   context.Context
	fn    func(ctx context.Context, i int) error
	index int
	batch *batch
}

// batch tracks completion and the first error of one ForEach call.
type batch struct {
	wg     sync.WaitGroup
	once   sync.Once
	err    error
	cancel context.CancelFunc
}

func (b *batch) fail(err error) {
	b.once.Do(func() {
		b.err = err
		b.cancel()
	})
}

// Pool keeps a fixed set of worker goroutines alive across batches, which
// avoids goroutine churn when ForEach is called every tick.
type Pool struct {
	jobQueue chan job
	workers  int
	wg       sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// NewPool starts workers goroutines reading from a queue of queueSize jobs.
func NewPool(workers int, queueSize int) *Pool {
	workers = max(workers, 1)
	queueSize = max(queueSize, 0)
	p := &Pool{
		jobQueue: make(chan job, queueSize),
		workers:  workers,
	}
	for range workers {
		p.wg.Add(1)
		go p.worker()
	}
	return p
}

// Workers returns the number of worker goroutines.
func (p *Pool) Workers() int { return p.workers }

func (p *Pool) ForEach(ctx context.Context, n int, fn func(ctx context.Context, i int) error) error {
	if n <= 0 {
		return nil
	}
	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return ErrPoolClosed
	}

	bctx, cancel := context.WithCancel(ctx)
	defer cancel()
	b := &batch{cancel: cancel}

submit:
	for i := range n {
		b.wg.Add(1)
		select {
		case p.jobQueue <- job{ctx: bctx, fn: fn, index: i, batch: b}:
		case <-bctx.Done():
			b.wg.Done()
			b.fail(bctx.Err())
			break submit
		}
	}
	p.mu.RUnlock()

	b.wg.Wait()
	return b.err
}

// worker drains the queue until Shutdown closes it.
func (p *Pool) worker() {
	defer p.wg.Done()
	for j := range p.jobQueue {
		if err := j.ctx.Err(); err != nil {
			j.batch.fail(err)
		} else if err := j.fn(j.ctx, j.index); err != nil {
			j.batch.fail(err)
		}
		j.batch.wg.Done()
	}
}

// Shutdown waits for in-flight batches to be submitted, lets the workers drain
// the queue and stops them. It is safe to call more than once.
func (p *Pool) Shutdown() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.jobQueue)
	p.mu.Unlock()
	p.wg.Wait()
}

// GetQueueLength returns the current number of queued jobs.
func (p *Pool) GetQueueLength() int {
	return len(p.jobQueue)
}
