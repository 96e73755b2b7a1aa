package workerpool

import (
	"context"
	"sync"
)

// Pool runs a fixed set of workers over submitted jobs of type T.
type Pool[T any] struct {
	ctx     context.Context
	cancel  context.CancelFunc
	jobs    chan T
	wg      sync.WaitGroup
	closed  bool
	closeMu sync.RWMutex
}

type Handler[T any] func(ctx context.Context, worker int, job T)

// New starts workers goroutines. Each handler call receives the index of the
// worker running it, so callers can keep per-worker state (e.g. one hasher
// per worker) without locking.
func New[T any](ctx context.Context, workers int, h Handler[T]) *Pool[T] {
	if workers <= 0 {
		workers = 1
	}
	ctx, cancel := context.WithCancel(ctx)
	p := &Pool[T]{
		ctx:    ctx,
		cancel: cancel,
		jobs:   make(chan T, workers*2+8),
	}
	p.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go func(worker int) {
			defer p.wg.Done()
			for {
				select {
				case <-p.ctx.Done():
					return
				case job, ok := <-p.jobs:
					if !ok {
						return
					}
					h(p.ctx, worker, job)
				}
			}
		}(i)
	}
	return p
}

// Submit queues a job. It returns false once the pool is closed or its
// context is done.
func (p *Pool[T]) Submit(job T) bool {
	p.closeMu.RLock()
	defer p.closeMu.RUnlock()
	if p.closed || p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobs <- job:
		return true
	}
}

// Close stops accepting jobs, drains the queue and waits for the workers.
func (p *Pool[T]) Close() {
	p.closeMu.Lock()
	if p.closed {
		p.closeMu.Unlock()
		return
	}
	p.closed = true
	close(p.jobs)
	p.closeMu.Unlock()
	p.wg.Wait()
	p.cancel()
}
