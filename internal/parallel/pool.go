// Package parallel provides the goroutine lifecycle primitives shared by the
// dispatcher: starting a fixed number of worker goroutines, waiting for them
// to drain, and signalling a clean shutdown exactly once.
package parallel

import (
	"runtime"
	"sync"
	"sync/atomic"
)

// Pool starts a fixed number of worker goroutines, each calling the same
// function once; Run returns when every call has returned. Unlike a
// task-queue pool, workers here do not receive individual work items from
// the pool itself — the caller's worker function pulls its own work (e.g.
// from a shared combo cursor) and decides for itself when to exit, for
// example by polling Stopped.
//
// Thread safety: Pool is safe for concurrent use.
type Pool struct {
	workers int
	wg      sync.WaitGroup

	done    chan struct{}
	running atomic.Bool
}

// NewPool creates a pool sized for n workers. If n is 0 or negative,
// GOMAXPROCS is used — the same fallback the dispatcher uses when no
// -threads flag is given.
func NewPool(n int) *Pool {
	if n <= 0 {
		n = runtime.GOMAXPROCS(0)
	}
	p := &Pool{
		workers: n,
		done:    make(chan struct{}),
	}
	p.running.Store(true)
	return p
}

// Workers returns the number of worker goroutines the pool was sized for.
func (p *Pool) Workers() int {
	return p.workers
}

// Run starts the pool's goroutines, each invoking fn(workerID). Run blocks
// until every worker function returns (normally because it observed
// Stopped() or exhausted its own work).
func (p *Pool) Run(fn func(workerID int)) {
	p.wg.Add(p.workers)
	for i := range p.workers {
		go func(id int) {
			defer p.wg.Done()
			fn(id)
		}(i)
	}
	p.wg.Wait()
}

// Stop signals all workers to stop at their next check of Stopped. Stop does
// not wait for workers to exit; call Run (which blocks) or Wait for that.
// Stop is idempotent.
func (p *Pool) Stop() {
	if p.running.CompareAndSwap(true, false) {
		close(p.done)
	}
}

// Stopped reports whether Stop has been called. A worker function can poll
// it between work items to finish its current item and then exit. (The
// shadercompile dispatcher polls its Run's own stop flag instead.)
func (p *Pool) Stopped() bool {
	return !p.running.Load()
}

// Wait blocks until all worker goroutines started by Run have returned.
// Wait is only meaningful after Run has been called from another goroutine,
// or concurrently with it.
func (p *Pool) Wait() {
	p.wg.Wait()
}
