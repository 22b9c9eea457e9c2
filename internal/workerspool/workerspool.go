// Copyright 2023-2026 The GoMLX Authors. SPDX-License-Identifier: Apache-2.0

// Package workerspool implements a fixed-size pool of long-lived workers, used for fork-join parallel regions.
//
// Each worker has a stable id in [0, NumWorkers), so callers can statically partition buffers and work
// by worker id, without locks.
package workerspool

import (
	"sync"

	"github.com/gomlx/exceptions"
)

// Pool is a fixed-size set of goroutines executing fork-join parallel regions.
//
// Only one parallel region runs at a time: concurrent calls to Run are serialized.
type Pool struct {
	numWorkers int

	// mu serializes parallel regions, since the workers of a region share statically partitioned state.
	mu     sync.Mutex
	tasks  []chan func(workerID int)
	wg     sync.WaitGroup
	closed bool
}

// New returns a new Pool with numWorkers workers.
//
// Worker 0 is the goroutine calling Run, so only numWorkers-1 goroutines are started.
// It panics if numWorkers <= 0.
func New(numWorkers int) *Pool {
	if numWorkers <= 0 {
		exceptions.Panicf("workerspool.New(%d): number of workers must be > 0", numWorkers)
	}
	p := &Pool{numWorkers: numWorkers}
	p.tasks = make([]chan func(workerID int), numWorkers)
	for workerID := 1; workerID < numWorkers; workerID++ {
		ch := make(chan func(workerID int))
		p.tasks[workerID] = ch
		go p.worker(workerID, ch)
	}
	return p
}

func (p *Pool) worker(workerID int, tasks <-chan func(workerID int)) {
	for task := range tasks {
		task(workerID)
		p.wg.Done()
	}
}

// NumWorkers returns the fixed number of workers of the pool.
func (p *Pool) NumWorkers() int {
	return p.numWorkers
}

// Run executes fn once on every worker, concurrently, and returns when all of them finished.
//
// fn receives the worker id. It panics if the pool is closed.
// If fn panics on worker 0 (the caller), Run still waits for the other workers before the panic propagates.
func (p *Pool) Run(fn func(workerID int)) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		exceptions.Panicf("workerspool.Pool.Run called on a closed pool")
	}
	if p.numWorkers == 1 {
		fn(0)
		return
	}
	p.wg.Add(p.numWorkers - 1)
	for workerID := 1; workerID < p.numWorkers; workerID++ {
		p.tasks[workerID] <- fn
	}
	defer p.wg.Wait()
	fn(0)
}

// ParallelFor calls fn(workerID, idx) for every idx in [0, n).
//
// Indices are statically assigned: worker w handles w, w+NumWorkers, w+2*NumWorkers, ...
// So the assignment of indices to workers depends only on n and the number of workers.
func (p *Pool) ParallelFor(n int, fn func(workerID, idx int)) {
	if n <= 0 {
		return
	}
	numWorkers := p.numWorkers
	if n == 1 || numWorkers == 1 {
		for idx := range n {
			fn(0, idx)
		}
		return
	}
	p.Run(func(workerID int) {
		for idx := workerID; idx < n; idx += numWorkers {
			fn(workerID, idx)
		}
	})
}

// Close stops the workers. The pool cannot be used afterwards.
// It is safe to call Close more than once.
func (p *Pool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.closed {
		return
	}
	p.closed = true
	for workerID := 1; workerID < p.numWorkers; workerID++ {
		close(p.tasks[workerID])
	}
}
