package workerspool

import (
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPool_Run(t *testing.T) {
	pool := New(4)
	defer pool.Close()
	require.Equal(t, 4, pool.NumWorkers())

	// All workers must run concurrently: each waits for all the others.
	var started sync.WaitGroup
	started.Add(pool.NumWorkers())
	seen := make([]atomic.Int32, pool.NumWorkers())
	done := make(chan struct{})
	go func() {
		pool.Run(func(workerID int) {
			seen[workerID].Add(1)
			started.Done()
			started.Wait()
		})
		close(done)
	}()
	select {
	case <-done:
		// Success
	case <-time.After(5 * time.Second):
		t.Fatal("Timeout before all workers were executed.")
	}
	for workerID := range seen {
		assert.Equal(t, int32(1), seen[workerID].Load(), "worker %d", workerID)
	}
}

func TestPool_ParallelFor(t *testing.T) {
	for _, numWorkers := range []int{1, 3, 8} {
		pool := New(numWorkers)
		const n = 50
		owner := make([]int, n)
		var count atomic.Int32
		pool.ParallelFor(n, func(workerID, idx int) {
			owner[idx] = workerID
			count.Add(1)
		})
		assert.Equal(t, int32(n), count.Load())
		for idx, workerID := range owner {
			assert.Equal(t, idx%numWorkers, workerID, "numWorkers=%d, idx=%d", numWorkers, idx)
		}
		pool.ParallelFor(0, func(workerID, idx int) { t.Fatal("no work expected") })
		pool.Close()
	}
}

func TestPool_RunPanicOnCaller(t *testing.T) {
	pool := New(3)
	defer pool.Close()

	var finished atomic.Int32
	assert.Panics(t, func() {
		pool.Run(func(workerID int) {
			if workerID == 0 {
				panic("worker 0 failed")
			}
			time.Sleep(50 * time.Millisecond)
			finished.Add(1)
		})
	})
	// Run only returns (or panics) after all the other workers finished.
	assert.Equal(t, int32(2), finished.Load())

	// The pool is still usable.
	var count atomic.Int32
	pool.Run(func(int) { count.Add(1) })
	assert.Equal(t, int32(3), count.Load())
}

func TestPool_Close(t *testing.T) {
	pool := New(2)
	pool.Close()
	pool.Close()
	assert.Panics(t, func() { pool.Run(func(int) {}) })
	assert.Panics(t, func() { New(0) })
}
