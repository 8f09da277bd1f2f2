package utils

import (
	"context"
	"errors"
	"sync"
)

// ErrPoolStopped is returned when submitting to a pool that is not running.
var ErrPoolStopped = errors.New("worker pool is not running")

// WorkerPool manages a pool of workers for concurrent operations.
// It provides a thread-safe way to distribute work across multiple goroutines,
// used to bound how many ffprobe processes run at once when a media
// directory is listed.
type WorkerPool struct {
	workers   int
	workQueue chan func()
	stopCh    chan struct{}
	wg        sync.WaitGroup
	running   bool
	mu        sync.RWMutex
}

// NewWorkerPool creates a new worker pool with the specified number of workers.
// The work queue is buffered at 2x the worker count to allow for efficient
// work distribution without blocking submitters.
func NewWorkerPool(workers int) *WorkerPool {
	if workers < 1 {
		workers = 1
	}
	return &WorkerPool{
		workers:   workers,
		workQueue: make(chan func(), workers*2), // Buffer for work items
		stopCh:    make(chan struct{}),
	}
}

// Workers returns the number of worker goroutines.
func (wp *WorkerPool) Workers() int {
	return wp.workers
}

// Start begins processing work items.
// This method is idempotent - calling it multiple times has no effect
// if the pool is already running.
func (wp *WorkerPool) Start() {
	wp.mu.Lock()
	defer wp.mu.Unlock()

	if wp.running {
		return
	}

	wp.running = true

	// Start worker goroutines
	for i := 0; i < wp.workers; i++ {
		wp.wg.Add(1)
		go wp.worker()
	}
}

// Stop stops the worker pool and waits for all workers to finish.
// Queued items that no worker picked up are dropped.
func (wp *WorkerPool) Stop() {
	wp.mu.Lock()
	if !wp.running {
		wp.mu.Unlock()
		return
	}
	wp.running = false
	close(wp.stopCh)
	wp.mu.Unlock()

	wp.wg.Wait()
}

// Submit queues a work item, blocking while the queue is full.
// It fails when ctx is done or the pool stops first.
func (wp *WorkerPool) Submit(ctx context.Context, work func()) error {
	wp.mu.RLock()
	running := wp.running
	wp.mu.RUnlock()

	if !running {
		return ErrPoolStopped
	}

	select {
	case wp.workQueue <- work:
		return nil
	case <-wp.stopCh:
		return ErrPoolStopped
	case <-ctx.Done():
		return ctx.Err()
	}
}

// TrySubmit adds a work item to the queue.
// Returns true if the work was successfully queued, false if the queue
// is full or the pool is not running. Non-blocking operation.
func (wp *WorkerPool) TrySubmit(work func()) bool {
	wp.mu.RLock()
	defer wp.mu.RUnlock()

	if !wp.running {
		return false
	}

	select {
	case wp.workQueue <- work:
		return true
	default:
		return false // Queue is full
	}
}

// worker processes work items from the queue.
// Each worker runs in its own goroutine and continues processing
// until the pool is stopped.
func (wp *WorkerPool) worker() {
	defer wp.wg.Done()

	for {
		select {
		case work := <-wp.workQueue:
			if work != nil {
				work()
			}
		case <-wp.stopCh:
			return
		}
	}
}
