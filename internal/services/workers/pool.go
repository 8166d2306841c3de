package workers

import (
	"context"
	"fmt"
	"sync"

	"github.com/ternarybob/arbor"
)

// Task represents a work item to be processed
type Task func(ctx context.Context) error

// Pool manages a pool of workers for parallel processing. Narrative section
// generation fans out through a pool so concurrent AI calls stay bounded.
type Pool struct {
	tasks      chan Task
	maxWorkers int
	wg         sync.WaitGroup
	ctx        context.Context
	cancel     context.CancelFunc
	errors     []error
	errorsMu   sync.Mutex
	logger     arbor.ILogger
}

// NewPool creates a new worker pool. The parent context flows into every
// task, so cancelling the report job cancels in-flight section work.
func NewPool(parent context.Context, maxWorkers int, logger arbor.ILogger) *Pool {
	if maxWorkers <= 0 {
		maxWorkers = 2
	}
	if parent == nil {
		parent = context.Background()
	}

	ctx, cancel := context.WithCancel(parent)

	return &Pool{
		tasks:      make(chan Task, maxWorkers*2),
		maxWorkers: maxWorkers,
		ctx:        ctx,
		cancel:     cancel,
		errors:     make([]error, 0),
		logger:     logger,
	}
}

// Start begins the worker pool
func (p *Pool) Start() {
	p.logger.Debug().
		Int("max_workers", p.maxWorkers).
		Msg("Starting worker pool")

	for i := 0; i < p.maxWorkers; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Submit adds a task to the pool
func (p *Pool) Submit(task Task) error {
	select {
	case p.tasks <- task:
		return nil
	case <-p.ctx.Done():
		return fmt.Errorf("worker pool is shutting down")
	}
}

// Wait waits for all submitted tasks to complete
func (p *Pool) Wait() {
	close(p.tasks)
	p.wg.Wait()
}

// Shutdown gracefully shuts down the worker pool
func (p *Pool) Shutdown() {
	p.cancel()
	p.Wait()
	p.logger.Debug().Msg("Worker pool shutdown complete")
}

// Errors returns all collected errors
func (p *Pool) Errors() []error {
	p.errorsMu.Lock()
	defer p.errorsMu.Unlock()
	return p.errors
}

// worker processes tasks from the queue
func (p *Pool) worker(id int) {
	defer p.wg.Done()

	for {
		select {
		case task, ok := <-p.tasks:
			if !ok {
				return
			}

			if err := task(p.ctx); err != nil {
				p.errorsMu.Lock()
				p.errors = append(p.errors, err)
				p.errorsMu.Unlock()

				p.logger.Error().
					Err(err).
					Int("worker_id", id).
					Msg("Task failed")
			}

		case <-p.ctx.Done():
			return
		}
	}
}
