package worker

import (
	"context"
	"sync"
)

// Job represents a unit of work to be executed
type Job interface {
	Execute(ctx context.Context) Result
}

// Result represents the result of a job execution
type Result interface {
	GetError() error
}

// Pool manages a pool of workers that execute jobs concurrently
type Pool struct {
	workers    int
	jobQueue   chan Job
	results    chan Result
	collector  *ResultCollector
	collected  chan struct{}
	wg         sync.WaitGroup
	ctx        context.Context
	cancelFunc context.CancelFunc
	closeOnce  sync.Once
	queueOnce  sync.Once
}

// NewPool creates a pool of workers whose jobs are cancelled with ctx
func NewPool(ctx context.Context, workers int) *Pool {
	if workers <= 0 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)

	return &Pool{
		workers:    workers,
		jobQueue:   make(chan Job, workers*2),
		results:    make(chan Result, workers*2),
		collector:  NewResultCollector(),
		collected:  make(chan struct{}),
		ctx:        ctx,
		cancelFunc: cancel,
	}
}

// Start starts the workers and the result collector
func (p *Pool) Start() {
	go func() {
		defer close(p.collected)
		for result := range p.results {
			p.collector.Add(result)
		}
	}()

	for i := 0; i < p.workers; i++ {
		p.wg.Add(1)
		go p.worker()
	}
}

// worker is the worker goroutine that processes jobs
func (p *Pool) worker() {
	defer p.wg.Done()

	for {
		select {
		case <-p.ctx.Done():
			return
		case job, ok := <-p.jobQueue:
			if !ok {
				return
			}
			result := job.Execute(p.ctx)
			select {
			case p.results <- result:
			case <-p.ctx.Done():
				return
			}
		}
	}
}

// Submit submits a job to the pool. It returns false when the pool was shut
// down before the job could be queued.
func (p *Pool) Submit(job Job) bool {
	if p.ctx.Err() != nil {
		return false
	}
	select {
	case <-p.ctx.Done():
		return false
	case p.jobQueue <- job:
		return true
	}
}

// Wait waits for all submitted jobs to complete and returns their results in
// completion order
func (p *Pool) Wait() []Result {
	// Close job queue to signal workers to exit when done
	p.closeQueue()
	return p.drain()
}

// Shutdown cancels queued and running jobs and returns the results that were
// delivered before cancellation
func (p *Pool) Shutdown() []Result {
	p.cancelFunc()
	p.closeQueue()
	return p.drain()
}

func (p *Pool) drain() []Result {
	p.wg.Wait()
	p.closeOnce.Do(func() {
		close(p.results)
	})
	<-p.collected
	p.cancelFunc()

	return p.collector.Results()
}

func (p *Pool) closeQueue() {
	p.queueOnce.Do(func() {
		close(p.jobQueue)
	})
}

// ResultCollector gathers results as they arrive
type ResultCollector struct {
	results []Result
	mu      sync.Mutex
}

// NewResultCollector creates a new result collector
func NewResultCollector() *ResultCollector {
	return &ResultCollector{
		results: make([]Result, 0),
	}
}

// Add adds a result to the collector (thread-safe)
func (c *ResultCollector) Add(result Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.results = append(c.results, result)
}

// Results returns a copy of all collected results
func (c *ResultCollector) Results() []Result {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Result, len(c.results))
	copy(out, c.results)
	return out
}
