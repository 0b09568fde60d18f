package pipeline

import (
	"context"
	"log/slog"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Job is one unit of pool work.
type Job func(ctx context.Context) error

// Pool is a bounded worker pool with an explicit lifecycle: Start launches
// the workers, Submit enqueues jobs, Drain closes intake and waits for
// in-flight jobs, Shutdown aborts. The first job error cancels the pool.
type Pool struct {
	workers int
	jobs    chan Job
	g       *errgroup.Group
	ctx     context.Context
	cancel  context.CancelFunc
	closing sync.Once
	logger  *slog.Logger
}

// NewPool creates a Pool with the given concurrency bound. The job queue
// holds queue entries, so up to that many submissions never block.
func NewPool(ctx context.Context, workers, queue int, logger *slog.Logger) *Pool {
	if workers < 1 {
		workers = 1
	}
	if queue < 0 {
		queue = 0
	}
	ctx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(ctx)
	return &Pool{
		workers: workers,
		jobs:    make(chan Job, queue),
		g:       g,
		ctx:     gctx,
		cancel:  cancel,
		logger:  logger.With(slog.String("component", "pool")),
	}
}

// Start launches the workers. Each worker pulls jobs until intake closes or
// the pool context is cancelled.
func (p *Pool) Start() {
	for w := 0; w < p.workers; w++ {
		worker := w
		p.g.Go(func() error {
			p.logger.Debug("worker started", slog.Int("worker", worker))
			for {
				select {
				case <-p.ctx.Done():
					return p.ctx.Err()
				case job, ok := <-p.jobs:
					if !ok {
						return nil
					}
					if err := job(p.ctx); err != nil {
						return err
					}
				}
			}
		})
	}
}

// Submit enqueues a job, blocking only when the queue is full. It fails once
// the pool has been cancelled by a job error or Shutdown. Submit must not be
// called after Drain.
func (p *Pool) Submit(job Job) error {
	select {
	case <-p.ctx.Done():
		return p.ctx.Err()
	default:
	}
	select {
	case p.jobs <- job:
		return nil
	case <-p.ctx.Done():
		return p.ctx.Err()
	}
}

// Drain closes intake and waits for all in-flight jobs. It returns the first
// job error, if any.
func (p *Pool) Drain() error {
	p.closing.Do(func() { close(p.jobs) })
	err := p.g.Wait()
	p.cancel()
	return err
}

// Shutdown cancels all work and waits for the workers to exit. Queued jobs
// are discarded; jobs already running observe cancellation through their
// context.
func (p *Pool) Shutdown() {
	p.cancel()
	_ = p.g.Wait()
}
