package pool

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/YashHaritash/btp-backend/internal/domain"
	"github.com/YashHaritash/btp-backend/internal/metrics"
)

// Task is one unit of work run by a pool worker.
type Task func(ctx context.Context)

const (
	jobQueued int32 = iota
	jobRunning
	jobAbandoned
)

type job struct {
	ctx   context.Context
	run   Task
	done  chan struct{}
	state atomic.Int32
}

// WorkerPool runs tasks on a fixed number of goroutines behind a bounded queue.
type WorkerPool struct {
	size         int
	jobs         chan *job
	queueTimeout time.Duration
	logger       *zap.Logger
	wg           sync.WaitGroup

	mu     sync.RWMutex
	closed bool
}

// Option configures a WorkerPool.
type Option func(*WorkerPool)

// WithQueueTimeout bounds how long a task may wait in the queue before a
// worker picks it up. Zero means no bound beyond the caller's context.
func WithQueueTimeout(d time.Duration) Option {
	return func(p *WorkerPool) { p.queueTimeout = d }
}

// NewWorkerPool creates a pool with size workers and room for queueSize waiting tasks.
func NewWorkerPool(size, queueSize int, logger *zap.Logger, opts ...Option) *WorkerPool {
	if size < 1 {
		size = 1
	}
	if queueSize < 0 {
		queueSize = 0
	}
	p := &WorkerPool{
		size:   size,
		jobs:   make(chan *job, queueSize),
		logger: logger,
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// Start launches all worker goroutines. Call Stop to drain and wait for them.
func (p *WorkerPool) Start() {
	p.logger.Info("Starting worker pool", zap.Int("pool_size", p.size), zap.Int("queue_size", cap(p.jobs)))

	for i := 0; i < p.size; i++ {
		p.wg.Add(1)
		go p.worker(i)
	}
}

// Stop refuses new tasks, lets queued ones finish and waits for every worker.
func (p *WorkerPool) Stop() {
	p.mu.Lock()
	if !p.closed {
		p.closed = true
		close(p.jobs)
	}
	p.mu.Unlock()

	p.wg.Wait()
	p.logger.Info("Worker pool stopped")
}

// Do queues the task and blocks until it has run or ctx is done. It returns
// domain.ErrServerBusy without waiting when the queue is full, and after the
// queue timeout when no worker has picked the task up by then.
func (p *WorkerPool) Do(ctx context.Context, task Task) error {
	j := &job{ctx: ctx, run: task, done: make(chan struct{})}

	p.mu.RLock()
	if p.closed {
		p.mu.RUnlock()
		return fmt.Errorf("%w: pool stopped", domain.ErrServerBusy)
	}
	select {
	case p.jobs <- j:
		metrics.QueueDepth.Inc()
	default:
		p.mu.RUnlock()
		metrics.ExecutionsRejected.Inc()
		return domain.ErrServerBusy
	}
	p.mu.RUnlock()

	var expired <-chan time.Time
	if p.queueTimeout > 0 {
		timer := time.NewTimer(p.queueTimeout)
		defer timer.Stop()
		expired = timer.C
	}

	for {
		select {
		case <-j.done:
			return nil
		case <-ctx.Done():
			j.state.CompareAndSwap(jobQueued, jobAbandoned)
			return ctx.Err()
		case <-expired:
			if j.state.CompareAndSwap(jobQueued, jobAbandoned) {
				metrics.ExecutionsRejected.Inc()
				return fmt.Errorf("%w: queued for %s", domain.ErrServerBusy, p.queueTimeout)
			}
			// Already running; wait for it to finish.
			expired = nil
		}
	}
}

func (p *WorkerPool) worker(id int) {
	defer p.wg.Done()

	p.logger.Debug("Worker started", zap.Int("worker_id", id))

	for j := range p.jobs {
		metrics.QueueDepth.Dec()
		p.process(id, j)
	}

	p.logger.Debug("Job channel closed", zap.Int("worker_id", id))
}

func (p *WorkerPool) process(id int, j *job) {
	defer close(j.done)
	defer func() {
		if r := recover(); r != nil {
			p.logger.Error("Worker panic recovered",
				zap.Int("worker_id", id),
				zap.Any("panic", r),
			)
		}
	}()

	// The caller gave up while the task was queued.
	if !j.state.CompareAndSwap(jobQueued, jobRunning) || j.ctx.Err() != nil {
		return
	}

	metrics.WorkersActive.Inc()
	defer metrics.WorkersActive.Dec()

	j.run(j.ctx)
}
