package async

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"
)

var ErrQueueClosed = errors.New("queue is shutting down")

// WorkerQueue runs jobs on a fixed pool of goroutines.
type WorkerQueue struct {
	logger  *slog.Logger
	workers int
	timeout time.Duration

	base   context.Context
	cancel context.CancelFunc

	ch   chan Job
	wg   sync.WaitGroup
	once sync.Once

	mu     sync.RWMutex
	closed bool
}

type Option func(*WorkerQueue)

func WithWorkers(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.workers = n
		}
	}
}

func WithQueueSize(n int) Option {
	return func(q *WorkerQueue) {
		if n > 0 {
			q.ch = make(chan Job, n)
		}
	}
}

// WithJobTimeout bounds each job. Zero (the default) lets a job run until it
// finishes or the queue is torn down.
func WithJobTimeout(d time.Duration) Option {
	return func(q *WorkerQueue) {
		if d > 0 {
			q.timeout = d
		}
	}
}

// NewWorkerQueue starts the workers. Jobs run under a context derived from
// ctx, so cancelling ctx aborts in-flight work.
func NewWorkerQueue(ctx context.Context, logger *slog.Logger, opts ...Option) *WorkerQueue {
	if logger == nil {
		logger = slog.Default()
	}
	base, cancel := context.WithCancel(ctx)
	q := &WorkerQueue{
		logger:  logger,
		workers: 4,
		base:    base,
		cancel:  cancel,
		ch:      make(chan Job, 64),
	}
	for _, o := range opts {
		o(q)
	}
	q.start()
	return q
}

func (q *WorkerQueue) start() {
	q.once.Do(func() {
		for i := 0; i < q.workers; i++ {
			q.wg.Add(1)
			go func(workerID int) {
				defer q.wg.Done()
				q.logger.Debug("queue.worker.start", "worker_id", workerID)

				for job := range q.ch {
					q.run(workerID, job)
				}

				q.logger.Debug("queue.worker.stop", "worker_id", workerID)
			}(i + 1)
		}
	})
}

func (q *WorkerQueue) run(workerID int, job Job) {
	ctx, cancel := q.base, context.CancelFunc(func() {})
	if q.timeout > 0 {
		ctx, cancel = context.WithTimeout(q.base, q.timeout)
	}
	defer cancel()
	defer func() {
		if r := recover(); r != nil {
			q.logger.Error("queue.job.panic", "worker_id", workerID, "session_id", job.SessionID, "panic", r)
		}
	}()

	q.logger.Debug("queue.job.start", "worker_id", workerID, "session_id", job.SessionID,
		"attempt", job.Attempt, "wait_ms", time.Since(job.SubmittedAt).Milliseconds())
	job.Run(ctx)
}

// Enqueue hands job to a worker, blocking while the queue is full.
func (q *WorkerQueue) Enqueue(ctx context.Context, job Job) error {
	q.mu.RLock()
	defer q.mu.RUnlock()
	if q.closed {
		q.logger.Warn("queue.enqueue.closed", "session_id", job.SessionID)
		return ErrQueueClosed
	}
	if job.SubmittedAt.IsZero() {
		job.SubmittedAt = time.Now()
	}
	select {
	case q.ch <- job:
		return nil
	default:
		q.logger.Warn("queue.enqueue.backpressure", "session_id", job.SessionID)
	}
	select {
	case q.ch <- job:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Shutdown stops accepting jobs and waits for the queued ones. If ctx ends
// first, in-flight jobs are cancelled.
func (q *WorkerQueue) Shutdown(ctx context.Context) {
	q.mu.Lock()
	if q.closed {
		q.mu.Unlock()
		return
	}
	q.closed = true
	close(q.ch)
	q.mu.Unlock()

	done := make(chan struct{})
	go func() { defer close(done); q.wg.Wait() }()

	select {
	case <-ctx.Done():
		q.logger.Warn("queue.shutdown.interrupted")
		q.cancel()
		<-done
	case <-done:
		q.logger.Info("queue.shutdown.drained")
	}
	q.cancel()
}
