package jobs

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// ErrQueueClosed is returned by Enqueue when the queue is not running.
var ErrQueueClosed = errors.New("queue not running")

// Job is a unit of background work.
type Job struct {
	ID       string
	Type     string
	Payload  any
	Attempt  int
	Enqueued time.Time
}

// Handler processes a job. A returned error schedules a retry.
type Handler func(context.Context, Job) error

// FailureHandler is invoked once a job has exhausted its retries.
type FailureHandler func(context.Context, Job, error)

// QueueConfig configures the worker pool.
type QueueConfig struct {
	Workers    int
	BufferSize int
	MaxRetries int
	RetryDelay time.Duration
	OnFailure  FailureHandler
	Logger     *zap.Logger
}

// Queue dispatches jobs to a fixed pool of goroutines with delayed retries.
type Queue struct {
	name      string
	handler   Handler
	onFailure FailureHandler
	cfg       QueueConfig
	logger    *zap.Logger

	jobs    chan Job
	ctx     context.Context
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.Mutex
	running bool
}

// NewQueue builds a queue; Start must be called before Enqueue.
func NewQueue(name string, handler Handler, cfg QueueConfig) *Queue {
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.BufferSize <= 0 {
		cfg.BufferSize = cfg.Workers * 8
	}
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	if cfg.RetryDelay <= 0 {
		cfg.RetryDelay = time.Second
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Queue{
		name:      name,
		handler:   handler,
		onFailure: cfg.OnFailure,
		cfg:       cfg,
		logger:    logger.With(zap.String("queue", name)),
		jobs:      make(chan Job, cfg.BufferSize),
	}
}

// Start launches the workers. Calling it on a running queue is a no-op.
func (q *Queue) Start(ctx context.Context) {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.running {
		return
	}
	q.ctx, q.cancel = context.WithCancel(ctx)
	for i := 0; i < q.cfg.Workers; i++ {
		q.wg.Add(1)
		go q.work()
	}
	q.running = true
	q.logger.Info("queue started", zap.Int("workers", q.cfg.Workers))
}

// Stop cancels the workers and waits for in-flight jobs to return.
func (q *Queue) Stop() {
	q.mu.Lock()
	if !q.running {
		q.mu.Unlock()
		return
	}
	q.running = false
	q.cancel()
	q.mu.Unlock()

	q.wg.Wait()
	q.logger.Info("queue stopped")
}

// Enqueue hands a job to the pool, blocking while the buffer is full.
func (q *Queue) Enqueue(job Job) error {
	q.mu.Lock()
	ctx, running := q.ctx, q.running
	q.mu.Unlock()
	if !running {
		return fmt.Errorf("%s: %w", q.name, ErrQueueClosed)
	}
	if job.Enqueued.IsZero() {
		job.Enqueued = time.Now().UTC()
	}
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", q.name, ErrQueueClosed)
	case q.jobs <- job:
		return nil
	}
}

// Pending reports how many jobs are buffered.
func (q *Queue) Pending() int {
	return len(q.jobs)
}

func (q *Queue) work() {
	defer q.wg.Done()
	for {
		select {
		case <-q.ctx.Done():
			return
		case job := <-q.jobs:
			if err := q.handler(q.ctx, job); err != nil {
				q.retry(job, err)
			}
		}
	}
}

func (q *Queue) retry(job Job, err error) {
	job.Attempt++
	fields := []zap.Field{zap.String("job_id", job.ID), zap.String("type", job.Type), zap.Int("attempt", job.Attempt), zap.Error(err)}
	if job.Attempt > q.cfg.MaxRetries {
		q.logger.Error("job exhausted retries", fields...)
		if q.onFailure != nil {
			q.onFailure(q.ctx, job, err)
		}
		return
	}
	q.logger.Warn("job failed, retrying", fields...)

	q.wg.Add(1)
	go func() {
		defer q.wg.Done()
		timer := time.NewTimer(q.cfg.RetryDelay)
		defer timer.Stop()
		select {
		case <-q.ctx.Done():
		case <-timer.C:
			select {
			case q.jobs <- job:
			case <-q.ctx.Done():
			}
		}
	}()
}
