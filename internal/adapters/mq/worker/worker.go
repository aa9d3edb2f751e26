// Package worker drains queued notifications into a Notifier.
package worker

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/logger"
	"github.com/okian/matchsync/pkg/metrics"
)

// Default worker configuration constants.
const (
	DefaultWorkers        = 2
	defaultNotifyTimeout  = 10 * time.Second
	workerShutdownTimeout = 5 * time.Second
)

// Notifier delivers a notification to the user.
type Notifier interface {
	Notify(ctx context.Context, n model.Notification) error
}

// Queue defines how workers receive notifications.
type Queue interface {
	Dequeue(ctx context.Context) <-chan model.Notification
}

// Worker processes notifications until stopped.
type Worker interface {
	// Run starts the worker loop until ctx is canceled.
	Run(ctx context.Context)

	// Shutdown stops the worker.
	Shutdown(ctx context.Context) error
}

// InMemoryWorker implements Worker.
type InMemoryWorker struct {
	queue         Queue
	notifier      Notifier
	name          string
	notifyTimeout time.Duration

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}

	logger logger.Logger
}

// NewInMemoryWorker creates a new worker with configuration options.
func NewInMemoryWorker(q Queue, notifier Notifier, opts ...Option) *InMemoryWorker {
	w := &InMemoryWorker{
		queue:         q,
		notifier:      notifier,
		name:          "worker",
		notifyTimeout: defaultNotifyTimeout,
		shutdown:      make(chan struct{}),
		done:          make(chan struct{}),
		logger:        logger.Get().Named("worker"),
	}
	for _, opt := range opts {
		opt(w)
	}
	if w.name != "worker" {
		w.logger = w.logger.Named(w.name)
	}
	return w
}

// Run starts the worker loop. It returns when ctx ends, Shutdown is called
// or the queue is closed and drained.
func (w *InMemoryWorker) Run(ctx context.Context) {
	defer close(w.done)

	ch := w.queue.Dequeue(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-w.shutdown:
			return
		case n, ok := <-ch:
			if !ok {
				return
			}
			if err := w.process(ctx, n); err != nil {
				w.logger.Warn(ctx, "notification not delivered",
					logger.String("notification_id", n.ID),
					logger.String("session_id", n.SessionID),
					logger.Error(err),
				)
			}
		}
	}
}

// Shutdown stops the worker and waits for the loop to exit.
func (w *InMemoryWorker) Shutdown(ctx context.Context) error {
	w.shutdownOnce.Do(func() { close(w.shutdown) })

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

func (w *InMemoryWorker) process(ctx context.Context, n model.Notification) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	start := time.Now()
	defer func() {
		metrics.RecordWorkerProcessingLatency(float64(time.Since(start).Milliseconds()))
	}()

	nctx, cancel := context.WithTimeout(ctx, w.notifyTimeout)
	defer cancel()

	if err := w.notifier.Notify(nctx, n); err != nil {
		metrics.RecordNotification("failed")
		metrics.RecordErrorByComponent("worker", "notify_error")
		return fmt.Errorf("notify %s: %w", n.ID, err)
	}
	metrics.RecordNotification("sent")
	return nil
}

// Pool manages multiple workers.
type Pool struct {
	workers []*InMemoryWorker
	queue   Queue

	stopOnce sync.Once
	logger   logger.Logger
}

// NewPool creates a new worker pool. A count below one uses DefaultWorkers.
func NewPool(workerCount int, q Queue, notifier Notifier, opts ...Option) *Pool {
	if workerCount < 1 {
		workerCount = DefaultWorkers
	}

	pool := &Pool{
		workers: make([]*InMemoryWorker, workerCount),
		queue:   q,
		logger:  logger.Get().Named("worker-pool"),
	}
	for i := 0; i < workerCount; i++ {
		wopts := append([]Option{WithName("worker-" + strconv.Itoa(i))}, opts...)
		pool.workers[i] = NewInMemoryWorker(q, notifier, wopts...)
	}

	metrics.UpdateWorkerCount(workerCount)
	return pool
}

// Size returns the number of workers.
func (p *Pool) Size() int { return len(p.workers) }

// Start starts all workers in the pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		go w.Run(ctx)
	}
}

// Stop signals every worker and waits briefly for each.
func (p *Pool) Stop() {
	p.stopOnce.Do(func() {
		for _, w := range p.workers {
			w.shutdownOnce.Do(func() { close(w.shutdown) })
		}
	})
	for _, w := range p.workers {
		select {
		case <-w.done:
		case <-time.After(workerShutdownTimeout):
		}
	}
}

// Shutdown closes the queue and lets workers drain it until ctx ends, then
// stops whoever is left.
func (p *Pool) Shutdown(ctx context.Context) error {
	if closer, ok := p.queue.(interface{ Close() error }); ok {
		if err := closer.Close(); err != nil {
			p.logger.Error(ctx, "error closing queue", logger.Error(err))
		}
	}

	for i, w := range p.workers {
		select {
		case <-w.done:
		case <-ctx.Done():
			p.logger.Warn(ctx, "worker did not drain in time", logger.Int("worker_id", i))
			p.Stop()
			return fmt.Errorf("worker pool shutdown: %w", ctx.Err())
		}
	}
	metrics.UpdateWorkerCount(0)
	return nil
}
