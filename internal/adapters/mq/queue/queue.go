// Package queue holds notifications waiting for delivery.
//
// Producers never block: a full or stopped queue drops the notification
// and reports it.
package queue

import (
	"context"
	"fmt"
	"sync"

	"github.com/okian/matchsync/internal/domain/model"
	"github.com/okian/matchsync/pkg/metrics"
)

// DefaultCapacity is used when no capacity option is given.
const DefaultCapacity = 1024

// Notification is the payload flowing through the queue.
type Notification = model.Notification

// Queue provides non-blocking enqueue and channel-based dequeue semantics.
type Queue interface {
	// Enqueue adds a notification. Returns false if it was dropped.
	Enqueue(ctx context.Context, n Notification) bool

	// Dequeue returns a channel that receives notifications as they become
	// available. The channel is closed when the queue is closed.
	Dequeue(ctx context.Context) <-chan Notification

	// Len returns the current number of queued notifications.
	Len(ctx context.Context) int

	// Close stops accepting notifications. Pending ones can still be drained.
	Close() error

	// IsClosed returns true if the queue has been closed.
	IsClosed() bool
}

// InMemoryQueue implements Queue using a buffered channel.
type InMemoryQueue struct {
	items    chan Notification
	capacity int

	mu     sync.RWMutex
	closed bool
}

// NewInMemoryQueue creates a new in-memory queue with configuration options.
func NewInMemoryQueue(opts ...Option) *InMemoryQueue {
	q := &InMemoryQueue{capacity: DefaultCapacity}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make(chan Notification, q.capacity)

	metrics.UpdateQueueCapacity(q.capacity)
	metrics.UpdateQueueSize(0)

	return q
}

// TryEnqueue adds n or explains why it could not.
func (q *InMemoryQueue) TryEnqueue(ctx context.Context, n Notification) error { //nolint:gocritic // hugeParam: passed by value for channel semantics
	q.mu.RLock()
	defer q.mu.RUnlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return fmt.Errorf("enqueue %s: %w", n.ID, ErrStopped)
	}
	if err := ctx.Err(); err != nil {
		metrics.RecordErrorByComponent("queue", "context_cancelled")
		return fmt.Errorf("enqueue %s: %w", n.ID, err)
	}

	select {
	case q.items <- n:
		metrics.UpdateQueueSize(len(q.items))
		return nil
	default:
		metrics.RecordErrorByComponent("queue", "queue_full")
		return fmt.Errorf("enqueue %s: %w", n.ID, ErrFull)
	}
}

// Enqueue adds n to the queue.
func (q *InMemoryQueue) Enqueue(ctx context.Context, n Notification) bool { //nolint:gocritic // hugeParam: passed by value for channel semantics
	return q.TryEnqueue(ctx, n) == nil
}

// Dequeue returns a channel that receives notifications as they become available.
func (q *InMemoryQueue) Dequeue(ctx context.Context) <-chan Notification {
	out := make(chan Notification)
	go func() {
		defer close(out)
		for {
			select {
			case n, ok := <-q.items:
				if !ok {
					return
				}
				metrics.UpdateQueueSize(len(q.items))
				select {
				case out <- n:
				case <-ctx.Done():
					return
				}
			case <-ctx.Done():
				return
			}
		}
	}()
	return out
}

// Len returns the current number of queued notifications.
func (q *InMemoryQueue) Len(_ context.Context) int {
	size := len(q.items)
	metrics.UpdateQueueSize(size)
	return size
}

// Close stops the queue. Closing twice is a no-op.
func (q *InMemoryQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		return nil
	}
	close(q.items)
	q.closed = true
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *InMemoryQueue) IsClosed() bool {
	q.mu.RLock()
	defer q.mu.RUnlock()
	return q.closed
}
