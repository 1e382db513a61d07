package bus

import (
	"context"
	"errors"
	"sync/atomic"

	"main/internal/schema"
)

var (
	ErrQueueFull   = errors.New("command queue full")
	ErrQueueClosed = errors.New("command queue closed")
)

// Command is the unit delivered to the apply loop: an encoded payload with
// its ordering metadata.
type Command struct {
	Header  schema.CommandHeader
	Payload []byte
}

// Queue is a bounded, non-blocking command queue. A single consumer drains
// it so commands stay in publication order.
type Queue struct {
	ch     chan Command
	closed uint32
}

// NewQueue allocates a queue with the given capacity.
func NewQueue(capacity int) *Queue {
	if capacity <= 0 {
		capacity = 1
	}
	return &Queue{ch: make(chan Command, capacity)}
}

// TryPublish enqueues a command without blocking.
func (q *Queue) TryPublish(c Command) error {
	if atomic.LoadUint32(&q.closed) != 0 {
		return ErrQueueClosed
	}
	select {
	case q.ch <- c:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops the queue from accepting new commands.
func (q *Queue) Close() {
	if atomic.CompareAndSwapUint32(&q.closed, 0, 1) {
		close(q.ch)
	}
}

// Run consumes commands until the context is done or the queue is closed.
func (q *Queue) Run(ctx context.Context, handler func(Command)) {
	for {
		select {
		case <-ctx.Done():
			return
		case c, ok := <-q.ch:
			if !ok {
				return
			}
			handler(c)
		}
	}
}
