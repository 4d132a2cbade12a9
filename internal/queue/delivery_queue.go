package queue

import (
	"context"

	"github.com/notifyhub/notification-bridge/internal/domain"
)

// DeliveryQueue hands fired alarms from the poller to the delivery workers.
// It is a bounded FIFO; when it is full the poller leaves the alarm
// registered and picks it up again on a later tick.
type DeliveryQueue struct {
	items chan Item
}

func New(size int) *DeliveryQueue {
	if size < 1 {
		size = 1
	}
	return &DeliveryQueue{items: make(chan Item, size)}
}

// Enqueue is non-blocking: a full queue returns domain.ErrQueueFull
// immediately rather than stalling the poller.
func (q *DeliveryQueue) Enqueue(item Item) error {
	select {
	case q.items <- item:
		return nil
	default:
		return domain.ErrQueueFull
	}
}

// Dequeue blocks until an item is available or ctx is cancelled.
// Returns (Item{}, false) when ctx is cancelled (graceful shutdown signal).
func (q *DeliveryQueue) Dequeue(ctx context.Context) (Item, bool) {
	select {
	case item := <-q.items:
		return item, true
	case <-ctx.Done():
		return Item{}, false
	}
}

// Depth returns the number of items waiting.
func (q *DeliveryQueue) Depth() int {
	return len(q.items)
}
