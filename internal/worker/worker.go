package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/queue"
	"github.com/notifyhub/notification-bridge/internal/ratelimiter"
)

// Deliverer turns a fired alarm payload into a posted notification.
type Deliverer interface {
	Deliver(ctx context.Context, payload []byte) error
}

// Worker is a single goroutine that pulls fired alarms from the delivery
// queue, applies per-channel rate limiting and hands them to the bridge.
// A failed delivery is logged and counted; there is no retry.
type Worker struct {
	id      int
	q       *queue.DeliveryQueue
	d       Deliverer
	limiter *ratelimiter.ChannelLimiters
	logger  *zap.Logger

	onFailed func()
}

// NewWorker constructs a worker. onFailed is optional (nil = no-op).
func NewWorker(
	id int,
	q *queue.DeliveryQueue,
	d Deliverer,
	limiter *ratelimiter.ChannelLimiters,
	logger *zap.Logger,
	onFailed func(),
) *Worker {
	if onFailed == nil {
		onFailed = func() {}
	}
	return &Worker{id: id, q: q, d: d, limiter: limiter, logger: logger, onFailed: onFailed}
}

// Run blocks until ctx is cancelled, processing one queue item per iteration.
func (w *Worker) Run(ctx context.Context) {
	w.logger.Info("worker started", zap.Int("id", w.id))
	for {
		item, ok := w.q.Dequeue(ctx)
		if !ok {
			w.logger.Info("worker stopping", zap.Int("id", w.id))
			return
		}
		w.process(ctx, item)
	}
}

func (w *Worker) process(ctx context.Context, item queue.Item) {
	log := w.logger.With(
		zap.Int("notification_id", item.NotificationID),
		zap.String("channel_id", item.ChannelID),
	)

	if err := w.limiter.Wait(ctx, item.ChannelID); err != nil {
		// ctx cancelled while waiting; worker is shutting down.
		return
	}

	if err := w.d.Deliver(ctx, item.Payload); err != nil {
		log.Warn("delivery failed", zap.Error(err))
		w.onFailed()
		return
	}
	log.Debug("notification delivered", zap.Duration("lag", time.Since(item.FireAt)))
}
