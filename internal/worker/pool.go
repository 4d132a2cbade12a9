package worker

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/queue"
	"github.com/notifyhub/notification-bridge/internal/ratelimiter"
)

// MetricHooks carries the metric callback functions injected by main.
type MetricHooks struct {
	OnDue    func(n int)
	OnFailed func()
}

// Pool manages the lifecycle of the delivery workers.
// All workers share the same delivery queue.
type Pool struct {
	workers []*Worker
	wg      sync.WaitGroup
}

// NewPool creates size identical delivery workers.
func NewPool(
	size int,
	q *queue.DeliveryQueue,
	d Deliverer,
	limiter *ratelimiter.ChannelLimiters,
	logger *zap.Logger,
	hooks MetricHooks,
) *Pool {
	if size < 1 {
		size = 1
	}
	workers := make([]*Worker, size)
	for i := range workers {
		workers[i] = NewWorker(
			i, q, d, limiter,
			logger.With(zap.Int("worker_id", i)),
			hooks.OnFailed,
		)
	}
	return &Pool{workers: workers}
}

// Start launches all workers as goroutines.
// The provided ctx is forwarded to every worker; cancelling it
// triggers a graceful shutdown of the entire pool.
func (p *Pool) Start(ctx context.Context) {
	for _, w := range p.workers {
		p.wg.Add(1)
		go func(w *Worker) {
			defer p.wg.Done()
			w.Run(ctx)
		}(w)
	}
}

// Wait blocks until every worker has returned after ctx is cancelled.
func (p *Pool) Wait() {
	p.wg.Wait()
}
