package worker

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/host"
	"github.com/notifyhub/notification-bridge/internal/queue"
	"github.com/notifyhub/notification-bridge/internal/registry"
)

// AlarmWorker polls the alarm service for registrations whose fire time has
// passed and hands them to the delivery queue. It plays the part of the
// platform broadcast that wakes the app when an alarm goes off.
type AlarmWorker struct {
	source   host.AlarmSource
	q        *queue.DeliveryQueue
	interval time.Duration
	logger   *zap.Logger
	onDue    func(int)
}

func NewAlarmWorker(
	source host.AlarmSource,
	q *queue.DeliveryQueue,
	interval time.Duration,
	logger *zap.Logger,
	onDue func(int),
) *AlarmWorker {
	if onDue == nil {
		onDue = func(int) {}
	}
	return &AlarmWorker{source: source, q: q, interval: interval, logger: logger, onDue: onDue}
}

// Run ticks every interval and enqueues any alarms that are now due.
// Stops cleanly when ctx is cancelled.
func (aw *AlarmWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(aw.interval)
	defer ticker.Stop()

	aw.logger.Info("alarm worker started", zap.Duration("interval", aw.interval))

	for {
		select {
		case <-ctx.Done():
			aw.logger.Info("alarm worker stopping")
			return
		case <-ticker.C:
			aw.Poll(ctx)
		}
	}
}

// Poll runs one pass. An alarm is only marked fired once it is queued, so a
// full queue delays delivery instead of losing it.
func (aw *AlarmWorker) Poll(ctx context.Context) {
	now := time.Now()
	due, err := aw.source.Due(ctx, now)
	if err != nil {
		aw.logger.Error("alarm poll error", zap.Error(err))
		return
	}
	aw.onDue(len(due))

	queued := 0
	for _, a := range due {
		item := queue.Item{
			NotificationID: a.ID,
			ChannelID:      channelOf(a.Payload),
			FireAt:         a.FireAt,
			Payload:        a.Payload,
		}
		if err := aw.q.Enqueue(item); err != nil {
			aw.logger.Warn("could not enqueue fired alarm",
				zap.Int("notification_id", a.ID), zap.Error(err))
			continue
		}
		if err := aw.source.Fired(ctx, a, now); err != nil {
			aw.logger.Error("failed to advance fired alarm",
				zap.Int("notification_id", a.ID), zap.Error(err))
		}
		queued++
	}

	if queued > 0 {
		aw.logger.Info("enqueued fired alarms", zap.Int("count", queued))
	}
}

// channelOf peeks at the payload for throttling. Undecodable payloads share
// the empty channel; the bridge drops them on delivery.
func channelOf(payload []byte) string {
	req, err := registry.DecodeRequest(payload)
	if err != nil {
		return ""
	}
	return req.ChannelID
}
