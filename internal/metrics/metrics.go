package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/notifyhub/notification-bridge/internal/bridge"
)

// Metrics groups all Prometheus instruments used across the application.
// Registered once at startup via New(); passed by pointer wherever needed.
type Metrics struct {
	NotificationsScheduled prometheus.Counter
	NotificationsRejected  prometheus.Counter
	NotificationsDelivered *prometheus.CounterVec
	NotificationsDropped   *prometheus.CounterVec
	DeliveryLatency        *prometheus.HistogramVec
	ReconcileResubmitted   prometheus.Counter
	ReconcileDropped       prometheus.Counter
	RegistrySize           prometheus.Gauge
	AlarmsDue              prometheus.Gauge
	DeliveryFailures       prometheus.Counter
}

// New registers all instruments with the given Prometheus registerer and
// returns the populated Metrics struct.
// Using a custom registry (instead of prometheus.DefaultRegisterer) keeps
// tests isolated and avoids global state.
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		NotificationsScheduled: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_scheduled_total",
			Help: "Total number of notifications registered with the alarm service.",
		}),

		NotificationsRejected: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_rejected_total",
			Help: "Schedule requests refused because the alarm ceiling was reached.",
		}),

		NotificationsDelivered: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_delivered_total",
			Help: "Notifications built and handed to the renderer.",
		}, []string{"variant"}),

		NotificationsDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Fired alarms whose payload could not be delivered.",
		}, []string{"reason"}),

		DeliveryLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "notification_delivery_seconds",
			Help:    "Time spent building and submitting a fired notification.",
			Buckets: prometheus.DefBuckets,
		}, []string{"variant"}),

		ReconcileResubmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_resubmitted_total",
			Help: "Notifications scheduled again by reconciliation.",
		}),
		ReconcileDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "reconcile_dropped_total",
			Help: "Stale ids removed by reconciliation.",
		}),

		RegistrySize: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "notification_registry_size",
			Help: "Ids in the registry after the last schedule.",
		}),
		AlarmsDue: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "alarms_due",
			Help: "Alarms found due on the last poll.",
		}),
		DeliveryFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "delivery_failures_total",
			Help: "Deliveries that failed at the host renderer.",
		}),
	}

	reg.MustRegister(
		m.NotificationsScheduled,
		m.NotificationsRejected,
		m.NotificationsDelivered,
		m.NotificationsDropped,
		m.DeliveryLatency,
		m.ReconcileResubmitted,
		m.ReconcileDropped,
		m.RegistrySize,
		m.AlarmsDue,
		m.DeliveryFailures,
	)

	return m
}

// BridgeHooks returns the callbacks expected by bridge.Options.
// Centralises the prometheus observation calls so the bridge stays import-free.
func (m *Metrics) BridgeHooks() bridge.Hooks {
	return bridge.Hooks{
		OnScheduled: m.NotificationsScheduled.Inc,
		OnRejected:  m.NotificationsRejected.Inc,
		OnDelivered: func(variant string, latency time.Duration) {
			m.NotificationsDelivered.WithLabelValues(variant).Inc()
			m.DeliveryLatency.WithLabelValues(variant).Observe(latency.Seconds())
		},
		OnDropped: func(reason string) {
			m.NotificationsDropped.WithLabelValues(reason).Inc()
		},
		OnReconciled: func(resubmitted, dropped int) {
			m.ReconcileResubmitted.Add(float64(resubmitted))
			m.ReconcileDropped.Add(float64(dropped))
		},
		OnRegistrySize: func(n int) {
			m.RegistrySize.Set(float64(n))
		},
	}
}

// WorkerHooks returns the metric callback functions expected by worker.MetricHooks.
func (m *Metrics) WorkerHooks() (onDue func(int), onFailed func()) {
	onDue = func(n int) { m.AlarmsDue.Set(float64(n)) }
	onFailed = m.DeliveryFailures.Inc
	return
}
