package handler

import (
	"net/http"

	"github.com/notifyhub/notification-bridge/internal/bridge"
	"github.com/notifyhub/notification-bridge/internal/queue"
)

// MetricsHandler serves a human-readable JSON snapshot.
// Raw Prometheus metrics (counters, histograms) are available at /metrics
// via promhttp.Handler and are separate from this endpoint.
type MetricsHandler struct {
	q *queue.DeliveryQueue
	b *bridge.Bridge
}

func NewMetricsHandler(q *queue.DeliveryQueue, b *bridge.Bridge) *MetricsHandler {
	return &MetricsHandler{q: q, b: b}
}

// GetMetrics handles GET /api/v1/metrics
//
// @Summary  Delivery queue depth and registry size
// @Tags     metrics
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/metrics [get]
func (h *MetricsHandler) GetMetrics(w http.ResponseWriter, r *http.Request) {
	ids, err := h.b.ScheduledIDs(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"variant":     h.b.Variant(),
		"scheduled":   len(ids),
		"queue_depth": h.q.Depth(),
	})
}
