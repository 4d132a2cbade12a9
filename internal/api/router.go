package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/api/handler"
	apimw "github.com/notifyhub/notification-bridge/internal/api/middleware"
	"github.com/notifyhub/notification-bridge/internal/bridge"
	"github.com/notifyhub/notification-bridge/internal/queue"
)

// NewRouter wires the chi router, attaches all middleware, and registers
// every route. It is the single source of truth for the HTTP surface area.
func NewRouter(
	b *bridge.Bridge,
	q *queue.DeliveryQueue,
	ready map[string]handler.Pinger,
	reg prometheus.Gatherer,
	logger *zap.Logger,
) http.Handler {
	r := chi.NewRouter()

	// --- global middleware (applied to every route) ---
	r.Use(chimw.Recoverer)
	r.Use(chimw.RealIP)
	r.Use(chimw.RequestSize(1 << 20))
	r.Use(apimw.CorrelationID)
	r.Use(apimw.RequestLogger(logger))

	// --- handler instances ---
	nh := handler.NewNotificationHandler(b, logger)
	ch := handler.NewChannelHandler(b, logger)
	mh := handler.NewMetricsHandler(q, b)
	hh := handler.NewHealthHandler(ready)

	// --- routes ---
	r.Get("/health/live", hh.Live)
	r.Get("/health/ready", hh.Ready)

	r.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{}))

	r.Route("/api/v1", func(r chi.Router) {
		r.Post("/notifications", nh.Schedule)
		r.Get("/notifications", nh.List)
		r.Delete("/notifications", nh.CancelAll)
		r.Delete("/notifications/{id}", nh.Cancel)
		r.Get("/notifications/{id}/status", nh.Status)

		r.Delete("/displayed", nh.DismissDisplayed)

		r.Post("/channels", ch.Register)
		r.Get("/channels", ch.List)
		r.Get("/channels/{id}", ch.Get)
		r.Delete("/channels/{id}", ch.Delete)

		r.Post("/boot", nh.Boot)

		r.Get("/metrics", mh.GetMetrics)
	})

	return r
}
