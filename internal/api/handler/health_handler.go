package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/heptiolabs/healthcheck"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	health healthcheck.Handler
}

// Pinger is anything whose reachability gates readiness.
type Pinger interface {
	Ping(ctx context.Context) error
}

// NewHealthHandler registers one readiness check per dependency.
func NewHealthHandler(deps map[string]Pinger) *HealthHandler {
	h := healthcheck.NewHandler()
	h.AddLivenessCheck("goroutine-threshold", healthcheck.GoroutineCountCheck(10000))
	for name, p := range deps {
		p := p
		h.AddReadinessCheck(name, healthcheck.Timeout(func() error {
			ctx, cancel := context.WithTimeout(context.Background(), time.Second)
			defer cancel()
			return p.Ping(ctx)
		}, 2*time.Second))
	}
	return &HealthHandler{health: h}
}

// Live handles GET /health/live
//
// @Summary  Liveness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Router   /health/live [get]
func (h *HealthHandler) Live(w http.ResponseWriter, r *http.Request) {
	h.health.LiveEndpoint(w, r)
}

// Ready handles GET /health/ready
//
// @Summary  Readiness probe
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]string
// @Failure  503  {object}  map[string]string
// @Router   /health/ready [get]
func (h *HealthHandler) Ready(w http.ResponseWriter, r *http.Request) {
	h.health.ReadyEndpoint(w, r)
}
