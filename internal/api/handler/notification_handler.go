package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	apimw "github.com/notifyhub/notification-bridge/internal/api/middleware"
	"github.com/notifyhub/notification-bridge/internal/bridge"
	"github.com/notifyhub/notification-bridge/internal/domain"
)

// NotificationHandler handles scheduling, cancellation and status endpoints.
type NotificationHandler struct {
	b      *bridge.Bridge
	logger *zap.Logger
}

func NewNotificationHandler(b *bridge.Bridge, logger *zap.Logger) *NotificationHandler {
	return &NotificationHandler{b: b, logger: logger}
}

// ScheduleRequest is the wire form of a notification request. Durations are
// milliseconds so engines without a duration type can fill them in.
type ScheduleRequest struct {
	ID               int       `json:"id"`
	FireTime         time.Time `json:"fire_time"`
	RepeatIntervalMs int64     `json:"repeat_interval_ms,omitempty"`
	ChannelID        string    `json:"channel_id"`
	Title            string    `json:"title"`
	Body             string    `json:"body"`
	SmallIcon        string    `json:"small_icon"`
	LargeIcon        string    `json:"large_icon,omitempty"`
	Color            int32     `json:"color,omitempty"`
	Number           int       `json:"number,omitempty"`
	Style            int       `json:"style,omitempty"`
	ShowTimestamp    bool      `json:"show_timestamp,omitempty"`
	Timestamp        time.Time `json:"timestamp,omitempty"`
	UsesChronometer  bool      `json:"uses_chronometer,omitempty"`
	AutoCancel       *bool     `json:"auto_cancel,omitempty"`
	IntentData       string    `json:"intent_data,omitempty"`
	Group            string    `json:"group,omitempty"`
}

func (s ScheduleRequest) toDomain() domain.Request {
	return domain.Request{
		ID:              s.ID,
		FireTime:        s.FireTime,
		RepeatInterval:  time.Duration(s.RepeatIntervalMs) * time.Millisecond,
		ChannelID:       s.ChannelID,
		Title:           s.Title,
		Body:            s.Body,
		SmallIcon:       s.SmallIcon,
		LargeIcon:       s.LargeIcon,
		Color:           s.Color,
		Number:          s.Number,
		Style:           domain.Style(s.Style),
		ShowTimestamp:   s.ShowTimestamp,
		Timestamp:       s.Timestamp,
		UsesChronometer: s.UsesChronometer,
		AutoCancel:      s.AutoCancel,
		IntentData:      s.IntentData,
		Group:           s.Group,
	}
}

// Schedule handles POST /api/v1/notifications
//
// @Summary  Schedule a notification
// @Tags     notifications
// @Accept   json
// @Produce  json
// @Param    body  body      ScheduleRequest  true  "Notification request"
// @Success  201   {object}  map[string]int
// @Failure  422   {object}  map[string]string
// @Failure  503   {object}  map[string]string  "Alarm ceiling reached"
// @Router   /api/v1/notifications [post]
func (h *NotificationHandler) Schedule(w http.ResponseWriter, r *http.Request) {
	var req ScheduleRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}

	if err := h.b.Schedule(r.Context(), req.toDomain()); err != nil {
		h.logger.Warn("schedule notification failed",
			zap.String("correlation_id", apimw.GetCorrelationID(r.Context())),
			zap.Int("notification_id", req.ID),
			zap.Error(err),
		)
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, map[string]int{"id": req.ID})
}

// List handles GET /api/v1/notifications
//
// @Summary  Ids of every scheduled notification
// @Tags     notifications
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/notifications [get]
func (h *NotificationHandler) List(w http.ResponseWriter, r *http.Request) {
	ids, err := h.b.ScheduledIDs(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"ids": ids, "total": len(ids)})
}

// Cancel handles DELETE /api/v1/notifications/{id}
//
// @Summary  Cancel a scheduled notification (idempotent)
// @Tags     notifications
// @Param    id   path  int  true  "Notification id"
// @Success  204
// @Router   /api/v1/notifications/{id} [delete]
func (h *NotificationHandler) Cancel(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	if err := h.b.Cancel(r.Context(), id); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// CancelAll handles DELETE /api/v1/notifications
//
// @Summary  Cancel every scheduled notification
// @Tags     notifications
// @Success  204
// @Router   /api/v1/notifications [delete]
func (h *NotificationHandler) CancelAll(w http.ResponseWriter, r *http.Request) {
	if err := h.b.CancelAll(r.Context()); err != nil {
		h.logger.Error("cancel all failed", zap.Error(err))
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Status handles GET /api/v1/notifications/{id}/status
//
// @Summary  Whether a notification is visible, scheduled or unknown
// @Tags     notifications
// @Produce  json
// @Param    id   path      int  true  "Notification id"
// @Success  200  {object}  map[string]any
// @Router   /api/v1/notifications/{id}/status [get]
func (h *NotificationHandler) Status(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r)
	if !ok {
		return
	}
	st, err := h.b.Status(r.Context(), id)
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"id": id, "status": st.String(), "code": int(st)})
}

// DismissDisplayed handles DELETE /api/v1/displayed
//
// @Summary  Clear every visible notification
// @Tags     notifications
// @Success  204
// @Failure  501  {object}  map[string]string
// @Router   /api/v1/displayed [delete]
func (h *NotificationHandler) DismissDisplayed(w http.ResponseWriter, r *http.Request) {
	if err := h.b.CancelAllDisplayed(r.Context()); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Boot handles POST /api/v1/boot
//
// @Summary  Reconcile the registry with the alarm service after a host restart
// @Description  A no-op unless rescheduling after a restart is enabled.
// @Tags     system
// @Produce  json
// @Success  200  {object}  map[string]any
// @Router   /api/v1/boot [post]
func (h *NotificationHandler) Boot(w http.ResponseWriter, r *http.Request) {
	resubmitted, err := h.b.Restore(r.Context())
	if err != nil {
		h.logger.Error("reconcile failed", zap.Error(err))
		mapError(w, err)
		return
	}
	ids := make([]int, len(resubmitted))
	for i, req := range resubmitted {
		ids[i] = req.ID
	}
	respondJSON(w, http.StatusOK, map[string]any{
		"restored":    h.b.RestoreEnabled(),
		"resubmitted": ids,
	})
}

func pathID(w http.ResponseWriter, r *http.Request) (int, bool) {
	id, err := strconv.Atoi(chi.URLParam(r, "id"))
	if err != nil {
		respondError(w, http.StatusBadRequest, "id must be an integer")
		return 0, false
	}
	return id, true
}
