package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/bridge"
	"github.com/notifyhub/notification-bridge/internal/domain"
)

// ChannelHandler handles channel definition endpoints.
type ChannelHandler struct {
	b      *bridge.Bridge
	logger *zap.Logger
}

func NewChannelHandler(b *bridge.Bridge, logger *zap.Logger) *ChannelHandler {
	return &ChannelHandler{b: b, logger: logger}
}

// Register handles POST /api/v1/channels
//
// @Summary  Create or replace a channel
// @Tags     channels
// @Accept   json
// @Produce  json
// @Param    body  body      domain.Channel  true  "Channel definition"
// @Success  201   {object}  domain.Channel
// @Failure  422   {object}  map[string]string
// @Failure  501   {object}  map[string]string
// @Router   /api/v1/channels [post]
func (h *ChannelHandler) Register(w http.ResponseWriter, r *http.Request) {
	var ch domain.Channel
	if err := json.NewDecoder(r.Body).Decode(&ch); err != nil {
		respondError(w, http.StatusBadRequest, "invalid JSON body")
		return
	}
	if err := h.b.RegisterChannel(r.Context(), ch); err != nil {
		h.logger.Warn("register channel failed", zap.String("channel_id", ch.ID), zap.Error(err))
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusCreated, ch)
}

// List handles GET /api/v1/channels
func (h *ChannelHandler) List(w http.ResponseWriter, r *http.Request) {
	chs, err := h.b.Channels(r.Context())
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, map[string]any{"data": chs, "total": len(chs)})
}

// Get handles GET /api/v1/channels/{id}
func (h *ChannelHandler) Get(w http.ResponseWriter, r *http.Request) {
	ch, err := h.b.Channel(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		mapError(w, err)
		return
	}
	respondJSON(w, http.StatusOK, ch)
}

// Delete handles DELETE /api/v1/channels/{id}. Unknown ids are not an error.
func (h *ChannelHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.b.DeleteChannel(r.Context(), chi.URLParam(r, "id")); err != nil {
		mapError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
