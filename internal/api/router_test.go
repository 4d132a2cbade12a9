package api_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/api"
	"github.com/notifyhub/notification-bridge/internal/api/handler"
	"github.com/notifyhub/notification-bridge/internal/bridge"
	"github.com/notifyhub/notification-bridge/internal/channels"
	"github.com/notifyhub/notification-bridge/internal/host"
	"github.com/notifyhub/notification-bridge/internal/metrics"
	"github.com/notifyhub/notification-bridge/internal/platform"
	"github.com/notifyhub/notification-bridge/internal/queue"
	"github.com/notifyhub/notification-bridge/internal/registry"
	"github.com/notifyhub/notification-bridge/internal/store"
)

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

type setup struct {
	level    int
	ceiling  int
	native   bool
	restore  bool
	readyErr error
}

func newServer(t *testing.T, s setup) http.Handler {
	t.Helper()
	st := store.NewMemory()
	renderer := host.NewMemoryRenderer()
	deps := platform.Deps{
		Renderer:  renderer,
		Resources: host.NewStaticResources(map[string]int{"icon": 3}, 1),
		Compat:    channels.NewCompat(st),
	}
	if s.native {
		deps.NativeChannels = host.NewMemoryChannels()
	}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	b := bridge.New(bridge.Options{
		Registry:       registry.New(st),
		Alarms:         host.NewMemoryAlarms(),
		Platform:       platform.Select(s.level, deps),
		Renderer:       renderer,
		Logger:         zap.NewNop(),
		Hooks:          m.BridgeHooks(),
		APILevel:       s.level,
		AlarmCeiling:   s.ceiling,
		EnforceCeiling: s.ceiling > 0,

		RescheduleOnRestart: s.restore,
	})
	ready := map[string]handler.Pinger{"store": pinger{err: s.readyErr}}
	return api.NewRouter(b, queue.New(8), ready, reg, zap.NewNop())
}

func do(t *testing.T, h http.Handler, method, path string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			t.Fatal(err)
		}
	}
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(method, path, &buf))
	return rec
}

func schedule(id int) map[string]any {
	return map[string]any{
		"id":         id,
		"fire_time":  time.Now().Add(time.Hour).Format(time.RFC3339),
		"channel_id": "default",
		"title":      "Come back",
		"body":       "Your crops are ready",
		"small_icon": "icon",
	}
}

func TestNotifications_ScheduleListCancel(t *testing.T) {
	h := newServer(t, setup{level: 26})

	if rec := do(t, h, http.MethodPost, "/api/v1/notifications", schedule(1)); rec.Code != http.StatusCreated {
		t.Fatalf("schedule: got %d %s", rec.Code, rec.Body)
	}
	_ = do(t, h, http.MethodPost, "/api/v1/notifications", schedule(2))

	rec := do(t, h, http.MethodGet, "/api/v1/notifications", nil)
	var list struct {
		IDs   []int `json:"ids"`
		Total int   `json:"total"`
	}
	_ = json.NewDecoder(rec.Body).Decode(&list)
	if list.Total != 2 || list.IDs[0] != 1 || list.IDs[1] != 2 {
		t.Fatalf("unexpected list %+v", list)
	}

	if rec := do(t, h, http.MethodDelete, "/api/v1/notifications/1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("cancel: got %d", rec.Code)
	}
	// idempotent
	if rec := do(t, h, http.MethodDelete, "/api/v1/notifications/1", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("second cancel: got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodDelete, "/api/v1/notifications", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("cancel all: got %d", rec.Code)
	}
	rec = do(t, h, http.MethodGet, "/api/v1/notifications", nil)
	_ = json.NewDecoder(rec.Body).Decode(&list)
	if list.Total != 0 {
		t.Fatalf("expected empty registry, got %+v", list)
	}
}

func TestNotifications_ScheduleErrors(t *testing.T) {
	h := newServer(t, setup{level: 26, ceiling: 2})

	bad := schedule(1)
	delete(bad, "small_icon")

	tests := []struct {
		name string
		body any
		want int
	}{
		{"invalid", bad, http.StatusUnprocessableEntity},
		{"first", schedule(1), http.StatusCreated},
		{"over ceiling", schedule(2), http.StatusServiceUnavailable},
	}
	for _, tc := range tests {
		if rec := do(t, h, http.MethodPost, "/api/v1/notifications", tc.body); rec.Code != tc.want {
			t.Fatalf("%s: got %d want %d (%s)", tc.name, rec.Code, tc.want, rec.Body)
		}
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/api/v1/notifications", bytes.NewBufferString("{")))
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: got %d", rec.Code)
	}
}

func TestNotifications_Status(t *testing.T) {
	tests := []struct {
		level int
		want  string
		code  int
	}{
		{26, "scheduled", 1},
		{22, "unsupported", -1},
	}
	for _, tc := range tests {
		h := newServer(t, setup{level: tc.level})
		_ = do(t, h, http.MethodPost, "/api/v1/notifications", schedule(4))

		rec := do(t, h, http.MethodGet, "/api/v1/notifications/4/status", nil)
		var body struct {
			Status string `json:"status"`
			Code   int    `json:"code"`
		}
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if body.Status != tc.want || body.Code != tc.code {
			t.Fatalf("level %d: got %+v", tc.level, body)
		}
	}

	h := newServer(t, setup{level: 26})
	if rec := do(t, h, http.MethodGet, "/api/v1/notifications/abc/status", nil); rec.Code != http.StatusBadRequest {
		t.Fatalf("non-numeric id: got %d", rec.Code)
	}
}

func TestChannels(t *testing.T) {
	ch := map[string]any{"id": "alerts", "name": "Alerts", "importance": 4, "vibration_pattern": []int{0, 250, 250}}

	t.Run("compat store", func(t *testing.T) {
		h := newServer(t, setup{level: 21})
		if rec := do(t, h, http.MethodPost, "/api/v1/channels", ch); rec.Code != http.StatusCreated {
			t.Fatalf("register: got %d %s", rec.Code, rec.Body)
		}
		rec := do(t, h, http.MethodGet, "/api/v1/channels/alerts", nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("get: got %d", rec.Code)
		}
		if rec := do(t, h, http.MethodDelete, "/api/v1/channels/unknown", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("delete unknown: got %d", rec.Code)
		}
		if rec := do(t, h, http.MethodDelete, "/api/v1/channels/alerts", nil); rec.Code != http.StatusNoContent {
			t.Fatalf("delete: got %d", rec.Code)
		}
		if rec := do(t, h, http.MethodGet, "/api/v1/channels/alerts", nil); rec.Code != http.StatusNotFound {
			t.Fatalf("get deleted: got %d", rec.Code)
		}
	})

	t.Run("missing name", func(t *testing.T) {
		h := newServer(t, setup{level: 21})
		if rec := do(t, h, http.MethodPost, "/api/v1/channels", map[string]any{"id": "x"}); rec.Code != http.StatusUnprocessableEntity {
			t.Fatalf("got %d", rec.Code)
		}
	})

	t.Run("no native registry", func(t *testing.T) {
		h := newServer(t, setup{level: 26})
		if rec := do(t, h, http.MethodGet, "/api/v1/channels", nil); rec.Code != http.StatusNotImplemented {
			t.Fatalf("got %d", rec.Code)
		}
	})

	t.Run("native registry", func(t *testing.T) {
		h := newServer(t, setup{level: 26, native: true})
		_ = do(t, h, http.MethodPost, "/api/v1/channels", ch)
		rec := do(t, h, http.MethodGet, "/api/v1/channels", nil)
		var body struct {
			Total int `json:"total"`
		}
		_ = json.NewDecoder(rec.Body).Decode(&body)
		if rec.Code != http.StatusOK || body.Total != 1 {
			t.Fatalf("got %d total=%d", rec.Code, body.Total)
		}
	})
}

func TestBoot(t *testing.T) {
	tests := []struct {
		name    string
		restore bool
		want    []int
	}{
		{"restore disabled", false, []int{}},
		{"restore enabled", true, []int{9}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newServer(t, setup{level: 26, restore: tc.restore})
			_ = do(t, h, http.MethodPost, "/api/v1/notifications", schedule(9))

			rec := do(t, h, http.MethodPost, "/api/v1/boot", nil)
			var body struct {
				Restored    bool  `json:"restored"`
				Resubmitted []int `json:"resubmitted"`
			}
			_ = json.NewDecoder(rec.Body).Decode(&body)
			if rec.Code != http.StatusOK {
				t.Fatalf("boot: got %d", rec.Code)
			}
			if body.Restored != tc.restore || !reflect.DeepEqual(body.Resubmitted, tc.want) {
				t.Fatalf("unexpected boot result %+v", body)
			}

			// the live notification survives either way
			rec = do(t, h, http.MethodGet, "/api/v1/notifications", nil)
			var list struct {
				IDs []int `json:"ids"`
			}
			_ = json.NewDecoder(rec.Body).Decode(&list)
			if !reflect.DeepEqual(list.IDs, []int{9}) {
				t.Fatalf("registry changed by boot: %v", list.IDs)
			}
		})
	}
}

func TestDisplayed(t *testing.T) {
	h := newServer(t, setup{level: 26})
	_ = do(t, h, http.MethodPost, "/api/v1/notifications", schedule(9))

	if rec := do(t, h, http.MethodDelete, "/api/v1/displayed", nil); rec.Code != http.StatusNoContent {
		t.Fatalf("dismiss: got %d", rec.Code)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	h := newServer(t, setup{level: 26})
	if rec := do(t, h, http.MethodGet, "/health/live", nil); rec.Code != http.StatusOK {
		t.Fatalf("live: got %d", rec.Code)
	}
	if rec := do(t, h, http.MethodGet, "/health/ready", nil); rec.Code != http.StatusOK {
		t.Fatalf("ready: got %d", rec.Code)
	}

	_ = do(t, h, http.MethodPost, "/api/v1/notifications", schedule(1))
	rec := do(t, h, http.MethodGet, "/metrics", nil)
	if !bytes.Contains(rec.Body.Bytes(), []byte("notifications_scheduled_total 1")) {
		t.Fatalf("expected scheduled counter in scrape output:\n%s", rec.Body)
	}

	rec = do(t, h, http.MethodGet, "/api/v1/metrics", nil)
	var snap map[string]any
	_ = json.NewDecoder(rec.Body).Decode(&snap)
	if snap["variant"] != "oreo" || snap["scheduled"] != float64(1) {
		t.Fatalf("unexpected snapshot %v", snap)
	}

	down := newServer(t, setup{level: 26, readyErr: errors.New("connection refused")})
	if rec := do(t, down, http.MethodGet, "/health/ready", nil); rec.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with failing store: got %d", rec.Code)
	}
}
