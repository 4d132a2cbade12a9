package bridge_test

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/bridge"
	"github.com/notifyhub/notification-bridge/internal/channels"
	"github.com/notifyhub/notification-bridge/internal/domain"
	"github.com/notifyhub/notification-bridge/internal/host"
	"github.com/notifyhub/notification-bridge/internal/platform"
	"github.com/notifyhub/notification-bridge/internal/registry"
	"github.com/notifyhub/notification-bridge/internal/store"
)

type harness struct {
	bridge   *bridge.Bridge
	reg      *registry.Registry
	alarms   *host.MemoryAlarms
	renderer *host.MemoryRenderer
}

func newHarness(t *testing.T, mutate func(*bridge.Options)) *harness {
	t.Helper()
	st := store.NewMemory()
	h := &harness{
		reg:      registry.New(st),
		alarms:   host.NewMemoryAlarms(),
		renderer: host.NewMemoryRenderer(),
	}
	p := platform.Select(26, platform.Deps{
		Renderer:       h.renderer,
		Resources:      host.NewStaticResources(map[string]int{"icon_0": 7}, 1),
		Compat:         channels.NewCompat(st),
		NativeChannels: host.NewMemoryChannels(),
	})
	opts := bridge.Options{
		Registry:            h.reg,
		Alarms:              h.alarms,
		Platform:            p,
		Renderer:            h.renderer,
		Logger:              zap.NewNop(),
		APILevel:            26,
		RescheduleOnRestart: true,
		AlarmCeiling:        bridge.DefaultAlarmCeiling,
	}
	if mutate != nil {
		mutate(&opts)
	}
	h.bridge = bridge.New(opts)
	return h
}

func req(id int) domain.Request {
	return domain.Request{
		ID:        id,
		FireTime:  time.Now().Add(time.Hour),
		ChannelID: "default",
		Title:     "Reminder",
		Body:      "Your energy is full",
		SmallIcon: "icon_0",
	}
}

func payload(t *testing.T, r domain.Request) []byte {
	t.Helper()
	data, err := registry.EncodeRequest(r)
	if err != nil {
		t.Fatal(err)
	}
	return data
}

// fire consumes the alarm the way the alarm worker does, then delivers its
// payload.
func (h *harness) fire(t *testing.T, r domain.Request) error {
	t.Helper()
	ctx := context.Background()
	a := host.Alarm{ID: r.ID, FireAt: r.FireTime, Repeat: r.RepeatInterval}
	if err := h.alarms.Fired(ctx, a, r.FireTime); err != nil {
		t.Fatal(err)
	}
	return h.bridge.Deliver(ctx, payload(t, r))
}

func TestSchedule_RegistersAlarmAndSnapshot(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	if err := h.bridge.Schedule(ctx, req(5)); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if ok, _ := h.alarms.Lookup(ctx, 5); !ok {
		t.Fatal("expected an alarm registration")
	}
	ids, _ := h.bridge.ScheduledIDs(ctx)
	if !reflect.DeepEqual(ids, []int{5}) {
		t.Fatalf("expected [5], got %v", ids)
	}
	snap, ok, err := h.reg.Snapshot(ctx, 5)
	if err != nil || !ok || snap.Title != "Reminder" {
		t.Fatalf("expected snapshot, got %+v ok=%v err=%v", snap, ok, err)
	}
}

func TestSchedule_WithoutRescheduleSkipsSnapshot(t *testing.T) {
	h := newHarness(t, func(o *bridge.Options) { o.RescheduleOnRestart = false })
	ctx := context.Background()

	if err := h.bridge.Schedule(ctx, req(5)); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := h.reg.Snapshot(ctx, 5); ok {
		t.Fatal("snapshot should not be written")
	}
}

func TestSchedule_InvalidRequest(t *testing.T) {
	h := newHarness(t, nil)
	bad := req(1)
	bad.ChannelID = ""
	if err := h.bridge.Schedule(context.Background(), bad); !errors.Is(err, domain.ErrInvalidChannel) {
		t.Fatalf("expected ErrInvalidChannel, got %v", err)
	}
	if h.alarms.Len() != 0 {
		t.Fatal("no alarm should be registered")
	}
}

func TestSchedule_PrunesStaleIDs(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_ = h.reg.Replace(ctx, []int{90, 91})
	if err := h.bridge.Schedule(ctx, req(1)); err != nil {
		t.Fatal(err)
	}
	ids, _ := h.bridge.ScheduledIDs(ctx)
	if !reflect.DeepEqual(ids, []int{1}) {
		t.Fatalf("ids without a live alarm should be pruned, got %v", ids)
	}
}

func TestSchedule_PruneDeletesStaleSnapshots(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_ = h.reg.Replace(ctx, []int{90})
	if err := h.reg.SaveSnapshot(ctx, req(90)); err != nil {
		t.Fatal(err)
	}
	if err := h.bridge.Schedule(ctx, req(1)); err != nil {
		t.Fatal(err)
	}
	if _, ok, _ := h.reg.Snapshot(ctx, 90); ok {
		t.Fatal("snapshot of a pruned id should be deleted")
	}
	if _, ok, _ := h.reg.Snapshot(ctx, 1); !ok {
		t.Fatal("snapshot of the scheduled id should be kept")
	}
}

func TestScheduleThenCancel_LeavesNoTrace(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	for _, id := range []int{0, 1, 42, 1 << 20} {
		if err := h.bridge.Schedule(ctx, req(id)); err != nil {
			t.Fatal(err)
		}
		if err := h.bridge.Cancel(ctx, id); err != nil {
			t.Fatal(err)
		}
		if ok, _ := h.reg.Contains(ctx, id); ok {
			t.Fatalf("id %d still registered", id)
		}
		if _, ok, _ := h.reg.Snapshot(ctx, id); ok {
			t.Fatalf("snapshot %d still stored", id)
		}
		if ok, _ := h.alarms.Lookup(ctx, id); ok {
			t.Fatalf("alarm %d still registered", id)
		}
	}
}

func TestCancel_UnknownIsNoop(t *testing.T) {
	h := newHarness(t, nil)
	if err := h.bridge.Cancel(context.Background(), 404); err != nil {
		t.Fatalf("expected nil, got %v", err)
	}
}

func TestCancelAll(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	for i := 1; i <= 3; i++ {
		_ = h.bridge.Schedule(ctx, req(i))
	}

	if err := h.bridge.CancelAll(ctx); err != nil {
		t.Fatal(err)
	}
	ids, _ := h.bridge.ScheduledIDs(ctx)
	if len(ids) != 0 || h.alarms.Len() != 0 {
		t.Fatalf("expected everything cancelled, ids=%v alarms=%d", ids, h.alarms.Len())
	}
}

func TestSchedule_CeilingRejectsWithoutMutation(t *testing.T) {
	var rejected int
	h := newHarness(t, func(o *bridge.Options) {
		o.EnforceCeiling = true
		o.Hooks.OnRejected = func() { rejected++ }
	})
	ctx := context.Background()

	for i := 1; i <= 499; i++ {
		if err := h.bridge.Schedule(ctx, req(i)); err != nil {
			t.Fatalf("schedule %d: %v", i, err)
		}
	}
	before, _ := h.bridge.ScheduledIDs(ctx)

	err := h.bridge.Schedule(ctx, req(500))
	if !errors.Is(err, domain.ErrCapacityExceeded) {
		t.Fatalf("expected ErrCapacityExceeded, got %v", err)
	}
	if rejected != 1 {
		t.Fatalf("expected one rejection, got %d", rejected)
	}

	after, _ := h.bridge.ScheduledIDs(ctx)
	if !reflect.DeepEqual(before, after) {
		t.Fatal("registry changed after a rejected schedule")
	}
	if h.alarms.Len() != 499 {
		t.Fatalf("expected 499 alarms, got %d", h.alarms.Len())
	}
	if _, ok, _ := h.reg.Snapshot(ctx, 500); ok {
		t.Fatal("rejected request must not leave a snapshot")
	}
}

func TestSchedule_CeilingNotEnforced(t *testing.T) {
	h := newHarness(t, func(o *bridge.Options) { o.AlarmCeiling = 3 })
	ctx := context.Background()
	for i := 1; i <= 5; i++ {
		if err := h.bridge.Schedule(ctx, req(i)); err != nil {
			t.Fatalf("schedule %d: %v", i, err)
		}
	}
}

func TestReconcile_ResubmitsLiveDropsStale(t *testing.T) {
	var resubmitted, dropped int
	h := newHarness(t, func(o *bridge.Options) {
		o.Hooks.OnReconciled = func(r, d int) { resubmitted, dropped = r, d }
	})
	ctx := context.Background()

	_ = h.bridge.Schedule(ctx, req(1))
	_ = h.bridge.Schedule(ctx, req(2))
	// the host lost the registration for 2
	_ = h.alarms.Cancel(ctx, 2)

	got, err := h.bridge.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only 1 resubmitted, got %+v", got)
	}
	if resubmitted != 1 || dropped != 1 {
		t.Fatalf("unexpected hook values %d/%d", resubmitted, dropped)
	}

	ids, _ := h.bridge.ScheduledIDs(ctx)
	if !reflect.DeepEqual(ids, []int{1}) {
		t.Fatalf("expected [1], got %v", ids)
	}
	if _, ok, _ := h.reg.Snapshot(ctx, 2); ok {
		t.Fatal("stale snapshot should be deleted")
	}
	if _, ok, _ := h.reg.Snapshot(ctx, 1); !ok {
		t.Fatal("live snapshot should be kept")
	}
}

func TestReconcile_DropsMissingAndMalformedSnapshots(t *testing.T) {
	h := newHarness(t, func(o *bridge.Options) { o.RescheduleOnRestart = false })
	ctx := context.Background()

	// scheduled without snapshots
	_ = h.bridge.Schedule(ctx, req(1))
	_ = h.bridge.Schedule(ctx, req(2))

	got, err := h.bridge.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 0 {
		t.Fatalf("nothing should be resubmitted, got %+v", got)
	}
	ids, _ := h.bridge.ScheduledIDs(ctx)
	if len(ids) != 0 {
		t.Fatalf("ids without snapshot should be dropped, got %v", ids)
	}
	if h.alarms.Len() != 0 {
		t.Fatalf("alarms of dropped ids should be cancelled, %d left", h.alarms.Len())
	}
}

func TestReconcile_MissingSnapshotCancelsAlarm(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_ = h.bridge.Schedule(ctx, req(1))
	_ = h.bridge.Schedule(ctx, req(2))
	if err := h.reg.DeleteSnapshot(ctx, 2); err != nil {
		t.Fatal(err)
	}

	got, err := h.bridge.Reconcile(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].ID != 1 {
		t.Fatalf("expected only 1 resubmitted, got %+v", got)
	}
	if ok, _ := h.alarms.Lookup(ctx, 2); ok {
		t.Fatal("alarm without a snapshot should be cancelled")
	}
	if err := h.bridge.CancelAll(ctx); err != nil {
		t.Fatal(err)
	}
	if h.alarms.Len() != 0 {
		t.Fatalf("cancel all should leave no alarm behind, %d left", h.alarms.Len())
	}
}

func TestRestore_OnlyWhenEnabled(t *testing.T) {
	h := newHarness(t, func(o *bridge.Options) { o.RescheduleOnRestart = false })
	ctx := context.Background()
	_ = h.reg.Replace(ctx, []int{9})

	got, err := h.bridge.Restore(ctx)
	if err != nil || got != nil {
		t.Fatalf("expected no-op, got %+v err=%v", got, err)
	}
	if ok, _ := h.reg.Contains(ctx, 9); !ok {
		t.Fatal("restore must not touch the registry when disabled")
	}
}

func TestDeliver_OneShotIsForgotten(t *testing.T) {
	var sent []int
	h := newHarness(t, func(o *bridge.Options) {
		o.OnSent = func(_ context.Context, r domain.Request) error {
			sent = append(sent, r.ID)
			return nil
		}
	})
	ctx := context.Background()
	r := req(3)
	_ = h.bridge.Schedule(ctx, r)

	if err := h.fire(t, r); err != nil {
		t.Fatal(err)
	}
	if ok, _ := h.reg.Contains(ctx, 3); ok {
		t.Fatal("one-shot id should be removed after delivery")
	}
	if _, ok, _ := h.reg.Snapshot(ctx, 3); ok {
		t.Fatal("one-shot snapshot should be removed after delivery")
	}
	if !reflect.DeepEqual(sent, []int{3}) {
		t.Fatalf("expected sent callback for 3, got %v", sent)
	}
	if len(h.renderer.Posted()) != 1 {
		t.Fatal("expected one posted notification")
	}
}

func TestDeliver_RepeatingStaysRegistered(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	r := req(4)
	r.RepeatInterval = time.Hour
	_ = h.bridge.Schedule(ctx, r)

	if err := h.bridge.Deliver(ctx, payload(t, r)); err != nil {
		t.Fatal(err)
	}
	if ok, _ := h.reg.Contains(ctx, 4); !ok {
		t.Fatal("repeating id should stay registered")
	}
}

func TestDeliver_CallbackFailureDoesNotBlockCleanup(t *testing.T) {
	tests := []struct {
		name string
		cb   bridge.SentCallback
	}{
		{"nil", nil},
		{"error", func(context.Context, domain.Request) error { return errors.New("engine not running") }},
		{"panic", func(context.Context, domain.Request) error { panic("engine gone") }},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := newHarness(t, func(o *bridge.Options) { o.OnSent = tc.cb })
			ctx := context.Background()
			r := req(8)
			_ = h.bridge.Schedule(ctx, r)

			if err := h.fire(t, r); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if ok, _ := h.reg.Contains(ctx, 8); ok {
				t.Fatal("id should be removed regardless of the callback")
			}
		})
	}
}

func TestDeliver_RescheduledIDKeepsNewRegistration(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	old := req(9)
	_ = h.bridge.Schedule(ctx, old)
	queued := payload(t, old)
	_ = h.alarms.Fired(ctx, host.Alarm{ID: old.ID, FireAt: old.FireTime}, old.FireTime)

	next := req(9)
	next.FireTime = old.FireTime.Add(time.Hour)
	next.Title = "Later"
	if err := h.bridge.Schedule(ctx, next); err != nil {
		t.Fatal(err)
	}

	if err := h.bridge.Deliver(ctx, queued); err != nil {
		t.Fatal(err)
	}
	if len(h.renderer.Posted()) != 1 {
		t.Fatal("the queued payload should still be shown")
	}
	if ok, _ := h.reg.Contains(ctx, 9); !ok {
		t.Fatal("re-scheduled id should stay registered")
	}
	snap, ok, _ := h.reg.Snapshot(ctx, 9)
	if !ok || snap.Title != "Later" {
		t.Fatalf("expected the new snapshot, got %+v ok=%v", snap, ok)
	}
	if ok, _ := h.alarms.Lookup(ctx, 9); !ok {
		t.Fatal("new alarm should stay registered")
	}
}

func TestDeliver_CancelledIDIsNotShown(t *testing.T) {
	var (
		reasons []string
		sent    int
	)
	h := newHarness(t, func(o *bridge.Options) {
		o.Hooks.OnDropped = func(reason string) { reasons = append(reasons, reason) }
		o.OnSent = func(context.Context, domain.Request) error { sent++; return nil }
	})
	ctx := context.Background()

	for _, repeat := range []time.Duration{0, time.Hour} {
		r := req(5)
		r.RepeatInterval = repeat
		_ = h.bridge.Schedule(ctx, r)
		queued := payload(t, r)
		if err := h.bridge.Cancel(ctx, r.ID); err != nil {
			t.Fatal(err)
		}
		if err := h.bridge.Deliver(ctx, queued); err != nil {
			t.Fatalf("expected silent drop, got %v", err)
		}
	}
	if len(h.renderer.Posted()) != 0 {
		t.Fatal("cancelled notifications should not be posted")
	}
	if sent != 0 {
		t.Fatalf("sent callback should not run, ran %d times", sent)
	}
	if !reflect.DeepEqual(reasons, []string{"cancelled", "cancelled"}) {
		t.Fatalf("unexpected drop reasons %v", reasons)
	}
}

func TestDeliver_DropsUndeliverablePayloads(t *testing.T) {
	var reasons []string
	h := newHarness(t, func(o *bridge.Options) {
		o.Hooks.OnDropped = func(reason string) { reasons = append(reasons, reason) }
	})
	ctx := context.Background()

	noIcon := req(1)
	noIcon.SmallIcon = ""

	for _, p := range [][]byte{[]byte("{not json"), payload(t, noIcon)} {
		if err := h.bridge.Deliver(ctx, p); err != nil {
			t.Fatalf("expected silent drop, got %v", err)
		}
	}
	if len(h.renderer.Posted()) != 0 {
		t.Fatal("nothing should be posted")
	}
	if !reflect.DeepEqual(reasons, []string{"malformed", "incomplete"}) {
		t.Fatalf("unexpected drop reasons %v", reasons)
	}
}

func TestDeliver_RendererErrorKeepsRegistration(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	r := req(6)
	_ = h.bridge.Schedule(ctx, r)
	h.renderer.NotifyErr = errors.New("gateway down")

	if err := h.bridge.Deliver(ctx, payload(t, r)); err == nil {
		t.Fatal("expected renderer error")
	}
	if ok, _ := h.reg.Contains(ctx, 6); !ok {
		t.Fatal("id should stay registered when submission failed")
	}
}

func TestStatus(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	_ = h.bridge.Schedule(ctx, req(1))
	r2 := req(2)
	_ = h.bridge.Schedule(ctx, r2)
	_ = h.fire(t, r2)

	tests := []struct {
		id   int
		want domain.Status
	}{
		{1, domain.StatusScheduled},
		{2, domain.StatusDelivered},
		{3, domain.StatusUnknown},
	}
	for _, tc := range tests {
		got, err := h.bridge.Status(ctx, tc.id)
		if err != nil {
			t.Fatal(err)
		}
		if got != tc.want {
			t.Fatalf("id %d: got %s want %s", tc.id, got, tc.want)
		}
	}

	h.renderer.Dismiss(2)
	if got, _ := h.bridge.Status(ctx, 2); got != domain.StatusUnknown {
		t.Fatalf("dismissed one-shot should be unknown, got %s", got)
	}
}

func TestStatus_UnsupportedBelowMarshmallow(t *testing.T) {
	h := newHarness(t, func(o *bridge.Options) { o.APILevel = 22 })
	got, err := h.bridge.Status(context.Background(), 1)
	if err != nil || got != domain.StatusUnsupported {
		t.Fatalf("expected unsupported, got %s err=%v", got, err)
	}
}

func TestCancelAllDisplayed(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()
	r := req(1)
	_ = h.bridge.Schedule(ctx, r)
	_ = h.fire(t, r)

	if err := h.bridge.CancelAllDisplayed(ctx); err != nil {
		t.Fatal(err)
	}
	if ids, _ := h.renderer.ActiveIDs(ctx); len(ids) != 0 {
		t.Fatalf("expected nothing visible, got %v", ids)
	}
}

func TestChannelsDelegateToPlatform(t *testing.T) {
	h := newHarness(t, nil)
	ctx := context.Background()

	ch := domain.Channel{ID: "alerts", Name: "Alerts", Importance: domain.ImportanceHigh}
	if err := h.bridge.RegisterChannel(ctx, ch); err != nil {
		t.Fatal(err)
	}
	got, err := h.bridge.Channel(ctx, "alerts")
	if err != nil || got.Name != "Alerts" {
		t.Fatalf("unexpected channel %+v err=%v", got, err)
	}
	if err := h.bridge.DeleteChannel(ctx, "alerts"); err != nil {
		t.Fatal(err)
	}
	if _, err := h.bridge.Channel(ctx, "alerts"); !errors.Is(err, domain.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if h.bridge.Variant() != "oreo" {
		t.Fatalf("unexpected variant %s", h.bridge.Variant())
	}
}
