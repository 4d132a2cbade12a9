// Package bridge is the bookkeeping layer between the engine and the host
// notification services. It tracks which ids are scheduled, keeps snapshots
// for rescheduling after a restart and routes every build through the
// platform variant selected at startup.
package bridge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/domain"
	"github.com/notifyhub/notification-bridge/internal/host"
	"github.com/notifyhub/notification-bridge/internal/platform"
	"github.com/notifyhub/notification-bridge/internal/registry"
)

// DefaultAlarmCeiling is the number of concurrent alarms some devices accept.
const DefaultAlarmCeiling = 500

// SentCallback is invoked after a notification has been handed to the
// renderer. Errors and panics are logged and otherwise ignored.
type SentCallback func(ctx context.Context, req domain.Request) error

// Hooks receive metric observations. Any of them may be nil.
type Hooks struct {
	OnScheduled    func()
	OnRejected     func()
	OnDelivered    func(variant string, latency time.Duration)
	OnDropped      func(reason string)
	OnReconciled   func(resubmitted, dropped int)
	OnRegistrySize func(n int)
}

// Options configures a Bridge.
type Options struct {
	Registry *registry.Registry
	Alarms   host.AlarmService
	Platform platform.Platform
	Renderer host.Renderer
	Logger   *zap.Logger
	OnSent   SentCallback
	Hooks    Hooks

	APILevel            int
	RescheduleOnRestart bool
	AlarmCeiling        int
	EnforceCeiling      bool
}

// Bridge serialises every logical operation; individual store writes are
// atomic on their own but read-modify-write sequences are not.
type Bridge struct {
	mu sync.Mutex

	reg      *registry.Registry
	alarms   host.AlarmService
	platform platform.Platform
	renderer host.Renderer
	logger   *zap.Logger
	onSent   SentCallback
	hooks    Hooks

	apiLevel            int
	rescheduleOnRestart bool
	ceiling             int
	enforceCeiling      bool
}

func New(opts Options) *Bridge {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	ceiling := opts.AlarmCeiling
	if ceiling < 0 {
		ceiling = 0
	}
	return &Bridge{
		reg:                 opts.Registry,
		alarms:              opts.Alarms,
		platform:            opts.Platform,
		renderer:            opts.Renderer,
		logger:              opts.Logger,
		onSent:              opts.OnSent,
		hooks:               opts.Hooks,
		apiLevel:            opts.APILevel,
		rescheduleOnRestart: opts.RescheduleOnRestart,
		ceiling:             ceiling,
		enforceCeiling:      opts.EnforceCeiling,
	}
}

// Variant names the platform implementation in use.
func (b *Bridge) Variant() string { return b.platform.Name() }

// Schedule registers req for delivery at its fire time. Scheduling an id that
// is already live replaces the earlier registration.
func (b *Bridge) Schedule(ctx context.Context, req domain.Request) error {
	if err := req.Validate(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.schedule(ctx, req)
}

func (b *Bridge) schedule(ctx context.Context, req domain.Request) error {
	live, stale, err := b.partitionIDs(ctx)
	if err != nil {
		return err
	}

	if b.enforceCeiling && b.ceiling > 0 && len(live)+1 >= b.ceiling {
		b.logger.Warn("alarm ceiling reached, wait for scheduled notifications to fire or cancel some",
			zap.Int("notification_id", req.ID),
			zap.Int("live", len(live)),
			zap.Int("ceiling", b.ceiling))
		b.observeRejected()
		return domain.ErrCapacityExceeded
	}

	ids := live
	if !containsID(live, req.ID) {
		ids = append(ids, req.ID)
	}
	if err := b.reg.Replace(ctx, ids); err != nil {
		return err
	}
	for _, id := range stale {
		if err := b.reg.DeleteSnapshot(ctx, id); err != nil {
			return err
		}
	}

	if b.rescheduleOnRestart {
		if err := b.reg.SaveSnapshot(ctx, req); err != nil {
			return err
		}
	}

	payload, err := registry.EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("encode alarm payload %d: %w", req.ID, err)
	}
	alarm := host.Alarm{
		ID:      req.ID,
		FireAt:  req.FireTime,
		Repeat:  req.RepeatInterval,
		Payload: payload,
	}
	if err := b.alarms.Set(ctx, alarm); err != nil {
		return fmt.Errorf("register alarm %d: %w", req.ID, err)
	}

	b.logger.Debug("notification scheduled",
		zap.Int("notification_id", req.ID),
		zap.String("channel_id", req.ChannelID),
		zap.Time("fire_time", req.FireTime),
		zap.Duration("repeat", req.RepeatInterval))
	if b.hooks.OnScheduled != nil {
		b.hooks.OnScheduled()
	}
	b.observeSize(len(ids))
	return nil
}

// partitionIDs splits the registered ids into those that still have an alarm
// registration and those whose alarm is gone.
func (b *Bridge) partitionIDs(ctx context.Context) (live, stale []int, err error) {
	ids, err := b.reg.IDs(ctx)
	if err != nil {
		return nil, nil, err
	}
	live = make([]int, 0, len(ids))
	for _, id := range ids {
		ok, err := b.alarms.Lookup(ctx, id)
		if err != nil {
			return nil, nil, fmt.Errorf("lookup alarm %d: %w", id, err)
		}
		if ok {
			live = append(live, id)
		} else {
			stale = append(stale, id)
		}
	}
	return live, stale, nil
}

// Cancel removes a scheduled notification. Unknown ids are not an error.
func (b *Bridge) Cancel(ctx context.Context, id int) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.cancel(ctx, id)
}

func (b *Bridge) cancel(ctx context.Context, id int) error {
	if err := b.alarms.Cancel(ctx, id); err != nil {
		return fmt.Errorf("cancel alarm %d: %w", id, err)
	}
	if err := b.forget(ctx, id); err != nil {
		return err
	}
	b.logger.Debug("notification cancelled", zap.Int("notification_id", id))
	return nil
}

// forget drops the id and its snapshot.
func (b *Bridge) forget(ctx context.Context, id int) error {
	if err := b.reg.Remove(ctx, id); err != nil {
		return err
	}
	return b.reg.DeleteSnapshot(ctx, id)
}

// CancelAll cancels every registered notification.
func (b *Bridge) CancelAll(ctx context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids, err := b.reg.IDs(ctx)
	if err != nil {
		return err
	}
	var errs []error
	for _, id := range ids {
		if err := b.cancel(ctx, id); err != nil {
			errs = append(errs, err)
		}
	}
	b.observeSize(0)
	return errors.Join(errs...)
}

// ScheduledIDs returns the registered ids in ascending order.
func (b *Bridge) ScheduledIDs(ctx context.Context) ([]int, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.reg.IDs(ctx)
}

// Reconcile compares the registry with the alarm service. Ids whose alarm is
// gone or whose snapshot is missing or unreadable are dropped, and any alarm
// still set for them is cancelled; the rest are scheduled again from their
// snapshots and returned.
func (b *Bridge) Reconcile(ctx context.Context) ([]domain.Request, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	ids, err := b.reg.IDs(ctx)
	if err != nil {
		return nil, err
	}

	var (
		restore  []domain.Request
		stale    []int
		orphaned []int
	)
	for _, id := range ids {
		live, err := b.alarms.Lookup(ctx, id)
		if err != nil {
			return nil, fmt.Errorf("lookup alarm %d: %w", id, err)
		}
		if !live {
			stale = append(stale, id)
			continue
		}
		req, ok, err := b.reg.Snapshot(ctx, id)
		if errors.Is(err, domain.ErrMalformedPayload) {
			b.logger.Warn("dropping unreadable snapshot", zap.Int("notification_id", id), zap.Error(err))
			stale = append(stale, id)
			orphaned = append(orphaned, id)
			continue
		}
		if err != nil {
			return nil, err
		}
		if !ok {
			stale = append(stale, id)
			orphaned = append(orphaned, id)
			continue
		}
		restore = append(restore, req)
	}

	// A live alarm without a usable snapshot cannot be restored and would
	// otherwise fire for an id the registry no longer tracks.
	for _, id := range orphaned {
		if err := b.alarms.Cancel(ctx, id); err != nil {
			return nil, fmt.Errorf("cancel alarm %d: %w", id, err)
		}
	}
	if len(stale) > 0 {
		if err := b.reg.RemoveAll(ctx, stale); err != nil {
			return nil, err
		}
		for _, id := range stale {
			if err := b.reg.DeleteSnapshot(ctx, id); err != nil {
				return nil, err
			}
		}
	}

	resubmitted := make([]domain.Request, 0, len(restore))
	for _, req := range restore {
		if err := b.schedule(ctx, req); err != nil {
			b.logger.Warn("reschedule failed",
				zap.Int("notification_id", req.ID), zap.Error(err))
			continue
		}
		resubmitted = append(resubmitted, req)
	}

	b.logger.Info("registry reconciled",
		zap.Int("resubmitted", len(resubmitted)),
		zap.Int("dropped", len(stale)))
	if b.hooks.OnReconciled != nil {
		b.hooks.OnReconciled(len(resubmitted), len(stale))
	}
	return resubmitted, nil
}

// RestoreEnabled reports whether Restore reconciles the registry.
func (b *Bridge) RestoreEnabled() bool {
	return b.rescheduleOnRestart
}

// Restore is the startup hook. It reconciles only when rescheduling after a
// restart is enabled.
func (b *Bridge) Restore(ctx context.Context) ([]domain.Request, error) {
	if !b.rescheduleOnRestart {
		return nil, nil
	}
	return b.Reconcile(ctx)
}

// Deliver handles one fired alarm. Payloads that cannot be delivered, or whose
// id was cancelled after firing, are dropped without error; only host failures
// are returned.
func (b *Bridge) Deliver(ctx context.Context, payload []byte) error {
	req, err := registry.DecodeRequest(payload)
	if err != nil {
		b.logger.Warn("dropping undecodable delivery", zap.Error(err))
		b.observeDropped("malformed")
		return nil
	}
	if req.ChannelID == "" || req.SmallIcon == "" {
		b.logger.Warn("dropping delivery without channel or icon", zap.Int("notification_id", req.ID))
		b.observeDropped("incomplete")
		return nil
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	registered, err := b.reg.Contains(ctx, req.ID)
	if err != nil {
		return err
	}
	if !registered {
		b.logger.Debug("dropping delivery for cancelled notification", zap.Int("notification_id", req.ID))
		b.observeDropped("cancelled")
		return nil
	}

	start := time.Now()
	if _, err := b.platform.BuildAndSubmit(ctx, req); err != nil {
		return err
	}
	if b.hooks.OnDelivered != nil {
		b.hooks.OnDelivered(b.platform.Name(), time.Since(start))
	}

	b.notifySent(ctx, req)

	if req.IsRepeating() {
		return nil
	}
	// The id was scheduled again after this payload was queued.
	rescheduled, err := b.alarms.Lookup(ctx, req.ID)
	if err != nil {
		return fmt.Errorf("lookup alarm %d: %w", req.ID, err)
	}
	if rescheduled {
		b.logger.Debug("keeping re-scheduled notification", zap.Int("notification_id", req.ID))
		return nil
	}
	return b.forget(ctx, req.ID)
}

func (b *Bridge) notifySent(ctx context.Context, req domain.Request) {
	if b.onSent == nil {
		b.logger.Debug("no sent callback registered", zap.Int("notification_id", req.ID))
		return
	}
	defer func() {
		if r := recover(); r != nil {
			b.logger.Warn("sent callback panicked",
				zap.Int("notification_id", req.ID), zap.Any("panic", r))
		}
	}()
	if err := b.onSent(ctx, req); err != nil {
		b.logger.Warn("sent callback failed",
			zap.Int("notification_id", req.ID), zap.Error(err))
	}
}

// Status reports whether id is visible, scheduled or neither. It needs a
// renderer that can list visible notifications on API 23 or later.
func (b *Bridge) Status(ctx context.Context, id int) (domain.Status, error) {
	lister, ok := b.renderer.(host.ActiveLister)
	if !ok || b.apiLevel < platform.LevelMarshmallow {
		return domain.StatusUnsupported, nil
	}

	active, err := lister.ActiveIDs(ctx)
	if err != nil {
		return domain.StatusUnknown, fmt.Errorf("list active notifications: %w", err)
	}
	if containsID(active, id) {
		return domain.StatusDelivered, nil
	}

	live, err := b.alarms.Lookup(ctx, id)
	if err != nil {
		return domain.StatusUnknown, fmt.Errorf("lookup alarm %d: %w", id, err)
	}
	if live {
		return domain.StatusScheduled, nil
	}
	return domain.StatusUnknown, nil
}

// CancelAllDisplayed clears every visible notification.
func (b *Bridge) CancelAllDisplayed(ctx context.Context) error {
	d, ok := b.renderer.(host.Dismisser)
	if !ok {
		return domain.ErrNotSupported
	}
	return d.DismissAll(ctx)
}

// RegisterChannel creates or updates a notification channel.
func (b *Bridge) RegisterChannel(ctx context.Context, ch domain.Channel) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.platform.RegisterChannel(ctx, ch)
}

// DeleteChannel removes a notification channel.
func (b *Bridge) DeleteChannel(ctx context.Context, id string) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.platform.DeleteChannel(ctx, id)
}

// Channel returns the channel with the given id.
func (b *Bridge) Channel(ctx context.Context, id string) (domain.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.platform.Channel(ctx, id)
}

// Channels lists the registered channels.
func (b *Bridge) Channels(ctx context.Context) ([]domain.Channel, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.platform.Channels(ctx)
}

func (b *Bridge) observeRejected() {
	if b.hooks.OnRejected != nil {
		b.hooks.OnRejected()
	}
}

func (b *Bridge) observeDropped(reason string) {
	if b.hooks.OnDropped != nil {
		b.hooks.OnDropped(reason)
	}
}

func (b *Bridge) observeSize(n int) {
	if b.hooks.OnRegistrySize != nil {
		b.hooks.OnRegistrySize(n)
	}
}

func containsID(ids []int, id int) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}
