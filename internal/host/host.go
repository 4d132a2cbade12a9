// Package host holds the contracts of the platform services the bridge
// delegates to, plus adapters that stand in for them off-device.
package host

import (
	"context"
	"time"

	"github.com/notifyhub/notification-bridge/internal/domain"
)

// Alarm is one wake-up registration, keyed by the notification id used as
// the request code. Payload is handed back verbatim when the alarm fires.
type Alarm struct {
	ID      int
	FireAt  time.Time
	Repeat  time.Duration
	Payload []byte
}

// AlarmService registers and cancels delivery events.
// Set replaces any existing registration with the same id.
// Lookup resolves a registration without creating one.
type AlarmService interface {
	Set(ctx context.Context, a Alarm) error
	Cancel(ctx context.Context, id int) error
	Lookup(ctx context.Context, id int) (bool, error)
}

// AlarmSource is the firing side of an alarm service, polled by the worker.
// Fired consumes a one-shot registration or advances a repeating one.
type AlarmSource interface {
	Due(ctx context.Context, now time.Time) ([]Alarm, error)
	Fired(ctx context.Context, a Alarm, now time.Time) error
}

// Renderer posts a built notification to the user.
type Renderer interface {
	Notify(ctx context.Context, n domain.Rendered) error
}

// ActiveLister is implemented by renderers that can report which
// notifications are currently visible.
type ActiveLister interface {
	ActiveIDs(ctx context.Context) ([]int, error)
}

// Dismisser is implemented by renderers that can clear visible notifications.
type Dismisser interface {
	DismissAll(ctx context.Context) error
}

// ChannelRegistry is the platform's own channel store (API 26+).
type ChannelRegistry interface {
	Create(ctx context.Context, ch domain.Channel) error
	Delete(ctx context.Context, id string) error
	Get(ctx context.Context, id string) (domain.Channel, bool, error)
	List(ctx context.Context) ([]domain.Channel, error)
}

// Resources resolves named drawables.
type Resources interface {
	Lookup(name string) (int, bool)
	AppIcon() int
}

// nextFire returns the first occurrence of a repeating alarm strictly after now.
func nextFire(fireAt time.Time, repeat time.Duration, now time.Time) time.Time {
	if !fireAt.After(now) {
		steps := now.Sub(fireAt)/repeat + 1
		return fireAt.Add(steps * repeat)
	}
	return fireAt
}
