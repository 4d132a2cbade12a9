package platform

import (
	"context"
	"fmt"

	"github.com/notifyhub/notification-bridge/internal/domain"
)

// Legacy targets platforms without channels. Channel attributes come from the
// compat store and are folded into each notification.
type Legacy struct {
	deps Deps
}

func (l *Legacy) Name() string { return "legacy" }

func (l *Legacy) BuildAndSubmit(ctx context.Context, req domain.Request) (domain.Rendered, error) {
	r, err := l.build(ctx, req)
	if err != nil {
		return domain.Rendered{}, err
	}
	if err := l.deps.Renderer.Notify(ctx, r); err != nil {
		return domain.Rendered{}, fmt.Errorf("submit notification %d: %w", req.ID, err)
	}
	return r, nil
}

func (l *Legacy) build(ctx context.Context, req domain.Request) (domain.Rendered, error) {
	small, large := resolveIcons(l.deps.Resources, req, l.deps.Logger)
	r := baseRendered(req, small, large)

	ch, err := l.deps.Compat.Get(ctx, req.ChannelID)
	if err != nil {
		return domain.Rendered{}, fmt.Errorf("resolve channel %q: %w", req.ChannelID, err)
	}
	applyChannel(&r, ch)
	return r, nil
}

// applyChannel emulates channel behaviour with per-notification attributes.
func applyChannel(r *domain.Rendered, ch domain.Channel) {
	if len(ch.VibrationPattern) > 0 {
		r.Defaults = domain.DefaultLights | domain.DefaultSound
		r.Vibrate = append([]int64(nil), ch.VibrationPattern...)
	} else {
		r.Defaults = domain.DefaultAll
	}

	vis := ch.LockscreenVisibility
	r.Visibility = &vis

	prio := domain.PriorityFor(ch.Importance)
	r.Priority = &prio
}

func (l *Legacy) RegisterChannel(ctx context.Context, ch domain.Channel) error {
	if err := ch.Validate(); err != nil {
		return err
	}
	return l.deps.Compat.Define(ctx, ch)
}

func (l *Legacy) DeleteChannel(ctx context.Context, id string) error {
	return l.deps.Compat.Delete(ctx, id)
}

func (l *Legacy) Channel(ctx context.Context, id string) (domain.Channel, error) {
	ok, err := l.deps.Compat.Exists(ctx, id)
	if err != nil {
		return domain.Channel{}, err
	}
	if !ok {
		return domain.Channel{}, domain.ErrNotFound
	}
	return l.deps.Compat.Get(ctx, id)
}

func (l *Legacy) Channels(ctx context.Context) ([]domain.Channel, error) {
	return l.deps.Compat.List(ctx)
}

var _ Platform = (*Legacy)(nil)
