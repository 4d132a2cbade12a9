package platform

import (
	"context"
	"fmt"

	"github.com/notifyhub/notification-bridge/internal/domain"
)

// Oreo hands channel attributes to the platform's native registry; the
// notification itself only names its channel.
type Oreo struct {
	deps Deps
}

func (o *Oreo) Name() string { return "oreo" }

func (o *Oreo) BuildAndSubmit(ctx context.Context, req domain.Request) (domain.Rendered, error) {
	small, large := resolveIcons(o.deps.Resources, req, o.deps.Logger)
	r := baseRendered(req, small, large)
	r.ChannelID = req.ChannelID
	r.Colorized = req.Color != 0
	if req.Style == domain.StyleBigText {
		r.BigTitle = req.Title
	}
	r.Tap.ClearTask = true

	if err := o.deps.Renderer.Notify(ctx, r); err != nil {
		return domain.Rendered{}, fmt.Errorf("submit notification %d: %w", req.ID, err)
	}
	return r, nil
}

func (o *Oreo) RegisterChannel(ctx context.Context, ch domain.Channel) error {
	if o.deps.NativeChannels == nil {
		return domain.ErrNotSupported
	}
	if err := ch.Validate(); err != nil {
		return err
	}
	return o.deps.NativeChannels.Create(ctx, ch)
}

func (o *Oreo) DeleteChannel(ctx context.Context, id string) error {
	if o.deps.NativeChannels == nil {
		return domain.ErrNotSupported
	}
	return o.deps.NativeChannels.Delete(ctx, id)
}

func (o *Oreo) Channel(ctx context.Context, id string) (domain.Channel, error) {
	if o.deps.NativeChannels == nil {
		return domain.Channel{}, domain.ErrNotSupported
	}
	ch, ok, err := o.deps.NativeChannels.Get(ctx, id)
	if err != nil {
		return domain.Channel{}, err
	}
	if !ok {
		return domain.Channel{}, domain.ErrNotFound
	}
	return ch, nil
}

func (o *Oreo) Channels(ctx context.Context) ([]domain.Channel, error) {
	if o.deps.NativeChannels == nil {
		return nil, domain.ErrNotSupported
	}
	return o.deps.NativeChannels.List(ctx)
}

var _ Platform = (*Oreo)(nil)
