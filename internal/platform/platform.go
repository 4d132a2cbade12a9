// Package platform turns a notification request into what the installed
// platform's renderer understands. One variant is picked at startup from the
// API level and used for the life of the process.
package platform

import (
	"context"

	"go.uber.org/zap"

	"github.com/notifyhub/notification-bridge/internal/channels"
	"github.com/notifyhub/notification-bridge/internal/domain"
	"github.com/notifyhub/notification-bridge/internal/host"
)

// API levels at which the platform behaviour changes.
const (
	LevelMarshmallow = 23
	LevelNougat      = 24
	LevelOreo        = 26
)

// Platform builds, submits and manages channels for one platform tier.
type Platform interface {
	Name() string
	BuildAndSubmit(ctx context.Context, req domain.Request) (domain.Rendered, error)
	RegisterChannel(ctx context.Context, ch domain.Channel) error
	DeleteChannel(ctx context.Context, id string) error
	Channel(ctx context.Context, id string) (domain.Channel, error)
	Channels(ctx context.Context) ([]domain.Channel, error)
}

// Deps are the host services a variant may need. NativeChannels is only
// consulted by the channel-native variant; Compat only by the others.
type Deps struct {
	Renderer       host.Renderer
	Resources      host.Resources
	Compat         *channels.Compat
	NativeChannels host.ChannelRegistry
	Logger         *zap.Logger
}

// Select returns the variant for apiLevel.
func Select(apiLevel int, deps Deps) Platform {
	if deps.Logger == nil {
		deps.Logger = zap.NewNop()
	}
	switch {
	case apiLevel >= LevelOreo:
		return &Oreo{deps: deps}
	case apiLevel >= LevelNougat:
		return &Nougat{Legacy{deps: deps}}
	default:
		return &Legacy{deps: deps}
	}
}

// resolveIcons falls back to the application icon for a missing small icon
// and drops a missing large icon. Neither case is an error.
func resolveIcons(res host.Resources, req domain.Request, log *zap.Logger) (small, large int) {
	small, ok := res.Lookup(req.SmallIcon)
	if !ok {
		log.Debug("small icon not found, using app icon",
			zap.Int("notification_id", req.ID), zap.String("icon", req.SmallIcon))
		small = res.AppIcon()
	}
	if req.LargeIcon != "" {
		if id, ok := res.Lookup(req.LargeIcon); ok {
			large = id
		}
	}
	return small, large
}

// baseRendered fills the fields every variant shares.
func baseRendered(req domain.Request, small, large int) domain.Rendered {
	r := domain.Rendered{
		ID:              req.ID,
		Title:           req.Title,
		Body:            req.Body,
		SmallIcon:       small,
		LargeIcon:       large,
		Color:           req.Color,
		When:            req.Timestamp,
		ShowWhen:        req.ShowTimestamp,
		UsesChronometer: req.UsesChronometer,
		AutoCancel:      req.ShouldAutoCancel(),
		Group:           req.Group,
		Tap: domain.TapAction{
			NotificationID: req.ID,
			Data:           req.IntentData,
			NewTask:        true,
		},
	}
	if req.Number >= 0 {
		r.Number = req.Number
	}
	if req.Style == domain.StyleBigText {
		r.BigText = req.Body
	}
	return r
}
