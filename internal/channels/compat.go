// Package channels persists notification channels on platforms that predate
// native channel support.
package channels

import (
	"context"
	"fmt"
	"sort"

	"github.com/notifyhub/notification-bridge/internal/domain"
	"github.com/notifyhub/notification-bridge/internal/store"
)

const (
	idSet        = "channel_ids"
	bundlePrefix = "channel:"

	fieldTitle       = "title"
	fieldImportance  = "importance"
	fieldDescription = "description"
	fieldLights      = "enableLights"
	fieldVibration   = "enableVibration"
	fieldBypassDnd   = "canBypassDnd"
	fieldShowBadge   = "canShowBadge"
	fieldPattern     = "vibrationPattern"
	fieldVisibility  = "lockscreenVisibility"

	undefined = "undefined"
)

// Compat stores one attribute bundle per channel plus the set of known ids.
type Compat struct {
	store store.Store
}

func NewCompat(s store.Store) *Compat {
	return &Compat{store: s}
}

func bundleKey(id string) string { return bundlePrefix + id }

// Define adds the id to the channel set and overwrites its attributes.
func (c *Compat) Define(ctx context.Context, ch domain.Channel) error {
	ids, err := c.store.Members(ctx, idSet)
	if err != nil {
		return fmt.Errorf("read channel ids: %w", err)
	}
	if !contains(ids, ch.ID) {
		ids = append(ids, ch.ID)
	}
	if err := c.store.ReplaceSet(ctx, idSet, ids); err != nil {
		return fmt.Errorf("write channel ids: %w", err)
	}

	b := store.Bundle{}
	b.SetString(fieldTitle, ch.Name)
	b.SetInt(fieldImportance, int(ch.Importance))
	b.SetString(fieldDescription, ch.Description)
	b.SetBool(fieldLights, ch.EnableLights)
	b.SetBool(fieldVibration, ch.EnableVibration)
	b.SetBool(fieldBypassDnd, ch.CanBypassDnd)
	b.SetBool(fieldShowBadge, ch.CanShowBadge)
	b.SetString(fieldPattern, EncodePattern(ch.VibrationPattern))
	b.SetInt(fieldVisibility, int(ch.LockscreenVisibility))

	if err := c.store.PutBundle(ctx, bundleKey(ch.ID), b); err != nil {
		return fmt.Errorf("write channel %q: %w", ch.ID, err)
	}
	return nil
}

// Get rebuilds a channel from its bundle. A missing bundle yields a channel
// made entirely of defaults, the same as the platform preference reader.
func (c *Compat) Get(ctx context.Context, id string) (domain.Channel, error) {
	b, _, err := c.store.Bundle(ctx, bundleKey(id))
	if err != nil {
		return domain.Channel{}, fmt.Errorf("read channel %q: %w", id, err)
	}
	if b == nil {
		b = store.Bundle{}
	}

	return domain.Channel{
		ID:                   id,
		Name:                 b.String(fieldTitle, undefined),
		Importance:           domain.Importance(b.Int(fieldImportance, int(domain.ImportanceDefault))),
		Description:          b.String(fieldDescription, undefined),
		EnableLights:         b.Bool(fieldLights, false),
		EnableVibration:      b.Bool(fieldVibration, false),
		CanBypassDnd:         b.Bool(fieldBypassDnd, false),
		CanShowBadge:         b.Bool(fieldShowBadge, false),
		VibrationPattern:     DecodePattern(b.String(fieldPattern, "")),
		LockscreenVisibility: domain.Visibility(b.Int(fieldVisibility, int(domain.VisibilityPublic))),
	}, nil
}

// Exists reports whether id is in the channel set.
func (c *Compat) Exists(ctx context.Context, id string) (bool, error) {
	ids, err := c.store.Members(ctx, idSet)
	if err != nil {
		return false, fmt.Errorf("read channel ids: %w", err)
	}
	return contains(ids, id), nil
}

// Delete drops the id and its bundle. Unknown ids are left alone.
func (c *Compat) Delete(ctx context.Context, id string) error {
	ids, err := c.store.Members(ctx, idSet)
	if err != nil {
		return fmt.Errorf("read channel ids: %w", err)
	}
	if !contains(ids, id) {
		return nil
	}

	kept := make([]string, 0, len(ids)-1)
	for _, existing := range ids {
		if existing != id {
			kept = append(kept, existing)
		}
	}
	if err := c.store.ReplaceSet(ctx, idSet, kept); err != nil {
		return fmt.Errorf("write channel ids: %w", err)
	}
	if err := c.store.DeleteBundle(ctx, bundleKey(id)); err != nil {
		return fmt.Errorf("delete channel %q: %w", id, err)
	}
	return nil
}

// List returns every defined channel ordered by id.
func (c *Compat) List(ctx context.Context) ([]domain.Channel, error) {
	ids, err := c.store.Members(ctx, idSet)
	if err != nil {
		return nil, fmt.Errorf("read channel ids: %w", err)
	}
	sort.Strings(ids)

	out := make([]domain.Channel, 0, len(ids))
	for _, id := range ids {
		ch, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, ch)
	}
	return out, nil
}

func contains(ids []string, id string) bool {
	for _, existing := range ids {
		if existing == id {
			return true
		}
	}
	return false
}
