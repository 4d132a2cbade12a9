// Package registry tracks which notification ids are believed to be scheduled
// and keeps a snapshot of each request so it can be resubmitted after a reboot.
package registry

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strconv"

	"github.com/notifyhub/notification-bridge/internal/domain"
	"github.com/notifyhub/notification-bridge/internal/store"
)

const (
	idSet          = "notification_ids"
	snapshotPrefix = "notification:"
	snapshotField  = "data"

	snapshotVersion = 1
)

type snapshot struct {
	Version int            `json:"version"`
	Request domain.Request `json:"request"`
}

// Registry is the id set plus the per-id snapshot bundles.
// Every set mutation rewrites the whole set.
type Registry struct {
	store store.Store
}

func New(s store.Store) *Registry {
	return &Registry{store: s}
}

func snapshotKey(id int) string { return snapshotPrefix + strconv.Itoa(id) }

// IDs returns the registered ids in ascending order.
// Members that are not integers are ignored.
func (r *Registry) IDs(ctx context.Context) ([]int, error) {
	members, err := r.store.Members(ctx, idSet)
	if err != nil {
		return nil, fmt.Errorf("read notification ids: %w", err)
	}
	ids := make([]int, 0, len(members))
	for _, m := range members {
		id, err := strconv.Atoi(m)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

// Replace rewrites the id set.
func (r *Registry) Replace(ctx context.Context, ids []int) error {
	members := make([]string, len(ids))
	for i, id := range ids {
		members[i] = strconv.Itoa(id)
	}
	if err := r.store.ReplaceSet(ctx, idSet, members); err != nil {
		return fmt.Errorf("write notification ids: %w", err)
	}
	return nil
}

func (r *Registry) Contains(ctx context.Context, id int) (bool, error) {
	ids, err := r.IDs(ctx)
	if err != nil {
		return false, err
	}
	i := sort.SearchInts(ids, id)
	return i < len(ids) && ids[i] == id, nil
}

func (r *Registry) Add(ctx context.Context, id int) error {
	ids, err := r.IDs(ctx)
	if err != nil {
		return err
	}
	return r.Replace(ctx, append(ids, id))
}

// Remove is a no-op when id is not registered.
func (r *Registry) Remove(ctx context.Context, id int) error {
	return r.RemoveAll(ctx, []int{id})
}

// RemoveAll drops every listed id with a single rewrite.
func (r *Registry) RemoveAll(ctx context.Context, drop []int) error {
	ids, err := r.IDs(ctx)
	if err != nil {
		return err
	}
	gone := make(map[int]struct{}, len(drop))
	for _, id := range drop {
		gone[id] = struct{}{}
	}
	kept := make([]int, 0, len(ids))
	for _, id := range ids {
		if _, ok := gone[id]; !ok {
			kept = append(kept, id)
		}
	}
	if len(kept) == len(ids) {
		return nil
	}
	return r.Replace(ctx, kept)
}

func (r *Registry) SaveSnapshot(ctx context.Context, req domain.Request) error {
	data, err := EncodeRequest(req)
	if err != nil {
		return fmt.Errorf("encode snapshot %d: %w", req.ID, err)
	}
	b := store.Bundle{}
	b.SetString(snapshotField, string(data))
	if err := r.store.PutBundle(ctx, snapshotKey(req.ID), b); err != nil {
		return fmt.Errorf("write snapshot %d: %w", req.ID, err)
	}
	return nil
}

// Snapshot loads the stored request for id. ok is false when nothing is
// stored; an unreadable payload is reported as domain.ErrMalformedPayload.
func (r *Registry) Snapshot(ctx context.Context, id int) (req domain.Request, ok bool, err error) {
	b, found, err := r.store.Bundle(ctx, snapshotKey(id))
	if err != nil {
		return domain.Request{}, false, fmt.Errorf("read snapshot %d: %w", id, err)
	}
	data := b.String(snapshotField, "")
	if !found || len(data) <= 1 {
		return domain.Request{}, false, nil
	}

	req, err = DecodeRequest([]byte(data))
	if err != nil {
		return domain.Request{}, false, err
	}
	return req, true, nil
}

func (r *Registry) DeleteSnapshot(ctx context.Context, id int) error {
	if err := r.store.DeleteBundle(ctx, snapshotKey(id)); err != nil {
		return fmt.Errorf("delete snapshot %d: %w", id, err)
	}
	return nil
}

// EncodeRequest produces the payload carried by alarms and snapshots.
func EncodeRequest(req domain.Request) ([]byte, error) {
	return json.Marshal(snapshot{Version: snapshotVersion, Request: req})
}

// DecodeRequest parses a payload written by EncodeRequest.
func DecodeRequest(data []byte) (domain.Request, error) {
	var s snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return domain.Request{}, fmt.Errorf("%w: %v", domain.ErrMalformedPayload, err)
	}
	if s.Version != snapshotVersion {
		return domain.Request{}, fmt.Errorf("%w: unsupported version %d", domain.ErrMalformedPayload, s.Version)
	}
	return s.Request, nil
}
