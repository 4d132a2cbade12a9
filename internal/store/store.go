package store

import "context"

// Store is the persisted key-value state shared by the registry and the
// channel-compat layer. It only knows two shapes: named string sets and
// bundles of scalar fields.
//
// ReplaceSet and PutBundle rewrite the whole value. Implementations must make
// each call atomic on its own; combining several calls into one logical
// operation is the caller's job.
type Store interface {
	Members(ctx context.Context, set string) ([]string, error)
	ReplaceSet(ctx context.Context, set string, members []string) error
	Bundle(ctx context.Context, key string) (Bundle, bool, error)
	PutBundle(ctx context.Context, key string, b Bundle) error
	DeleteBundle(ctx context.Context, key string) error
	Ping(ctx context.Context) error
}

// dedupe keeps the first occurrence of every member.
func dedupe(members []string) []string {
	seen := make(map[string]struct{}, len(members))
	out := make([]string, 0, len(members))
	for _, m := range members {
		if _, ok := seen[m]; ok {
			continue
		}
		seen[m] = struct{}{}
		out = append(out, m)
	}
	return out
}
