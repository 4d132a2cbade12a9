package store

import (
	"context"
	"sync"
)

// Memory is an in-process Store. State is lost with the process, which makes it
// the natural backend for tests and for hosts that do not need reboot restoration.
type Memory struct {
	mu      sync.RWMutex
	sets    map[string][]string
	bundles map[string]Bundle
}

func NewMemory() *Memory {
	return &Memory{
		sets:    make(map[string][]string),
		bundles: make(map[string]Bundle),
	}
}

func (m *Memory) Members(_ context.Context, set string) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	members := m.sets[set]
	out := make([]string, len(members))
	copy(out, members)
	return out, nil
}

func (m *Memory) ReplaceSet(_ context.Context, set string, members []string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(members) == 0 {
		delete(m.sets, set)
		return nil
	}
	m.sets[set] = dedupe(members)
	return nil
}

func (m *Memory) Bundle(_ context.Context, key string) (Bundle, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	b, ok := m.bundles[key]
	if !ok || len(b) == 0 {
		return nil, false, nil
	}
	return b.Clone(), true, nil
}

func (m *Memory) PutBundle(_ context.Context, key string, b Bundle) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.bundles[key] = b.Clone()
	return nil
}

func (m *Memory) DeleteBundle(_ context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.bundles, key)
	return nil
}

func (m *Memory) Ping(context.Context) error { return nil }

var _ Store = (*Memory)(nil)
