package host

import (
	"context"
	"sort"
	"sync"

	"github.com/notifyhub/notification-bridge/internal/domain"
)

// MemoryChannels stands in for the platform channel registry.
type MemoryChannels struct {
	mu       sync.RWMutex
	channels map[string]domain.Channel
}

func NewMemoryChannels() *MemoryChannels {
	return &MemoryChannels{channels: make(map[string]domain.Channel)}
}

func (m *MemoryChannels) Create(_ context.Context, ch domain.Channel) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	ch.VibrationPattern = append([]int64(nil), ch.VibrationPattern...)
	m.channels[ch.ID] = ch
	return nil
}

func (m *MemoryChannels) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.channels, id)
	return nil
}

func (m *MemoryChannels) Get(_ context.Context, id string) (domain.Channel, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	ch, ok := m.channels[id]
	return ch, ok, nil
}

func (m *MemoryChannels) List(context.Context) ([]domain.Channel, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]domain.Channel, 0, len(m.channels))
	for _, ch := range m.channels {
		out = append(out, ch)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ ChannelRegistry = (*MemoryChannels)(nil)
