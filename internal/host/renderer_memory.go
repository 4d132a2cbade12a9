package host

import (
	"context"
	"sort"
	"sync"

	"github.com/notifyhub/notification-bridge/internal/domain"
)

// MemoryRenderer records posted notifications as the visible set.
type MemoryRenderer struct {
	mu     sync.Mutex
	active map[int]domain.Rendered
	posted []domain.Rendered

	// NotifyErr, when set, is returned by every Notify call.
	NotifyErr error
}

func NewMemoryRenderer() *MemoryRenderer {
	return &MemoryRenderer{active: make(map[int]domain.Rendered)}
}

func (m *MemoryRenderer) Notify(_ context.Context, n domain.Rendered) error {
	if m.NotifyErr != nil {
		return m.NotifyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active[n.ID] = n
	m.posted = append(m.posted, n)
	return nil
}

func (m *MemoryRenderer) ActiveIDs(context.Context) ([]int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	ids := make([]int, 0, len(m.active))
	for id := range m.active {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids, nil
}

func (m *MemoryRenderer) DismissAll(context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.active = make(map[int]domain.Rendered)
	return nil
}

// Dismiss removes one visible notification, as a user swipe would.
func (m *MemoryRenderer) Dismiss(id int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.active, id)
}

// Posted returns every notification ever submitted, oldest first.
func (m *MemoryRenderer) Posted() []domain.Rendered {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.Rendered, len(m.posted))
	copy(out, m.posted)
	return out
}

var (
	_ Renderer     = (*MemoryRenderer)(nil)
	_ ActiveLister = (*MemoryRenderer)(nil)
	_ Dismisser    = (*MemoryRenderer)(nil)
)
