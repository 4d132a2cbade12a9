package host

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryAlarms keeps registrations in process memory. Like the device alarm
// service it forgets everything on restart.
type MemoryAlarms struct {
	mu     sync.Mutex
	alarms map[int]Alarm
}

func NewMemoryAlarms() *MemoryAlarms {
	return &MemoryAlarms{alarms: make(map[int]Alarm)}
}

func (m *MemoryAlarms) Set(_ context.Context, a Alarm) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	a.Payload = append([]byte(nil), a.Payload...)
	m.alarms[a.ID] = a
	return nil
}

func (m *MemoryAlarms) Cancel(_ context.Context, id int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.alarms, id)
	return nil
}

func (m *MemoryAlarms) Lookup(_ context.Context, id int) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.alarms[id]
	return ok, nil
}

func (m *MemoryAlarms) Due(_ context.Context, now time.Time) ([]Alarm, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var due []Alarm
	for _, a := range m.alarms {
		if !a.FireAt.After(now) {
			due = append(due, a)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].FireAt.Before(due[j].FireAt) })
	return due, nil
}

func (m *MemoryAlarms) Fired(_ context.Context, a Alarm, now time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.alarms[a.ID]
	// Re-registered since it was read: leave the new registration alone.
	if !ok || !cur.FireAt.Equal(a.FireAt) {
		return nil
	}
	if cur.Repeat <= 0 {
		delete(m.alarms, a.ID)
		return nil
	}
	cur.FireAt = nextFire(cur.FireAt, cur.Repeat, now)
	m.alarms[a.ID] = cur
	return nil
}

// Len reports how many registrations are held.
func (m *MemoryAlarms) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.alarms)
}

var (
	_ AlarmService = (*MemoryAlarms)(nil)
	_ AlarmSource  = (*MemoryAlarms)(nil)
)
