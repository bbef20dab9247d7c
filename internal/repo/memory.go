package repo

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"ortholine/internal/domain"
)

// Memory is an in-process store. All state lives in maps guarded by one mutex.
type Memory struct {
	mu            sync.RWMutex
	orders        map[string]domain.Order
	history       map[string][]domain.WorkflowStep
	assignments   map[string][]domain.DepartmentAssignment
	notifications []domain.Notification
}

func NewMemory() *Memory {
	return &Memory{
		orders:      make(map[string]domain.Order),
		history:     make(map[string][]domain.WorkflowStep),
		assignments: make(map[string][]domain.DepartmentAssignment),
	}
}

func (m *Memory) InsertOrder(_ context.Context, o domain.Order) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, exists := m.orders[o.ID]; exists {
		return fmt.Errorf("order %s already exists: %w", o.ID, domain.ErrConflict)
	}
	m.orders[o.ID] = o
	return nil
}

func (m *Memory) GetOrder(_ context.Context, id string) (domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return o, nil
}

func (m *Memory) ListOrders(_ context.Context, f domain.OrderFilter) ([]domain.Order, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Order
	for _, o := range m.orders {
		if f.Status != "" && o.WorkflowStatus != f.Status {
			continue
		}
		res = append(res, o)
	}
	sort.Slice(res, func(i, j int) bool {
		if res[i].CreatedAt.Equal(res[j].CreatedAt) {
			return res[i].ID > res[j].ID
		}
		return res[i].CreatedAt.After(res[j].CreatedAt)
	})
	return res, nil
}

func (m *Memory) History(_ context.Context, orderID string) ([]domain.WorkflowStep, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.WorkflowStep(nil), m.history[orderID]...), nil
}

func (m *Memory) Assignments(_ context.Context, orderID string) ([]domain.DepartmentAssignment, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]domain.DepartmentAssignment(nil), m.assignments[orderID]...), nil
}

func (m *Memory) UpdateAssignment(_ context.Context, a domain.DepartmentAssignment) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	items := m.assignments[a.OrderID]
	for i := range items {
		if items[i].ID == a.ID {
			items[i] = a
			return nil
		}
	}
	return fmt.Errorf("assignment %s: %w", a.ID, domain.ErrNotFound)
}

// Commit applies c atomically or not at all.
func (m *Memory) Commit(_ context.Context, c Change) error {
	if err := c.validate(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	cur, ok := m.orders[c.Order.ID]
	if !ok {
		return fmt.Errorf("order %s: %w", c.Order.ID, domain.ErrNotFound)
	}
	if cur.WorkflowStatus != c.ExpectStatus || cur.HistorySeq != c.ExpectSeq {
		return fmt.Errorf("order %s is %s#%d, expected %s#%d: %w", cur.ID, cur.WorkflowStatus, cur.HistorySeq, c.ExpectStatus, c.ExpectSeq, domain.ErrConflict)
	}
	m.orders[c.Order.ID] = c.Order
	m.history[c.Order.ID] = append(m.history[c.Order.ID], c.Step)
	if c.Assignment != nil {
		m.assignments[c.Order.ID] = append(m.assignments[c.Order.ID], *c.Assignment)
	}
	if c.Notification != nil {
		m.notifications = append(m.notifications, *c.Notification)
	}
	return nil
}

// ListNotifications returns newest first.
func (m *Memory) ListNotifications(_ context.Context, f domain.NotificationFilter) ([]domain.Notification, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	var res []domain.Notification
	for i := len(m.notifications) - 1; i >= 0; i-- {
		if f.Match(m.notifications[i]) {
			res = append(res, m.notifications[i])
		}
	}
	return res, nil
}

func (m *Memory) MarkNotificationRead(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications[i].IsRead = true
			return true, nil
		}
	}
	return false, nil
}

func (m *Memory) MarkAllNotificationsRead(_ context.Context, f domain.NotificationFilter) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	n := 0
	for i := range m.notifications {
		if m.notifications[i].IsRead || !f.Match(m.notifications[i]) {
			continue
		}
		m.notifications[i].IsRead = true
		n++
	}
	return n, nil
}

func (m *Memory) DeleteNotification(_ context.Context, id string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := range m.notifications {
		if m.notifications[i].ID == id {
			m.notifications = append(m.notifications[:i], m.notifications[i+1:]...)
			return true, nil
		}
	}
	return false, nil
}
