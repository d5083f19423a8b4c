package storage

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Memory хранилище в памяти процесса. Используется для разработки и в тестах.
type Memory struct {
	mu            sync.RWMutex
	users         map[string]User
	plans         map[string]Plan
	subscriptions map[string]Subscription

	now func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		users:         make(map[string]User),
		plans:         make(map[string]Plan),
		subscriptions: make(map[string]Subscription),
		now:           time.Now,
	}
}

func (m *Memory) Migrate(context.Context) error { return nil }

func (m *Memory) Close() error { return nil }

func (m *Memory) UpsertUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := m.now()
	for id, existing := range m.users {
		if existing.TelegramID != u.TelegramID {
			continue
		}
		existing.Username = u.Username
		existing.FirstName = u.FirstName
		existing.LastName = u.LastName
		if u.Email != "" {
			existing.Email = u.Email
		}
		existing.UpdatedAt = now
		m.users[id] = existing
		*u = existing
		return nil
	}

	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.Role == "" {
		u.Role = RoleUser
	}
	u.CreatedAt = now
	u.UpdatedAt = now
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) GetUser(_ context.Context, id string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	u, ok := m.users[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &u, nil
}

func (m *Memory) GetUserByTelegramID(_ context.Context, telegramID int64) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, u := range m.users {
		if u.TelegramID == telegramID {
			return &u, nil
		}
	}
	return nil, ErrNotFound
}

func (m *Memory) ListUsers(_ context.Context, limit, offset int) ([]User, error) {
	m.mu.RLock()
	users := make([]User, 0, len(m.users))
	for _, u := range m.users {
		users = append(users, u)
	}
	m.mu.RUnlock()

	sort.Slice(users, func(i, j int) bool { return users[i].CreatedAt.After(users[j].CreatedAt) })
	return page(users, limit, offset), nil
}

func (m *Memory) UpdateUser(_ context.Context, u *User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.users[u.ID]
	if !ok {
		return ErrNotFound
	}
	u.TelegramID = existing.TelegramID
	u.CreatedAt = existing.CreatedAt
	u.UpdatedAt = m.now()
	m.users[u.ID] = *u
	return nil
}

func (m *Memory) DeleteUser(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[id]; !ok {
		return ErrNotFound
	}
	delete(m.users, id)
	for subID, s := range m.subscriptions {
		if s.UserID == id {
			delete(m.subscriptions, subID)
		}
	}
	return nil
}

func (m *Memory) ListPlans(_ context.Context, activeOnly bool) ([]Plan, error) {
	m.mu.RLock()
	plans := make([]Plan, 0, len(m.plans))
	for _, p := range m.plans {
		if activeOnly && !p.Active {
			continue
		}
		plans = append(plans, p)
	}
	m.mu.RUnlock()

	sort.Slice(plans, func(i, j int) bool {
		if plans[i].Price != plans[j].Price {
			return plans[i].Price < plans[j].Price
		}
		return plans[i].Name < plans[j].Name
	})
	return plans, nil
}

func (m *Memory) GetPlan(_ context.Context, id string) (*Plan, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	p, ok := m.plans[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &p, nil
}

func (m *Memory) CreatePlan(_ context.Context, p *Plan) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if p.ID == "" {
		p.ID = uuid.NewString()
	}
	if _, exists := m.plans[p.ID]; exists {
		return fmt.Errorf("план %s уже существует", p.ID)
	}
	now := m.now()
	p.CreatedAt = now
	p.UpdatedAt = now
	m.plans[p.ID] = *p
	return nil
}

func (m *Memory) CreateSubscription(_ context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.users[s.UserID]; !ok {
		return fmt.Errorf("пользователь %s: %w", s.UserID, ErrNotFound)
	}
	if _, ok := m.plans[s.PlanID]; !ok {
		return fmt.Errorf("план %s: %w", s.PlanID, ErrNotFound)
	}
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	now := m.now()
	s.CreatedAt = now
	s.UpdatedAt = now
	m.subscriptions[s.ID] = *s
	return nil
}

func (m *Memory) GetSubscription(_ context.Context, id string) (*Subscription, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s, ok := m.subscriptions[id]
	if !ok {
		return nil, ErrNotFound
	}
	return &s, nil
}

func (m *Memory) ListSubscriptionsByUser(_ context.Context, userID string) ([]Subscription, error) {
	subs := m.filterSubscriptions(func(s Subscription) bool { return s.UserID == userID })
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	return subs, nil
}

func (m *Memory) ListSubscriptions(_ context.Context, status SubscriptionStatus, limit, offset int) ([]Subscription, error) {
	subs := m.filterSubscriptions(func(s Subscription) bool { return status == "" || s.Status == status })
	sort.Slice(subs, func(i, j int) bool { return subs[i].CreatedAt.After(subs[j].CreatedAt) })
	return page(subs, limit, offset), nil
}

func (m *Memory) ActiveSubscription(_ context.Context, userID string, now time.Time) (*Subscription, error) {
	subs := m.filterSubscriptions(func(s Subscription) bool { return s.UserID == userID && s.IsActiveAt(now) })
	if len(subs) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(subs, func(i, j int) bool { return subs[i].EndDate.After(*subs[j].EndDate) })
	return &subs[0], nil
}

func (m *Memory) UpdateSubscription(_ context.Context, s *Subscription) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	existing, ok := m.subscriptions[s.ID]
	if !ok {
		return ErrNotFound
	}
	s.CreatedAt = existing.CreatedAt
	s.UpdatedAt = m.now()
	m.subscriptions[s.ID] = *s
	return nil
}

func (m *Memory) ListExpired(_ context.Context, now time.Time) ([]Subscription, error) {
	subs := m.filterSubscriptions(func(s Subscription) bool {
		return s.Status == StatusActive && s.EndDate != nil && !s.EndDate.After(now)
	})
	sort.Slice(subs, func(i, j int) bool { return subs[i].EndDate.Before(*subs[j].EndDate) })
	return subs, nil
}

func (m *Memory) filterSubscriptions(keep func(Subscription) bool) []Subscription {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := []Subscription{}
	for _, s := range m.subscriptions {
		if keep(s) {
			out = append(out, s)
		}
	}
	return out
}

func page[T any](items []T, limit, offset int) []T {
	if offset >= len(items) {
		return []T{}
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
