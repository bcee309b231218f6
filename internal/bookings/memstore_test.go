package bookings

import (
	"context"
	"sort"
	"sync"
	"time"

	"gig-marketplace/internal/models"
)

type memStore struct {
	mu       sync.Mutex
	services map[string]*ServiceSummary
	bookings map[string]*models.Booking
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		services: map[string]*ServiceSummary{},
		bookings: map[string]*models.Booking{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) addService(id, provider string, price float64, active bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.services[id] = &ServiceSummary{ID: id, Title: "Service " + id, ProviderID: provider, Price: price, IsActive: active}
}

func (m *memStore) GetService(_ context.Context, id string) (*ServiceSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[id]
	if !ok {
		return nil, ErrServiceNotFound
	}
	cp := *svc
	return &cp, nil
}

func (m *memStore) Create(_ context.Context, b *models.Booking) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[b.ServiceID]
	if !ok || !svc.IsActive {
		return ErrServiceUnavailable
	}
	m.clock = m.clock.Add(time.Second)
	b.ProviderID, b.Price, b.Status = svc.ProviderID, svc.Price, models.BookingPending
	b.CreatedAt, b.UpdatedAt = m.clock, m.clock
	cp := *b
	m.bookings[b.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *b
	return &cp, nil
}

func (m *memStore) Transition(_ context.Context, id string, from []models.BookingStatus, to models.BookingStatus, _ string) (*models.Booking, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	b, ok := m.bookings[id]
	if !ok {
		return nil, ErrNotFound
	}
	for _, st := range from {
		if b.Status == st {
			b.Status = to
			cp := *b
			return &cp, nil
		}
	}
	return nil, ErrInvalidState
}

func (m *memStore) filter(keep func(*models.Booking) bool) []models.Booking {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Booking{}
	for _, b := range m.bookings {
		if keep(b) {
			out = append(out, *b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out
}

func (m *memStore) ListByUser(_ context.Context, userID string) ([]models.Booking, error) {
	return m.filter(func(b *models.Booking) bool { return b.UserID == userID }), nil
}

func (m *memStore) ListByProvider(_ context.Context, providerID string) ([]models.Booking, error) {
	return m.filter(func(b *models.Booking) bool { return b.ProviderID == providerID }), nil
}
