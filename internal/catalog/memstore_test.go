package catalog

import (
	"context"
	"sort"
	"sync"
	"time"

	"gig-marketplace/internal/models"
	"gig-marketplace/internal/search"
)

type memStore struct {
	mu       sync.Mutex
	services map[string]*models.Service
	reviews  map[string][]models.Review
	clock    time.Time
}

func newMemStore() *memStore {
	return &memStore{
		services: map[string]*models.Service{},
		reviews:  map[string][]models.Review{},
		clock:    time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC),
	}
}

func (m *memStore) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memStore) Create(_ context.Context, svc *models.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := m.tick()
	svc.CreatedAt, svc.UpdatedAt = now, now
	cp := *svc
	m.services[svc.ID] = &cp
	return nil
}

func (m *memStore) Get(_ context.Context, id string) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[id]
	if !ok {
		return nil, ErrNotFound
	}
	cp := *svc
	return &cp, nil
}

func (m *memStore) GetMany(_ context.Context, ids []string) ([]models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Service{}
	for _, id := range ids {
		if svc, ok := m.services[id]; ok && svc.IsActive {
			out = append(out, *svc)
		}
	}
	return out, nil
}

func (m *memStore) Update(_ context.Context, svc *models.Service) (*models.Service, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.services[svc.ID]; !ok {
		return nil, ErrNotFound
	}
	cp := *svc
	cp.UpdatedAt = m.tick()
	m.services[svc.ID] = &cp
	out := cp
	return &out, nil
}

func (m *memStore) Deactivate(_ context.Context, id, _ string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[id]
	if !ok {
		return ErrNotFound
	}
	svc.IsActive = false
	return nil
}

func (m *memStore) List(_ context.Context, f search.ServiceFilter) ([]models.Service, int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := []models.Service{}
	for _, svc := range m.services {
		if !svc.IsActive {
			continue
		}
		if f.Provider != "" && svc.ProviderID != f.Provider {
			continue
		}
		if f.MinRating != nil && svc.Rating.Average < *f.MinRating {
			continue
		}
		out = append(out, *svc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, len(out), nil
}

func (m *memStore) AddReview(_ context.Context, review *models.Review) (models.Rating, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	svc, ok := m.services[review.ServiceID]
	if !ok {
		return models.Rating{}, ErrNotFound
	}
	for _, r := range m.reviews[review.ServiceID] {
		if r.UserID == review.UserID {
			return models.Rating{}, ErrAlreadyReviewed
		}
	}
	review.CreatedAt = m.tick()
	m.reviews[review.ServiceID] = append(m.reviews[review.ServiceID], *review)

	sum := 0
	for _, r := range m.reviews[review.ServiceID] {
		sum += r.Rating
	}
	n := len(m.reviews[review.ServiceID])
	svc.Rating = models.Rating{Average: float64(sum) / float64(n), Count: n}
	return svc.Rating, nil
}

func (m *memStore) ListReviews(_ context.Context, serviceID string) ([]models.Review, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := append([]models.Review{}, m.reviews[serviceID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}
