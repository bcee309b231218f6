// internal/catalog/store.go
package catalog

import (
	"context"
	"errors"

	"gig-marketplace/internal/models"
	"gig-marketplace/internal/search"
)

var (
	ErrNotFound        = errors.New("service not found")
	ErrAlreadyReviewed = errors.New("service already reviewed by user")
)

// Store persists services and their reviews.
type Store interface {
	Create(ctx context.Context, svc *models.Service) error
	Get(ctx context.Context, id string) (*models.Service, error)
	GetMany(ctx context.Context, ids []string) ([]models.Service, error)
	Update(ctx context.Context, svc *models.Service) (*models.Service, error)
	Deactivate(ctx context.Context, id, actorID string) error
	List(ctx context.Context, f search.ServiceFilter) ([]models.Service, int, error)

	// AddReview inserts review and recomputes the service rating from all of its reviews
	// in one transaction.
	AddReview(ctx context.Context, review *models.Review) (models.Rating, error)
	ListReviews(ctx context.Context, serviceID string) ([]models.Review, error)
}

type Searcher interface {
	IndexService(ctx context.Context, svc *models.Service) error
	SearchServices(ctx context.Context, f search.ServiceFilter) ([]string, int, error)
}
