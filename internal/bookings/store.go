// internal/bookings/store.go
package bookings

import (
	"context"
	"errors"

	"gig-marketplace/internal/models"
)

var (
	ErrNotFound           = errors.New("booking not found")
	ErrServiceNotFound    = errors.New("service not found")
	ErrServiceUnavailable = errors.New("service is not active")
	ErrInvalidState       = errors.New("booking is not in the required status")
)

// ServiceSummary is the part of a service a booking depends on.
type ServiceSummary struct {
	ID         string
	Title      string
	ProviderID string
	Price      float64
	IsActive   bool
}

// Store persists bookings.
type Store interface {
	GetService(ctx context.Context, serviceID string) (*ServiceSummary, error)
	// Create inserts b with the provider and price read from its service in the same statement.
	Create(ctx context.Context, b *models.Booking) error
	Get(ctx context.Context, id string) (*models.Booking, error)
	// Transition moves a booking to `to` if its status is one of from.
	Transition(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus, actorID string) (*models.Booking, error)
	ListByUser(ctx context.Context, userID string) ([]models.Booking, error)
	ListByProvider(ctx context.Context, providerID string) ([]models.Booking, error)
}
