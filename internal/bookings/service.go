// Package bookings lets customers book provider services and moves bookings through
// pending, confirmed, completed and cancelled.
package bookings

import (
	"context"
	"errors"
	"time"

	"gig-marketplace/internal/common/auth"
	"gig-marketplace/internal/common/database"
	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/metrics"
	"gig-marketplace/internal/common/observability"
	"gig-marketplace/internal/common/retry"
	"gig-marketplace/internal/models"
	"gig-marketplace/internal/notifications"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const timeLayout = "15:04"

// CreateRequest is the body of POST /bookings.
type CreateRequest struct {
	ServiceID string         `json:"serviceId"`
	Date      string         `json:"date"`
	Time      string         `json:"time"`
	Address   models.Address `json:"address"`
	Notes     string         `json:"notes,omitempty"`
}

// transition describes who may move a booking where.
type transition struct {
	name     string
	from     []models.BookingStatus
	to       models.BookingStatus
	provider bool
}

var (
	cancelTransition = transition{
		name: "cancel",
		from: []models.BookingStatus{models.BookingPending, models.BookingConfirmed},
		to:   models.BookingCancelled,
	}
	confirmTransition = transition{
		name:     "confirm",
		from:     []models.BookingStatus{models.BookingPending},
		to:       models.BookingConfirmed,
		provider: true,
	}
	completeTransition = transition{
		name:     "complete",
		from:     []models.BookingStatus{models.BookingConfirmed},
		to:       models.BookingCompleted,
		provider: true,
	}
)

type Service struct {
	store     Store
	publisher notifications.Publisher
	obs       *observability.Observability
	logger    logger.Logger
	retry     retry.Policy
	now       func() time.Time
}

func NewService(store Store, publisher notifications.Publisher, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "bookings"}),
		retry:     retry.Transient,
		now:       time.Now,
	}
}

func (s *Service) transient(ctx context.Context, name string, op func(ctx context.Context) error) error {
	return retry.Do(ctx, s.retry, name, s.logger, database.IsTransient, op)
}

func (s *Service) record(ctx context.Context, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.Normalize(err).Code)
	}
	s.obs.RecordOperation(ctx, "bookings."+op, outcome, time.Since(start))
}

func (s *Service) publish(ctx context.Context, event models.Event) {
	if s.publisher == nil {
		return
	}
	event.OccurredAt = s.now().UTC()
	s.publisher.Publish(ctx, event)
}

func (s *Service) validateSlot(date, at string) error {
	day, err := time.Parse(dateLayout, date)
	if err != nil {
		return apperrors.NewInvalidArgumentError("Invalid date", "date must be YYYY-MM-DD")
	}
	if _, err := time.Parse(timeLayout, at); err != nil {
		return apperrors.NewInvalidArgumentError("Invalid time", "time must be HH:MM")
	}
	today := s.now().UTC().Truncate(24 * time.Hour)
	if day.Before(today) {
		return apperrors.NewInvalidArgumentError("Invalid date", "date must not be in the past")
	}
	return nil
}

// Create books a service for caller. The provider and price are copied from the service.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, req CreateRequest) (b *models.Booking, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "bookings.create", attribute.String("service.id", req.ServiceID))
	defer span.End()
	defer func() { s.record(ctx, "create", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to book a service")
	}
	if err := s.validateSlot(req.Date, req.Time); err != nil {
		return nil, err
	}

	var svc *ServiceSummary
	err = s.transient(ctx, "get service", func(ctx context.Context) error {
		var err error
		svc, err = s.store.GetService(ctx, req.ServiceID)
		return err
	})
	if errors.Is(err, ErrServiceNotFound) {
		return nil, apperrors.NewNotFoundError("Service", req.ServiceID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	if !svc.IsActive {
		return nil, apperrors.NewInvalidStateError("This service is not accepting bookings")
	}
	if auth.IsOwner(svc.ProviderID, caller) {
		return nil, apperrors.NewForbiddenError("You cannot book your own service")
	}

	b = &models.Booking{
		ID:        uuid.New().String(),
		ServiceID: svc.ID,
		UserID:    caller.UserID,
		Date:      req.Date,
		Time:      req.Time,
		Address:   req.Address,
		Notes:     req.Notes,
	}
	err = s.transient(ctx, "create booking", func(ctx context.Context) error {
		return s.store.Create(ctx, b)
	})
	if errors.Is(err, ErrServiceUnavailable) {
		return nil, apperrors.NewInvalidStateError("This service is not accepting bookings")
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	metrics.BookingTransitions.WithLabelValues(string(models.BookingPending)).Inc()
	s.logger.Info("booking created", map[string]interface{}{
		"bookingId":  b.ID,
		"serviceId":  b.ServiceID,
		"userId":     b.UserID,
		"providerId": b.ProviderID,
	})
	s.publish(ctx, models.Event{
		Type:        models.EventBookingCreated,
		EntityID:    b.ID,
		RecipientID: b.ProviderID,
		ActorID:     caller.UserID,
		Data: map[string]string{
			"serviceId":    svc.ID,
			"serviceTitle": svc.Title,
			"date":         b.Date,
			"time":         b.Time,
		},
	})
	return b, nil
}

// Get returns a booking to its customer or its provider.
func (s *Service) Get(ctx context.Context, caller *auth.Identity, id string) (*models.Booking, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to view bookings")
	}
	b, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsOwner(b.UserID, caller) && !auth.IsOwner(b.ProviderID, caller) {
		return nil, apperrors.NewForbiddenError("You cannot view this booking")
	}
	return b, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Booking, error) {
	var b *models.Booking
	err := s.transient(ctx, "get booking", func(ctx context.Context) error {
		var err error
		b, err = s.store.Get(ctx, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Booking", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return b, nil
}

// Cancel lets the customer call off a pending or confirmed booking.
func (s *Service) Cancel(ctx context.Context, caller *auth.Identity, id string) (*models.Booking, error) {
	return s.apply(ctx, caller, id, cancelTransition)
}

// Confirm lets the provider accept a pending booking.
func (s *Service) Confirm(ctx context.Context, caller *auth.Identity, id string) (*models.Booking, error) {
	return s.apply(ctx, caller, id, confirmTransition)
}

// Complete lets the provider close a confirmed booking.
func (s *Service) Complete(ctx context.Context, caller *auth.Identity, id string) (*models.Booking, error) {
	return s.apply(ctx, caller, id, completeTransition)
}

func (s *Service) apply(ctx context.Context, caller *auth.Identity, id string, t transition) (b *models.Booking, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "bookings."+t.name, attribute.String("booking.id", id))
	defer span.End()
	defer func() { s.record(ctx, t.name, start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to manage bookings")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	owner, recipient := current.UserID, current.ProviderID
	if t.provider {
		owner, recipient = current.ProviderID, current.UserID
	}
	if !auth.IsOwner(owner, caller) {
		if t.provider {
			return nil, apperrors.NewForbiddenError("Only the provider can " + t.name + " this booking")
		}
		return nil, apperrors.NewForbiddenError("Only the customer can " + t.name + " this booking")
	}

	b, err = s.store.Transition(ctx, id, t.from, t.to, caller.UserID)
	switch {
	case errors.Is(err, ErrInvalidState):
		return nil, apperrors.NewInvalidStateError("A " + string(current.Status) + " booking cannot be moved to " + string(t.to))
	case errors.Is(err, ErrNotFound):
		return nil, apperrors.NewNotFoundError("Booking", id)
	case err != nil:
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	metrics.BookingTransitions.WithLabelValues(string(t.to)).Inc()
	s.logger.Info("booking status changed", map[string]interface{}{
		"bookingId": id,
		"from":      current.Status,
		"to":        t.to,
		"actorId":   caller.UserID,
	})
	s.publish(ctx, models.Event{
		Type:        models.EventBookingStatusChanged,
		EntityID:    id,
		RecipientID: recipient,
		ActorID:     caller.UserID,
		Data: map[string]string{
			"serviceId": b.ServiceID,
			"status":    string(b.Status),
			"date":      b.Date,
			"time":      b.Time,
		},
	})
	return b, nil
}

// ListForUser returns the bookings caller made, newest first.
func (s *Service) ListForUser(ctx context.Context, caller *auth.Identity) ([]models.Booking, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to view your bookings")
	}
	return s.list(ctx, "list user bookings", func(ctx context.Context) ([]models.Booking, error) {
		return s.store.ListByUser(ctx, caller.UserID)
	})
}

// ListForProvider returns bookings of caller's services, newest first.
func (s *Service) ListForProvider(ctx context.Context, caller *auth.Identity) ([]models.Booking, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to view your bookings")
	}
	if err := auth.RequireRole(caller, models.RoleProvider, models.RoleAdmin); err != nil {
		return nil, err
	}
	return s.list(ctx, "list provider bookings", func(ctx context.Context) ([]models.Booking, error) {
		return s.store.ListByProvider(ctx, caller.UserID)
	})
}

func (s *Service) list(ctx context.Context, name string, fetch func(ctx context.Context) ([]models.Booking, error)) ([]models.Booking, error) {
	var out []models.Booking
	err := s.transient(ctx, name, func(ctx context.Context) error {
		var err error
		out, err = fetch(ctx)
		return err
	})
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return out, nil
}
