// Package catalog manages provider service listings and their reviews.
package catalog

import (
	"context"
	"errors"
	"strings"
	"time"

	"gig-marketplace/internal/common/auth"
	"gig-marketplace/internal/common/database"
	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/metrics"
	"gig-marketplace/internal/common/observability"
	"gig-marketplace/internal/common/retry"
	"gig-marketplace/internal/models"
	"gig-marketplace/internal/search"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultPageSize  = 20
	maxCommentLength = 2000
)

var weekdays = map[string]bool{
	"monday": true, "tuesday": true, "wednesday": true, "thursday": true,
	"friday": true, "saturday": true, "sunday": true,
}

// CreateRequest is the body of POST /services.
type CreateRequest struct {
	Title        string                      `json:"title"`
	Description  string                      `json:"description"`
	Category     string                      `json:"category"`
	Price        float64                     `json:"price"`
	Location     models.Location             `json:"location"`
	Images       []string                    `json:"images,omitempty"`
	Availability *models.ServiceAvailability `json:"availability,omitempty"`
}

// UpdateRequest is the body of PATCH /services/{id}. Nil fields are left unchanged.
type UpdateRequest struct {
	Title        *string                     `json:"title,omitempty"`
	Description  *string                     `json:"description,omitempty"`
	Category     *string                     `json:"category,omitempty"`
	Price        *float64                    `json:"price,omitempty"`
	Location     *models.Location            `json:"location,omitempty"`
	Images       *[]string                   `json:"images,omitempty"`
	Availability *models.ServiceAvailability `json:"availability,omitempty"`
}

// ReviewRequest is the body of POST /services/{id}/reviews.
type ReviewRequest struct {
	Rating  int    `json:"rating"`
	Comment string `json:"comment,omitempty"`
}

// ReviewResult is a stored review together with the service rating it produced.
type ReviewResult struct {
	Review models.Review `json:"review"`
	Rating models.Rating `json:"rating"`
}

type Service struct {
	store    Store
	searcher Searcher
	obs      *observability.Observability
	logger   logger.Logger
	retry    retry.Policy
}

// NewService wires the catalog. A nil searcher keeps keyword queries on Postgres and skips indexing.
func NewService(store Store, searcher Searcher, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		store:    store,
		searcher: searcher,
		obs:      obs,
		logger:   log.WithFields(map[string]interface{}{"component": "catalog"}),
		retry:    retry.Transient,
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
	s.obs.RecordOperation(ctx, "catalog."+op, outcome, time.Since(start))
}

func (s *Service) index(ctx context.Context, svc *models.Service) {
	if s.searcher == nil {
		return
	}
	if err := s.searcher.IndexService(ctx, svc); err != nil {
		s.logger.Warn("failed to index service", map[string]interface{}{
			"serviceId": svc.ID,
			"error":     err.Error(),
		})
	}
}

func validateAvailability(a models.ServiceAvailability) error {
	for _, day := range a.Days {
		if !weekdays[strings.ToLower(day)] {
			return apperrors.NewInvalidArgumentError("Invalid availability", "unknown day "+day)
		}
	}
	if a.StartHour < 0 || a.EndHour > 24 || a.StartHour >= a.EndHour {
		return apperrors.NewInvalidArgumentError("Invalid availability", "startHour must be before endHour within 0..24")
	}
	return nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Service, error) {
	var svc *models.Service
	err := s.transient(ctx, "get service", func(ctx context.Context) error {
		var err error
		svc, err = s.store.Get(ctx, id)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Service", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return svc, nil
}

// loadActive is load for callers other than the provider: deactivated services are hidden.
func (s *Service) loadActive(ctx context.Context, caller *auth.Identity, id string) (*models.Service, error) {
	svc, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !svc.IsActive && !auth.IsOwner(svc.ProviderID, caller) {
		return nil, apperrors.NewNotFoundError("Service", id)
	}
	return svc, nil
}

// Create lists a new service offered by caller, who must be a provider or an admin.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, req CreateRequest) (svc *models.Service, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "catalog.create")
	defer span.End()
	defer func() { s.record(ctx, "create", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to offer a service")
	}
	if err := auth.RequireRole(caller, models.RoleProvider, models.RoleAdmin); err != nil {
		return nil, err
	}
	if req.Price < 0 {
		return nil, apperrors.NewInvalidArgumentError("Invalid price", "price must not be negative")
	}
	availability := models.ServiceAvailability{Days: []string{}, StartHour: 9, EndHour: 17}
	if req.Availability != nil {
		availability = *req.Availability
		if availability.Days == nil {
			availability.Days = []string{}
		}
	}
	if err := validateAvailability(availability); err != nil {
		return nil, err
	}
	images := req.Images
	if images == nil {
		images = []string{}
	}

	svc = &models.Service{
		ID:           uuid.New().String(),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Category:     req.Category,
		Price:        req.Price,
		Location:     req.Location,
		ProviderID:   caller.UserID,
		Images:       images,
		Availability: availability,
		IsActive:     true,
	}
	err = s.transient(ctx, "create service", func(ctx context.Context) error {
		return s.store.Create(ctx, svc)
	})
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	s.logger.Info("service created", map[string]interface{}{
		"serviceId":  svc.ID,
		"providerId": caller.UserID,
	})
	s.index(ctx, svc)
	return svc, nil
}

// Get returns a service with its reviews.
func (s *Service) Get(ctx context.Context, caller *auth.Identity, id string) (*models.Service, error) {
	svc, err := s.loadActive(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	reviews, err := s.reviews(ctx, id)
	if err != nil {
		return nil, err
	}
	svc.Reviews = reviews
	return svc, nil
}

// Update edits a service. Only its provider may do so.
func (s *Service) Update(ctx context.Context, caller *auth.Identity, id string, req UpdateRequest) (svc *models.Service, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "catalog.update", attribute.String("service.id", id))
	defer span.End()
	defer func() { s.record(ctx, "update", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to edit services")
	}
	current, err := s.loadActive(ctx, caller, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsOwner(current.ProviderID, caller) {
		return nil, apperrors.NewForbiddenError("Only the provider can edit this service")
	}

	next := *current
	if req.Title != nil {
		next.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		next.Description = *req.Description
	}
	if req.Category != nil {
		next.Category = *req.Category
	}
	if req.Price != nil {
		if *req.Price < 0 {
			return nil, apperrors.NewInvalidArgumentError("Invalid price", "price must not be negative")
		}
		next.Price = *req.Price
	}
	if req.Location != nil {
		next.Location = *req.Location
	}
	if req.Images != nil {
		next.Images = *req.Images
	}
	if req.Availability != nil {
		if err := validateAvailability(*req.Availability); err != nil {
			return nil, err
		}
		next.Availability = *req.Availability
	}

	err = s.transient(ctx, "update service", func(ctx context.Context) error {
		var err error
		svc, err = s.store.Update(ctx, &next)
		return err
	})
	if errors.Is(err, ErrNotFound) {
		return nil, apperrors.NewNotFoundError("Service", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	s.index(ctx, svc)
	return svc, nil
}

// Deactivate hides a service from listings and bookings. The row is kept for existing bookings.
func (s *Service) Deactivate(ctx context.Context, caller *auth.Identity, id string) (err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "catalog.deactivate", attribute.String("service.id", id))
	defer span.End()
	defer func() { s.record(ctx, "deactivate", start, err) }()

	if caller == nil {
		return apperrors.NewUnauthenticatedError("sign in to remove services")
	}
	current, err := s.loadActive(ctx, caller, id)
	if err != nil {
		return err
	}
	if !auth.IsOwner(current.ProviderID, caller) {
		return apperrors.NewForbiddenError("Only the provider can remove this service")
	}
	if !current.IsActive {
		return nil
	}

	err = s.transient(ctx, "deactivate service", func(ctx context.Context) error {
		return s.store.Deactivate(ctx, id, caller.UserID)
	})
	if errors.Is(err, ErrNotFound) {
		return apperrors.NewNotFoundError("Service", id)
	}
	if err != nil {
		return apperrors.NewDatabaseUnavailableError(err)
	}

	current.IsActive = false
	s.index(ctx, current)
	s.logger.Info("service deactivated", map[string]interface{}{"serviceId": id})
	return nil
}

// List pages through active services matching f.
func (s *Service) List(ctx context.Context, f search.ServiceFilter) (models.Page[models.Service], error) {
	if err := f.Normalize(); err != nil {
		return models.Page[models.Service]{}, err
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.PageSize < 1 {
		f.PageSize = defaultPageSize
	}
	if f.PageSize > search.MaxPageSize {
		f.PageSize = search.MaxPageSize
	}

	if s.searcher != nil && f.Keyword != "" {
		ids, total, err := s.searcher.SearchServices(ctx, f)
		if err == nil {
			var items []models.Service
			err = s.transient(ctx, "get services", func(ctx context.Context) error {
				var err error
				items, err = s.store.GetMany(ctx, ids)
				return err
			})
			if err == nil {
				return models.NewPage(items, f.Page, f.PageSize, total), nil
			}
		}
		s.logger.Warn("search index unavailable, listing from postgres", map[string]interface{}{
			"error": err.Error(),
		})
	}

	var (
		items []models.Service
		total int
	)
	err := s.transient(ctx, "list services", func(ctx context.Context) error {
		var err error
		items, total, err = s.store.List(ctx, f)
		return err
	})
	if err != nil {
		return models.Page[models.Service]{}, apperrors.NewDatabaseUnavailableError(err)
	}
	return models.NewPage(items, f.Page, f.PageSize, total), nil
}

// AddReview records caller's rating of a service and returns the recomputed aggregate.
// Each user reviews a service at most once; providers cannot review their own services.
func (s *Service) AddReview(ctx context.Context, caller *auth.Identity, serviceID string, req ReviewRequest) (res *ReviewResult, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "catalog.add_review", attribute.String("service.id", serviceID))
	defer span.End()
	defer func() { s.record(ctx, "add_review", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to review services")
	}
	if req.Rating < 1 || req.Rating > 5 {
		return nil, apperrors.NewInvalidArgumentError("Invalid rating", "rating must be between 1 and 5")
	}
	if len(req.Comment) > maxCommentLength {
		return nil, apperrors.NewInvalidArgumentError("Invalid comment", "comment must be at most 2000 characters")
	}

	svc, err := s.loadActive(ctx, caller, serviceID)
	if err != nil {
		return nil, err
	}
	if auth.IsOwner(svc.ProviderID, caller) {
		return nil, apperrors.NewForbiddenError("You cannot review your own service")
	}

	review := models.Review{
		ID:        uuid.New().String(),
		ServiceID: serviceID,
		UserID:    caller.UserID,
		Rating:    req.Rating,
		Comment:   req.Comment,
	}
	rating, err := s.store.AddReview(ctx, &review)
	switch {
	case errors.Is(err, ErrAlreadyReviewed):
		return nil, apperrors.NewConflictError("You have already reviewed this service")
	case errors.Is(err, ErrNotFound):
		return nil, apperrors.NewNotFoundError("Service", serviceID)
	case err != nil:
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	metrics.ReviewsAdded.Inc()
	s.logger.Info("review added", map[string]interface{}{
		"serviceId": serviceID,
		"userId":    caller.UserID,
		"rating":    req.Rating,
		"average":   rating.Average,
		"count":     rating.Count,
	})

	svc.Rating = rating
	s.index(ctx, svc)
	return &ReviewResult{Review: review, Rating: rating}, nil
}

// ListReviews returns the reviews of a service, newest first.
func (s *Service) ListReviews(ctx context.Context, caller *auth.Identity, serviceID string) ([]models.Review, error) {
	if _, err := s.loadActive(ctx, caller, serviceID); err != nil {
		return nil, err
	}
	return s.reviews(ctx, serviceID)
}

func (s *Service) reviews(ctx context.Context, serviceID string) ([]models.Review, error) {
	var reviews []models.Review
	err := s.transient(ctx, "list reviews", func(ctx context.Context) error {
		var err error
		reviews, err = s.store.ListReviews(ctx, serviceID)
		return err
	})
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return reviews, nil
}
