// Package jobs manages job postings: create, edit, cancel, complete and listing.
package jobs

import (
	"context"
	"errors"
	"strings"
	"time"

	"gig-marketplace/internal/common/auth"
	"gig-marketplace/internal/common/database"
	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/common/observability"
	"gig-marketplace/internal/common/retry"
	"gig-marketplace/internal/models"
	"gig-marketplace/internal/notifications"
	"gig-marketplace/internal/search"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
)

const defaultPageSize = 20

// CreateRequest is the body of POST /jobs.
type CreateRequest struct {
	Title       string          `json:"title"`
	Description string          `json:"description"`
	Category    string          `json:"category"`
	Budget      models.Budget   `json:"budget"`
	Location    models.Location `json:"location"`
	Skills      []string        `json:"skills,omitempty"`
}

// UpdateRequest is the body of PATCH /jobs/{id}. Nil fields are left unchanged.
type UpdateRequest struct {
	Title       *string          `json:"title,omitempty"`
	Description *string          `json:"description,omitempty"`
	Category    *string          `json:"category,omitempty"`
	Budget      *models.Budget   `json:"budget,omitempty"`
	Location    *models.Location `json:"location,omitempty"`
	Skills      *[]string        `json:"skills,omitempty"`
}

type Service struct {
	store     Store
	searcher  Searcher
	publisher notifications.Publisher
	obs       *observability.Observability
	logger    logger.Logger
	retry     retry.Policy
}

// NewService wires the job service. A nil searcher keeps keyword queries on Postgres and skips indexing.
func NewService(store Store, searcher Searcher, publisher notifications.Publisher, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		store:     store,
		searcher:  searcher,
		publisher: publisher,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "jobs"}),
		retry:     retry.Transient,
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
	s.obs.RecordOperation(ctx, "jobs."+op, outcome, time.Since(start))
}

// index pushes job to the search backend. Failures are logged and never surface to the caller.
func (s *Service) index(ctx context.Context, job *models.Job) {
	if s.searcher == nil {
		return
	}
	if err := s.searcher.IndexJob(ctx, job); err != nil {
		s.logger.Warn("failed to index job", map[string]interface{}{
			"jobId": job.ID,
			"error": err.Error(),
		})
	}
}

func normalizeSkills(skills []string) []string {
	out := make([]string, 0, len(skills))
	seen := make(map[string]bool, len(skills))
	for _, skill := range skills {
		skill = strings.TrimSpace(skill)
		key := strings.ToLower(skill)
		if skill == "" || seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, skill)
	}
	return out
}

func validateBudget(b models.Budget) error {
	if b.Min < 0 || b.Max < 0 {
		return apperrors.NewInvalidArgumentError("Invalid budget", "budget must not be negative")
	}
	if b.Min > b.Max {
		return apperrors.NewInvalidArgumentError("Invalid budget", "budget.min must not exceed budget.max")
	}
	return nil
}

func storeError(err error, id string) error {
	switch {
	case errors.Is(err, ErrNotFound):
		return apperrors.NewNotFoundError("Job", id)
	case err != nil:
		return apperrors.NewDatabaseUnavailableError(err)
	}
	return nil
}

// Create posts a new open job owned by caller.
func (s *Service) Create(ctx context.Context, caller *auth.Identity, req CreateRequest) (job *models.Job, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "jobs.create")
	defer span.End()
	defer func() { s.record(ctx, "create", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to post a job")
	}
	if strings.TrimSpace(req.Title) == "" {
		return nil, apperrors.NewInvalidArgumentError("Invalid title", "title is required")
	}
	if err := validateBudget(req.Budget); err != nil {
		return nil, err
	}

	job = &models.Job{
		ID:           uuid.New().String(),
		Title:        strings.TrimSpace(req.Title),
		Description:  req.Description,
		Category:     req.Category,
		Budget:       req.Budget,
		Location:     req.Location,
		Skills:       normalizeSkills(req.Skills),
		PostedBy:     caller.UserID,
		Status:       models.JobOpen,
		Applications: []string{},
		Applicants:   []string{},
	}
	err = s.transient(ctx, "create job", func(ctx context.Context) error {
		return s.store.Create(ctx, job)
	})
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	s.logger.Info("job created", map[string]interface{}{
		"jobId":    job.ID,
		"postedBy": caller.UserID,
		"category": job.Category,
	})
	s.index(ctx, job)
	return job, nil
}

func (s *Service) load(ctx context.Context, id string) (*models.Job, error) {
	var job *models.Job
	err := s.transient(ctx, "get job", func(ctx context.Context) error {
		var err error
		job, err = s.store.Get(ctx, id)
		return err
	})
	if err != nil {
		return nil, storeError(err, id)
	}
	return job, nil
}

// Get returns a job with the ids of its applications and applicants.
func (s *Service) Get(ctx context.Context, id string) (*models.Job, error) {
	return s.load(ctx, id)
}

// Update edits an open job. Only its owner may do so.
func (s *Service) Update(ctx context.Context, caller *auth.Identity, id string, req UpdateRequest) (job *models.Job, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "jobs.update", attribute.String("job.id", id))
	defer span.End()
	defer func() { s.record(ctx, "update", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to edit jobs")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsOwner(current.PostedBy, caller) {
		return nil, apperrors.NewForbiddenError("Only the job owner can edit this job")
	}
	if current.Status != models.JobOpen {
		return nil, apperrors.NewInvalidStateError("Only open jobs can be edited")
	}

	next := *current
	if req.Title != nil {
		if strings.TrimSpace(*req.Title) == "" {
			return nil, apperrors.NewInvalidArgumentError("Invalid title", "title is required")
		}
		next.Title = strings.TrimSpace(*req.Title)
	}
	if req.Description != nil {
		next.Description = *req.Description
	}
	if req.Category != nil {
		next.Category = *req.Category
	}
	if req.Budget != nil {
		next.Budget = *req.Budget
	}
	if req.Location != nil {
		next.Location = *req.Location
	}
	if req.Skills != nil {
		next.Skills = normalizeSkills(*req.Skills)
	}
	if err := validateBudget(next.Budget); err != nil {
		return nil, err
	}

	err = s.transient(ctx, "update job", func(ctx context.Context) error {
		var err error
		job, err = s.store.Update(ctx, &next)
		return err
	})
	if errors.Is(err, ErrInvalidState) {
		return nil, apperrors.NewInvalidStateError("Only open jobs can be edited")
	}
	if err != nil {
		return nil, storeError(err, id)
	}

	s.index(ctx, job)
	return job, nil
}

// Cancel closes an open job and rejects every application still under review.
func (s *Service) Cancel(ctx context.Context, caller *auth.Identity, id string) (job *models.Job, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "jobs.cancel", attribute.String("job.id", id))
	defer span.End()
	defer func() { s.record(ctx, "cancel", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to cancel jobs")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsOwner(current.PostedBy, caller) {
		return nil, apperrors.NewForbiddenError("Only the job owner can cancel this job")
	}
	if current.Status != models.JobOpen {
		return nil, apperrors.NewInvalidStateError("Only open jobs can be cancelled")
	}

	job, rejected, err := s.store.Cancel(ctx, id, caller.UserID)
	if errors.Is(err, ErrInvalidState) {
		return nil, apperrors.NewInvalidStateError("Only open jobs can be cancelled")
	}
	if err != nil {
		return nil, storeError(err, id)
	}

	s.logger.Info("job cancelled", map[string]interface{}{
		"jobId":    id,
		"rejected": len(rejected),
	})

	if s.publisher != nil {
		now := time.Now().UTC()
		for _, app := range rejected {
			s.publisher.Publish(ctx, models.Event{
				Type:        models.EventApplicationRejected,
				EntityID:    app.ID,
				RecipientID: app.ApplicantID,
				ActorID:     caller.UserID,
				Data:        map[string]string{"jobId": id, "jobTitle": job.Title, "notes": app.Notes},
				OccurredAt:  now,
			})
		}
	}
	s.index(ctx, job)
	return job, nil
}

// Complete marks an in-progress job as done. The hired applicant is kept.
func (s *Service) Complete(ctx context.Context, caller *auth.Identity, id string) (job *models.Job, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "jobs.complete", attribute.String("job.id", id))
	defer span.End()
	defer func() { s.record(ctx, "complete", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to complete jobs")
	}
	current, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !auth.IsOwner(current.PostedBy, caller) {
		return nil, apperrors.NewForbiddenError("Only the job owner can complete this job")
	}

	job, err = s.store.Complete(ctx, id, caller.UserID)
	if errors.Is(err, ErrInvalidState) {
		return nil, apperrors.NewInvalidStateError("Only jobs in progress can be completed")
	}
	if err != nil {
		return nil, storeError(err, id)
	}

	s.logger.Info("job completed", map[string]interface{}{"jobId": id})
	s.index(ctx, job)
	return job, nil
}

// List pages through jobs matching f. Keyword queries use the search index when one is
// configured and fall back to Postgres when it fails.
func (s *Service) List(ctx context.Context, f search.JobFilter) (models.Page[models.Job], error) {
	if err := f.Normalize(); err != nil {
		return models.Page[models.Job]{}, err
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
		items, total, err := s.searchIndex(ctx, f)
		if err == nil {
			return models.NewPage(items, f.Page, f.PageSize, total), nil
		}
		s.logger.Warn("search index unavailable, listing from postgres", map[string]interface{}{
			"error": err.Error(),
		})
	}

	var (
		items []models.Job
		total int
	)
	err := s.transient(ctx, "list jobs", func(ctx context.Context) error {
		var err error
		items, total, err = s.store.List(ctx, f)
		return err
	})
	if err != nil {
		return models.Page[models.Job]{}, apperrors.NewDatabaseUnavailableError(err)
	}
	return models.NewPage(items, f.Page, f.PageSize, total), nil
}

func (s *Service) searchIndex(ctx context.Context, f search.JobFilter) ([]models.Job, int, error) {
	ids, total, err := s.searcher.SearchJobs(ctx, f)
	if err != nil {
		return nil, 0, err
	}
	var items []models.Job
	err = s.transient(ctx, "get jobs", func(ctx context.Context) error {
		var err error
		items, err = s.store.GetMany(ctx, ids)
		return err
	})
	if err != nil {
		return nil, 0, err
	}
	return items, total, nil
}
