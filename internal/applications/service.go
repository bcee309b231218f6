// Package applications implements the job-application lifecycle: submit, review, accept, withdraw.
package applications

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

// SubmitRequest is the body of POST /jobs/{id}/applications.
type SubmitRequest struct {
	CoverLetter  string              `json:"coverLetter"`
	ExpectedRate *float64            `json:"expectedRate,omitempty"`
	Availability models.Availability `json:"availability"`
	Attachments  []string            `json:"attachments,omitempty"`
}

// UpdateStatusRequest is the body of PATCH /applications/{id}.
type UpdateStatusRequest struct {
	Status models.ApplicationStatus `json:"status"`
	Notes  *string                  `json:"notes,omitempty"`
}

type Service struct {
	store     Store
	publisher notifications.Publisher
	obs       *observability.Observability
	logger    logger.Logger
	retry     retry.Policy
}

func NewService(store Store, publisher notifications.Publisher, obs *observability.Observability, log logger.Logger) *Service {
	return &Service{
		store:     store,
		publisher: publisher,
		obs:       obs,
		logger:    log.WithFields(map[string]interface{}{"component": "applications"}),
		retry:     retry.Transient,
	}
}

// transient wraps idempotent store calls. The accept path never goes through it.
func (s *Service) transient(ctx context.Context, name string, op func(ctx context.Context) error) error {
	return retry.Do(ctx, s.retry, name, s.logger, database.IsTransient, op)
}

func (s *Service) record(ctx context.Context, op string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = string(apperrors.Normalize(err).Code)
	}
	metrics.ApplicationTransitions.WithLabelValues(op, outcome).Inc()
	s.obs.RecordOperation(ctx, "applications."+op, outcome, time.Since(start))
}

func (s *Service) publish(ctx context.Context, event models.Event) {
	if s.publisher == nil {
		return
	}
	event.OccurredAt = time.Now().UTC()
	s.publisher.Publish(ctx, event)
}

func (s *Service) loadJob(ctx context.Context, jobID string) (*models.JobSummary, error) {
	var job *models.JobSummary
	err := s.transient(ctx, "get job", func(ctx context.Context) error {
		var err error
		job, err = s.store.GetJob(ctx, jobID)
		return err
	})
	if errors.Is(err, ErrJobNotFound) {
		return nil, apperrors.NewNotFoundError("Job", jobID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return job, nil
}

func (s *Service) loadApplication(ctx context.Context, id string) (*models.Application, error) {
	var app *models.Application
	err := s.transient(ctx, "get application", func(ctx context.Context) error {
		var err error
		app, err = s.store.Get(ctx, id)
		return err
	})
	if errors.Is(err, ErrApplicationNotFound) {
		return nil, apperrors.NewNotFoundError("Application", id)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return app, nil
}

// Submit creates a pending application of caller to jobID.
func (s *Service) Submit(ctx context.Context, caller *auth.Identity, jobID string, req SubmitRequest) (app *models.Application, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "applications.submit", attribute.String("job.id", jobID))
	defer span.End()
	defer func() { s.record(ctx, "submit", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to apply")
	}
	if !req.Availability.Valid() {
		return nil, apperrors.NewInvalidArgumentError("Invalid availability", string(req.Availability))
	}
	if req.ExpectedRate != nil && *req.ExpectedRate < 0 {
		return nil, apperrors.NewInvalidArgumentError("Invalid expected rate", "expectedRate must be >= 0")
	}

	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != models.JobOpen {
		return nil, apperrors.NewInvalidStateError("This job is no longer accepting applications")
	}
	if auth.IsOwner(job.PostedBy, caller) {
		return nil, apperrors.NewForbiddenError("You cannot apply to your own job")
	}

	var exists bool
	err = s.transient(ctx, "duplicate check", func(ctx context.Context) error {
		var err error
		exists, err = s.store.Exists(ctx, jobID, caller.UserID)
		return err
	})
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	if exists {
		return nil, apperrors.NewConflictError("You have already applied for this job")
	}

	attachments := req.Attachments
	if attachments == nil {
		attachments = []string{}
	}
	app = &models.Application{
		ID:           uuid.New().String(),
		JobID:        jobID,
		ApplicantID:  caller.UserID,
		CoverLetter:  req.CoverLetter,
		ExpectedRate: req.ExpectedRate,
		Availability: req.Availability,
		Attachments:  attachments,
		Status:       models.ApplicationPending,
	}

	err = s.transient(ctx, "create application", func(ctx context.Context) error {
		return s.store.Create(ctx, app)
	})
	switch {
	case errors.Is(err, ErrDuplicate):
		return nil, apperrors.NewConflictError("You have already applied for this job")
	case errors.Is(err, ErrJobNotOpen):
		return nil, apperrors.NewInvalidStateError("This job is no longer accepting applications")
	case errors.Is(err, ErrJobNotFound):
		return nil, apperrors.NewNotFoundError("Job", jobID)
	case err != nil:
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	s.logger.Info("application submitted", map[string]interface{}{
		"applicationId": app.ID,
		"jobId":         jobID,
		"applicantId":   caller.UserID,
	})

	s.publish(ctx, models.Event{
		Type:        models.EventApplicationSubmitted,
		EntityID:    app.ID,
		RecipientID: job.PostedBy,
		ActorID:     caller.UserID,
		Data:        map[string]string{"jobId": jobID, "jobTitle": job.Title},
	})
	return app, nil
}

// UpdateStatus lets the job owner move an application through the review states.
// Accepting hires the applicant and closes the job to everyone else.
func (s *Service) UpdateStatus(ctx context.Context, caller *auth.Identity, id string, req UpdateStatusRequest) (app *models.Application, err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "applications.update_status",
		attribute.String("application.id", id),
		attribute.String("application.status", string(req.Status)))
	defer span.End()
	defer func() { s.record(ctx, "update_status", start, err) }()

	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to manage applications")
	}
	if !req.Status.Valid() {
		return nil, apperrors.NewInvalidArgumentError("Invalid status", string(req.Status))
	}

	current, err := s.loadApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	job, err := s.loadJob(ctx, current.JobID)
	if err != nil {
		return nil, err
	}
	if !auth.IsOwner(job.PostedBy, caller) {
		return nil, apperrors.NewForbiddenError("Only the job owner can update applications")
	}

	if job.Status != models.JobOpen {
		if req.Status == models.ApplicationAccepted && current.Status == models.ApplicationAccepted {
			return s.reconfirm(ctx, current, req.Notes)
		}
		return nil, apperrors.NewInvalidStateError("This job is no longer open; application statuses are final")
	}

	if req.Status == models.ApplicationAccepted {
		return s.accept(ctx, caller, job, current, req.Notes)
	}

	err = s.transient(ctx, "update application", func(ctx context.Context) error {
		var err error
		app, err = s.store.UpdateStatus(ctx, id, req.Status, req.Notes)
		return err
	})
	switch {
	case errors.Is(err, ErrApplicationNotFound):
		return nil, apperrors.NewNotFoundError("Application", id)
	case errors.Is(err, ErrJobNotOpen):
		return nil, apperrors.NewInvalidStateError("This job is no longer open; application statuses are final")
	case err != nil:
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	if app.Status != current.Status {
		s.publish(ctx, models.Event{
			Type:        models.EventApplicationStatusChanged,
			EntityID:    app.ID,
			RecipientID: app.ApplicantID,
			ActorID:     caller.UserID,
			Data:        map[string]string{"jobId": job.ID, "jobTitle": job.Title, "status": string(app.Status)},
		})
	}
	return app, nil
}

func (s *Service) reconfirm(ctx context.Context, current *models.Application, notes *string) (*models.Application, error) {
	if notes == nil || *notes == current.Notes {
		return current, nil
	}
	var app *models.Application
	err := s.transient(ctx, "update notes", func(ctx context.Context) error {
		var err error
		app, err = s.store.UpdateNotes(ctx, current.ID, *notes)
		return err
	})
	if errors.Is(err, ErrApplicationNotFound) {
		return nil, apperrors.NewNotFoundError("Application", current.ID)
	}
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return app, nil
}

func (s *Service) accept(ctx context.Context, caller *auth.Identity, job *models.JobSummary, current *models.Application, notes *string) (*models.Application, error) {
	result, err := s.store.Accept(ctx, job.ID, current.ID, notes, caller.UserID)
	switch {
	case errors.Is(err, ErrRaceLost):
		metrics.AcceptRacesLost.Inc()
		s.logger.Warn("accept lost the race", map[string]interface{}{
			"applicationId": current.ID,
			"jobId":         job.ID,
		})
		return nil, apperrors.NewRaceLostError("Another applicant was accepted for this job first")
	case errors.Is(err, ErrApplicationNotFound):
		return nil, apperrors.NewNotFoundError("Application", current.ID)
	case errors.Is(err, ErrJobNotFound):
		return nil, apperrors.NewNotFoundError("Job", job.ID)
	case err != nil:
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}

	s.logger.Info("application accepted", map[string]interface{}{
		"applicationId": result.Accepted.ID,
		"jobId":         job.ID,
		"applicantId":   result.Accepted.ApplicantID,
		"rejected":      len(result.Rejected),
	})

	s.publish(ctx, models.Event{
		Type:        models.EventApplicationStatusChanged,
		EntityID:    result.Accepted.ID,
		RecipientID: result.Accepted.ApplicantID,
		ActorID:     caller.UserID,
		Data: map[string]string{
			"jobId":    job.ID,
			"jobTitle": job.Title,
			"status":   string(models.ApplicationAccepted),
		},
	})
	for _, sibling := range result.Rejected {
		s.publish(ctx, models.Event{
			Type:        models.EventApplicationRejected,
			EntityID:    sibling.ID,
			RecipientID: sibling.ApplicantID,
			ActorID:     caller.UserID,
			Data:        map[string]string{"jobId": job.ID, "jobTitle": job.Title, "notes": sibling.Notes},
		})
	}

	accepted := result.Accepted
	return &accepted, nil
}

// Withdraw deletes the caller's own application. Accepted applications stay.
func (s *Service) Withdraw(ctx context.Context, caller *auth.Identity, id string) (err error) {
	start := time.Now()
	ctx, span := s.obs.StartSpan(ctx, "applications.withdraw", attribute.String("application.id", id))
	defer span.End()
	defer func() { s.record(ctx, "withdraw", start, err) }()

	if caller == nil {
		return apperrors.NewUnauthenticatedError("sign in to withdraw")
	}

	app, err := s.loadApplication(ctx, id)
	if err != nil {
		return err
	}
	if !auth.IsOwner(app.ApplicantID, caller) {
		return apperrors.NewForbiddenError("You can only withdraw your own applications")
	}
	if app.Status == models.ApplicationAccepted {
		return apperrors.NewInvalidStateError("Accepted applications cannot be withdrawn")
	}

	err = s.transient(ctx, "delete application", func(ctx context.Context) error {
		return s.store.Delete(ctx, id)
	})
	switch {
	case errors.Is(err, ErrAccepted):
		return apperrors.NewInvalidStateError("Accepted applications cannot be withdrawn")
	case errors.Is(err, ErrApplicationNotFound):
		return apperrors.NewNotFoundError("Application", id)
	case err != nil:
		return apperrors.NewDatabaseUnavailableError(err)
	}

	s.logger.Info("application withdrawn", map[string]interface{}{
		"applicationId": id,
		"jobId":         app.JobID,
		"applicantId":   app.ApplicantID,
	})
	return nil
}

// Get returns an application to its applicant or to the owner of its job.
func (s *Service) Get(ctx context.Context, caller *auth.Identity, id string) (*models.Application, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to view applications")
	}
	app, err := s.loadApplication(ctx, id)
	if err != nil {
		return nil, err
	}
	if auth.IsOwner(app.ApplicantID, caller) {
		return app, nil
	}
	job, err := s.loadJob(ctx, app.JobID)
	if err != nil {
		return nil, err
	}
	if !auth.IsOwner(job.PostedBy, caller) {
		return nil, apperrors.NewForbiddenError("You cannot view this application")
	}
	return app, nil
}

// ListForJob returns every application of jobID, newest first, to the job owner.
func (s *Service) ListForJob(ctx context.Context, caller *auth.Identity, jobID string) ([]models.Application, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to view applications")
	}
	job, err := s.loadJob(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if !auth.IsOwner(job.PostedBy, caller) {
		return nil, apperrors.NewForbiddenError("Only the job owner can view its applications")
	}

	var apps []models.Application
	err = s.transient(ctx, "list applications for job", func(ctx context.Context) error {
		var err error
		apps, err = s.store.ListByJob(ctx, jobID)
		return err
	})
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return apps, nil
}

// ListForUser returns the caller's applications with a summary of each job, newest first.
func (s *Service) ListForUser(ctx context.Context, caller *auth.Identity) ([]models.ApplicationWithJob, error) {
	if caller == nil {
		return nil, apperrors.NewUnauthenticatedError("sign in to view your applications")
	}
	var apps []models.ApplicationWithJob
	err := s.transient(ctx, "list applications for user", func(ctx context.Context) error {
		var err error
		apps, err = s.store.ListByApplicant(ctx, caller.UserID)
		return err
	})
	if err != nil {
		return nil, apperrors.NewDatabaseUnavailableError(err)
	}
	return apps, nil
}
