// internal/applications/store.go
package applications

import (
	"context"
	"errors"

	"gig-marketplace/internal/models"
)

var (
	ErrJobNotFound         = errors.New("job not found")
	ErrJobNotOpen          = errors.New("job is not open")
	ErrApplicationNotFound = errors.New("application not found")
	ErrDuplicate           = errors.New("application already exists for job and applicant")
	ErrAccepted            = errors.New("application is accepted")
	ErrRaceLost            = errors.New("job status changed before the accept committed")
)

// AcceptResult is what one committed accept transaction changed.
type AcceptResult struct {
	Accepted models.Application
	// Rejected lists the sibling applications moved to rejected by the accept.
	Rejected []models.Application
}

// Store persists applications. Implementations must make Accept atomic: the job
// compare-and-swap, the target update and the sibling rejections commit together or not at all.
type Store interface {
	GetJob(ctx context.Context, jobID string) (*models.JobSummary, error)
	Get(ctx context.Context, id string) (*models.Application, error)
	Exists(ctx context.Context, jobID, applicantID string) (bool, error)

	// Create inserts app while the job is open. ErrJobNotFound, ErrJobNotOpen, ErrDuplicate.
	Create(ctx context.Context, app *models.Application) error
	// UpdateStatus sets status and, when notes is non-nil, notes, while the job is open.
	UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes *string) (*models.Application, error)
	// UpdateNotes changes only the notes of an application.
	UpdateNotes(ctx context.Context, id string, notes string) (*models.Application, error)
	// Accept hires the applicant of id on jobID. ErrRaceLost when the job is no longer open.
	Accept(ctx context.Context, jobID, id string, notes *string, actorID string) (*AcceptResult, error)
	// Delete removes a non-accepted application. ErrApplicationNotFound, ErrAccepted.
	Delete(ctx context.Context, id string) error

	ListByJob(ctx context.Context, jobID string) ([]models.Application, error)
	ListByApplicant(ctx context.Context, applicantID string) ([]models.ApplicationWithJob, error)
}
