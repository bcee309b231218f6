// internal/jobs/store.go
package jobs

import (
	"context"
	"errors"

	"gig-marketplace/internal/models"
	"gig-marketplace/internal/search"
)

var (
	ErrNotFound     = errors.New("job not found")
	ErrInvalidState = errors.New("job is not in the required status")
)

// Store persists jobs. Returned jobs carry their applications and applicants,
// read from the applications table in creation order.
type Store interface {
	Create(ctx context.Context, job *models.Job) error
	Get(ctx context.Context, id string) (*models.Job, error)
	// GetMany loads jobs by id, keeping the order of ids and skipping missing ones.
	GetMany(ctx context.Context, ids []string) ([]models.Job, error)
	// Update rewrites the editable fields of an open job.
	Update(ctx context.Context, job *models.Job) (*models.Job, error)
	// Cancel closes an open job and rejects its live applications in one transaction.
	Cancel(ctx context.Context, id, actorID string) (*models.Job, []models.Application, error)
	// Complete moves an in-progress job to completed.
	Complete(ctx context.Context, id, actorID string) (*models.Job, error)
	List(ctx context.Context, f search.JobFilter) ([]models.Job, int, error)
}

// Searcher is the keyword index kept alongside the store.
type Searcher interface {
	IndexJob(ctx context.Context, job *models.Job) error
	SearchJobs(ctx context.Context, f search.JobFilter) ([]string, int, error)
}
