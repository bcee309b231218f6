// internal/applications/repository.go
package applications

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gig-marketplace/internal/common/database"
	"gig-marketplace/internal/models"

	"github.com/lib/pq"
)

// SiblingRejectionNote is written to every application rejected by an accept.
const SiblingRejectionNote = "Another applicant was selected for this job"

const applicationColumns = `id, job_id, applicant_id, cover_letter, expected_rate, availability,
	attachments, status, notes, created_at, updated_at`

// PostgresStore is the Store backed by the applications and jobs tables.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanApplication(row rowScanner, extra ...interface{}) (*models.Application, error) {
	var (
		app          models.Application
		expectedRate sql.NullFloat64
		attachments  []string
	)
	dest := []interface{}{
		&app.ID, &app.JobID, &app.ApplicantID, &app.CoverLetter, &expectedRate, &app.Availability,
		pq.Array(&attachments), &app.Status, &app.Notes, &app.CreatedAt, &app.UpdatedAt,
	}
	if err := row.Scan(append(dest, extra...)...); err != nil {
		return nil, err
	}
	if expectedRate.Valid {
		rate := expectedRate.Float64
		app.ExpectedRate = &rate
	}
	if attachments == nil {
		attachments = []string{}
	}
	app.Attachments = attachments
	return &app, nil
}

func (s *PostgresStore) GetJob(ctx context.Context, jobID string) (*models.JobSummary, error) {
	var job models.JobSummary
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, status, budget_min, budget_max, city, state, address, posted_by
		FROM jobs WHERE id = $1`, jobID,
	).Scan(&job.ID, &job.Title, &job.Status, &job.Budget.Min, &job.Budget.Max,
		&job.Location.City, &job.Location.State, &job.Location.Address, &job.PostedBy)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrJobNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", jobID, err)
	}
	return &job, nil
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx,
		`SELECT `+applicationColumns+` FROM applications WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get application %s: %w", id, err)
	}
	return app, nil
}

func (s *PostgresStore) Exists(ctx context.Context, jobID, applicantID string) (bool, error) {
	var exists bool
	err := s.db.QueryRowContext(ctx, `
		SELECT EXISTS(
			SELECT 1 FROM applications
			WHERE job_id = $1 AND applicant_id = $2
		)`, jobID, applicantID).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("duplicate check failed: %w", err)
	}
	return exists, nil
}

// lockJobStatus reads the job status under a row lock. FOR SHARE waits while an Accept
// holds FOR UPDATE on the same job.
func lockJobStatus(ctx context.Context, tx *sql.Tx, jobID, mode string) (models.JobStatus, error) {
	var status models.JobStatus
	err := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1 `+mode, jobID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return "", ErrJobNotFound
	}
	if err != nil {
		return "", fmt.Errorf("lock job %s: %w", jobID, err)
	}
	return status, nil
}

func (s *PostgresStore) Create(ctx context.Context, app *models.Application) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		status, err := lockJobStatus(ctx, tx, app.JobID, "FOR SHARE")
		if err != nil {
			return err
		}
		if status != models.JobOpen {
			return ErrJobNotOpen
		}

		var expectedRate sql.NullFloat64
		if app.ExpectedRate != nil {
			expectedRate = sql.NullFloat64{Float64: *app.ExpectedRate, Valid: true}
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO applications (
				id, job_id, applicant_id, cover_letter, expected_rate,
				availability, attachments, status, notes
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
			RETURNING expected_rate, created_at, updated_at`,
			app.ID, app.JobID, app.ApplicantID, app.CoverLetter, expectedRate,
			app.Availability, pq.Array(app.Attachments), app.Status, app.Notes,
		).Scan(&expectedRate, &app.CreatedAt, &app.UpdatedAt)
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("insert application: %w", err)
		}
		// the column keeps two decimals; report what was stored
		if expectedRate.Valid {
			rate := expectedRate.Float64
			app.ExpectedRate = &rate
		}

		return database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "application_submitted",
			ResourceType: "application",
			ResourceID:   app.ID,
			ActorID:      app.ApplicantID,
			Details:      map[string]interface{}{"jobId": app.JobID},
		})
	})
}

func (s *PostgresStore) UpdateStatus(ctx context.Context, id string, status models.ApplicationStatus, notes *string) (*models.Application, error) {
	return database.Transact(ctx, s.db, func(tx *sql.Tx) (*models.Application, error) {
		var jobID string
		err := tx.QueryRowContext(ctx, `SELECT job_id FROM applications WHERE id = $1`, id).Scan(&jobID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get application %s: %w", id, err)
		}

		jobStatus, err := lockJobStatus(ctx, tx, jobID, "FOR SHARE")
		if err != nil {
			return nil, err
		}
		if jobStatus != models.JobOpen {
			return nil, ErrJobNotOpen
		}

		app, err := scanApplication(tx.QueryRowContext(ctx, `
			UPDATE applications
			SET status = $2, notes = COALESCE($3, notes), updated_at = now()
			WHERE id = $1
			RETURNING `+applicationColumns, id, status, notes))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("update application %s: %w", id, err)
		}
		return app, nil
	})
}

func (s *PostgresStore) UpdateNotes(ctx context.Context, id string, notes string) (*models.Application, error) {
	app, err := scanApplication(s.db.QueryRowContext(ctx, `
		UPDATE applications SET notes = $2, updated_at = now()
		WHERE id = $1
		RETURNING `+applicationColumns, id, notes))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrApplicationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update notes %s: %w", id, err)
	}
	return app, nil
}

// Accept runs the hire as one transaction: row-lock the job, compare-and-swap its status
// from open to in-progress, accept the target and reject every other live application.
func (s *PostgresStore) Accept(ctx context.Context, jobID, id string, notes *string, actorID string) (*AcceptResult, error) {
	return database.Transact(ctx, s.db, func(tx *sql.Tx) (*AcceptResult, error) {
		if _, err := lockJobStatus(ctx, tx, jobID, "FOR UPDATE"); err != nil {
			return nil, err
		}

		var applicantID string
		err := tx.QueryRowContext(ctx,
			`SELECT applicant_id FROM applications WHERE id = $1 AND job_id = $2 FOR UPDATE`, id, jobID,
		).Scan(&applicantID)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("get application %s: %w", id, err)
		}

		res, err := tx.ExecContext(ctx, `
			UPDATE jobs
			SET status = 'in-progress', hired_applicant_id = $2, updated_at = now()
			WHERE id = $1 AND status = 'open'`, jobID, applicantID)
		if err != nil {
			return nil, fmt.Errorf("claim job %s: %w", jobID, err)
		}
		n, err := res.RowsAffected()
		if err != nil {
			return nil, fmt.Errorf("claim job %s: %w", jobID, err)
		}
		if n == 0 {
			return nil, ErrRaceLost
		}

		accepted, err := scanApplication(tx.QueryRowContext(ctx, `
			UPDATE applications
			SET status = 'accepted', notes = COALESCE($2, notes), updated_at = now()
			WHERE id = $1
			RETURNING `+applicationColumns, id, notes))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrApplicationNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("accept application %s: %w", id, err)
		}

		rows, err := tx.QueryContext(ctx, `
			UPDATE applications
			SET status = 'rejected', notes = $3, updated_at = now()
			WHERE job_id = $1 AND id <> $2 AND status <> 'rejected'
			RETURNING `+applicationColumns, jobID, id, SiblingRejectionNote)
		if err != nil {
			return nil, fmt.Errorf("reject siblings of %s: %w", id, err)
		}
		defer rows.Close()

		result := &AcceptResult{Accepted: *accepted}
		for rows.Next() {
			sibling, err := scanApplication(rows)
			if err != nil {
				return nil, fmt.Errorf("scan rejected sibling: %w", err)
			}
			result.Rejected = append(result.Rejected, *sibling)
		}
		if err := rows.Err(); err != nil {
			return nil, fmt.Errorf("reject siblings of %s: %w", id, err)
		}

		err = database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "application_accepted",
			ResourceType: "job",
			ResourceID:   jobID,
			ActorID:      actorID,
			Details: map[string]interface{}{
				"applicationId": id,
				"applicantId":   applicantID,
				"rejected":      len(result.Rejected),
			},
		})
		if err != nil {
			return nil, err
		}
		return result, nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM applications WHERE id = $1 AND status <> 'accepted'`, id)
	if err != nil {
		return fmt.Errorf("delete application %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete application %s: %w", id, err)
	}
	if n > 0 {
		return nil
	}

	var exists bool
	if err := s.db.QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM applications WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("delete application %s: %w", id, err)
	}
	if exists {
		return ErrAccepted
	}
	return ErrApplicationNotFound
}

func (s *PostgresStore) ListByJob(ctx context.Context, jobID string) ([]models.Application, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+applicationColumns+`
		FROM applications WHERE job_id = $1
		ORDER BY created_at DESC, id`, jobID)
	if err != nil {
		return nil, fmt.Errorf("list applications for job %s: %w", jobID, err)
	}
	defer rows.Close()

	apps := []models.Application{}
	for rows.Next() {
		app, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		apps = append(apps, *app)
	}
	return apps, rows.Err()
}

func (s *PostgresStore) ListByApplicant(ctx context.Context, applicantID string) ([]models.ApplicationWithJob, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT a.id, a.job_id, a.applicant_id, a.cover_letter, a.expected_rate, a.availability,
			a.attachments, a.status, a.notes, a.created_at, a.updated_at,
			j.id, j.title, j.status, j.budget_min, j.budget_max, j.city, j.state, j.address, j.posted_by
		FROM applications a
		JOIN jobs j ON j.id = a.job_id
		WHERE a.applicant_id = $1
		ORDER BY a.created_at DESC, a.id`, applicantID)
	if err != nil {
		return nil, fmt.Errorf("list applications for user %s: %w", applicantID, err)
	}
	defer rows.Close()

	out := []models.ApplicationWithJob{}
	for rows.Next() {
		var job models.JobSummary
		app, err := scanApplication(rows,
			&job.ID, &job.Title, &job.Status, &job.Budget.Min, &job.Budget.Max,
			&job.Location.City, &job.Location.State, &job.Location.Address, &job.PostedBy)
		if err != nil {
			return nil, fmt.Errorf("scan application: %w", err)
		}
		out = append(out, models.ApplicationWithJob{Application: *app, Job: job})
	}
	return out, rows.Err()
}
