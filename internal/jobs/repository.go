// internal/jobs/repository.go
package jobs

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"gig-marketplace/internal/common/database"
	"gig-marketplace/internal/models"
	"gig-marketplace/internal/search"

	"github.com/lib/pq"
)

// ClosedJobNote is written to the applications rejected when a job is cancelled.
const ClosedJobNote = "This job has been closed"

const jobColumns = `id, title, description, category, budget_min, budget_max, city, state, address,
	skills, posted_by, status, hired_applicant_id, created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanJob(row rowScanner) (*models.Job, error) {
	var (
		job    models.Job
		skills []string
		hired  sql.NullString
	)
	err := row.Scan(
		&job.ID, &job.Title, &job.Description, &job.Category, &job.Budget.Min, &job.Budget.Max,
		&job.Location.City, &job.Location.State, &job.Location.Address, pq.Array(&skills),
		&job.PostedBy, &job.Status, &hired, &job.CreatedAt, &job.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if skills == nil {
		skills = []string{}
	}
	job.Skills = skills
	if hired.Valid {
		job.HiredApplicant = &hired.String
	}
	job.Applications = []string{}
	job.Applicants = []string{}
	return &job, nil
}

// materialize fills Applications and Applicants for every job in jobs.
func materialize(ctx context.Context, q database.Querier, jobs []*models.Job) error {
	if len(jobs) == 0 {
		return nil
	}
	byID := make(map[string]*models.Job, len(jobs))
	ids := make([]string, 0, len(jobs))
	for _, j := range jobs {
		byID[j.ID] = j
		ids = append(ids, j.ID)
	}

	rows, err := q.QueryContext(ctx, `
		SELECT job_id, id, applicant_id FROM applications
		WHERE job_id = ANY($1)
		ORDER BY created_at, id`, pq.Array(ids))
	if err != nil {
		return fmt.Errorf("load applications: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var jobID, appID, applicantID string
		if err := rows.Scan(&jobID, &appID, &applicantID); err != nil {
			return fmt.Errorf("scan application ref: %w", err)
		}
		if j, ok := byID[jobID]; ok {
			j.Applications = append(j.Applications, appID)
			j.Applicants = append(j.Applicants, applicantID)
		}
	}
	return rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, job *models.Job) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO jobs (
				id, title, description, category, budget_min, budget_max,
				city, state, address, skills, posted_by, status
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
			RETURNING created_at, updated_at`,
			job.ID, job.Title, job.Description, job.Category, job.Budget.Min, job.Budget.Max,
			job.Location.City, job.Location.State, job.Location.Address, pq.Array(job.Skills),
			job.PostedBy, job.Status,
		).Scan(&job.CreatedAt, &job.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert job: %w", err)
		}

		return database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "job_created",
			ResourceType: "job",
			ResourceID:   job.ID,
			ActorID:      job.PostedBy,
			Details:      map[string]interface{}{"category": job.Category},
		})
	})
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Job, error) {
	job, err := scanJob(s.db.QueryRowContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	if err := materialize(ctx, s.db, []*models.Job{job}); err != nil {
		return nil, err
	}
	return job, nil
}

func (s *PostgresStore) GetMany(ctx context.Context, ids []string) ([]models.Job, error) {
	if len(ids) == 0 {
		return []models.Job{}, nil
	}
	rows, err := s.db.QueryContext(ctx, `SELECT `+jobColumns+` FROM jobs WHERE id = ANY($1)`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get jobs: %w", err)
	}
	defer rows.Close()

	found := map[string]*models.Job{}
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, fmt.Errorf("scan job: %w", err)
		}
		found[job.ID] = job
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	ordered := make([]*models.Job, 0, len(found))
	for _, id := range ids {
		if j, ok := found[id]; ok {
			ordered = append(ordered, j)
		}
	}
	if err := materialize(ctx, s.db, ordered); err != nil {
		return nil, err
	}

	out := make([]models.Job, len(ordered))
	for i, j := range ordered {
		out[i] = *j
	}
	return out, nil
}

// notUpdated tells a missing job apart from one in the wrong status after a guarded write hit no rows.
func notUpdated(ctx context.Context, q database.Querier, id string) error {
	var exists bool
	if err := q.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM jobs WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("check job %s: %w", id, err)
	}
	if exists {
		return ErrInvalidState
	}
	return ErrNotFound
}

func (s *PostgresStore) Update(ctx context.Context, job *models.Job) (*models.Job, error) {
	updated, err := scanJob(s.db.QueryRowContext(ctx, `
		UPDATE jobs SET
			title = $2, description = $3, category = $4, budget_min = $5, budget_max = $6,
			city = $7, state = $8, address = $9, skills = $10, updated_at = now()
		WHERE id = $1 AND status = 'open'
		RETURNING `+jobColumns,
		job.ID, job.Title, job.Description, job.Category, job.Budget.Min, job.Budget.Max,
		job.Location.City, job.Location.State, job.Location.Address, pq.Array(job.Skills),
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, notUpdated(ctx, s.db, job.ID)
	}
	if err != nil {
		return nil, fmt.Errorf("update job %s: %w", job.ID, err)
	}
	if err := materialize(ctx, s.db, []*models.Job{updated}); err != nil {
		return nil, err
	}
	return updated, nil
}

type cancelResult struct {
	job      *models.Job
	rejected []models.Application
}

func (s *PostgresStore) Cancel(ctx context.Context, id, actorID string) (*models.Job, []models.Application, error) {
	res, err := database.Transact(ctx, s.db, func(tx *sql.Tx) (*cancelResult, error) {
		var status models.JobStatus
		err := tx.QueryRowContext(ctx, `SELECT status FROM jobs WHERE id = $1 FOR UPDATE`, id).Scan(&status)
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("lock job %s: %w", id, err)
		}
		if status != models.JobOpen {
			return nil, ErrInvalidState
		}

		job, err := scanJob(tx.QueryRowContext(ctx, `
			UPDATE jobs SET status = 'cancelled', updated_at = now()
			WHERE id = $1
			RETURNING `+jobColumns, id))
		if err != nil {
			return nil, fmt.Errorf("cancel job %s: %w", id, err)
		}

		rows, err := tx.QueryContext(ctx, `
			UPDATE applications SET status = 'rejected', notes = $2, updated_at = now()
			WHERE job_id = $1 AND status IN ('pending', 'shortlisted')
			RETURNING id, applicant_id`, id, ClosedJobNote)
		if err != nil {
			return nil, fmt.Errorf("reject applications of %s: %w", id, err)
		}
		var rejected []models.Application
		for rows.Next() {
			app := models.Application{JobID: id, Status: models.ApplicationRejected, Notes: ClosedJobNote}
			if err := rows.Scan(&app.ID, &app.ApplicantID); err != nil {
				rows.Close()
				return nil, fmt.Errorf("scan rejected application: %w", err)
			}
			rejected = append(rejected, app)
		}
		rows.Close()
		if err := rows.Err(); err != nil {
			return nil, err
		}

		if err := materialize(ctx, tx, []*models.Job{job}); err != nil {
			return nil, err
		}

		err = database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "job_cancelled",
			ResourceType: "job",
			ResourceID:   id,
			ActorID:      actorID,
			Details:      map[string]interface{}{"rejected": len(rejected)},
		})
		if err != nil {
			return nil, err
		}
		return &cancelResult{job: job, rejected: rejected}, nil
	})
	if err != nil {
		return nil, nil, err
	}
	return res.job, res.rejected, nil
}

func (s *PostgresStore) Complete(ctx context.Context, id, actorID string) (*models.Job, error) {
	return database.Transact(ctx, s.db, func(tx *sql.Tx) (*models.Job, error) {
		job, err := scanJob(tx.QueryRowContext(ctx, `
			UPDATE jobs SET status = 'completed', updated_at = now()
			WHERE id = $1 AND status = 'in-progress'
			RETURNING `+jobColumns, id))
		if errors.Is(err, sql.ErrNoRows) {
			return nil, notUpdated(ctx, tx, id)
		}
		if err != nil {
			return nil, fmt.Errorf("complete job %s: %w", id, err)
		}
		if err := materialize(ctx, tx, []*models.Job{job}); err != nil {
			return nil, err
		}

		err = database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "job_completed",
			ResourceType: "job",
			ResourceID:   id,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, err
		}
		return job, nil
	})
}

var jobOrder = map[string]string{
	search.SortNewest:     "created_at DESC, id",
	search.SortOldest:     "created_at ASC, id",
	search.SortBudgetAsc:  "budget_min ASC, created_at DESC, id",
	search.SortBudgetDesc: "budget_max DESC, created_at DESC, id",
}

func escapeLike(s string) string {
	return strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(s)
}

// List applies f with SQL filters; keyword search is a case-insensitive substring match.
func (s *PostgresStore) List(ctx context.Context, f search.JobFilter) ([]models.Job, int, error) {
	var c database.Conditions
	c.Add("status = ?", f.Status)
	if f.Keyword != "" {
		pattern := "%" + escapeLike(f.Keyword) + "%"
		c.Add("(title ILIKE ? OR description ILIKE ?)", pattern, pattern)
	}
	if f.Category != "" {
		c.Add("category = ?", f.Category)
	}
	if f.City != "" {
		c.Add("lower(city) = lower(?)", f.City)
	}
	if f.State != "" {
		c.Add("lower(state) = lower(?)", f.State)
	}
	if f.PostedBy != "" {
		c.Add("posted_by = ?", f.PostedBy)
	}
	if len(f.Skills) > 0 {
		c.Add("skills && ?", pq.Array(f.Skills))
	}
	if f.MinBudget != nil {
		c.Add("budget_max >= ?", *f.MinBudget)
	}
	if f.MaxBudget != nil {
		c.Add("budget_min <= ?", *f.MaxBudget)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM jobs `+c.Where(), c.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count jobs: %w", err)
	}

	order, ok := jobOrder[f.Sort]
	if !ok {
		order = jobOrder[search.SortNewest]
	}
	suffix, args := c.Page(f.PageSize, f.Offset())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+jobColumns+` FROM jobs `+c.Where()+` ORDER BY `+order+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list jobs: %w", err)
	}
	defer rows.Close()

	var page []*models.Job
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan job: %w", err)
		}
		page = append(page, job)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	rows.Close()

	if err := materialize(ctx, s.db, page); err != nil {
		return nil, 0, err
	}

	out := make([]models.Job, len(page))
	for i, j := range page {
		out[i] = *j
	}
	return out, total, nil
}
