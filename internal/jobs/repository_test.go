package jobs

import (
	"context"
	"testing"
	"time"

	"gig-marketplace/internal/models"
	"gig-marketplace/internal/search"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var columns = []string{
	"id", "title", "description", "category", "budget_min", "budget_max", "city", "state", "address",
	"skills", "posted_by", "status", "hired_applicant_id", "created_at", "updated_at",
}

func jobRow(rows *sqlmock.Rows, id string, status models.JobStatus, hired interface{}) *sqlmock.Rows {
	now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	return rows.AddRow(id, "Fix sink", "drips", "plumbing", 50.0, 120.0, "Austin", "TX", "",
		"{plumbing,pipes}", "owner-1", string(status), hired, now, now)
}

func newMockStore(t *testing.T) (*PostgresStore, sqlmock.Sqlmock) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return NewPostgresStore(db), mock
}

func TestPostgresStore_Get(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectQuery(`FROM jobs WHERE id = \$1`).
		WithArgs("job-1").
		WillReturnRows(jobRow(sqlmock.NewRows(columns), "job-1", models.JobInProgress, "worker-2"))
	mock.ExpectQuery(`SELECT job_id, id, applicant_id FROM applications`).
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "id", "applicant_id"}).
			AddRow("job-1", "app-1", "worker-1").
			AddRow("job-1", "app-2", "worker-2"))

	job, err := store.Get(context.Background(), "job-1")

	require.NoError(t, err)
	assert.Equal(t, []string{"plumbing", "pipes"}, job.Skills)
	assert.Equal(t, []string{"app-1", "app-2"}, job.Applications)
	assert.Equal(t, []string{"worker-1", "worker-2"}, job.Applicants)
	require.NotNil(t, job.HiredApplicant)
	assert.Equal(t, "worker-2", *job.HiredApplicant)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Get_NotFound(t *testing.T) {
	store, mock := newMockStore(t)
	mock.ExpectQuery(`FROM jobs WHERE id = \$1`).WillReturnRows(sqlmock.NewRows(columns))

	_, err := store.Get(context.Background(), "job-1")

	assert.ErrorIs(t, err, ErrNotFound)
}

func TestPostgresStore_Cancel(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`SELECT status FROM jobs WHERE id = \$1 FOR UPDATE`).
		WithArgs("job-1").
		WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("open"))
	mock.ExpectQuery(`UPDATE jobs SET status = 'cancelled'`).
		WithArgs("job-1").
		WillReturnRows(jobRow(sqlmock.NewRows(columns), "job-1", models.JobCancelled, nil))
	mock.ExpectQuery(`UPDATE applications SET status = 'rejected'`).
		WithArgs("job-1", ClosedJobNote).
		WillReturnRows(sqlmock.NewRows([]string{"id", "applicant_id"}).AddRow("app-1", "worker-1"))
	mock.ExpectQuery(`SELECT job_id, id, applicant_id FROM applications`).
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "id", "applicant_id"}).AddRow("job-1", "app-1", "worker-1"))
	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("job_cancelled", "job", "job-1", "owner-1", sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(1, 1))
	mock.ExpectCommit()

	job, rejected, err := store.Cancel(context.Background(), "job-1", "owner-1")

	require.NoError(t, err)
	assert.Equal(t, models.JobCancelled, job.Status)
	require.Len(t, rejected, 1)
	assert.Equal(t, ClosedJobNote, rejected[0].Notes)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Cancel_NotOpenRollsBack(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`FOR UPDATE`).WillReturnRows(sqlmock.NewRows([]string{"status"}).AddRow("in-progress"))
	mock.ExpectRollback()

	_, _, err := store.Cancel(context.Background(), "job-1", "owner-1")

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_Complete_WrongStatus(t *testing.T) {
	store, mock := newMockStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(`UPDATE jobs SET status = 'completed'`).WillReturnRows(sqlmock.NewRows(columns))
	mock.ExpectQuery(`SELECT EXISTS`).WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectRollback()

	_, err := store.Complete(context.Background(), "job-1", "owner-1")

	assert.ErrorIs(t, err, ErrInvalidState)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_List_BuildsFilters(t *testing.T) {
	store, mock := newMockStore(t)
	minBudget := 100.0

	f := search.JobFilter{
		Keyword: "50%", City: "Austin", Skills: []string{"plumbing"}, MinBudget: &minBudget,
		Status: models.JobOpen, Sort: search.SortBudgetAsc, Page: 2, PageSize: 10,
	}
	mock.ExpectQuery(`SELECT COUNT\(\*\) FROM jobs WHERE status = \$1 AND \(title ILIKE \$2 OR description ILIKE \$3\) AND lower\(city\) = lower\(\$4\) AND skills && \$5 AND budget_max >= \$6`).
		WithArgs("open", `%50\%%`, `%50\%%`, "Austin", sqlmock.AnyArg(), 100.0).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(11))
	mock.ExpectQuery(`ORDER BY budget_min ASC, created_at DESC, id LIMIT \$7 OFFSET \$8`).
		WithArgs("open", `%50\%%`, `%50\%%`, "Austin", sqlmock.AnyArg(), 100.0, 10, 10).
		WillReturnRows(jobRow(sqlmock.NewRows(columns), "job-11", models.JobOpen, nil))
	mock.ExpectQuery(`SELECT job_id, id, applicant_id FROM applications`).
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "id", "applicant_id"}))

	jobs, total, err := store.List(context.Background(), f)

	require.NoError(t, err)
	assert.Equal(t, 11, total)
	require.Len(t, jobs, 1)
	assert.Equal(t, []string{}, jobs[0].Applications)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestPostgresStore_GetMany_KeepsOrder(t *testing.T) {
	store, mock := newMockStore(t)

	rows := sqlmock.NewRows(columns)
	jobRow(rows, "job-a", models.JobOpen, nil)
	jobRow(rows, "job-b", models.JobOpen, nil)
	mock.ExpectQuery(`FROM jobs WHERE id = ANY\(\$1\)`).WillReturnRows(rows)
	mock.ExpectQuery(`SELECT job_id, id, applicant_id FROM applications`).
		WillReturnRows(sqlmock.NewRows([]string{"job_id", "id", "applicant_id"}))

	jobs, err := store.GetMany(context.Background(), []string{"job-b", "gone", "job-a"})

	require.NoError(t, err)
	require.Len(t, jobs, 2)
	assert.Equal(t, "job-b", jobs[0].ID)
	assert.Equal(t, "job-a", jobs[1].ID)
}
