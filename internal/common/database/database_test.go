// internal/common/database/database_test.go
package database

import (
	"context"
	"database/sql"
	"database/sql/driver"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"
	"time"

	"gig-marketplace/internal/common/config"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/alicebob/miniredis/v2"
	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ==========================
// Transactions
// ==========================

func TestTransact_CommitsOnSuccess(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin()
	mock.ExpectExec(`UPDATE jobs`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectCommit()

	got, err := Transact(context.Background(), db, func(tx *sql.Tx) (int64, error) {
		res, err := tx.ExecContext(context.Background(), `UPDATE jobs SET status = 'in-progress'`)
		if err != nil {
			return 0, err
		}
		return res.RowsAffected()
	})

	require.NoError(t, err)
	assert.Equal(t, int64(1), got)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_RollsBackOnError(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	sentinel := errors.New("lost the race")

	mock.ExpectBegin()
	mock.ExpectRollback()

	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		return sentinel
	})

	assert.ErrorIs(t, err, sentinel)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestTransact_BeginFailure(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectBegin().WillReturnError(errors.New("too many connections"))

	called := false
	err = WithTx(context.Background(), db, func(tx *sql.Tx) error {
		called = true
		return nil
	})

	require.Error(t, err)
	assert.Contains(t, err.Error(), "failed to begin transaction")
	assert.False(t, called)
}

func TestRecordAudit(t *testing.T) {
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()

	mock.ExpectExec(`INSERT INTO audit_log`).
		WithArgs("application_accepted", "application", "app-1", "owner-1", []byte(`{"jobId":"job-1"}`)).
		WillReturnResult(sqlmock.NewResult(1, 1))

	err = RecordAudit(context.Background(), db, AuditEntry{
		EventType:    "application_accepted",
		ResourceType: "application",
		ResourceID:   "app-1",
		ActorID:      "owner-1",
		Details:      map[string]interface{}{"jobId": "job-1"},
	})

	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ==========================
// Error classification
// ==========================

func TestPostgresErrorClassification(t *testing.T) {
	unique := fmt.Errorf("insert: %w", &pq.Error{Code: "23505"})
	assert.True(t, IsUniqueViolation(unique))
	assert.False(t, IsTransient(unique))

	assert.True(t, IsForeignKeyViolation(&pq.Error{Code: "23503"}))
	assert.True(t, IsCheckViolation(&pq.Error{Code: "23514"}))

	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"bad conn", driver.ErrBadConn, true},
		{"connection failure class", &pq.Error{Code: "08006"}, true},
		{"serialization failure", &pq.Error{Code: "40001"}, true},
		{"deadlock", &pq.Error{Code: "40P01"}, true},
		{"syntax error", &pq.Error{Code: "42601"}, false},
		{"no rows", sql.ErrNoRows, false},
		{"nil", nil, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, IsTransient(tt.err))
		})
	}
}

// ==========================
// Redis JSON helpers
// ==========================

func TestRedisJSONHelpers(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()

	ctx := context.Background()

	var out map[string]string
	assert.ErrorIs(t, GetJSON(ctx, rdb, "missing", &out), ErrCacheMiss)

	require.NoError(t, SetJSON(ctx, rdb, "k", map[string]string{"a": "b"}, time.Minute))
	require.NoError(t, GetJSON(ctx, rdb, "k", &out))
	assert.Equal(t, "b", out["a"])

	mr.FastForward(2 * time.Minute)
	assert.ErrorIs(t, GetJSON(ctx, rdb, "k", &out), ErrCacheMiss)
}

func TestNewRedis_Ping(t *testing.T) {
	mr := miniredis.RunT(t)
	client := NewRedis(config.RedisConfig{Address: mr.Addr()})
	defer client.Close()

	assert.NoError(t, client.Ping(context.Background()))
}

// ==========================
// Elasticsearch
// ==========================

func newFakeElasticsearch(t *testing.T, handler http.HandlerFunc) *ElasticsearchClient {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("X-Elastic-Product", "Elasticsearch")
		handler(w, r)
	}))
	t.Cleanup(srv.Close)

	client, err := NewElasticsearch(config.ElasticsearchConfig{Addresses: []string{srv.URL}})
	require.NoError(t, err)
	return client
}

func TestEnsureIndex_CreatesMissingIndex(t *testing.T) {
	var created bool
	client := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodHead:
			w.WriteHeader(http.StatusNotFound)
		case http.MethodPut:
			created = r.URL.Path == "/jobs"
			w.Header().Set("Content-Type", "application/json")
			_, _ = w.Write([]byte(`{"acknowledged":true}`))
		}
	})

	require.NoError(t, client.EnsureIndex(context.Background(), "jobs", `{"mappings":{}}`))
	assert.True(t, created)
}

func TestEnsureIndex_ExistingIndexIsLeftAlone(t *testing.T) {
	client := newFakeElasticsearch(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodHead {
			t.Errorf("unexpected %s %s", r.Method, r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})

	require.NoError(t, client.EnsureIndex(context.Background(), "jobs", `{}`))
}

// ==========================
// Query conditions
// ==========================

func TestConditions(t *testing.T) {
	var c Conditions
	assert.Equal(t, "", c.Where())

	c.Add("status = ?", "open")
	c.Add("(title ILIKE ? OR description ILIKE ?)", "%x%", "%x%")
	c.Add("skills && ?", "{go}")

	assert.Equal(t, "WHERE status = $1 AND (title ILIKE $2 OR description ILIKE $3) AND skills && $4", c.Where())
	assert.Equal(t, []interface{}{"open", "%x%", "%x%", "{go}"}, c.Args())

	suffix, args := c.Page(20, 40)
	assert.Equal(t, " LIMIT $5 OFFSET $6", suffix)
	assert.Len(t, args, 6)
	assert.Len(t, c.Args(), 4)
}

// ==========================
// Migrations
// ==========================

func TestMigrations_NumericColumns(t *testing.T) {
	raw, err := migrationFiles.ReadFile("migrations/000001_init.up.sql")
	require.NoError(t, err)
	schema := string(raw)

	// review averages keep the exact mean; money columns keep two decimals
	assert.Regexp(t, regexp.MustCompile(`rating_average\s+DOUBLE PRECISION`), schema)
	assert.Regexp(t, regexp.MustCompile(`expected_rate\s+NUMERIC\(12, 2\)`), schema)
}
