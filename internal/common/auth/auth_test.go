// internal/common/auth/auth_test.go
package auth

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	apperrors "gig-marketplace/internal/common/errors"
	"gig-marketplace/internal/common/logger"
	"gig-marketplace/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redismock/v9"
	"github.com/gorilla/mux"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ====== Test Helper Functions ======

func newTestStore(t *testing.T) (*SessionStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewSessionStore(rdb, "session:", time.Hour, logger.NewTestLogger(t)), mr
}

// ====== Session Store ======

func TestSessionStore_CreateAndResolve(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	token, session, err := store.Create(ctx, "user-1", models.RoleProvider)
	require.NoError(t, err)
	assert.Len(t, token, 64)
	assert.Equal(t, "user-1", session.UserID)

	// the raw token is never used as a key
	assert.False(t, mr.Exists("session:"+token))
	assert.True(t, mr.Exists("session:"+hashToken(token)))

	id, err := store.Resolve(ctx, token)
	require.NoError(t, err)
	assert.Equal(t, "user-1", id.UserID)
	assert.Equal(t, models.RoleProvider, id.Role)
}

func TestSessionStore_CreateValidation(t *testing.T) {
	store, _ := newTestStore(t)

	_, _, err := store.Create(context.Background(), "", models.RoleUser)
	assert.Error(t, err)

	_, _, err = store.Create(context.Background(), "user-1", models.Role("superuser"))
	assert.Error(t, err)
}

func TestSessionStore_ResolveUnknownAndExpired(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	_, err := store.Resolve(ctx, "")
	assert.ErrorIs(t, err, ErrNoSession)

	_, err = store.Resolve(ctx, "does-not-exist")
	assert.ErrorIs(t, err, ErrNoSession)

	token, _, err := store.Create(ctx, "user-1", models.RoleUser)
	require.NoError(t, err)

	// logical expiry even when the key outlives its TTL
	store.now = func() time.Time { return time.Now().UTC().Add(2 * time.Hour) }
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	store.now = func() time.Time { return time.Now().UTC() }
	mr.FastForward(2 * time.Hour)
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)
}

func TestSessionStore_Revoke(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	token, _, err := store.Create(ctx, "user-1", models.RoleUser)
	require.NoError(t, err)

	require.NoError(t, store.Revoke(ctx, token))
	_, err = store.Resolve(ctx, token)
	assert.ErrorIs(t, err, ErrNoSession)

	assert.NoError(t, store.Revoke(ctx, token))
}

func TestSessionStore_RevokeAll(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	t1, _, err := store.Create(ctx, "user-1", models.RoleUser)
	require.NoError(t, err)
	t2, _, err := store.Create(ctx, "user-1", models.RoleUser)
	require.NoError(t, err)
	other, _, err := store.Create(ctx, "user-2", models.RoleUser)
	require.NoError(t, err)

	n, err := store.RevokeAll(ctx, "user-1")
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	for _, tok := range []string{t1, t2} {
		_, err := store.Resolve(ctx, tok)
		assert.ErrorIs(t, err, ErrNoSession)
	}
	_, err = store.Resolve(ctx, other)
	assert.NoError(t, err)
}

func TestSessionStore_ResolveRedisFailure(t *testing.T) {
	rdb, mock := redismock.NewClientMock()
	store := NewSessionStore(rdb, "session:", time.Hour, logger.NewNoOpLogger())

	mock.ExpectGet("session:" + hashToken("tok")).SetErr(errors.New("connection reset"))

	_, err := store.Resolve(context.Background(), "tok")
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoSession)
	assert.NoError(t, mock.ExpectationsWereMet())
}

// ====== Identity ======

func TestIsOwner(t *testing.T) {
	owner := &Identity{UserID: "u-1", Role: models.RoleUser}
	admin := &Identity{UserID: "admin-1", Role: models.RoleAdmin}

	assert.True(t, IsOwner("u-1", owner))
	assert.False(t, IsOwner("u-2", owner))
	assert.False(t, IsOwner("u-1", admin))
	assert.False(t, IsOwner("u-1", nil))
	assert.False(t, IsOwner("", &Identity{}))
}

func TestRequireIdentityAndRole(t *testing.T) {
	_, err := RequireIdentity(context.Background())
	assert.True(t, apperrors.HasCode(err, apperrors.ErrCodeUnauthenticated))

	ctx := WithIdentity(context.Background(), &Identity{UserID: "u-1", Role: models.RoleUser})
	id, err := RequireIdentity(ctx)
	require.NoError(t, err)

	assert.True(t, apperrors.HasCode(RequireRole(id, models.RoleProvider, models.RoleAdmin), apperrors.ErrCodeForbidden))
	assert.NoError(t, RequireRole(id, models.RoleUser))
}

// ====== Middleware ======

func TestMiddleware_AttachesIdentity(t *testing.T) {
	store, _ := newTestStore(t)
	token, _, err := store.Create(context.Background(), "user-9", models.RoleUser)
	require.NoError(t, err)

	var seen *Identity
	r := mux.NewRouter()
	r.Use(Middleware(store, "session_token", logger.NewNoOpLogger()))
	r.HandleFunc("/me", func(w http.ResponseWriter, r *http.Request) {
		seen, _ = FromContext(r.Context())
	})

	tests := []struct {
		name    string
		prepare func(*http.Request)
		wantID  string
	}{
		{"bearer header", func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) }, "user-9"},
		{"cookie", func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "session_token", Value: token}) }, "user-9"},
		{"unknown token", func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") }, ""},
		{"anonymous", func(r *http.Request) {}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest(http.MethodGet, "/me", nil)
			tt.prepare(req)
			rec := httptest.NewRecorder()
			r.ServeHTTP(rec, req)

			assert.Equal(t, http.StatusOK, rec.Code)
			if tt.wantID == "" {
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, tt.wantID, seen.UserID)
		})
	}
}
