// internal/users/store.go
package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gig-marketplace/internal/models"
)

var ErrNotFound = errors.New("user not found")

type Store interface {
	Get(ctx context.Context, id string) (*models.User, error)
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.User, error) {
	var u models.User
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, email, phone, role, verification_status, created_at, updated_at
		FROM users WHERE id = $1`, id,
	).Scan(&u.ID, &u.Name, &u.Email, &u.Phone, &u.Role, &u.VerificationStatus, &u.CreatedAt, &u.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get user %s: %w", id, err)
	}
	return &u, nil
}
