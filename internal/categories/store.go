// internal/categories/store.go
package categories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"gig-marketplace/internal/common/database"
	"gig-marketplace/internal/models"
)

var ErrDuplicate = errors.New("category name or slug already exists")

type Store interface {
	List(ctx context.Context) ([]models.Category, error)
	Create(ctx context.Context, c *models.Category, actorID string) error
}

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) List(ctx context.Context) ([]models.Category, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, name, slug, description, kind, created_at FROM categories ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	out := []models.Category{}
	for rows.Next() {
		var c models.Category
		if err := rows.Scan(&c.ID, &c.Name, &c.Slug, &c.Description, &c.Kind, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan category: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *PostgresStore) Create(ctx context.Context, c *models.Category, actorID string) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO categories (id, name, slug, description, kind)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			c.ID, c.Name, c.Slug, c.Description, c.Kind,
		).Scan(&c.CreatedAt)
		if database.IsUniqueViolation(err) {
			return ErrDuplicate
		}
		if err != nil {
			return fmt.Errorf("insert category: %w", err)
		}
		return database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "category_created",
			ResourceType: "category",
			ResourceID:   c.ID,
			ActorID:      actorID,
			Details:      map[string]interface{}{"slug": c.Slug},
		})
	})
}
