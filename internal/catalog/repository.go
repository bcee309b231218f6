// internal/catalog/repository.go
package catalog

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

const serviceColumns = `id, title, description, category, price, city, state, address, provider_id,
	images, available_days, start_hour, end_hour, rating_average, rating_count, is_active,
	created_at, updated_at`

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanService(row rowScanner) (*models.Service, error) {
	var (
		svc    models.Service
		images []string
		days   []string
	)
	err := row.Scan(
		&svc.ID, &svc.Title, &svc.Description, &svc.Category, &svc.Price,
		&svc.Location.City, &svc.Location.State, &svc.Location.Address, &svc.ProviderID,
		pq.Array(&images), pq.Array(&days), &svc.Availability.StartHour, &svc.Availability.EndHour,
		&svc.Rating.Average, &svc.Rating.Count, &svc.IsActive, &svc.CreatedAt, &svc.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if images == nil {
		images = []string{}
	}
	if days == nil {
		days = []string{}
	}
	svc.Images = images
	svc.Availability.Days = days
	return &svc, nil
}

func (s *PostgresStore) Create(ctx context.Context, svc *models.Service) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO services (
				id, title, description, category, price, city, state, address, provider_id,
				images, available_days, start_hour, end_hour, is_active
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, TRUE)
			RETURNING created_at, updated_at`,
			svc.ID, svc.Title, svc.Description, svc.Category, svc.Price,
			svc.Location.City, svc.Location.State, svc.Location.Address, svc.ProviderID,
			pq.Array(svc.Images), pq.Array(svc.Availability.Days),
			svc.Availability.StartHour, svc.Availability.EndHour,
		).Scan(&svc.CreatedAt, &svc.UpdatedAt)
		if err != nil {
			return fmt.Errorf("insert service: %w", err)
		}
		svc.IsActive = true

		return database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "service_created",
			ResourceType: "service",
			ResourceID:   svc.ID,
			ActorID:      svc.ProviderID,
			Details:      map[string]interface{}{"category": svc.Category},
		})
	})
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Service, error) {
	svc, err := scanService(s.db.QueryRowContext(ctx, `SELECT `+serviceColumns+` FROM services WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", id, err)
	}
	return svc, nil
}

func (s *PostgresStore) GetMany(ctx context.Context, ids []string) ([]models.Service, error) {
	if len(ids) == 0 {
		return []models.Service{}, nil
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = ANY($1) AND is_active`, pq.Array(ids))
	if err != nil {
		return nil, fmt.Errorf("get services: %w", err)
	}
	defer rows.Close()

	found := map[string]models.Service{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, fmt.Errorf("scan service: %w", err)
		}
		found[svc.ID] = *svc
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	out := make([]models.Service, 0, len(found))
	for _, id := range ids {
		if svc, ok := found[id]; ok {
			out = append(out, svc)
		}
	}
	return out, nil
}

func (s *PostgresStore) Update(ctx context.Context, svc *models.Service) (*models.Service, error) {
	updated, err := scanService(s.db.QueryRowContext(ctx, `
		UPDATE services SET
			title = $2, description = $3, category = $4, price = $5, city = $6, state = $7,
			address = $8, images = $9, available_days = $10, start_hour = $11, end_hour = $12,
			updated_at = now()
		WHERE id = $1
		RETURNING `+serviceColumns,
		svc.ID, svc.Title, svc.Description, svc.Category, svc.Price,
		svc.Location.City, svc.Location.State, svc.Location.Address,
		pq.Array(svc.Images), pq.Array(svc.Availability.Days),
		svc.Availability.StartHour, svc.Availability.EndHour,
	))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("update service %s: %w", svc.ID, err)
	}
	return updated, nil
}

func (s *PostgresStore) Deactivate(ctx context.Context, id, actorID string) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		res, err := tx.ExecContext(ctx,
			`UPDATE services SET is_active = FALSE, updated_at = now() WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("deactivate service %s: %w", id, err)
		}
		if n, err := res.RowsAffected(); err != nil {
			return err
		} else if n == 0 {
			return ErrNotFound
		}
		return database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "service_deactivated",
			ResourceType: "service",
			ResourceID:   id,
			ActorID:      actorID,
		})
	})
}

var serviceOrder = map[string]string{
	search.SortNewest:    "created_at DESC, id",
	search.SortPriceAsc:  "price ASC, created_at DESC, id",
	search.SortPriceDesc: "price DESC, created_at DESC, id",
	search.SortRating:    "rating_average DESC, rating_count DESC, id",
}

func (s *PostgresStore) List(ctx context.Context, f search.ServiceFilter) ([]models.Service, int, error) {
	var c database.Conditions
	c.Add("is_active")
	if f.Keyword != "" {
		pattern := "%" + strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`).Replace(f.Keyword) + "%"
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
	if f.Provider != "" {
		c.Add("provider_id = ?", f.Provider)
	}
	if f.MinPrice != nil {
		c.Add("price >= ?", *f.MinPrice)
	}
	if f.MaxPrice != nil {
		c.Add("price <= ?", *f.MaxPrice)
	}
	if f.MinRating != nil {
		c.Add("rating_average >= ?", *f.MinRating)
	}

	var total int
	if err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM services `+c.Where(), c.Args()...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count services: %w", err)
	}

	order, ok := serviceOrder[f.Sort]
	if !ok {
		order = serviceOrder[search.SortNewest]
	}
	suffix, args := c.Page(f.PageSize, f.Offset())
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+serviceColumns+` FROM services `+c.Where()+` ORDER BY `+order+suffix, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list services: %w", err)
	}
	defer rows.Close()

	out := []models.Service{}
	for rows.Next() {
		svc, err := scanService(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan service: %w", err)
		}
		out = append(out, *svc)
	}
	return out, total, rows.Err()
}

func (s *PostgresStore) AddReview(ctx context.Context, review *models.Review) (models.Rating, error) {
	return database.Transact(ctx, s.db, func(tx *sql.Tx) (models.Rating, error) {
		var rating models.Rating

		var exists bool
		err := tx.QueryRowContext(ctx,
			`SELECT TRUE FROM services WHERE id = $1 FOR UPDATE`, review.ServiceID).Scan(&exists)
		if errors.Is(err, sql.ErrNoRows) {
			return rating, ErrNotFound
		}
		if err != nil {
			return rating, fmt.Errorf("lock service %s: %w", review.ServiceID, err)
		}

		err = tx.QueryRowContext(ctx, `
			INSERT INTO service_reviews (id, service_id, user_id, rating, comment)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING created_at`,
			review.ID, review.ServiceID, review.UserID, review.Rating, review.Comment,
		).Scan(&review.CreatedAt)
		if database.IsUniqueViolation(err) {
			return rating, ErrAlreadyReviewed
		}
		if err != nil {
			return rating, fmt.Errorf("insert review: %w", err)
		}

		err = tx.QueryRowContext(ctx, `
			UPDATE services SET
				rating_average = (SELECT COALESCE(AVG(rating)::float8, 0) FROM service_reviews WHERE service_id = $1),
				rating_count = (SELECT COUNT(*) FROM service_reviews WHERE service_id = $1),
				updated_at = now()
			WHERE id = $1
			RETURNING rating_average, rating_count`, review.ServiceID,
		).Scan(&rating.Average, &rating.Count)
		if err != nil {
			return rating, fmt.Errorf("recompute rating of %s: %w", review.ServiceID, err)
		}

		err = database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "review_added",
			ResourceType: "service",
			ResourceID:   review.ServiceID,
			ActorID:      review.UserID,
			Details:      map[string]interface{}{"rating": review.Rating},
		})
		return rating, err
	})
}

func (s *PostgresStore) ListReviews(ctx context.Context, serviceID string) ([]models.Review, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, service_id, user_id, rating, comment, created_at
		FROM service_reviews
		WHERE service_id = $1
		ORDER BY created_at DESC, id`, serviceID)
	if err != nil {
		return nil, fmt.Errorf("list reviews of %s: %w", serviceID, err)
	}
	defer rows.Close()

	out := []models.Review{}
	for rows.Next() {
		var r models.Review
		if err := rows.Scan(&r.ID, &r.ServiceID, &r.UserID, &r.Rating, &r.Comment, &r.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan review: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
