// internal/bookings/repository.go
package bookings

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"gig-marketplace/internal/common/database"
	"gig-marketplace/internal/models"

	"github.com/lib/pq"
)

const (
	dateLayout     = "2006-01-02"
	bookingColumns = `id, service_id, user_id, provider_id, status, booking_date, booking_time, price,
	street, city, state, zip, notes, created_at, updated_at`
)

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBooking(row rowScanner) (*models.Booking, error) {
	var (
		b    models.Booking
		date time.Time
	)
	err := row.Scan(
		&b.ID, &b.ServiceID, &b.UserID, &b.ProviderID, &b.Status, &date, &b.Time, &b.Price,
		&b.Address.Street, &b.Address.City, &b.Address.State, &b.Address.Zip, &b.Notes,
		&b.CreatedAt, &b.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	b.Date = date.Format(dateLayout)
	return &b, nil
}

func (s *PostgresStore) GetService(ctx context.Context, serviceID string) (*ServiceSummary, error) {
	var svc ServiceSummary
	err := s.db.QueryRowContext(ctx,
		`SELECT id, title, provider_id, price, is_active FROM services WHERE id = $1`, serviceID,
	).Scan(&svc.ID, &svc.Title, &svc.ProviderID, &svc.Price, &svc.IsActive)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrServiceNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get service %s: %w", serviceID, err)
	}
	return &svc, nil
}

func (s *PostgresStore) Create(ctx context.Context, b *models.Booking) error {
	return database.WithTx(ctx, s.db, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx, `
			INSERT INTO bookings (
				id, service_id, user_id, provider_id, status, booking_date, booking_time, price,
				street, city, state, zip, notes
			)
			SELECT $1, s.id, $3, s.provider_id, 'pending', $4, $5, s.price, $6, $7, $8, $9, $10
			FROM services s
			WHERE s.id = $2 AND s.is_active
			RETURNING provider_id, price, created_at, updated_at`,
			b.ID, b.ServiceID, b.UserID, b.Date, b.Time,
			b.Address.Street, b.Address.City, b.Address.State, b.Address.Zip, b.Notes,
		).Scan(&b.ProviderID, &b.Price, &b.CreatedAt, &b.UpdatedAt)
		if errors.Is(err, sql.ErrNoRows) {
			return ErrServiceUnavailable
		}
		if err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		b.Status = models.BookingPending

		return database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "booking_created",
			ResourceType: "booking",
			ResourceID:   b.ID,
			ActorID:      b.UserID,
			Details:      map[string]interface{}{"serviceId": b.ServiceID, "price": b.Price},
		})
	})
}

func (s *PostgresStore) Get(ctx context.Context, id string) (*models.Booking, error) {
	b, err := scanBooking(s.db.QueryRowContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return b, nil
}

func (s *PostgresStore) Transition(ctx context.Context, id string, from []models.BookingStatus, to models.BookingStatus, actorID string) (*models.Booking, error) {
	allowed := make([]string, len(from))
	for i, st := range from {
		allowed[i] = string(st)
	}

	return database.Transact(ctx, s.db, func(tx *sql.Tx) (*models.Booking, error) {
		b, err := scanBooking(tx.QueryRowContext(ctx, `
			UPDATE bookings SET status = $2, updated_at = now()
			WHERE id = $1 AND status = ANY($3)
			RETURNING `+bookingColumns, id, to, pq.Array(allowed)))
		if errors.Is(err, sql.ErrNoRows) {
			var exists bool
			if err := tx.QueryRowContext(ctx,
				`SELECT EXISTS(SELECT 1 FROM bookings WHERE id = $1)`, id).Scan(&exists); err != nil {
				return nil, fmt.Errorf("check booking %s: %w", id, err)
			}
			if exists {
				return nil, ErrInvalidState
			}
			return nil, ErrNotFound
		}
		if err != nil {
			return nil, fmt.Errorf("transition booking %s: %w", id, err)
		}

		err = database.RecordAudit(ctx, tx, database.AuditEntry{
			EventType:    "booking_" + string(to),
			ResourceType: "booking",
			ResourceID:   id,
			ActorID:      actorID,
		})
		if err != nil {
			return nil, err
		}
		return b, nil
	})
}

func (s *PostgresStore) list(ctx context.Context, column, value string) ([]models.Booking, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE `+column+` = $1
		ORDER BY created_at DESC, id`, value)
	if err != nil {
		return nil, fmt.Errorf("list bookings by %s: %w", column, err)
	}
	defer rows.Close()

	out := []models.Booking{}
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, fmt.Errorf("scan booking: %w", err)
		}
		out = append(out, *b)
	}
	return out, rows.Err()
}

func (s *PostgresStore) ListByUser(ctx context.Context, userID string) ([]models.Booking, error) {
	return s.list(ctx, "user_id", userID)
}

func (s *PostgresStore) ListByProvider(ctx context.Context, providerID string) ([]models.Booking, error) {
	return s.list(ctx, "provider_id", providerID)
}
