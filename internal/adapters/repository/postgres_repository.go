package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/ports"
)

const bookingColumns = `id, name, email, phone, date, time, style, placement, size,
	description, status, created_at, updated_at`

// PostgresRepository implements the BookingRepository interface over sqlx
type PostgresRepository struct {
	db *sqlx.DB
}

// NewPostgresRepository creates a new booking repository
func NewPostgresRepository(db *sqlx.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, booking *entities.Booking) error {
	query := `
		INSERT INTO bookings (` + bookingColumns + `)
		VALUES (:id, :name, :email, :phone, :date, :time, :style, :placement, :size,
			:description, :status, :created_at, :updated_at)`

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}

	if _, err := r.db.NamedExecContext(ctx, query, booking); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}

	return nil
}

func (r *PostgresRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`

	var booking entities.Booking
	err := r.db.GetContext(ctx, &booking, query, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, entities.ErrBookingNotFound
		}
		return nil, fmt.Errorf("get booking by id: %w", err)
	}

	return &booking, nil
}

func (r *PostgresRepository) Update(ctx context.Context, booking *entities.Booking) error {
	query := `
		UPDATE bookings SET
			name = :name, email = :email, phone = :phone, date = :date, time = :time,
			style = :style, placement = :placement, size = :size,
			description = :description, status = :status, updated_at = :updated_at
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, booking)
	if err != nil {
		return fmt.Errorf("update booking: %w", err)
	}

	return expectOneRow(result)
}

func (r *PostgresRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM bookings WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}

	return expectOneRow(result)
}

// List returns matching bookings in insertion order.
func (r *PostgresRepository) List(ctx context.Context, filter ports.BookingFilter) ([]*entities.Booking, error) {
	where, args := buildWhere(filter)

	query := `SELECT ` + bookingColumns + ` FROM bookings` + where + ` ORDER BY seq`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	bookings := []*entities.Booking{}
	if err := r.db.SelectContext(ctx, &bookings, query, args...); err != nil {
		return nil, fmt.Errorf("list bookings: %w", err)
	}

	return bookings, nil
}

func (r *PostgresRepository) Count(ctx context.Context, filter ports.BookingFilter) (int64, error) {
	where, args := buildWhere(filter)

	var count int64
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM bookings`+where, args...); err != nil {
		return 0, fmt.Errorf("count bookings: %w", err)
	}

	return count, nil
}

func (r *PostgresRepository) Ping(ctx context.Context) error {
	return r.db.PingContext(ctx)
}

func buildWhere(filter ports.BookingFilter) (string, []interface{}) {
	var conditions []string
	var args []interface{}

	if filter.Date != "" {
		args = append(args, filter.Date)
		conditions = append(conditions, fmt.Sprintf("date = $%d", len(args)))
	}
	if filter.Status != nil {
		args = append(args, *filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.Email != "" {
		args = append(args, filter.Email)
		conditions = append(conditions, fmt.Sprintf("email = $%d", len(args)))
	}

	if len(conditions) == 0 {
		return "", args
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

func expectOneRow(result sql.Result) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return entities.ErrBookingNotFound
	}
	return nil
}
