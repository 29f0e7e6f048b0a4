package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/inkbook/studio/internal/domain/entities"
)

// BookingRepository defines the interface for booking data operations
type BookingRepository interface {
	Create(ctx context.Context, booking *entities.Booking) error
	GetByID(ctx context.Context, id uuid.UUID) (*entities.Booking, error)
	Update(ctx context.Context, booking *entities.Booking) error
	Delete(ctx context.Context, id uuid.UUID) error
	List(ctx context.Context, filter BookingFilter) ([]*entities.Booking, error)
	Count(ctx context.Context, filter BookingFilter) (int64, error)
	Ping(ctx context.Context) error
}

// BookingFilter narrows List and Count. Zero values match everything.
type BookingFilter struct {
	Date   string
	Status *entities.BookingStatus
	Email  string
	Limit  int
	Offset int
}

// Match reports whether b passes the filter, ignoring paging.
func (f BookingFilter) Match(b *entities.Booking) bool {
	if f.Date != "" && b.Date != f.Date {
		return false
	}
	if f.Status != nil && b.Status != *f.Status {
		return false
	}
	if f.Email != "" && b.Email != f.Email {
		return false
	}
	return true
}

// Page applies Offset and Limit to an already filtered slice.
func Page[T any](items []T, limit, offset int) []T {
	if offset > 0 {
		if offset >= len(items) {
			return items[:0]
		}
		items = items[offset:]
	}
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
