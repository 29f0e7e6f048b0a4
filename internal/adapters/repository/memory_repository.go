package repository

import (
	"context"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/ports"
)

// MemoryRepository keeps bookings in a single in-process slice. It is also
// the cache behind JSONRepository, which sets persist to rewrite the file.
type MemoryRepository struct {
	mu       sync.RWMutex
	bookings []*entities.Booking

	// persist is called with the candidate contents before a write is
	// committed to the cache; an error aborts the write.
	persist func(bookings []*entities.Booking) error
}

// NewMemoryRepository creates an empty in-memory repository
func NewMemoryRepository() *MemoryRepository {
	return &MemoryRepository{}
}

func (r *MemoryRepository) Create(ctx context.Context, booking *entities.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if booking.ID == uuid.Nil {
		booking.ID = uuid.New()
	}
	if r.indexOf(booking.ID) >= 0 {
		return fmt.Errorf("create booking %s: duplicate id", booking.ID)
	}

	next := make([]*entities.Booking, len(r.bookings), len(r.bookings)+1)
	copy(next, r.bookings)
	next = append(next, booking.Clone())

	if err := r.commit(next); err != nil {
		return fmt.Errorf("create booking: %w", err)
	}
	return nil
}

func (r *MemoryRepository) GetByID(ctx context.Context, id uuid.UUID) (*entities.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i := r.indexOf(id)
	if i < 0 {
		return nil, entities.ErrBookingNotFound
	}
	return r.bookings[i].Clone(), nil
}

func (r *MemoryRepository) Update(ctx context.Context, booking *entities.Booking) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(booking.ID)
	if i < 0 {
		return entities.ErrBookingNotFound
	}

	next := make([]*entities.Booking, len(r.bookings))
	copy(next, r.bookings)
	next[i] = booking.Clone()

	if err := r.commit(next); err != nil {
		return fmt.Errorf("update booking: %w", err)
	}
	return nil
}

func (r *MemoryRepository) Delete(ctx context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	i := r.indexOf(id)
	if i < 0 {
		return entities.ErrBookingNotFound
	}

	next := make([]*entities.Booking, 0, len(r.bookings)-1)
	next = append(next, r.bookings[:i]...)
	next = append(next, r.bookings[i+1:]...)

	if err := r.commit(next); err != nil {
		return fmt.Errorf("delete booking: %w", err)
	}
	return nil
}

// List returns matching bookings in insertion order.
func (r *MemoryRepository) List(ctx context.Context, filter ports.BookingFilter) ([]*entities.Booking, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result := make([]*entities.Booking, 0, len(r.bookings))
	for _, b := range r.bookings {
		if filter.Match(b) {
			result = append(result, b.Clone())
		}
	}
	return ports.Page(result, filter.Limit, filter.Offset), nil
}

func (r *MemoryRepository) Count(ctx context.Context, filter ports.BookingFilter) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var n int64
	for _, b := range r.bookings {
		if filter.Match(b) {
			n++
		}
	}
	return n, nil
}

func (r *MemoryRepository) Ping(ctx context.Context) error {
	return ctx.Err()
}

// Len returns the number of cached bookings.
func (r *MemoryRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bookings)
}

// replace swaps the whole cache without persisting. Callers hold mu.
func (r *MemoryRepository) replace(bookings []*entities.Booking) {
	r.bookings = bookings
}

func (r *MemoryRepository) commit(next []*entities.Booking) error {
	if r.persist != nil {
		if err := r.persist(next); err != nil {
			return err
		}
	}
	r.bookings = next
	return nil
}

func (r *MemoryRepository) indexOf(id uuid.UUID) int {
	for i, b := range r.bookings {
		if b.ID == id {
			return i
		}
	}
	return -1
}
