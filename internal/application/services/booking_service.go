package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/ports"
)

// BookingRecorder counts booking lifecycle events.
type BookingRecorder interface {
	BookingCreated()
	BookingDeleted()
}

type nopBookingRecorder struct{}

func (nopBookingRecorder) BookingCreated() {}
func (nopBookingRecorder) BookingDeleted() {}

// BookingService handles booking-related operations
type BookingService struct {
	bookingRepo ports.BookingRepository
	queue       ports.NotificationQueue
	recorder    BookingRecorder
	validate    *validator.Validate
	rules       config.BookingConfig
	location    *time.Location
	logger      *logger.Logger
	now         func() time.Time

	// writeMu makes the slot check and the write one step.
	writeMu sync.Mutex
}

// NewBookingService creates a new booking service. queue and recorder may
// be nil.
func NewBookingService(bookingRepo ports.BookingRepository, queue ports.NotificationQueue, recorder BookingRecorder, rules config.BookingConfig, logger *logger.Logger) *BookingService {
	if recorder == nil {
		recorder = nopBookingRecorder{}
	}
	return &BookingService{
		bookingRepo: bookingRepo,
		queue:       queue,
		recorder:    recorder,
		validate:    NewValidator(),
		rules:       rules,
		location:    rules.Location(),
		logger:      logger.WithComponent("booking_service"),
		now:         time.Now,
	}
}

// CreateBooking normalizes, validates and stores a new booking
func (s *BookingService) CreateBooking(ctx context.Context, req ports.CreateBookingRequest) (*entities.Booking, error) {
	booking := &entities.Booking{
		Name:        req.Name,
		Email:       req.Email,
		Phone:       req.Phone,
		Date:        req.Date,
		Time:        req.Time,
		Style:       req.Style,
		Placement:   req.Placement,
		Size:        req.Size,
		Description: req.Description,
	}
	booking.Normalize()
	booking.Status = entities.BookingStatusPending

	if err := s.check(booking); err != nil {
		return nil, err
	}
	if err := s.checkNotPast(booking); err != nil {
		return nil, err
	}

	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	if err := s.checkSlot(ctx, booking); err != nil {
		return nil, err
	}

	now := s.now().UTC()
	booking.ID = uuid.New()
	booking.CreatedAt = now
	booking.UpdatedAt = now

	if err := s.bookingRepo.Create(ctx, booking); err != nil {
		return nil, fmt.Errorf("failed to create booking: %w", err)
	}

	s.recorder.BookingCreated()
	s.logger.LogBookingAction(booking.ID.String(), "created", map[string]interface{}{
		"slot": booking.Slot(),
	})
	s.notify(ports.EventBookingCreated, booking)

	return booking, nil
}

// GetBooking retrieves a booking by ID
func (s *BookingService) GetBooking(ctx context.Context, id uuid.UUID) (*entities.Booking, error) {
	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	return booking, nil
}

// ListBookings returns one page of bookings and the unpaged total
func (s *BookingService) ListBookings(ctx context.Context, filter ports.BookingFilter) ([]*entities.Booking, int64, error) {
	if filter.Status != nil && !filter.Status.Valid() {
		return nil, 0, newValidationError("status", "is not a known booking status")
	}

	bookings, err := s.bookingRepo.List(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list bookings: %w", err)
	}

	total, err := s.bookingRepo.Count(ctx, filter)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to count bookings: %w", err)
	}

	return bookings, total, nil
}

// UpdateBooking applies a partial update and re-validates the result
func (s *BookingService) UpdateBooking(ctx context.Context, id uuid.UUID, req ports.UpdateBookingRequest) (*entities.Booking, error) {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	existing, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get booking %s: %w", id, err)
	}
	before := existing.Clone()

	// Update fields
	if req.Name != nil {
		existing.Name = *req.Name
	}
	if req.Email != nil {
		existing.Email = *req.Email
	}
	if req.Phone != nil {
		existing.Phone = *req.Phone
	}
	if req.Date != nil {
		existing.Date = *req.Date
	}
	if req.Time != nil {
		existing.Time = *req.Time
	}
	if req.Style != nil {
		existing.Style = *req.Style
	}
	if req.Placement != nil {
		existing.Placement = *req.Placement
	}
	if req.Size != nil {
		existing.Size = *req.Size
	}
	if req.Description != nil {
		existing.Description = *req.Description
	}
	if req.Status != nil {
		existing.Status = *req.Status
	}
	existing.Normalize()

	if !existing.Status.Valid() {
		return nil, newValidationError("status", "must be one of pending confirmed cancelled completed")
	}
	if err := s.check(existing); err != nil {
		return nil, err
	}

	if existing.Slot() != before.Slot() {
		if err := s.checkNotPast(existing); err != nil {
			return nil, err
		}
	}
	if existing.Slot() != before.Slot() || (existing.Active() && !before.Active()) {
		if err := s.checkSlot(ctx, existing); err != nil {
			return nil, err
		}
	}

	existing.UpdatedAt = s.now().UTC()
	if err := s.bookingRepo.Update(ctx, existing); err != nil {
		return nil, fmt.Errorf("failed to update booking: %w", err)
	}

	event := ports.EventBookingUpdated
	if existing.Status == entities.BookingStatusCancelled && before.Status != entities.BookingStatusCancelled {
		event = ports.EventBookingCancelled
	}

	s.logger.LogBookingAction(existing.ID.String(), string(event), map[string]interface{}{
		"slot":   existing.Slot(),
		"status": existing.Status,
	})
	s.notify(event, existing)

	return existing, nil
}

// DeleteBooking removes a booking
func (s *BookingService) DeleteBooking(ctx context.Context, id uuid.UUID) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()

	booking, err := s.bookingRepo.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("get booking %s: %w", id, err)
	}

	if err := s.bookingRepo.Delete(ctx, id); err != nil {
		return fmt.Errorf("failed to delete booking: %w", err)
	}

	s.recorder.BookingDeleted()
	s.logger.LogBookingAction(id.String(), "deleted", nil)
	s.notify(ports.EventBookingDeleted, booking)

	return nil
}

// check validates the normalized booking against the request rules.
func (s *BookingService) check(b *entities.Booking) error {
	req := ports.CreateBookingRequest{
		Name:        b.Name,
		Email:       b.Email,
		Phone:       b.Phone,
		Date:        b.Date,
		Time:        b.Time,
		Style:       b.Style,
		Placement:   b.Placement,
		Size:        b.Size,
		Description: b.Description,
	}
	if err := s.validate.Struct(req); err != nil {
		return toValidationError(err)
	}
	return nil
}

func (s *BookingService) checkNotPast(b *entities.Booking) error {
	if s.rules.AllowPastDates {
		return nil
	}
	start, err := b.StartsAt(s.location)
	if err != nil {
		return newValidationError("date", "must be a date formatted YYYY-MM-DD")
	}
	if start.Before(s.now()) {
		return entities.ErrDateInPast
	}
	return nil
}

// checkSlot rejects b when another active booking holds its slot. Callers
// hold writeMu.
func (s *BookingService) checkSlot(ctx context.Context, b *entities.Booking) error {
	if s.rules.AllowDoubleBooking || !b.Active() {
		return nil
	}

	sameDay, err := s.bookingRepo.List(ctx, ports.BookingFilter{Date: b.Date})
	if err != nil {
		return fmt.Errorf("failed to check slot: %w", err)
	}
	for _, other := range sameDay {
		if other.ID != b.ID && other.Time == b.Time && other.Active() {
			return entities.ErrSlotTaken
		}
	}
	return nil
}

func (s *BookingService) notify(event ports.NotificationEvent, b *entities.Booking) {
	if s.queue == nil {
		return
	}
	n := ports.Notification{Event: event, Booking: *b, OccurredAt: s.now().UTC()}
	if !s.queue.Enqueue(n) {
		s.logger.Warnw("Booking notification not queued", "event", event, "booking_id", b.ID.String())
	}
}

// IsClientError reports whether err was caused by the request rather than
// the service.
func IsClientError(err error) bool {
	return errors.Is(err, entities.ErrInvalidBooking) ||
		errors.Is(err, entities.ErrDateInPast) ||
		errors.Is(err, entities.ErrSlotTaken) ||
		errors.Is(err, entities.ErrBookingNotFound)
}
