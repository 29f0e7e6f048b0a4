package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inkbook/studio/internal/adapters/repository"
	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/ports"
)

type recordingQueue struct {
	mu    sync.Mutex
	items []ports.Notification
}

func (q *recordingQueue) Enqueue(n ports.Notification) bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	q.items = append(q.items, n)
	return true
}

func (q *recordingQueue) events() []ports.NotificationEvent {
	q.mu.Lock()
	defer q.mu.Unlock()
	out := make([]ports.NotificationEvent, len(q.items))
	for i, n := range q.items {
		out[i] = n.Event
	}
	return out
}

type countingRecorder struct {
	created, deleted int
}

func (c *countingRecorder) BookingCreated() { c.created++ }
func (c *countingRecorder) BookingDeleted() { c.deleted++ }

var fixedNow = time.Date(2030, 1, 1, 9, 0, 0, 0, time.UTC)

func newTestService(t *testing.T, rules config.BookingConfig) (*BookingService, *recordingQueue, *countingRecorder) {
	t.Helper()
	if rules.Timezone == "" {
		rules.Timezone = "UTC"
	}
	queue := &recordingQueue{}
	rec := &countingRecorder{}
	svc := NewBookingService(repository.NewMemoryRepository(), queue, rec, rules, logger.NewNop())
	svc.now = func() time.Time { return fixedNow }
	return svc, queue, rec
}

func validRequest() ports.CreateBookingRequest {
	return ports.CreateBookingRequest{
		Name:        "  Ana  López ",
		Email:       "ANA@example.com",
		Phone:       "600 123 456",
		Date:        "2030-02-10",
		Time:        "17:00",
		Style:       "fine line",
		Description: "Swallow behind the ear",
	}
}

func strPtr(s string) *string { return &s }

func TestCreateBooking(t *testing.T) {
	svc, queue, rec := newTestService(t, config.BookingConfig{})
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, b.ID)
	assert.Equal(t, "Ana López", b.Name)
	assert.Equal(t, "ana@example.com", b.Email)
	assert.Equal(t, "600123456", b.Phone)
	assert.Equal(t, entities.BookingStatusPending, b.Status)
	assert.Equal(t, fixedNow, b.CreatedAt)
	assert.Equal(t, []ports.NotificationEvent{ports.EventBookingCreated}, queue.events())
	assert.Equal(t, 1, rec.created)

	stored, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, b.Name, stored.Name)
}

func TestCreateBookingValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(r *ports.CreateBookingRequest)
		field  string
	}{
		{"missing name", func(r *ports.CreateBookingRequest) { r.Name = "   " }, "name"},
		{"short name", func(r *ports.CreateBookingRequest) { r.Name = "A" }, "name"},
		{"no contact", func(r *ports.CreateBookingRequest) { r.Email, r.Phone = "", "" }, "email"},
		{"bad email", func(r *ports.CreateBookingRequest) { r.Email = "ana-at-example" }, "email"},
		{"bad phone", func(r *ports.CreateBookingRequest) { r.Phone = "call me" }, "phone"},
		{"bad date", func(r *ports.CreateBookingRequest) { r.Date = "10/02/2030" }, "date"},
		{"bad time", func(r *ports.CreateBookingRequest) { r.Time = "5pm" }, "time"},
		{"long description", func(r *ports.CreateBookingRequest) { r.Description = string(make([]byte, 2001)) }, "description"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, queue, _ := newTestService(t, config.BookingConfig{})
			req := validRequest()
			tt.mutate(&req)

			_, err := svc.CreateBooking(context.Background(), req)

			var verr *ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Contains(t, verr.Fields, tt.field)
			assert.ErrorIs(t, err, entities.ErrInvalidBooking)
			assert.Empty(t, queue.events())
		})
	}
}

func TestCreateBookingAcceptsPhoneOnly(t *testing.T) {
	svc, _, _ := newTestService(t, config.BookingConfig{})
	req := validRequest()
	req.Email = ""

	b, err := svc.CreateBooking(context.Background(), req)
	require.NoError(t, err)
	assert.Empty(t, b.Email)
}

func TestCreateBookingRejectsPastDate(t *testing.T) {
	svc, _, _ := newTestService(t, config.BookingConfig{})
	req := validRequest()
	req.Date = "2030-01-01"
	req.Time = "08:30"

	_, err := svc.CreateBooking(context.Background(), req)
	assert.ErrorIs(t, err, entities.ErrDateInPast)

	allowing, _, _ := newTestService(t, config.BookingConfig{AllowPastDates: true})
	_, err = allowing.CreateBooking(context.Background(), req)
	assert.NoError(t, err)
}

func TestCreateBookingRejectsTakenSlot(t *testing.T) {
	svc, _, _ := newTestService(t, config.BookingConfig{})
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	other := validRequest()
	other.Name = "Bea"
	other.Time = "17:00"
	_, err = svc.CreateBooking(ctx, other)
	assert.ErrorIs(t, err, entities.ErrSlotTaken)

	other.Time = "18:00"
	_, err = svc.CreateBooking(ctx, other)
	assert.NoError(t, err)
}

func TestCreateBookingAllowsDoubleBookingWhenConfigured(t *testing.T) {
	svc, _, _ := newTestService(t, config.BookingConfig{AllowDoubleBooking: true})
	ctx := context.Background()

	_, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)
	_, err = svc.CreateBooking(ctx, validRequest())
	assert.NoError(t, err)
}

func TestCancelledBookingReleasesSlot(t *testing.T) {
	svc, queue, _ := newTestService(t, config.BookingConfig{})
	ctx := context.Background()

	first, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	cancelled := entities.BookingStatusCancelled
	_, err = svc.UpdateBooking(ctx, first.ID, ports.UpdateBookingRequest{Status: &cancelled})
	require.NoError(t, err)

	second, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	// Re-activating the first booking would now collide.
	pending := entities.BookingStatusPending
	_, err = svc.UpdateBooking(ctx, first.ID, ports.UpdateBookingRequest{Status: &pending})
	assert.ErrorIs(t, err, entities.ErrSlotTaken)

	assert.Equal(t, []ports.NotificationEvent{
		ports.EventBookingCreated,
		ports.EventBookingCancelled,
		ports.EventBookingCreated,
	}, queue.events())
	assert.NotEqual(t, first.ID, second.ID)
}

func TestUpdateBooking(t *testing.T) {
	svc, queue, _ := newTestService(t, config.BookingConfig{})
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	confirmed := entities.BookingStatusConfirmed
	updated, err := svc.UpdateBooking(ctx, b.ID, ports.UpdateBookingRequest{
		Time:      strPtr("9:30"),
		Placement: strPtr(" forearm "),
		Status:    &confirmed,
	})
	require.NoError(t, err)

	assert.Equal(t, "09:30", updated.Time)
	assert.Equal(t, "forearm", updated.Placement)
	assert.Equal(t, entities.BookingStatusConfirmed, updated.Status)
	assert.Equal(t, b.Name, updated.Name)
	assert.Equal(t, ports.EventBookingUpdated, queue.events()[1])
}

func TestUpdateBookingErrors(t *testing.T) {
	svc, _, _ := newTestService(t, config.BookingConfig{})
	ctx := context.Background()

	_, err := svc.UpdateBooking(ctx, uuid.New(), ports.UpdateBookingRequest{Name: strPtr("Bea")})
	assert.ErrorIs(t, err, entities.ErrBookingNotFound)

	b, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	_, err = svc.UpdateBooking(ctx, b.ID, ports.UpdateBookingRequest{Email: strPtr("nope")})
	assert.ErrorIs(t, err, entities.ErrInvalidBooking)

	archived := entities.BookingStatus("archived")
	_, err = svc.UpdateBooking(ctx, b.ID, ports.UpdateBookingRequest{Status: &archived})
	assert.ErrorIs(t, err, entities.ErrInvalidBooking)

	_, err = svc.UpdateBooking(ctx, b.ID, ports.UpdateBookingRequest{Date: strPtr("2029-12-31")})
	assert.ErrorIs(t, err, entities.ErrDateInPast)

	// A failed update leaves the stored booking untouched.
	stored, err := svc.GetBooking(ctx, b.ID)
	require.NoError(t, err)
	assert.Equal(t, "ana@example.com", stored.Email)
	assert.Equal(t, "2030-02-10", stored.Date)
}

func TestDeleteBooking(t *testing.T) {
	svc, queue, rec := newTestService(t, config.BookingConfig{})
	ctx := context.Background()

	b, err := svc.CreateBooking(ctx, validRequest())
	require.NoError(t, err)

	require.NoError(t, svc.DeleteBooking(ctx, b.ID))
	assert.ErrorIs(t, svc.DeleteBooking(ctx, b.ID), entities.ErrBookingNotFound)

	_, err = svc.GetBooking(ctx, b.ID)
	assert.ErrorIs(t, err, entities.ErrBookingNotFound)
	assert.Equal(t, 1, rec.deleted)
	assert.Equal(t, ports.EventBookingDeleted, queue.events()[1])
}

func TestListBookings(t *testing.T) {
	svc, _, _ := newTestService(t, config.BookingConfig{})
	ctx := context.Background()

	for _, tm := range []string{"10:00", "12:00", "14:00"} {
		req := validRequest()
		req.Time = tm
		_, err := svc.CreateBooking(ctx, req)
		require.NoError(t, err)
	}

	page, total, err := svc.ListBookings(ctx, ports.BookingFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, page, 2)
	assert.Equal(t, int64(3), total)
	assert.Equal(t, "10:00", page[0].Time)

	bogus := entities.BookingStatus("archived")
	_, _, err = svc.ListBookings(ctx, ports.BookingFilter{Status: &bogus})
	assert.ErrorIs(t, err, entities.ErrInvalidBooking)
}

func TestCreateBookingWithoutQueue(t *testing.T) {
	svc := NewBookingService(repository.NewMemoryRepository(), nil, nil, config.BookingConfig{AllowPastDates: true}, logger.NewNop())

	_, err := svc.CreateBooking(context.Background(), validRequest())
	assert.NoError(t, err)
}

func TestIsClientError(t *testing.T) {
	assert.True(t, IsClientError(entities.ErrSlotTaken))
	assert.True(t, IsClientError(newValidationError("name", "is required")))
	assert.False(t, IsClientError(context.DeadlineExceeded))
}
