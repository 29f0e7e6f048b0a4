package ports

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/inkbook/studio/internal/domain/entities"
)

// BookingService defines the booking use cases exposed to transports
type BookingService interface {
	CreateBooking(ctx context.Context, req CreateBookingRequest) (*entities.Booking, error)
	GetBooking(ctx context.Context, id uuid.UUID) (*entities.Booking, error)
	ListBookings(ctx context.Context, filter BookingFilter) ([]*entities.Booking, int64, error)
	UpdateBooking(ctx context.Context, id uuid.UUID, req UpdateBookingRequest) (*entities.Booking, error)
	DeleteBooking(ctx context.Context, id uuid.UUID) error
}

// AuthService defines the owner login contract
type AuthService interface {
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	ValidateToken(tokenString string) (*Claims, error)
}

// Notifier delivers booking events to the studio owner
type Notifier interface {
	Name() string
	Notify(ctx context.Context, n Notification) error
}

// NotificationEvent names what happened to a booking.
type NotificationEvent string

const (
	EventBookingCreated   NotificationEvent = "booking.created"
	EventBookingUpdated   NotificationEvent = "booking.updated"
	EventBookingCancelled NotificationEvent = "booking.cancelled"
	EventBookingDeleted   NotificationEvent = "booking.deleted"
)

// Notification is a booking event addressed to the owner.
type Notification struct {
	Event      NotificationEvent `json:"event"`
	Booking    entities.Booking  `json:"booking"`
	OccurredAt time.Time         `json:"occurred_at"`
}

// NotificationQueue accepts notifications for asynchronous delivery.
type NotificationQueue interface {
	Enqueue(n Notification) bool
}

// Request/Response DTOs

// CreateBookingRequest is the public booking form payload.
type CreateBookingRequest struct {
	Name        string `json:"name" validate:"required,min=2,max=100"`
	Email       string `json:"email" validate:"required_without=Phone,omitempty,email,max=254"`
	Phone       string `json:"phone" validate:"required_without=Email,omitempty,phone"`
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	Time        string `json:"time" validate:"required,datetime=15:04"`
	Style       string `json:"style" validate:"max=100"`
	Placement   string `json:"placement" validate:"max=100"`
	Size        string `json:"size" validate:"max=50"`
	Description string `json:"description" validate:"max=2000"`
}

// UpdateBookingRequest carries a partial update; nil fields are untouched.
type UpdateBookingRequest struct {
	Name        *string                 `json:"name,omitempty"`
	Email       *string                 `json:"email,omitempty"`
	Phone       *string                 `json:"phone,omitempty"`
	Date        *string                 `json:"date,omitempty"`
	Time        *string                 `json:"time,omitempty"`
	Style       *string                 `json:"style,omitempty"`
	Placement   *string                 `json:"placement,omitempty"`
	Size        *string                 `json:"size,omitempty"`
	Description *string                 `json:"description,omitempty"`
	Status      *entities.BookingStatus `json:"status,omitempty"`
}

type LoginRequest struct {
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	AccessToken string    `json:"access_token"`
	TokenType   string    `json:"token_type"`
	ExpiresIn   int64     `json:"expires_in"`
	ExpiresAt   time.Time `json:"expires_at"`
}

type Claims struct {
	Subject string `json:"sub"`
	Role    string `json:"role"`
}
