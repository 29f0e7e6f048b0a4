package entities

import (
	"errors"
	"regexp"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Common errors
var (
	ErrBookingNotFound = errors.New("booking not found")
	ErrSlotTaken       = errors.New("time slot already booked")
	ErrDateInPast      = errors.New("booking date cannot be in the past")
	ErrInvalidBooking  = errors.New("invalid booking")
	ErrUnauthorized    = errors.New("unauthorized")
)

// Wire formats for the date and time fields.
const (
	DateLayout = "2006-01-02"
	TimeLayout = "15:04"
)

type BookingStatus string

const (
	BookingStatusPending   BookingStatus = "pending"
	BookingStatusConfirmed BookingStatus = "confirmed"
	BookingStatusCancelled BookingStatus = "cancelled"
	BookingStatusCompleted BookingStatus = "completed"
)

// Valid reports whether s is a known status.
func (s BookingStatus) Valid() bool {
	switch s {
	case BookingStatusPending, BookingStatusConfirmed, BookingStatusCancelled, BookingStatusCompleted:
		return true
	}
	return false
}

// Booking is a single appointment request for the studio.
type Booking struct {
	ID          uuid.UUID     `json:"id" db:"id"`
	Name        string        `json:"name" db:"name"`
	Email       string        `json:"email,omitempty" db:"email"`
	Phone       string        `json:"phone,omitempty" db:"phone"`
	Date        string        `json:"date" db:"date"`
	Time        string        `json:"time" db:"time"`
	Style       string        `json:"style,omitempty" db:"style"`
	Placement   string        `json:"placement,omitempty" db:"placement"`
	Size        string        `json:"size,omitempty" db:"size"`
	Description string        `json:"description,omitempty" db:"description"`
	Status      BookingStatus `json:"status" db:"status"`
	CreatedAt   time.Time     `json:"created_at" db:"created_at"`
	UpdatedAt   time.Time     `json:"updated_at" db:"updated_at"`
}

var (
	whitespace = regexp.MustCompile(`\s+`)
	phoneNoise = strings.NewReplacer(" ", "", "-", "", ".", "", "(", "", ")", "")
)

// Normalize cleans user input in place. Unparseable dates and times are
// left as typed so validation can report them.
func (b *Booking) Normalize() {
	b.Name = whitespace.ReplaceAllString(strings.TrimSpace(b.Name), " ")
	b.Email = strings.ToLower(strings.TrimSpace(b.Email))
	b.Phone = phoneNoise.Replace(strings.TrimSpace(b.Phone))
	b.Style = strings.TrimSpace(b.Style)
	b.Placement = strings.TrimSpace(b.Placement)
	b.Size = strings.TrimSpace(b.Size)
	b.Description = strings.TrimSpace(b.Description)

	b.Date = strings.TrimSpace(b.Date)
	if d, err := parseDate(b.Date); err == nil {
		b.Date = d.Format(DateLayout)
	}

	b.Time = strings.TrimSpace(b.Time)
	if t, err := time.Parse(TimeLayout, b.Time); err == nil {
		b.Time = t.Format(TimeLayout)
	} else if t, err := time.Parse("15:4", b.Time); err == nil {
		b.Time = t.Format(TimeLayout)
	}

	b.Status = BookingStatus(strings.ToLower(strings.TrimSpace(string(b.Status))))
	if b.Status == "" {
		b.Status = BookingStatusPending
	}
}

// parseDate accepts the wire format plus the full timestamp some front ends
// send from date pickers.
func parseDate(s string) (time.Time, error) {
	if d, err := time.Parse(DateLayout, s); err == nil {
		return d, nil
	}
	return time.Parse(time.RFC3339, s)
}

// Slot identifies the appointment time for double-booking checks.
func (b *Booking) Slot() string {
	return b.Date + " " + b.Time
}

// StartsAt returns the appointment start in the studio time zone.
func (b *Booking) StartsAt(loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout+" "+TimeLayout, b.Slot(), loc)
}

// Active reports whether the booking still holds its slot.
func (b *Booking) Active() bool {
	return b.Status != BookingStatusCancelled
}

// Clone returns a copy safe to hand out of a store.
func (b *Booking) Clone() *Booking {
	c := *b
	return &c
}
