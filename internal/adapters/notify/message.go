// Package notify delivers booking events to the studio owner over the
// configured channels.
package notify

import (
	"fmt"
	"strings"

	"github.com/inkbook/studio/internal/ports"
)

// Recorder receives per-channel delivery results.
type Recorder interface {
	ObserveNotification(channel string, err error)
	NotificationDropped()
}

type nopRecorder struct{}

func (nopRecorder) ObserveNotification(string, error) {}
func (nopRecorder) NotificationDropped()              {}

var subjects = map[ports.NotificationEvent]string{
	ports.EventBookingCreated:   "New booking",
	ports.EventBookingUpdated:   "Booking updated",
	ports.EventBookingCancelled: "Booking cancelled",
	ports.EventBookingDeleted:   "Booking deleted",
}

// Subject is the one-line summary used by the email channels.
func Subject(n ports.Notification) string {
	prefix, ok := subjects[n.Event]
	if !ok {
		prefix = string(n.Event)
	}
	return fmt.Sprintf("%s: %s on %s at %s", prefix, n.Booking.Name, n.Booking.Date, n.Booking.Time)
}

// TextBody renders the booking as plain text.
func TextBody(n ports.Notification) string {
	b := n.Booking
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s\n\n", Subject(n))
	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(&sb, "%-12s %s\n", label+":", value)
		}
	}
	line("Name", b.Name)
	line("Email", b.Email)
	line("Phone", b.Phone)
	line("Date", b.Date)
	line("Time", b.Time)
	line("Style", b.Style)
	line("Placement", b.Placement)
	line("Size", b.Size)
	line("Status", string(b.Status))
	line("Booking ID", b.ID.String())
	if b.Description != "" {
		fmt.Fprintf(&sb, "\n%s\n", b.Description)
	}

	return sb.String()
}
