package notify

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"

	"github.com/inkbook/studio/internal/ports"
)

// FormspreeNotifier relays bookings through a Formspree form, which emails
// the submission to the form owner.
type FormspreeNotifier struct {
	url    string
	client *resty.Client
}

// NewFormspreeNotifier posts to url, giving up after timeout.
func NewFormspreeNotifier(url string, timeout time.Duration) *FormspreeNotifier {
	client := resty.New().
		SetTimeout(timeout).
		SetHeader("Accept", "application/json")
	return &FormspreeNotifier{url: url, client: client}
}

func (n *FormspreeNotifier) Name() string { return "formspree" }

type formspreePayload struct {
	Subject     string `json:"_subject"`
	ReplyTo     string `json:"_replyto,omitempty"`
	Event       string `json:"event"`
	BookingID   string `json:"booking_id"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	Phone       string `json:"phone,omitempty"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	Style       string `json:"style,omitempty"`
	Placement   string `json:"placement,omitempty"`
	Size        string `json:"size,omitempty"`
	Description string `json:"message,omitempty"`
	Status      string `json:"status"`
}

func (n *FormspreeNotifier) Notify(ctx context.Context, note ports.Notification) error {
	b := note.Booking
	payload := formspreePayload{
		Subject:     Subject(note),
		ReplyTo:     b.Email,
		Event:       string(note.Event),
		BookingID:   b.ID.String(),
		Name:        b.Name,
		Email:       b.Email,
		Phone:       b.Phone,
		Date:        b.Date,
		Time:        b.Time,
		Style:       b.Style,
		Placement:   b.Placement,
		Size:        b.Size,
		Description: b.Description,
		Status:      string(b.Status),
	}

	resp, err := n.client.R().
		SetContext(ctx).
		SetHeader("Content-Type", "application/json").
		SetBody(payload).
		Post(n.url)
	if err != nil {
		return fmt.Errorf("send formspree request: %w", err)
	}

	if resp.IsError() {
		snippet := bytes.TrimSpace(resp.Body())
		if len(snippet) > 512 {
			snippet = snippet[:512]
		}
		return fmt.Errorf("formspree returned %d: %s", resp.StatusCode(), snippet)
	}

	return nil
}
