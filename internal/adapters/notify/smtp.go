package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/wneessen/go-mail"

	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/ports"
)

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTPNotifier emails the owner through an SMTP relay such as Gmail.
type SMTPNotifier struct {
	cfg    config.SMTPConfig
	sender mailSender
}

// NewSMTPNotifier builds a client for cfg. Port 465 uses implicit TLS,
// every other port requires STARTTLS.
func NewSMTPNotifier(cfg config.SMTPConfig) (*SMTPNotifier, error) {
	opts := []mail.Option{
		mail.WithPort(cfg.Port),
		mail.WithTLSPolicy(mail.TLSMandatory),
	}
	if cfg.Port == 465 {
		opts = append(opts, mail.WithSSL())
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password),
		)
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("create smtp client: %w", err)
	}
	return newSMTPNotifier(client, cfg), nil
}

func newSMTPNotifier(sender mailSender, cfg config.SMTPConfig) *SMTPNotifier {
	if cfg.From == "" {
		cfg.From = cfg.Username
	}
	return &SMTPNotifier{cfg: cfg, sender: sender}
}

func (n *SMTPNotifier) Name() string { return "smtp" }

func (n *SMTPNotifier) Notify(ctx context.Context, note ports.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg, err := n.buildMessage(note)
	if err != nil {
		return err
	}

	if err := n.sender.DialAndSendWithContext(ctx, msg); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		return fmt.Errorf("send smtp mail: %w", err)
	}
	return nil
}

func (n *SMTPNotifier) buildMessage(note ports.Notification) (*mail.Msg, error) {
	msg := mail.NewMsg()
	if err := msg.From(n.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid smtp sender: %w", err)
	}
	if err := msg.To(splitAddresses(n.cfg.To)...); err != nil {
		return nil, fmt.Errorf("invalid smtp recipients: %w", err)
	}
	if replyTo := note.Booking.Email; replyTo != "" {
		if err := msg.ReplyTo(replyTo); err != nil {
			return nil, fmt.Errorf("invalid reply-to address: %w", err)
		}
	}
	msg.Subject(Subject(note))
	msg.SetDate()
	msg.SetBodyString(mail.TypeTextPlain, TextBody(note))
	return msg, nil
}

func splitAddresses(s string) []string {
	var out []string
	for _, addr := range strings.Split(s, ",") {
		if addr = strings.TrimSpace(addr); addr != "" {
			out = append(out, addr)
		}
	}
	return out
}
