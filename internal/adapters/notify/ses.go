package notify

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/ses"
	"github.com/aws/aws-sdk-go-v2/service/ses/types"

	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/ports"
)

// sesAPI is the part of the SES client the notifier uses.
type sesAPI interface {
	SendEmail(ctx context.Context, params *ses.SendEmailInput, optFns ...func(*ses.Options)) (*ses.SendEmailOutput, error)
}

// SESNotifier emails the owner through AWS SES
type SESNotifier struct {
	client sesAPI
	from   string
	to     []string
}

// NewSESNotifier loads the default AWS credential chain for the region.
func NewSESNotifier(cfg config.SESConfig) (*SESNotifier, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	awsCfg, err := awsconfig.LoadDefaultConfig(ctx, awsconfig.WithRegion(cfg.Region))
	if err != nil {
		return nil, fmt.Errorf("failed to load AWS config: %w", err)
	}

	return newSESNotifier(ses.NewFromConfig(awsCfg), cfg), nil
}

func newSESNotifier(client sesAPI, cfg config.SESConfig) *SESNotifier {
	from := cfg.From
	if cfg.FromName != "" {
		from = fmt.Sprintf("%s <%s>", cfg.FromName, cfg.From)
	}
	return &SESNotifier{client: client, from: from, to: splitAddresses(cfg.To)}
}

func (n *SESNotifier) Name() string { return "ses" }

func (n *SESNotifier) Notify(ctx context.Context, note ports.Notification) error {
	text := TextBody(note)

	input := &ses.SendEmailInput{
		Source: aws.String(n.from),
		Destination: &types.Destination{
			ToAddresses: n.to,
		},
		Message: &types.Message{
			Subject: &types.Content{
				Data:    aws.String(Subject(note)),
				Charset: aws.String("UTF-8"),
			},
			Body: &types.Body{
				Html: &types.Content{
					Data:    aws.String(htmlBody(text)),
					Charset: aws.String("UTF-8"),
				},
				Text: &types.Content{
					Data:    aws.String(text),
					Charset: aws.String("UTF-8"),
				},
			},
		},
	}
	if note.Booking.Email != "" {
		input.ReplyToAddresses = []string{note.Booking.Email}
	}

	if _, err := n.client.SendEmail(ctx, input); err != nil {
		return fmt.Errorf("failed to send booking email: %w", err)
	}
	return nil
}

func htmlBody(text string) string {
	var sb strings.Builder
	sb.WriteString(`<!DOCTYPE html><html><head><meta charset="UTF-8"></head>`)
	sb.WriteString(`<body style="font-family: -apple-system, BlinkMacSystemFont, 'Segoe UI', Roboto, sans-serif; color: #222;">`)
	sb.WriteString(`<pre style="font-family: inherit; white-space: pre-wrap;">`)
	sb.WriteString(html.EscapeString(text))
	sb.WriteString(`</pre></body></html>`)
	return sb.String()
}
