package notify

import (
	"fmt"

	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/ports"
)

// FromConfig builds the fan-out notifier for the configured channels.
// An empty channel list falls back to the log channel.
func FromConfig(cfg config.NotifyConfig, recorder Recorder, log *logger.Logger) (*Multi, error) {
	channels := cfg.ChannelList()
	if len(channels) == 0 {
		channels = []string{"log"}
	}

	var notifiers []ports.Notifier
	for _, ch := range channels {
		switch ch {
		case "log":
			notifiers = append(notifiers, NewLogNotifier(log))
		case "formspree":
			notifiers = append(notifiers, NewFormspreeNotifier(cfg.Formspree.URL(), cfg.Timeout))
		case "smtp", "email":
			n, err := NewSMTPNotifier(cfg.SMTP)
			if err != nil {
				return nil, err
			}
			notifiers = append(notifiers, n)
		case "ses":
			n, err := NewSESNotifier(cfg.SES)
			if err != nil {
				return nil, err
			}
			notifiers = append(notifiers, n)
		default:
			return nil, fmt.Errorf("unknown notification channel %q", ch)
		}
	}

	return NewMulti(recorder, notifiers...), nil
}
