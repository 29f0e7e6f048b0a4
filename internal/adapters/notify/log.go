package notify

import (
	"context"

	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/ports"
)

// LogNotifier writes notifications to the application log. It is the
// default channel when nothing else is configured.
type LogNotifier struct {
	logger *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	return &LogNotifier{logger: log.WithComponent("notify.log")}
}

func (n *LogNotifier) Name() string { return "log" }

func (n *LogNotifier) Notify(ctx context.Context, note ports.Notification) error {
	n.logger.Infow("Booking notification",
		"event", note.Event,
		"booking_id", note.Booking.ID.String(),
		"name", note.Booking.Name,
		"slot", note.Booking.Slot(),
	)
	return nil
}
