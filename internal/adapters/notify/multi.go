package notify

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/inkbook/studio/internal/ports"
)

// Multi sends each notification to every channel at once. A failing
// channel does not stop the others; their errors are joined.
type Multi struct {
	notifiers []ports.Notifier
	recorder  Recorder
}

func NewMulti(recorder Recorder, notifiers ...ports.Notifier) *Multi {
	if recorder == nil {
		recorder = nopRecorder{}
	}
	return &Multi{notifiers: notifiers, recorder: recorder}
}

func (m *Multi) Name() string {
	names := make([]string, len(m.notifiers))
	for i, n := range m.notifiers {
		names[i] = n.Name()
	}
	return strings.Join(names, ",")
}

func (m *Multi) Notify(ctx context.Context, note ports.Notification) error {
	errs := make([]error, len(m.notifiers))

	var g errgroup.Group
	for i, n := range m.notifiers {
		g.Go(func() error {
			err := n.Notify(ctx, note)
			m.recorder.ObserveNotification(n.Name(), err)
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", n.Name(), err)
			}
			return nil
		})
	}
	_ = g.Wait()

	return errors.Join(errs...)
}
