package notify

import (
	"context"
	"sync"
	"time"

	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/ports"
)

// Dispatcher delivers notifications on background workers so request
// handlers never wait on a mail relay. Delivery failures are logged only.
type Dispatcher struct {
	notifier ports.Notifier
	timeout  time.Duration
	recorder Recorder
	logger   *logger.Logger

	mu     sync.RWMutex
	closed bool
	queue  chan ports.Notification
	wg     sync.WaitGroup
}

// NewDispatcher starts workers goroutines draining a queue of queueSize.
func NewDispatcher(notifier ports.Notifier, workers, queueSize int, timeout time.Duration, recorder Recorder, log *logger.Logger) *Dispatcher {
	if workers < 1 {
		workers = 1
	}
	if queueSize < 1 {
		queueSize = 1
	}
	if recorder == nil {
		recorder = nopRecorder{}
	}

	d := &Dispatcher{
		notifier: notifier,
		timeout:  timeout,
		recorder: recorder,
		logger:   log.WithComponent("notify"),
		queue:    make(chan ports.Notification, queueSize),
	}

	d.wg.Add(workers)
	for i := 0; i < workers; i++ {
		go d.work()
	}

	return d
}

// Enqueue hands n to the workers. It returns false, without blocking, when
// the queue is full or the dispatcher is closed.
func (d *Dispatcher) Enqueue(n ports.Notification) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.closed {
		return false
	}

	select {
	case d.queue <- n:
		return true
	default:
		d.recorder.NotificationDropped()
		d.logger.Warnw("Notification queue full, dropping notification",
			"event", n.Event,
			"booking_id", n.Booking.ID.String(),
		)
		return false
	}
}

// Close stops accepting notifications and waits for queued ones to be
// delivered or for ctx to end.
func (d *Dispatcher) Close(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (d *Dispatcher) work() {
	defer d.wg.Done()

	for n := range d.queue {
		d.deliver(n)
	}
}

func (d *Dispatcher) deliver(n ports.Notification) {
	ctx := context.Background()
	if d.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, d.timeout)
		defer cancel()
	}

	start := time.Now()
	if err := d.notifier.Notify(ctx, n); err != nil {
		d.logger.Errorw("Notification delivery failed",
			"event", n.Event,
			"booking_id", n.Booking.ID.String(),
			"channels", d.notifier.Name(),
			"error", err.Error(),
		)
		return
	}

	d.logger.Debugw("Notification delivered",
		"event", n.Event,
		"booking_id", n.Booking.ID.String(),
		"channels", d.notifier.Name(),
		"duration_ms", float64(time.Since(start).Microseconds())/1000,
	)
}
