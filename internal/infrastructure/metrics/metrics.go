package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private registry with the HTTP and booking collectors.
type Metrics struct {
	Registry        *prometheus.Registry
	RequestsTotal   *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec
	BookingsCreated prometheus.Counter
	BookingsDeleted prometheus.Counter
	Notifications   *prometheus.CounterVec
	NotifyDropped   prometheus.Counter
}

// New registers all collectors on a fresh registry.
func New() *Metrics {
	registry := prometheus.NewRegistry()

	m := &Metrics{
		Registry: registry,
		RequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "http_requests_total",
				Help: "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		RequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "http_request_duration_seconds",
				Help:    "HTTP request duration in seconds",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		BookingsCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookings_created_total",
			Help: "Bookings accepted",
		}),
		BookingsDeleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "bookings_deleted_total",
			Help: "Bookings removed",
		}),
		Notifications: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifications_total",
				Help: "Owner notifications by channel and result",
			},
			[]string{"channel", "result"},
		),
		NotifyDropped: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "notifications_dropped_total",
			Help: "Notifications dropped because the queue was full",
		}),
	}

	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		m.RequestsTotal,
		m.RequestDuration,
		m.BookingsCreated,
		m.BookingsDeleted,
		m.Notifications,
		m.NotifyDropped,
	)

	return m
}

// Handler exposes the registry for scraping.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.Registry, promhttp.HandlerOpts{})
}

func (m *Metrics) BookingCreated() { m.BookingsCreated.Inc() }

func (m *Metrics) BookingDeleted() { m.BookingsDeleted.Inc() }

func (m *Metrics) ObserveNotification(channel string, err error) {
	result := "sent"
	if err != nil {
		result = "failed"
	}
	m.Notifications.WithLabelValues(channel, result).Inc()
}

func (m *Metrics) NotificationDropped() { m.NotifyDropped.Inc() }
