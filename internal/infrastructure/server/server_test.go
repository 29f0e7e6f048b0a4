package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	httpHandlers "github.com/inkbook/studio/internal/adapters/http"
	"github.com/inkbook/studio/internal/adapters/repository"
	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/ports"
)

type captureNotifier struct {
	mu     sync.Mutex
	events []ports.NotificationEvent
}

func (n *captureNotifier) Name() string { return "capture" }

func (n *captureNotifier) Notify(ctx context.Context, note ports.Notification) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, note.Event)
	return nil
}

func (n *captureNotifier) seen() []ports.NotificationEvent {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]ports.NotificationEvent(nil), n.events...)
}

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	return &config.Config{
		App:     config.AppConfig{Name: "InkBook", Version: "test", Environment: "test"},
		Storage: config.StorageConfig{Driver: config.DriverMemory},
		JWT: config.JWTConfig{
			Secret:    "0123456789abcdef0123456789abcdef",
			ExpiresIn: time.Hour,
			Issuer:    "inkbook-test",
		},
		Security: config.SecurityConfig{
			CORSAllowedOrigins: "*",
			BodyLimit:          "4K",
		},
		Static:  config.StaticConfig{Dir: t.TempDir()},
		Booking: config.BookingConfig{Timezone: "UTC"},
		Notify: config.NotifyConfig{
			Channels:  "log",
			Timeout:   time.Second,
			QueueSize: 16,
			Workers:   1,
		},
		Metrics: config.MetricsConfig{Enabled: true},
	}
}

func newTestServer(t *testing.T, cfg *config.Config) (*Server, *captureNotifier) {
	t.Helper()
	notifier := &captureNotifier{}
	srv, err := New(cfg, repository.NewMemoryRepository(), logger.NewNop(), WithNotifier(notifier))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv, notifier
}

func futureDate() string {
	return time.Now().UTC().AddDate(0, 1, 0).Format("2006-01-02")
}

func bookingJSON(name, date, tm string) string {
	body, _ := json.Marshal(map[string]string{
		"name":        name,
		"email":       "client@example.com",
		"date":        date,
		"time":        tm,
		"style":       "blackwork",
		"description": "Small moth on the wrist",
	})
	return string(body)
}

func do(srv *Server, method, target, body string, header http.Header) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	for k, v := range header {
		req.Header[k] = v
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func TestCreateAndListBookings(t *testing.T) {
	srv, notifier := newTestServer(t, testConfig(t))

	rec := do(srv, http.MethodPost, "/api/bookings", bookingJSON("Ana López", futureDate(), "17:00"), nil)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Status  string `json:"status"`
		Booking struct {
			ID     uuid.UUID `json:"id"`
			Name   string    `json:"name"`
			Status string    `json:"status"`
		} `json:"booking"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	assert.Equal(t, "ok", created.Status)
	assert.NotEqual(t, uuid.Nil, created.Booking.ID)
	assert.Equal(t, "pending", created.Booking.Status)

	rec = do(srv, http.MethodGet, "/api/bookings", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "1", rec.Header().Get(httpHandlers.TotalCountHeader))

	var listed []map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	assert.Equal(t, "Ana López", listed[0]["name"])

	rec = do(srv, http.MethodGet, "/api/bookings/"+created.Booking.ID.String(), "", nil)
	assert.Equal(t, http.StatusOK, rec.Code)

	assert.Eventually(t, func() bool {
		return len(notifier.seen()) == 1 && notifier.seen()[0] == ports.EventBookingCreated
	}, time.Second, 10*time.Millisecond)
}

func TestCreateBookingRejectsBadInput(t *testing.T) {
	srv, notifier := newTestServer(t, testConfig(t))

	rec := do(srv, http.MethodPost, "/api/bookings", bookingJSON("", futureDate(), "17:00"), nil)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	var resp httpHandlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Contains(t, resp.Fields, "name")

	rec = do(srv, http.MethodPost, "/api/bookings", `{"name":`, nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(srv, http.MethodPost, "/api/bookings", bookingJSON("Ana", "2001-01-01", "17:00"), nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Empty(t, notifier.seen())
}

func TestCreateBookingBodyLimit(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	body, _ := json.Marshal(map[string]string{
		"name":        "Ana",
		"email":       "ana@example.com",
		"date":        futureDate(),
		"time":        "10:00",
		"description": strings.Repeat("x", 8*1024),
	})

	rec := do(srv, http.MethodPost, "/api/bookings", string(body), nil)
	assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
}

func TestCreateBookingSlotConflict(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))
	date := futureDate()

	rec := do(srv, http.MethodPost, "/api/bookings", bookingJSON("Ana", date, "12:00"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = do(srv, http.MethodPost, "/api/bookings", bookingJSON("Bea", date, "12:00"), nil)
	assert.Equal(t, http.StatusConflict, rec.Code)
}

func TestUpdateAndDeleteBooking(t *testing.T) {
	srv, notifier := newTestServer(t, testConfig(t))

	rec := do(srv, http.MethodPost, "/api/bookings", bookingJSON("Ana", futureDate(), "12:00"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	var created httpHandlers.StatusResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	id := created.Booking.ID.String()

	rec = do(srv, http.MethodPut, "/api/bookings/"+id, `{"status":"confirmed","placement":"forearm"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Contains(t, rec.Body.String(), `"confirmed"`)

	rec = do(srv, http.MethodDelete, "/api/bookings/"+id, "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rec.Body.String())

	rec = do(srv, http.MethodDelete, "/api/bookings/"+id, "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(srv, http.MethodDelete, "/api/bookings/not-a-uuid", "", nil)
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	assert.Eventually(t, func() bool {
		return len(notifier.seen()) == 3
	}, time.Second, 10*time.Millisecond)
	assert.Equal(t, []ports.NotificationEvent{
		ports.EventBookingCreated,
		ports.EventBookingUpdated,
		ports.EventBookingDeleted,
	}, notifier.seen())
}

func TestListBookingsRejectsBadPaging(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/api/bookings?limit=0", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/api/bookings?offset=-1", "", nil).Code)
	assert.Equal(t, http.StatusBadRequest, do(srv, http.MethodGet, "/api/bookings?status=archived", "", nil).Code)
}

func TestOwnerRoutesRequireTokenWhenAuthEnabled(t *testing.T) {
	cfg := testConfig(t)
	cfg.Auth = config.AuthConfig{Enabled: true, AdminPassword: "tattoo-time"}
	srv, _ := newTestServer(t, cfg)

	// The public form keeps working without a token.
	rec := do(srv, http.MethodPost, "/api/bookings", bookingJSON("Ana", futureDate(), "12:00"), nil)
	require.Equal(t, http.StatusCreated, rec.Code)

	assert.Equal(t, http.StatusUnauthorized, do(srv, http.MethodGet, "/api/bookings", "", nil).Code)
	assert.Equal(t, http.StatusUnauthorized, do(srv, http.MethodGet, "/api/bookings", "", http.Header{
		"Authorization": {"Bearer nope"},
	}).Code)

	rec = do(srv, http.MethodPost, "/api/auth/login", `{"password":"wrong"}`, nil)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)

	rec = do(srv, http.MethodPost, "/api/auth/login", `{"password":"tattoo-time"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var auth ports.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))
	require.NotEmpty(t, auth.AccessToken)

	rec = do(srv, http.MethodGet, "/api/bookings", "", http.Header{
		"Authorization": {"Bearer " + auth.AccessToken},
	})
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestLoginRouteAbsentWhenAuthDisabled(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	rec := do(srv, http.MethodPost, "/api/auth/login", `{"password":"x"}`, nil)
	assert.NotEqual(t, http.StatusOK, rec.Code)
}

func TestRateLimit(t *testing.T) {
	cfg := testConfig(t)
	cfg.Security.RateLimitRequests = 2
	cfg.Security.RateLimitWindow = time.Minute
	srv, _ := newTestServer(t, cfg)

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/bookings", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/api/bookings", "", nil).Code)
	assert.Equal(t, http.StatusTooManyRequests, do(srv, http.MethodGet, "/api/bookings", "", nil).Code)

	// Health checks sit outside the limited group.
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/health", "", nil).Code)
}

func TestServesFrontEnd(t *testing.T) {
	cfg := testConfig(t)
	require.NoError(t, os.WriteFile(filepath.Join(cfg.Static.Dir, "index.html"), []byte("<h1>Book a session</h1>"), 0o644))
	srv, _ := newTestServer(t, cfg)

	rec := do(srv, http.MethodGet, "/", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "Book a session")

	rec = do(srv, http.MethodGet, "/missing.js", "", nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestHealthAndMetrics(t *testing.T) {
	srv, _ := newTestServer(t, testConfig(t))

	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/health", "", nil).Code)
	assert.Equal(t, http.StatusOK, do(srv, http.MethodGet, "/ready", "", nil).Code)

	rec := do(srv, http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"driver":"memory"`)

	require.Equal(t, http.StatusCreated,
		do(srv, http.MethodPost, "/api/bookings", bookingJSON("Ana", futureDate(), "09:00"), nil).Code)

	rec = do(srv, http.MethodGet, "/metrics", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "bookings_created_total 1")
	assert.Contains(t, rec.Body.String(), `http_requests_total{method="POST",path="/api/bookings",status="201"} 1`)
}

func TestOpenStore(t *testing.T) {
	cfg := testConfig(t)

	store, err := OpenStore(cfg, false, logger.NewNop())
	require.NoError(t, err)
	assert.NoError(t, store.Ping(context.Background()))
	assert.Nil(t, store.PoolStats())
	assert.NoError(t, store.Close())

	cfg.Storage = config.StorageConfig{Driver: config.DriverJSON, File: filepath.Join(t.TempDir(), "bookings.json")}
	store, err = OpenStore(cfg, false, logger.NewNop())
	require.NoError(t, err)
	assert.FileExists(t, cfg.Storage.File)
	assert.NoError(t, store.Close())

	cfg.Storage.Driver = "sqlite"
	_, err = OpenStore(cfg, false, logger.NewNop())
	assert.Error(t, err)
}

// brokenStore fails every read and reports a fixed connection pool.
type brokenStore struct {
	ports.BookingRepository
	err error
}

func (s *brokenStore) List(context.Context, ports.BookingFilter) ([]*entities.Booking, error) {
	return nil, s.err
}

func (s *brokenStore) Ping(context.Context) error { return s.err }

func (s *brokenStore) PoolStats() map[string]interface{} {
	return map[string]interface{}{"open_connections": 3, "in_use": 1}
}

func newBrokenServer(t *testing.T, environment string) *Server {
	t.Helper()
	cfg := testConfig(t)
	cfg.App.Environment = environment
	store := &brokenStore{
		BookingRepository: repository.NewMemoryRepository(),
		err:               errors.New("connection refused by 10.0.0.7"),
	}
	srv, err := New(cfg, store, logger.NewNop(), WithNotifier(&captureNotifier{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})
	return srv
}

func TestInternalErrorDetailsOnlyInDevelopment(t *testing.T) {
	rec := do(newBrokenServer(t, "development"), http.MethodGet, "/api/bookings", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body httpHandlers.ErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "Internal server error", body.Error)
	assert.Contains(t, body.Details, "connection refused")

	rec = do(newBrokenServer(t, "production"), http.MethodGet, "/api/bookings", "", nil)
	require.Equal(t, http.StatusInternalServerError, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.NotContains(t, rec.Body.String(), "details")
}

func TestDetailedHealthReportsPoolAndHidesErrorsInProduction(t *testing.T) {
	rec := do(newBrokenServer(t, "development"), http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), `"open_connections":3`)

	rec = do(newBrokenServer(t, "production"), http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.NotContains(t, rec.Body.String(), "connection refused")
	assert.Contains(t, rec.Body.String(), `"in_use":1`)

	srv, _ := newTestServer(t, testConfig(t))
	rec = do(srv, http.MethodGet, "/health/detailed", "", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.NotContains(t, rec.Body.String(), "pool")
}

func TestRequestLogCarriesRequestIDAndSubject(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	cfg := testConfig(t)
	cfg.Auth = config.AuthConfig{Enabled: true, AdminPassword: "tattoo-time"}
	srv, err := New(cfg, repository.NewMemoryRepository(), &logger.Logger{SugaredLogger: zap.New(core).Sugar()}, WithNotifier(&captureNotifier{}))
	require.NoError(t, err)
	t.Cleanup(func() {
		ctx, cancel := context.WithTimeout(context.Background(), time.Second)
		defer cancel()
		_ = srv.Shutdown(ctx)
	})

	rec := do(srv, http.MethodPost, "/api/auth/login", `{"password":"tattoo-time"}`, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var auth ports.AuthResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &auth))

	rec = do(srv, http.MethodGet, "/api/bookings", "", http.Header{
		"Authorization": {"Bearer " + auth.AccessToken},
	})
	require.Equal(t, http.StatusOK, rec.Code)

	var found bool
	for _, entry := range logs.FilterMessage("HTTP request").All() {
		fields := entry.ContextMap()
		if fields["path"] != "/api/bookings" {
			continue
		}
		found = true
		assert.Equal(t, rec.Header().Get(echo.HeaderXRequestID), fields["request_id"])
		assert.NotEmpty(t, fields["subject"])
		assert.EqualValues(t, http.StatusOK, fields["status_code"])
	}
	assert.True(t, found)
}
