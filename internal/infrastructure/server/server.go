package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	echoSwagger "github.com/swaggo/echo-swagger"
	"golang.org/x/time/rate"

	_ "github.com/inkbook/studio/docs"
	httpHandlers "github.com/inkbook/studio/internal/adapters/http"
	"github.com/inkbook/studio/internal/adapters/notify"
	"github.com/inkbook/studio/internal/application/services"
	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/infrastructure/metrics"
	"github.com/inkbook/studio/internal/ports"
)

// Server represents the HTTP server
type Server struct {
	echo       *echo.Echo
	config     *config.Config
	logger     *logger.Logger
	store      ports.BookingRepository
	metrics    *metrics.Metrics
	dispatcher *notify.Dispatcher
	auth       *services.AuthService
	httpServer *http.Server
}

// CustomValidator wraps the validator
type CustomValidator struct {
	validator *validator.Validate
}

// Validate validates structs
func (cv *CustomValidator) Validate(i interface{}) error {
	return cv.validator.Struct(i)
}

// Option customizes a Server under construction.
type Option func(*serverOptions)

type serverOptions struct {
	notifier ports.Notifier
}

// WithNotifier replaces the notifier built from configuration.
func WithNotifier(n ports.Notifier) Option {
	return func(o *serverOptions) { o.notifier = n }
}

// New creates a new server instance over an opened booking store
func New(cfg *config.Config, store ports.BookingRepository, appLogger *logger.Logger, opts ...Option) (*Server, error) {
	var options serverOptions
	for _, opt := range opts {
		opt(&options)
	}

	e := echo.New()

	// Set custom validator
	e.Validator = &CustomValidator{validator: services.NewValidator()}

	// Configure Echo
	e.HideBanner = true
	e.HidePort = true
	e.Debug = cfg.App.Debug

	// Custom error handler
	e.HTTPErrorHandler = customErrorHandler(appLogger, cfg.App.IsDevelopment())

	server := &Server{
		echo:   e,
		config: cfg,
		logger: appLogger,
		store:  store,
	}

	var notifyRecorder notify.Recorder
	var bookingRecorder services.BookingRecorder
	if cfg.Metrics.Enabled {
		server.metrics = metrics.New()
		notifyRecorder = server.metrics
		bookingRecorder = server.metrics
	}

	// Initialize notifications
	notifier := options.notifier
	if notifier == nil {
		multi, err := notify.FromConfig(cfg.Notify, notifyRecorder, appLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure notifications: %w", err)
		}
		notifier = multi
	}
	server.dispatcher = notify.NewDispatcher(notifier, cfg.Notify.Workers, cfg.Notify.QueueSize, cfg.Notify.Timeout, notifyRecorder, appLogger)

	// Initialize services
	bookingService := services.NewBookingService(store, server.dispatcher, bookingRecorder, cfg.Booking, appLogger)
	if cfg.Auth.Enabled {
		authService, err := services.NewAuthService(cfg.Auth, cfg.JWT, appLogger)
		if err != nil {
			return nil, fmt.Errorf("failed to configure auth: %w", err)
		}
		server.auth = authService
	}

	// Initialize handlers
	bookingHandler := httpHandlers.NewBookingHandler(bookingService, appLogger)

	// Setup middleware
	server.setupMiddleware()

	// Setup metrics
	if server.metrics != nil {
		server.setupMetrics()
	}

	// Setup routes
	server.setupRoutes(bookingHandler)

	return server, nil
}

// setupMiddleware configures middleware
func (s *Server) setupMiddleware() {
	// Recovery middleware
	s.echo.Use(middleware.Recover())

	// Request ID middleware
	s.echo.Use(middleware.RequestID())

	// Logger middleware
	s.echo.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogURI:       true,
		LogStatus:    true,
		LogMethod:    true,
		LogLatency:   true,
		LogError:     true,
		LogRemoteIP:  true,
		LogUserAgent: true,
		LogRequestID: true,
		LogValuesFunc: func(c echo.Context, values middleware.RequestLoggerValues) error {
			reqLog := s.logger.WithRequestID(values.RequestID)
			if subject, ok := c.Get(ctxSubject).(string); ok && subject != "" {
				reqLog = reqLog.WithFields("subject", subject)
			}
			latency := float64(values.Latency.Nanoseconds()) / 1000000

			if values.Error != nil {
				reqLog.WithError(values.Error).Warnw("HTTP request failed",
					"method", values.Method,
					"uri", values.URI,
					"status", values.Status,
					"latency_ms", latency,
					"remote_ip", values.RemoteIP,
				)
				return nil
			}

			reqLog.LogHTTPRequest(values.Method, values.URI, values.UserAgent, values.RemoteIP, values.Status, latency)
			return nil
		},
	}))

	// CORS middleware
	s.echo.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins:  strings.Split(s.config.Security.CORSAllowedOrigins, ","),
		AllowHeaders:  []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, echo.HeaderAuthorization},
		AllowMethods:  []string{http.MethodGet, http.MethodHead, http.MethodPut, http.MethodPost, http.MethodDelete},
		ExposeHeaders: []string{httpHandlers.TotalCountHeader},
	}))

	// Payload size limit
	s.echo.Use(middleware.BodyLimit(s.config.Security.BodyLimit))

	// Security headers
	s.echo.Use(middleware.SecureWithConfig(middleware.SecureConfig{
		XSSProtection:         "1; mode=block",
		ContentTypeNosniff:    "nosniff",
		XFrameOptions:         "DENY",
		HSTSMaxAge:            31536000,
		ContentSecurityPolicy: "default-src 'self'; script-src 'self' 'unsafe-inline'; style-src 'self' 'unsafe-inline'; img-src 'self' data:",
	}))
}

// rateLimiter allows RateLimitRequests per RateLimitWindow for each client IP.
func (s *Server) rateLimiter() echo.MiddlewareFunc {
	requests := s.config.Security.RateLimitRequests
	window := s.config.Security.RateLimitWindow
	if requests <= 0 || window <= 0 {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}

	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: middleware.NewRateLimiterMemoryStoreWithConfig(
			middleware.RateLimiterMemoryStoreConfig{
				Rate:      rate.Every(window / time.Duration(requests)),
				Burst:     requests,
				ExpiresIn: 3 * window,
			},
		),
		IdentifierExtractor: func(ctx echo.Context) (string, error) {
			return ctx.RealIP(), nil
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return c.JSON(http.StatusForbidden, httpHandlers.ErrorResponse{Error: "rate limit exceeded"})
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return c.JSON(http.StatusTooManyRequests, httpHandlers.ErrorResponse{Error: "rate limit exceeded"})
		},
	})
}

// setupRoutes configures all routes
func (s *Server) setupRoutes(bookingHandler *httpHandlers.BookingHandler) {
	// Health check routes
	s.echo.GET("/health", s.healthCheck)
	s.echo.GET("/health/detailed", s.detailedHealthCheck)
	s.echo.GET("/ready", s.readinessCheck)

	// Swagger documentation
	s.echo.GET("/swagger/*", echoSwagger.WrapHandler)

	api := s.echo.Group("/api", s.rateLimiter())

	if s.auth != nil {
		authHandler := httpHandlers.NewAuthHandler(s.auth, s.logger)
		api.POST("/auth/login", authHandler.Login)
	}

	owner := s.ownerOnly()

	bookings := api.Group("/bookings")
	bookings.POST("", bookingHandler.CreateBooking)
	bookings.GET("", bookingHandler.ListBookings, owner)
	bookings.GET("/:id", bookingHandler.GetBooking, owner)
	bookings.PUT("/:id", bookingHandler.UpdateBooking, owner)
	bookings.DELETE("/:id", bookingHandler.DeleteBooking, owner)

	// Front end
	if s.config.Static.Dir != "" {
		s.echo.Static("/", s.config.Static.Dir)
	}
}

// setupMetrics configures Prometheus metrics
func (s *Server) setupMetrics() {
	m := s.metrics

	s.echo.Use(func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()

			err := next(c)

			status := c.Response().Status
			var he *echo.HTTPError
			if err != nil && errors.As(err, &he) {
				status = he.Code
			}

			path := c.Path()
			if path == "" {
				path = "unmatched"
			}

			m.RequestsTotal.WithLabelValues(c.Request().Method, path, strconv.Itoa(status)).Inc()
			m.RequestDuration.WithLabelValues(c.Request().Method, path).Observe(time.Since(start).Seconds())

			return err
		}
	})

	s.echo.GET("/metrics", echo.WrapHandler(m.Handler()))
}

// Health check handlers
func (s *Server) healthCheck(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

func (s *Server) detailedHealthCheck(c echo.Context) error {
	status := "ok"
	checks := make(map[string]interface{})

	storage := map[string]interface{}{
		"status": "ok",
		"driver": s.config.Storage.Driver,
	}
	if err := s.store.Ping(c.Request().Context()); err != nil {
		status = "error"
		storage["status"] = "error"
		if !s.config.App.IsProduction() {
			storage["error"] = err.Error()
		}
	}
	if p, ok := s.store.(poolReporter); ok {
		if stats := p.PoolStats(); stats != nil {
			storage["pool"] = stats
		}
	}
	checks["storage"] = storage

	checks["notifications"] = map[string]interface{}{
		"channels": s.config.Notify.ChannelList(),
	}

	response := map[string]interface{}{
		"status": status,
		"time":   time.Now().UTC().Format(time.RFC3339),
		"checks": checks,
		"version": map[string]string{
			"app": s.config.App.Version,
		},
	}

	if status == "ok" {
		return c.JSON(http.StatusOK, response)
	}
	return c.JSON(http.StatusServiceUnavailable, response)
}

func (s *Server) readinessCheck(c echo.Context) error {
	if err := s.store.Ping(c.Request().Context()); err != nil {
		return c.JSON(http.StatusServiceUnavailable, map[string]string{
			"status": "not_ready",
			"reason": "storage_not_ready",
		})
	}

	return c.JSON(http.StatusOK, map[string]string{
		"status": "ready",
		"time":   time.Now().UTC().Format(time.RFC3339),
	})
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start starts the HTTP server and blocks until it stops
func (s *Server) Start(address string) error {
	s.httpServer = &http.Server{
		Addr:         address,
		ReadTimeout:  s.config.Server.ReadTimeout,
		WriteTimeout: s.config.Server.WriteTimeout,
		IdleTimeout:  s.config.Server.IdleTimeout,
	}

	s.logger.Infow("Starting server", "address", address)
	if err := s.echo.StartServer(s.httpServer); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server and drains pending
// notifications
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Infow("Shutting down server")

	var errs []error
	if err := s.echo.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("http shutdown: %w", err))
	}
	if err := s.dispatcher.Close(ctx); err != nil {
		errs = append(errs, fmt.Errorf("notification drain: %w", err))
	}
	return errors.Join(errs...)
}

// customErrorHandler handles HTTP errors. With details set, internal
// errors carry their cause in the response body.
func customErrorHandler(logger *logger.Logger, details bool) echo.HTTPErrorHandler {
	return func(err error, c echo.Context) {
		if c.Response().Committed {
			return
		}

		var (
			code = http.StatusInternalServerError
			msg  httpHandlers.ErrorResponse
		)

		var he *echo.HTTPError
		if errors.As(err, &he) {
			code = he.Code
			switch m := he.Message.(type) {
			case httpHandlers.ErrorResponse:
				msg = m
			case string:
				msg = httpHandlers.ErrorResponse{Error: m}
			default:
				msg = httpHandlers.ErrorResponse{Error: http.StatusText(code)}
			}
			if he.Internal != nil {
				err = he.Internal
			}
		} else {
			msg = httpHandlers.ErrorResponse{Error: http.StatusText(code)}
		}

		if code == http.StatusInternalServerError {
			logger.WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).
				WithError(err).
				Errorw("Internal server error", "path", c.Request().URL.Path)
			if details {
				msg.Details = err.Error()
			}
		}

		// Send response
		if c.Request().Method == http.MethodHead {
			err = c.NoContent(code)
		} else {
			err = c.JSON(code, msg)
		}
		if err != nil {
			logger.WithError(err).Errorw("Error sending response")
		}
	}
}
