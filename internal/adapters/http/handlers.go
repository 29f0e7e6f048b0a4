package http

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"github.com/inkbook/studio/internal/application/services"
	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/ports"
)

// TotalCountHeader carries the unpaged match count of a list request.
const TotalCountHeader = "X-Total-Count"

// AuthHandler handles authentication-related requests
type AuthHandler struct {
	authService ports.AuthService
	logger      *logger.Logger
}

// NewAuthHandler creates a new auth handler
func NewAuthHandler(authService ports.AuthService, logger *logger.Logger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		logger:      logger,
	}
}

// Login handles the owner login
func (h *AuthHandler) Login(c echo.Context) error {
	var req ports.LoginRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format"})
	}

	if err := c.Validate(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "password is required"})
	}

	response, err := h.authService.Login(c.Request().Context(), req)
	if err != nil {
		h.logger.LogSecurityEvent("login_failed", c.RealIP(), nil)
		return echo.NewHTTPError(http.StatusUnauthorized, ErrorResponse{Error: "Invalid credentials"})
	}

	return c.JSON(http.StatusOK, response)
}

// BookingHandler handles booking-related requests
type BookingHandler struct {
	bookingService ports.BookingService
	logger         *logger.Logger
}

// NewBookingHandler creates a new booking handler
func NewBookingHandler(bookingService ports.BookingService, logger *logger.Logger) *BookingHandler {
	return &BookingHandler{
		bookingService: bookingService,
		logger:         logger,
	}
}

// ListBookings returns the bookings as a JSON array
func (h *BookingHandler) ListBookings(c echo.Context) error {
	filter := ports.BookingFilter{
		Date:  c.QueryParam("date"),
		Email: c.QueryParam("email"),
	}

	if status := c.QueryParam("status"); status != "" {
		s := entities.BookingStatus(status)
		filter.Status = &s
	}

	if limitStr := c.QueryParam("limit"); limitStr != "" {
		limit, err := strconv.Atoi(limitStr)
		if err != nil || limit < 1 {
			return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "Invalid limit parameter"})
		}
		filter.Limit = limit
	}

	if offsetStr := c.QueryParam("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "Invalid offset parameter"})
		}
		filter.Offset = offset
	}

	bookings, total, err := h.bookingService.ListBookings(c.Request().Context(), filter)
	if err != nil {
		return h.fail(c, "List bookings failed", err)
	}

	c.Response().Header().Set(TotalCountHeader, strconv.FormatInt(total, 10))
	return c.JSON(http.StatusOK, bookings)
}

// GetBooking returns a single booking
func (h *BookingHandler) GetBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	booking, err := h.bookingService.GetBooking(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, "Get booking failed", err)
	}

	return c.JSON(http.StatusOK, booking)
}

// CreateBooking stores a booking from the public form
func (h *BookingHandler) CreateBooking(c echo.Context) error {
	var req ports.CreateBookingRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}

	booking, err := h.bookingService.CreateBooking(c.Request().Context(), req)
	if err != nil {
		return h.fail(c, "Create booking failed", err)
	}

	return c.JSON(http.StatusCreated, StatusResponse{Status: "ok", Booking: booking})
}

// UpdateBooking applies a partial update
func (h *BookingHandler) UpdateBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	var req ports.UpdateBookingRequest
	if err := c.Bind(&req); err != nil {
		return bindError(err)
	}

	booking, err := h.bookingService.UpdateBooking(c.Request().Context(), id, req)
	if err != nil {
		return h.fail(c, "Update booking failed", err)
	}

	return c.JSON(http.StatusOK, booking)
}

// DeleteBooking removes a booking
func (h *BookingHandler) DeleteBooking(c echo.Context) error {
	id, err := bookingID(c)
	if err != nil {
		return err
	}

	if err := h.bookingService.DeleteBooking(c.Request().Context(), id); err != nil {
		return h.fail(c, "Delete booking failed", err)
	}

	return c.JSON(http.StatusOK, StatusResponse{Status: "ok"})
}

// fail maps service errors onto HTTP errors.
func (h *BookingHandler) fail(c echo.Context, msg string, err error) error {
	var verr *services.ValidationError
	switch {
	case errors.As(err, &verr):
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "validation failed", Fields: verr.Fields})
	case errors.Is(err, entities.ErrBookingNotFound):
		return echo.NewHTTPError(http.StatusNotFound, ErrorResponse{Error: "Booking not found"})
	case errors.Is(err, entities.ErrSlotTaken):
		return echo.NewHTTPError(http.StatusConflict, ErrorResponse{Error: entities.ErrSlotTaken.Error()})
	case errors.Is(err, entities.ErrDateInPast):
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: entities.ErrDateInPast.Error()})
	case services.IsClientError(err):
		return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
	}

	h.logger.WithRequestID(c.Response().Header().Get(echo.HeaderXRequestID)).
		WithError(err).
		Errorw(msg, "path", c.Request().URL.Path)
	return echo.NewHTTPError(http.StatusInternalServerError, ErrorResponse{Error: "Internal server error"}).SetInternal(err)
}

func bookingID(c echo.Context) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		return uuid.Nil, echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "Invalid booking ID"})
	}
	return id, nil
}

// bindError keeps echo's own status (413 from the body limit, 415 for an
// unsupported content type) and normalizes the message.
func bindError(err error) error {
	var he *echo.HTTPError
	if errors.As(err, &he) && he.Code != http.StatusBadRequest {
		return echo.NewHTTPError(he.Code, ErrorResponse{Error: http.StatusText(he.Code)})
	}
	return echo.NewHTTPError(http.StatusBadRequest, ErrorResponse{Error: "Invalid request format"})
}

// Request/Response types

type StatusResponse struct {
	Status  string            `json:"status"`
	Booking *entities.Booking `json:"booking,omitempty"`
}

type ErrorResponse struct {
	Error   string            `json:"error"`
	Details string            `json:"details,omitempty"`
	Fields  map[string]string `json:"fields,omitempty"`
}
