package server

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	httpHandlers "github.com/inkbook/studio/internal/adapters/http"
	"github.com/inkbook/studio/internal/ports"
)

// ctxSubject holds the token subject once authMiddleware accepts a request.
const ctxSubject = "subject"

// ownerOnly guards the owner routes when auth is enabled and lets every
// request through otherwise.
func (s *Server) ownerOnly() echo.MiddlewareFunc {
	if s.auth == nil {
		return func(next echo.HandlerFunc) echo.HandlerFunc { return next }
	}
	return s.authMiddleware(s.auth)
}

// authMiddleware validates JWT tokens
func (s *Server) authMiddleware(authService ports.AuthService) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			authHeader := c.Request().Header.Get(echo.HeaderAuthorization)
			if authHeader == "" {
				return echo.NewHTTPError(http.StatusUnauthorized, httpHandlers.ErrorResponse{Error: "Missing authorization header"})
			}

			tokenString := strings.TrimPrefix(authHeader, "Bearer ")
			if tokenString == authHeader {
				return echo.NewHTTPError(http.StatusUnauthorized, httpHandlers.ErrorResponse{Error: "Invalid authorization header format"})
			}

			claims, err := authService.ValidateToken(tokenString)
			if err != nil {
				s.logger.LogSecurityEvent("invalid_token", c.RealIP(), map[string]interface{}{
					"error":    err.Error(),
					"endpoint": c.Request().URL.Path,
				})
				return echo.NewHTTPError(http.StatusUnauthorized, httpHandlers.ErrorResponse{Error: "Invalid token"})
			}

			c.Set(ctxSubject, claims.Subject)

			return next(c)
		}
	}
}
