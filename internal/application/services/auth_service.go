package services

import (
	"context"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/inkbook/studio/internal/domain/entities"
	"github.com/inkbook/studio/internal/infrastructure/config"
	"github.com/inkbook/studio/internal/infrastructure/logger"
	"github.com/inkbook/studio/internal/ports"
)

// OwnerSubject is the token subject of the single studio account.
const OwnerSubject = "owner"

// Claims represents the JWT claims
type Claims struct {
	Role string `json:"role"`
	jwt.RegisteredClaims
}

// AuthService handles the studio owner's login
type AuthService struct {
	passwordHash []byte
	jwtConfig    config.JWTConfig
	logger       *logger.Logger
	now          func() time.Time
}

// NewAuthService creates a new auth service. A plain admin password is
// hashed once at startup.
func NewAuthService(authConfig config.AuthConfig, jwtConfig config.JWTConfig, logger *logger.Logger) (*AuthService, error) {
	hash := []byte(authConfig.AdminPasswordHash)
	if len(hash) == 0 {
		if authConfig.AdminPassword == "" {
			return nil, fmt.Errorf("admin password is not configured")
		}
		var err error
		hash, err = bcrypt.GenerateFromPassword([]byte(authConfig.AdminPassword), bcrypt.DefaultCost)
		if err != nil {
			return nil, fmt.Errorf("failed to hash password: %w", err)
		}
	} else if _, err := bcrypt.Cost(hash); err != nil {
		return nil, fmt.Errorf("invalid admin password hash: %w", err)
	}

	return &AuthService{
		passwordHash: hash,
		jwtConfig:    jwtConfig,
		logger:       logger.WithComponent("auth_service"),
		now:          time.Now,
	}, nil
}

// HashPassword returns a bcrypt hash suitable for auth.admin_password_hash.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("failed to hash password: %w", err)
	}
	return string(hash), nil
}

// Login authenticates the owner and returns an access token
func (s *AuthService) Login(ctx context.Context, req ports.LoginRequest) (*ports.AuthResponse, error) {
	if err := bcrypt.CompareHashAndPassword(s.passwordHash, []byte(req.Password)); err != nil {
		return nil, entities.ErrUnauthorized
	}

	expiresAt := s.now().Add(s.jwtConfig.ExpiresIn)
	token, err := s.generateAccessToken(expiresAt)
	if err != nil {
		return nil, fmt.Errorf("failed to generate access token: %w", err)
	}

	s.logger.Infow("Owner logged in")

	return &ports.AuthResponse{
		AccessToken: token,
		TokenType:   "Bearer",
		ExpiresIn:   int64(s.jwtConfig.ExpiresIn.Seconds()),
		ExpiresAt:   expiresAt.UTC(),
	}, nil
}

// ValidateToken validates a JWT token and returns claims
func (s *AuthService) ValidateToken(tokenString string) (*ports.Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(s.jwtConfig.Secret), nil
	}, jwt.WithIssuer(s.jwtConfig.Issuer), jwt.WithTimeFunc(s.now))

	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid || claims.Subject != OwnerSubject {
		return nil, fmt.Errorf("invalid token claims")
	}

	return &ports.Claims{
		Subject: claims.Subject,
		Role:    claims.Role,
	}, nil
}

func (s *AuthService) generateAccessToken(expiresAt time.Time) (string, error) {
	now := s.now()
	claims := &Claims{
		Role: "admin",
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(expiresAt),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    s.jwtConfig.Issuer,
			Subject:   OwnerSubject,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	tokenString, err := token.SignedString([]byte(s.jwtConfig.Secret))
	if err != nil {
		return "", fmt.Errorf("failed to sign token: %w", err)
	}

	return tokenString, nil
}
