// Package session binds HTTP requests to their workflow session with signed
// HS256 tokens. The token carries nothing but the session identifier; all
// workflow state stays server-side.
package session

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
)

const contextKey = "workflow_session_id"

type claims struct {
	jwt.RegisteredClaims
}

// Manager issues and validates session tokens.
type Manager struct {
	key []byte
	ttl time.Duration
}

// NewManager creates a token manager with the given signing key and token
// lifetime.
func NewManager(key []byte, ttl time.Duration) *Manager {
	return &Manager{key: key, ttl: ttl}
}

// Issue signs a token for a workflow session.
func (m *Manager) Issue(sessionID uuid.UUID, now time.Time) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sessionID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(m.ttl)),
		},
	})
	return token.SignedString(m.key)
}

// Parse validates a token and returns the session identifier it carries.
func (m *Manager) Parse(tokenStr string) (uuid.UUID, error) {
	var c claims
	_, err := jwt.ParseWithClaims(tokenStr, &c, func(t *jwt.Token) (interface{}, error) {
		return m.key, nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session token: %w", err)
	}
	id, err := uuid.Parse(c.Subject)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid session token subject: %w", err)
	}
	return id, nil
}

// Middleware extracts the bearer token, validates it and stores the session
// identifier on the request context. Requests without a valid token get 401.
func (m *Manager) Middleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			header := c.Request().Header.Get("Authorization")
			tokenStr := strings.TrimPrefix(header, "Bearer ")
			if tokenStr == "" || tokenStr == header {
				return echo.NewHTTPError(http.StatusUnauthorized, "missing session token")
			}
			id, err := m.Parse(tokenStr)
			if err != nil {
				return echo.NewHTTPError(http.StatusUnauthorized, "invalid session token")
			}
			c.Set(contextKey, id)
			return next(c)
		}
	}
}

// FromContext returns the session identifier stored by Middleware.
func FromContext(c echo.Context) (uuid.UUID, bool) {
	id, ok := c.Get(contextKey).(uuid.UUID)
	return id, ok
}
