package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/Runteryaa/RunStore/internal/tokens"
)

const (
	CtxUserID = "user_id"
	CtxRole   = "role"
)

type BearerAuth struct {
	JWTSecret []byte
}

func NewBearerAuth(secret []byte) *BearerAuth {
	return &BearerAuth{JWTSecret: secret}
}

func bearerToken(c echo.Context) string {
	h := c.Request().Header.Get(echo.HeaderAuthorization)
	if h == "" {
		return ""
	}
	parts := strings.SplitN(h, " ", 2)
	if len(parts) == 2 && strings.EqualFold(parts[0], "bearer") {
		return strings.TrimSpace(parts[1])
	}
	return h
}

// Optional resolves caller identity when a valid credential is present and
// proceeds anonymously otherwise. Public routes never fail on a bad token.
func (m *BearerAuth) Optional(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if token := bearerToken(c); token != "" {
			if claims, err := tokens.Parse(token, m.JWTSecret); err == nil {
				c.Set(CtxUserID, claims.Subject)
				c.Set(CtxRole, claims.Role)
			}
		}
		return next(c)
	}
}

func (m *BearerAuth) RequireAuth(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		token := bearerToken(c)
		if token == "" {
			return echo.NewHTTPError(http.StatusUnauthorized, "missing access token")
		}

		claims, err := tokens.Parse(token, m.JWTSecret)
		if err != nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "invalid or expired token")
		}

		c.Set(CtxUserID, claims.Subject)
		c.Set(CtxRole, claims.Role)
		return next(c)
	}
}

func (m *BearerAuth) RequireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return m.RequireAuth(func(c echo.Context) error {
		if role, _ := c.Get(CtxRole).(string); role != "admin" {
			return echo.NewHTTPError(http.StatusForbidden, "you don't have enough rights")
		}
		return next(c)
	})
}
