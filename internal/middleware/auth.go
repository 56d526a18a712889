// Package middleware holds the echo middleware shared by the route groups:
// bearer authentication, role gates, the Redis response cache and the Redis
// token-bucket rate limiter.
package middleware

import (
	"errors"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/water-network-api/internal/apperr"
	"github.com/iliyamo/water-network-api/internal/model"
	"github.com/iliyamo/water-network-api/internal/token"
)

// Context keys set by Authenticate.
const (
	ctxUserID = "user_id"
	ctxRole   = "role"
	ctxClaims = "claims"
)

const (
	msgNoToken      = "No token, authorization denied"
	msgTokenExpired = "Token expired"
	msgTokenInvalid = "Token is not valid"
	msgAdminOnly    = "Access denied. Admin rights required."
	msgNotOwner     = "Access denied. You can only access your own account."
)

// AccessVerifier checks access tokens. *token.Service implements it.
type AccessVerifier interface {
	VerifyAccess(raw string) (*token.Claims, error)
}

// Authenticate validates the bearer access token and stores its claims on
// the context. Requests without a usable token stop here with 401.
func Authenticate(v AccessVerifier) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw := strings.TrimSpace(strings.TrimPrefix(c.Request().Header.Get(echo.HeaderAuthorization), "Bearer "))
			if raw == "" {
				return apperr.Unauthenticated(msgNoToken)
			}
			claims, err := v.VerifyAccess(raw)
			switch {
			case errors.Is(err, token.ErrExpired):
				return apperr.Unauthenticated(msgTokenExpired)
			case err != nil:
				return apperr.Unauthenticated(msgTokenInvalid)
			}
			c.Set(ctxUserID, claims.UserID)
			c.Set(ctxRole, string(claims.Role))
			c.Set(ctxClaims, claims)
			return next(c)
		}
	}
}

// Admin returns the chain that authenticates the caller and then requires
// the admin role. The role check is only available through this chain so it
// can never run without a verified token in front of it.
func Admin(v AccessVerifier) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{Authenticate(v), requireAdmin}
}

// SelfOrAdmin authenticates the caller and lets the request through when the
// :id path parameter is the caller's own id or the caller is an admin.
func SelfOrAdmin(v AccessVerifier) []echo.MiddlewareFunc {
	return []echo.MiddlewareFunc{Authenticate(v), requireSelfOrAdmin}
}

func requireAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if Role(c) != model.RoleAdmin {
			return apperr.Forbidden(msgAdminOnly)
		}
		return next(c)
	}
}

func requireSelfOrAdmin(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		if Role(c) != model.RoleAdmin && UserID(c) != c.Param("id") {
			return apperr.Forbidden(msgNotOwner)
		}
		return next(c)
	}
}
