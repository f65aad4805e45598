// Package middleware provides the request-processing chain shared by all
// protected routes: bearer-token authentication, superuser gating, rate
// limiting, response caching and metrics.
package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/policy"
	"github.com/iliyamo/marketplace-api/internal/repository"
	"github.com/iliyamo/marketplace-api/internal/token"
)

const (
	identityKey = "identity"
	claimsKey   = "token_claims"
)

// IdentityLoader resolves a user id from a validated token into the
// current user row. Loading per request keeps ban status and the super
// flag fresh instead of trusting stale claims.
type IdentityLoader interface {
	GetByID(ctx context.Context, id uint64) (*repository.User, error)
}

// Auth validates the Bearer access token, rejects revoked and banned
// sessions and injects the resolved identity into the request context.
func Auth(secret string, users IdentityLoader, denylist token.Denylist) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			raw, ok := BearerToken(c)
			if !ok {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "missing bearer token"})
			}
			claims, err := token.Parse(secret, raw)
			if err != nil {
				if err == token.ErrExpired {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
				}
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token invalid"})
			}
			ctx := c.Request().Context()
			if denylist != nil && denylist.IsRevoked(ctx, claims.JTI) {
				return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token invalid"})
			}
			u, err := users.GetByID(ctx, claims.UserID)
			if err != nil {
				if err == repository.ErrUserNotFound {
					return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token invalid"})
				}
				return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
			}
			if u.IsBanned {
				return c.JSON(http.StatusForbidden, echo.Map{"error": "user is banned"})
			}
			c.Set(identityKey, policy.Identity{ID: u.ID, Name: u.Name, IsSuper: u.IsSuper})
			c.Set(claimsKey, claims)
			return next(c)
		}
	}
}

// BearerToken extracts the raw token from the Authorization header.
func BearerToken(c echo.Context) (string, bool) {
	auth := c.Request().Header.Get("Authorization")
	if !strings.HasPrefix(auth, "Bearer ") {
		return "", false
	}
	raw := strings.TrimSpace(strings.TrimPrefix(auth, "Bearer "))
	return raw, raw != ""
}

// CurrentIdentity returns the identity stored by Auth.
func CurrentIdentity(c echo.Context) (policy.Identity, bool) {
	id, ok := c.Get(identityKey).(policy.Identity)
	return id, ok
}

// CurrentClaims returns the validated token claims stored by Auth.
func CurrentClaims(c echo.Context) (token.Claims, bool) {
	cl, ok := c.Get(claimsKey).(token.Claims)
	return cl, ok
}
