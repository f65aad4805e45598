// Package handler implements the HTTP endpoints. Handlers depend on
// small store interfaces rather than concrete repositories so the
// auth/chat/message core can be exercised against in-memory fakes; the
// repository structs satisfy these interfaces.
package handler

import (
	"context"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/middleware"
	"github.com/iliyamo/marketplace-api/internal/policy"
	"github.com/iliyamo/marketplace-api/internal/repository"
)

// dbTimeout bounds every unit of work against the database.
const dbTimeout = 5 * time.Second

// UserStore is the user persistence surface handlers rely on.
type UserStore interface {
	Create(ctx context.Context, u *repository.User, password string, cost int) error
	GetByEmail(ctx context.Context, email string) (*repository.User, error)
	GetByID(ctx context.Context, id uint64) (*repository.User, error)
	List(ctx context.Context) ([]*repository.User, error)
	ListExcept(ctx context.Context, id uint64) ([]*repository.User, error)
	UpdateProfile(ctx context.Context, id uint64, name, address string) error
	UpdateLogoPath(ctx context.Context, id uint64, path string) error
	SetBanned(ctx context.Context, id uint64, banned bool) error
	SetSuper(ctx context.Context, id uint64, super bool) error
	Delete(ctx context.Context, id uint64) error
}

// ChatStore is the chat registry surface.
type ChatStore interface {
	Create(ctx context.Context, a, b uint64) (*repository.Chat, error)
	GetByID(ctx context.Context, id uint64) (*repository.Chat, error)
	GetWithUsers(ctx context.Context, id uint64) (*repository.ChatWithUsers, error)
	ListForUser(ctx context.Context, userID uint64) ([]*repository.ChatWithUsers, error)
	Delete(ctx context.Context, id uint64) error
}

// MessageStore is the message ledger surface.
type MessageStore interface {
	Create(ctx context.Context, m *repository.Message) error
	GetByID(ctx context.Context, id uint64) (*repository.Message, error)
	ListByChat(ctx context.Context, chatID uint64) ([]*repository.Message, error)
	MarkViewed(ctx context.Context, id uint64) error
	Delete(ctx context.Context, id uint64) error
}

// Broadcaster notifies the external realtime sink. Implementations log
// their own failures; callers deliberately ignore the returned error
// because a missed notification must not fail the primary write.
type Broadcaster interface {
	Publish(ctx context.Context, channel, event string, payload any) error
}

// reqCtx derives a bounded context for database work from the request.
func reqCtx(c echo.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(c.Request().Context(), dbTimeout)
}

// currentIdentity pulls the identity injected by the auth middleware.
func currentIdentity(c echo.Context) (policy.Identity, bool) {
	return middleware.CurrentIdentity(c)
}

// parseID parses a numeric path parameter.
func parseID(c echo.Context, name string) (uint64, error) {
	return strconv.ParseUint(c.Param(name), 10, 64)
}

// unauthorized is the fallback when a protected handler runs without an
// identity in context (should not happen behind the auth middleware).
func unauthorized(c echo.Context) error {
	return c.JSON(http.StatusUnauthorized, echo.Map{"error": "unauthorized"})
}

// validationError renders a 422 with field-level detail.
func validationError(c echo.Context, fields map[string]string) error {
	return c.JSON(http.StatusUnprocessableEntity, echo.Map{
		"error":   "validation failed",
		"message": fields,
	})
}
