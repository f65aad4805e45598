package handler

import (
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/config"
	"github.com/iliyamo/marketplace-api/internal/middleware"
	"github.com/iliyamo/marketplace-api/internal/repository"
	"github.com/iliyamo/marketplace-api/internal/token"
	"github.com/iliyamo/marketplace-api/internal/utils"
)

// AuthHandler bundles dependencies for the session lifecycle endpoints.
type AuthHandler struct {
	Cfg      config.Config
	Users    UserStore
	Denylist token.Denylist
}

func NewAuthHandler(cfg config.Config, users UserStore, denylist token.Denylist) *AuthHandler {
	return &AuthHandler{Cfg: cfg, Users: users, Denylist: denylist}
}

type loginReq struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// tokenPayload is the response for every endpoint that mints a token: the
// credential plus the public profile fields of the subject. The password
// hash never appears here.
type tokenPayload struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
	ExpiresIn   int64  `json:"expires_in"`
	ID          uint64 `json:"id"`
	Name        string `json:"name"`
	Address     string `json:"address"`
	Email       string `json:"email"`
	PhoneNumber string `json:"phone_number"`
	LogoPath    string `json:"logo_path"`
	IsSuper     bool   `json:"is_super"`
}

func (h *AuthHandler) mint(u *repository.User) (tokenPayload, error) {
	signed, _, err := token.Issue(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return tokenPayload{}, err
	}
	return tokenPayload{
		AccessToken: signed,
		TokenType:   "bearer",
		ExpiresIn:   int64(h.Cfg.AccessTTLMin) * 60,
		ID:          u.ID,
		Name:        u.Name,
		Address:     u.Address,
		Email:       u.Email,
		PhoneNumber: u.PhoneNumber,
		LogoPath:    u.LogoPath,
		IsSuper:     u.IsSuper,
	}, nil
}

// Login verifies credentials and issues a token. A banned account never
// receives a token: the ban check runs before anything is minted.
func (h *AuthHandler) Login(c echo.Context) error {
	var req loginReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if req.Email == "" || req.Password == "" {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "email/password required"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	u, err := h.Users.GetByEmail(ctx, req.Email)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !utils.VerifyPassword(u.PasswordHash, req.Password) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "invalid credentials"})
	}
	if u.IsBanned {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "user is banned"})
	}

	payload, err := h.mint(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	return c.JSON(http.StatusOK, payload)
}

// CheckToken exchanges a still-valid bearer token for a fresh one and
// revokes the old token's jti so a refresh chain cannot fork. Expired and
// invalid tokens are reported distinctly; both mean re-login.
func (h *AuthHandler) CheckToken(c echo.Context) error {
	raw, ok := middleware.BearerToken(c)
	if !ok {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token not provided"})
	}
	claims, err := token.Parse(h.Cfg.JWTSecret, raw)
	if err != nil {
		if err == token.ErrExpired {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token expired"})
		}
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token invalid"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()

	if h.Denylist != nil && h.Denylist.IsRevoked(ctx, claims.JTI) {
		return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token invalid"})
	}
	u, err := h.Users.GetByID(ctx, claims.UserID)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusUnauthorized, echo.Map{"error": "token invalid"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	if u.IsBanned {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "user is banned"})
	}

	payload, err := h.mint(u)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	if h.Denylist != nil {
		_ = h.Denylist.Revoke(ctx, claims.JTI, time.Until(claims.ExpiresAt))
	}
	return c.JSON(http.StatusOK, payload)
}

// Logout revokes the current session. Revoking an already-revoked token
// is a no-op, so the endpoint is idempotent.
func (h *AuthHandler) Logout(c echo.Context) error {
	claims, ok := middleware.CurrentClaims(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if h.Denylist != nil {
		_ = h.Denylist.Revoke(ctx, claims.JTI, time.Until(claims.ExpiresAt))
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "successfully logged out"})
}
