package handler

import (
	"net/http"
	"net/mail"
	"path/filepath"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/config"
	"github.com/iliyamo/marketplace-api/internal/repository"
	"github.com/iliyamo/marketplace-api/internal/storage"
	"github.com/iliyamo/marketplace-api/internal/token"
)

// defaultLogoPath is assigned at registration when no avatar is provided.
const defaultLogoPath = "/storage/user_photos/default/profile-user.png"

// maxUploadBytes caps accepted image sizes at 2 MiB.
const maxUploadBytes = 2 << 20

// UserHandler bundles dependencies for account endpoints.
type UserHandler struct {
	Cfg   config.Config
	Users UserStore
	Files *storage.Store
}

func NewUserHandler(cfg config.Config, users UserStore, files *storage.Store) *UserHandler {
	return &UserHandler{Cfg: cfg, Users: users, Files: files}
}

// Index returns all users. Password hashes are excluded by the model's
// JSON mapping.
func (h *UserHandler) Index(c echo.Context) error {
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.List(ctx)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, users)
}

// Show returns a single user.
func (h *UserHandler) Show(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, u)
}

type registerReq struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	Password    string `json:"password"`
	Address     string `json:"address"`
	PhoneNumber string `json:"phone_number"`
	LogoPath    string `json:"logo_path"`
}

// Store registers a new account. This is the only user endpoint that does
// not require authentication.
func (h *UserHandler) Store(c echo.Context) error {
	var req registerReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Address = strings.TrimSpace(req.Address)
	req.PhoneNumber = strings.TrimSpace(req.PhoneNumber)

	fields := map[string]string{}
	if req.Name == "" {
		fields["name"] = "name is required"
	}
	if req.Email == "" {
		fields["email"] = "email is required"
	} else if _, err := mail.ParseAddress(req.Email); err != nil {
		fields["email"] = "email is invalid"
	}
	if len(req.Password) < 6 {
		fields["password"] = "password must be at least 6 characters"
	}
	if req.Address == "" {
		fields["address"] = "address is required"
	}
	if req.PhoneNumber == "" {
		fields["phone_number"] = "phone number is required"
	}
	if len(fields) > 0 {
		return validationError(c, fields)
	}

	logo := req.LogoPath
	if logo == "" {
		logo = defaultLogoPath
	}
	u := &repository.User{
		Name:        req.Name,
		Email:       req.Email,
		Address:     req.Address,
		PhoneNumber: req.PhoneNumber,
		LogoPath:    logo,
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Users.Create(ctx, u, req.Password, h.Cfg.BcryptCost); err != nil {
		switch err {
		case repository.ErrEmailExists:
			return validationError(c, map[string]string{"email": "email already taken"})
		case repository.ErrPhoneExists:
			return validationError(c, map[string]string{"phone_number": "phone number already taken"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create user failed"})
	}
	return c.JSON(http.StatusCreated, echo.Map{"message": "account created", "user": u})
}

type updateProfileReq struct {
	Name    *string `json:"name"`
	Address *string `json:"address"`
}

// Update modifies the caller's own profile. Only the allow-listed fields
// {name, address} are writable; everything else in the body is ignored.
// The response echoes a fresh access token so clients can rotate in place.
func (h *UserHandler) Update(c echo.Context) error {
	id, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req updateProfileReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	fields := map[string]string{}
	name, address := u.Name, u.Address
	if req.Name != nil {
		if name = strings.TrimSpace(*req.Name); name == "" {
			fields["name"] = "name must not be empty"
		}
	}
	if req.Address != nil {
		if address = strings.TrimSpace(*req.Address); address == "" {
			fields["address"] = "address must not be empty"
		}
	}
	if len(fields) > 0 {
		return validationError(c, fields)
	}

	if err := h.Users.UpdateProfile(ctx, u.ID, name, address); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	u.Name, u.Address = name, address

	signed, _, err := token.Issue(h.Cfg.JWTSecret, u.ID, h.Cfg.AccessTTLMin)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "token error"})
	}
	return c.JSON(http.StatusOK, echo.Map{
		"message":      "user updated",
		"user":         u,
		"access_token": signed,
	})
}

// Destroy deletes an account: the owner themselves, or a superuser.
func (h *UserHandler) Destroy(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	if ident.ID != id && !ident.IsSuper {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Users.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	if h.Files != nil {
		h.Files.RemoveEntity("user_photos", u.ID, u.Name)
	}
	return c.NoContent(http.StatusNoContent)
}

// UploadPhoto replaces the caller's avatar. The previous file is removed
// best-effort after the new one is stored.
func (h *UserHandler) UploadPhoto(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	fh, err := c.FormFile("photo")
	if err != nil {
		return validationError(c, map[string]string{"photo": "photo is required"})
	}
	if fh.Size > maxUploadBytes {
		return validationError(c, map[string]string{"photo": "photo must not exceed 2MB"})
	}
	if !allowedImage(fh.Filename) {
		return validationError(c, map[string]string{"photo": "photo must be jpeg, png, jpg or gif"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "load user failed"})
	}

	src, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "read upload failed"})
	}
	defer src.Close()

	url, err := h.Files.SaveUserPhoto(u.ID, u.Name, fh.Filename, src)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "store photo failed"})
	}
	if err := h.Users.UpdateLogoPath(ctx, u.ID, url); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	// Old avatar goes only after the new one is stored and recorded.
	if prev := u.LogoPath; prev != "" && prev != defaultLogoPath {
		h.Files.Remove(prev)
	}
	u.LogoPath = url
	return c.JSON(http.StatusOK, echo.Map{
		"message":    "photo uploaded",
		"photo_path": url,
		"user":       u,
	})
}

// Ban toggles the ban flag on a user (superuser only, enforced by route
// middleware). Banning revokes nothing retroactively here: the auth
// middleware rejects banned identities on their next request.
func (h *UserHandler) Ban(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	u, err := h.Users.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Users.SetBanned(ctx, id, !u.IsBanned); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	if u.IsBanned {
		return c.JSON(http.StatusOK, echo.Map{"message": "user unbanned"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user banned"})
}

type changeRoleReq struct {
	IsSuper *bool `json:"is_super"`
}

// ChangeRole sets the superuser flag (superuser only, route middleware).
func (h *UserHandler) ChangeRole(c echo.Context) error {
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	var req changeRoleReq
	if err := c.Bind(&req); err != nil || req.IsSuper == nil {
		return validationError(c, map[string]string{"is_super": "is_super is required"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Users.GetByID(ctx, id); err != nil {
		if err == repository.ErrUserNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "user not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if err := h.Users.SetSuper(ctx, id, *req.IsSuper); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "user role changed"})
}

// IndexAdmin lists every user except the caller (superuser only).
func (h *UserHandler) IndexAdmin(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	users, err := h.Users.ListExcept(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, users)
}

// allowedImage accepts the common browser image formats.
func allowedImage(name string) bool {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".jpeg", ".jpg", ".png", ".gif":
		return true
	}
	return false
}
