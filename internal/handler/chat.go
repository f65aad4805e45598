package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/policy"
	"github.com/iliyamo/marketplace-api/internal/repository"
)

// ChatHandler implements the chat registry endpoints.
type ChatHandler struct {
	Chats ChatStore
	Users UserStore
}

func NewChatHandler(chats ChatStore, users UserStore) *ChatHandler {
	return &ChatHandler{Chats: chats, Users: users}
}

// forbiddenChat is the single response for "chat does not exist" and
// "caller is not a participant", so the endpoint never confirms whether a
// chat id exists to outsiders.
func forbiddenChat(c echo.Context) error {
	return c.JSON(http.StatusForbidden, echo.Map{"error": "chat does not exist or access denied"})
}

// Index lists the caller's chats with both participant summaries.
func (h *ChatHandler) Index(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	chats, err := h.Chats.ListForUser(ctx, ident.ID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, chats)
}

// Show returns one chat to a participant (or a superuser).
func (h *ChatHandler) Show(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	chat, err := h.Chats.GetWithUsers(ctx, id)
	if err != nil {
		if err == repository.ErrChatNotFound {
			return forbiddenChat(c)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !policy.CanAccessChat(ident, &chat.Chat) && !policy.CanAdminister(ident) {
		return forbiddenChat(c)
	}
	return c.JSON(http.StatusOK, chat)
}

type createChatReq struct {
	User2ID uint64 `json:"user2_id"`
}

// Store opens a conversation between the caller and another user. A chat
// with oneself is rejected, as is a second chat for the same pair in
// either argument order.
func (h *ChatHandler) Store(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req createChatReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if req.User2ID == 0 {
		return validationError(c, map[string]string{"user2_id": "user2_id is required"})
	}
	if req.User2ID == ident.ID {
		return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "you cannot chat with yourself"})
	}

	ctx, cancel := reqCtx(c)
	defer cancel()
	if _, err := h.Users.GetByID(ctx, req.User2ID); err != nil {
		if err == repository.ErrUserNotFound {
			return validationError(c, map[string]string{"user2_id": "user does not exist"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}

	chat, err := h.Chats.Create(ctx, ident.ID, req.User2ID)
	if err != nil {
		if err == repository.ErrChatExists {
			return c.JSON(http.StatusUnprocessableEntity, echo.Map{"error": "a chat already exists between these users"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create chat failed"})
	}
	return c.JSON(http.StatusCreated, chat)
}

// Update exists for administrative parity. A chat has no mutable fields
// (the pair is its identity), so this just confirms the row to a
// superuser.
func (h *ChatHandler) Update(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	if !policy.CanAdminister(ident) {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	chat, err := h.Chats.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrChatNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "chat not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, chat)
}

// Destroy deletes a chat and its messages. Only a participant (or a
// superuser) may do this.
func (h *ChatHandler) Destroy(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	id, err := parseID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid id"})
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	chat, err := h.Chats.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrChatNotFound {
			return forbiddenChat(c)
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !policy.CanAccessChat(ident, chat) && !policy.CanAdminister(ident) {
		return forbiddenChat(c)
	}
	if err := h.Chats.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
