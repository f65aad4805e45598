package handler

import (
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/marketplace-api/internal/policy"
	"github.com/iliyamo/marketplace-api/internal/realtime"
	"github.com/iliyamo/marketplace-api/internal/repository"
)

// maxMessageLen bounds message content, in runes.
const maxMessageLen = 255

// MessageHandler implements the message ledger endpoints.
type MessageHandler struct {
	Messages MessageStore
	Chats    ChatStore
	Realtime Broadcaster
}

func NewMessageHandler(messages MessageStore, chats ChatStore, broadcaster Broadcaster) *MessageHandler {
	return &MessageHandler{Messages: messages, Chats: chats, Realtime: broadcaster}
}

// requireParticipant loads a chat and checks membership. Nonexistent chat
// and non-participant produce the identical opaque 403 so chat ids cannot
// be probed.
func (h *MessageHandler) requireParticipant(c echo.Context, ident policy.Identity, chatID uint64) (*repository.Chat, error) {
	ctx, cancel := reqCtx(c)
	defer cancel()
	chat, err := h.Chats.GetByID(ctx, chatID)
	if err != nil {
		if err == repository.ErrChatNotFound {
			return nil, forbiddenChat(c)
		}
		return nil, c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if !policy.CanAccessChat(ident, chat) {
		return nil, forbiddenChat(c)
	}
	return chat, nil
}

// Index lists a chat's messages in insertion order, participants only.
func (h *MessageHandler) Index(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	chatID, err := strconv.ParseUint(c.QueryParam("chat_id"), 10, 64)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "chat_id is required"})
	}
	if _, err := h.requireParticipant(c, ident, chatID); err != nil {
		return err
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	messages, err := h.Messages.ListByChat(ctx, chatID)
	if err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	return c.JSON(http.StatusOK, messages)
}

// Show returns one message to a participant of its chat.
func (h *MessageHandler) Show(c echo.Context) error {
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
	m, err := h.Messages.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrMessageNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "message not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if _, err := h.requireParticipant(c, ident, m.ChatID); err != nil {
		return err
	}
	return c.JSON(http.StatusOK, m)
}

type createMessageReq struct {
	ChatID  uint64 `json:"chat_id"`
	Content string `json:"content"`
}

// Store appends a message to a chat the caller participates in. After the
// row is committed a notification goes to the realtime sink; delivery is
// best-effort and a publish failure never fails the request.
func (h *MessageHandler) Store(c echo.Context) error {
	ident, ok := currentIdentity(c)
	if !ok {
		return unauthorized(c)
	}
	var req createMessageReq
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	fields := map[string]string{}
	if req.ChatID == 0 {
		fields["chat_id"] = "chat_id is required"
	}
	req.Content = strings.TrimSpace(req.Content)
	if req.Content == "" {
		fields["content"] = "content is required"
	} else if utf8.RuneCountInString(req.Content) > maxMessageLen {
		fields["content"] = "content must not exceed 255 characters"
	}
	if len(fields) > 0 {
		return validationError(c, fields)
	}

	// Membership is checked before anything is written: a rejected
	// attempt leaves no row behind.
	if _, err := h.requireParticipant(c, ident, req.ChatID); err != nil {
		return err
	}

	m := &repository.Message{
		ChatID:   req.ChatID,
		SenderID: ident.ID,
		Content:  req.Content,
	}
	ctx, cancel := reqCtx(c)
	defer cancel()
	if err := h.Messages.Create(ctx, m); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "create message failed"})
	}

	// Published after the local commit, never inside it.
	if h.Realtime != nil {
		_ = h.Realtime.Publish(c.Request().Context(),
			fmt.Sprintf("chat.%d", m.ChatID), realtime.EventMessageSent, m)
	}
	return c.JSON(http.StatusCreated, m)
}

// Update marks a message as viewed. The flag is the only mutable part of
// a message and only moves one way; request bodies are ignored.
func (h *MessageHandler) Update(c echo.Context) error {
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
	m, err := h.Messages.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrMessageNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "message not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if _, err := h.requireParticipant(c, ident, m.ChatID); err != nil {
		return err
	}
	if err := h.Messages.MarkViewed(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "update failed"})
	}
	m.Viewed = true
	return c.JSON(http.StatusOK, m)
}

// Destroy deletes a message. Only the sender may do this; the other
// participant cannot erase what was said to them.
func (h *MessageHandler) Destroy(c echo.Context) error {
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
	m, err := h.Messages.GetByID(ctx, id)
	if err != nil {
		if err == repository.ErrMessageNotFound {
			return c.JSON(http.StatusNotFound, echo.Map{"error": "message not found"})
		}
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "query failed"})
	}
	if m.SenderID != ident.ID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "forbidden"})
	}
	if err := h.Messages.Delete(ctx, id); err != nil {
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "delete failed"})
	}
	return c.NoContent(http.StatusNoContent)
}
