package handler

import (
	"github.com/labstack/echo/v4"

	"furnimarket/internal/usecase"
	"furnimarket/pkg/errors"
	"furnimarket/pkg/response"
)

type ChatHandler struct {
	chatUseCase *usecase.ChatUseCase
}

func NewChatHandler(chatUseCase *usecase.ChatUseCase) *ChatHandler {
	return &ChatHandler{
		chatUseCase: chatUseCase,
	}
}

type sendMessageRequest struct {
	Content string `json:"content" validate:"required,max=4000"`
}

// GetUserChats returns the caller's chat directory with unread counts.
func (h *ChatHandler) GetUserChats(c echo.Context) error {
	uid := c.Get("uid").(string)

	summaries, err := h.chatUseCase.ListChatsForUser(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, summaries)
}

// GetUnreadCount returns the aggregate unread badge count.
func (h *ChatHandler) GetUnreadCount(c echo.Context) error {
	uid := c.Get("uid").(string)

	total, err := h.chatUseCase.GetUnreadTotal(c.Request().Context(), uid)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]int{"unread_total": total})
}

// GetOrCreateChat opens (or returns) the chat bound to an order.
func (h *ChatHandler) GetOrCreateChat(c echo.Context) error {
	uid := c.Get("uid").(string)
	orderID := c.Param("orderId")
	if orderID == "" {
		return response.Error(c, errors.Validation("order id is required", nil))
	}

	chat, err := h.chatUseCase.GetOrCreateChat(c.Request().Context(), uid, orderID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// AcceptRules records the caller's acceptance of the chat rules.
func (h *ChatHandler) AcceptRules(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")

	chat, err := h.chatUseCase.AcceptChatRules(c.Request().Context(), uid, chatID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, chat)
}

// GetChatMessages returns the chat's full message history ordered by seq.
func (h *ChatHandler) GetChatMessages(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")

	messages, err := h.chatUseCase.ListMessages(c.Request().Context(), uid, chatID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

// SendMessage persists a new message and signals the chat room.
func (h *ChatHandler) SendMessage(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")

	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, errors.BadRequest("Invalid request payload", err))
	}
	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	message, err := h.chatUseCase.SendMessage(c.Request().Context(), uid, chatID, req.Content)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

// MarkChatAsRead marks all counterpart messages in the chat as read.
func (h *ChatHandler) MarkChatAsRead(c echo.Context) error {
	uid := c.Get("uid").(string)
	chatID := c.Param("id")

	if err := h.chatUseCase.MarkChatRead(c.Request().Context(), uid, chatID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{"status": "read"})
}
