package handler

import (
	"net/http"

	gorillaws "github.com/gorilla/websocket"
	"github.com/google/uuid"
	"github.com/labstack/echo/v4"

	"furnimarket/internal/adapter/api/middleware"
	ws "furnimarket/internal/infrastructure/websocket"
	"furnimarket/internal/reconciler"
	"furnimarket/pkg/errors"
)

type WebSocketHandler struct {
	wsManager      *ws.Manager
	authMiddleware *middleware.AuthMiddleware
	badgeHub       *reconciler.Hub
}

var upgrader = gorillaws.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // restrict in production
	},
}

func NewWebSocketHandler(wsManager *ws.Manager, authMiddleware *middleware.AuthMiddleware, badgeHub *reconciler.Hub) *WebSocketHandler {
	return &WebSocketHandler{
		wsManager:      wsManager,
		authMiddleware: authMiddleware,
		badgeHub:       badgeHub,
	}
}

// HandleWebSocket upgrades the connection after authenticating via the token
// query parameter (browsers cannot set headers on websocket handshakes) or a
// Bearer header.
func (h *WebSocketHandler) HandleWebSocket(c echo.Context) error {
	token := c.QueryParam("token")
	if token == "" {
		authHeader := c.Request().Header.Get("Authorization")
		if len(authHeader) > 7 && authHeader[:7] == "Bearer " {
			token = authHeader[7:]
		}
	}
	if token == "" {
		return errors.Unauthorized("Authentication required", nil)
	}

	userID, err := h.authMiddleware.GetUIDFromToken(c.Request().Context(), token)
	if err != nil {
		return errors.Unauthorized("Invalid or expired token", err)
	}

	conn, err := upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		return errors.Internal("Failed to upgrade connection", err)
	}

	client := &ws.Client{
		ID:     uuid.New().String(),
		UserID: userID,
		Conn:   conn,
		Send:   make(chan []byte, 256),
	}

	h.wsManager.Register <- client

	// Server-side unread badge observer: pushes unread_changed totals to
	// this user for as long as the process runs.
	h.badgeHub.EnsureUser(c.Request().Context(), userID)

	go client.ReadPump(h.wsManager)
	go client.WritePump()

	return nil
}
