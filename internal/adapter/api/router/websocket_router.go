package router

import (
	"github.com/labstack/echo/v4"

	"furnimarket/internal/adapter/api/handler"
)

func SetupWebSocketRouter(e *echo.Echo, wsHandler *handler.WebSocketHandler) {
	// Auth happens inside the handler: websocket handshakes carry the token
	// as a query parameter.
	e.GET("/ws", wsHandler.HandleWebSocket)
}
