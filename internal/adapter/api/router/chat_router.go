package router

import (
	"github.com/labstack/echo/v4"

	"furnimarket/internal/adapter/api/handler"
	"furnimarket/internal/adapter/api/middleware"
)

// SetupChatRouter sets up all chat-related routes (excluding WebSocket)
func SetupChatRouter(e *echo.Echo, chatHandler *handler.ChatHandler, authMiddleware *middleware.AuthMiddleware) {
	chatGroup := e.Group("/v1/chats")
	chatGroup.Use(authMiddleware.Authenticate)

	chatGroup.GET("", chatHandler.GetUserChats)
	chatGroup.GET("/unread-count", chatHandler.GetUnreadCount)
	chatGroup.POST("/order/:orderId", chatHandler.GetOrCreateChat)
	chatGroup.POST("/:id/accept-rules", chatHandler.AcceptRules)
	chatGroup.GET("/:id/messages", chatHandler.GetChatMessages)
	chatGroup.POST("/:id/messages", chatHandler.SendMessage)
	chatGroup.PUT("/:id/read", chatHandler.MarkChatAsRead)
}
