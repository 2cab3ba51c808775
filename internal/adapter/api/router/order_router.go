package router

import (
	"github.com/labstack/echo/v4"

	"furnimarket/internal/adapter/api/handler"
	"furnimarket/internal/adapter/api/middleware"
)

func SetupOrderRouter(e *echo.Echo, orderHandler *handler.OrderHandler, authMiddleware *middleware.AuthMiddleware) {
	orderGroup := e.Group("/v1/orders")
	orderGroup.Use(authMiddleware.Authenticate)

	orderGroup.POST("", orderHandler.CreateOrder)
	orderGroup.GET("", orderHandler.ListOrders)
	orderGroup.GET("/:id", orderHandler.GetOrder)

	orderGroup.POST("/:id/bids", orderHandler.PlaceBid)
	orderGroup.GET("/:id/bids", orderHandler.ListBids)
	orderGroup.POST("/:id/bids/:bidId/accept", orderHandler.AcceptBid)

	orderGroup.POST("/:id/submit-review", orderHandler.SubmitForReview)
	orderGroup.POST("/:id/accept-work", orderHandler.AcceptWork)
	orderGroup.POST("/:id/cancel", orderHandler.CancelOrder)
}
