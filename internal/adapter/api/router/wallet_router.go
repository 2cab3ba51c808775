package router

import (
	"github.com/labstack/echo/v4"

	"furnimarket/internal/adapter/api/handler"
	"furnimarket/internal/adapter/api/middleware"
)

func SetupWalletRouter(e *echo.Echo, walletHandler *handler.WalletHandler, authMiddleware *middleware.AuthMiddleware) {
	walletGroup := e.Group("/v1/wallets")
	walletGroup.Use(authMiddleware.Authenticate)

	walletGroup.GET("/me", walletHandler.GetMyWallet)
	walletGroup.GET("/me/transactions", walletHandler.ListMyTransactions)
}
