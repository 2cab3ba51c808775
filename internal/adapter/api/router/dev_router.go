package router

import (
	"github.com/labstack/echo/v4"

	"furnimarket/internal/adapter/api/handler"
)

// SetupDevRouter exposes development-only endpoints. Mounted only outside
// production.
func SetupDevRouter(e *echo.Echo, devTokenHandler *handler.DevTokenHandler, environment string) {
	if environment == "production" {
		return
	}

	devGroup := e.Group("/v1/dev")
	devGroup.POST("/token", devTokenHandler.GenerateToken)
}
