package router

import (
	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/handler"
)

// SetupWebSocketRouter mounts the live endpoint; browsers pass the token as ?token=
func SetupWebSocketRouter(v1 *echo.Group) {
	wsHandler := handler.GetWebSocketHandler()

	v1.GET("/ws", wsHandler.HandleWebSocket)
}
