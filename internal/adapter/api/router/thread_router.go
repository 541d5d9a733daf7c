package router

import (
	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/handler"
)

func SetupThreadRouter(sites *echo.Group) {
	threadHandler := handler.GetThreadHandler()

	sites.GET("/threads", threadHandler.GetThreads)
	sites.GET("/roster", threadHandler.GetAdminRoster)
	sites.GET("/direct/:userId", threadHandler.ResolveDirectThread)
}
