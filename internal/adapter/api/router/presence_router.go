package router

import (
	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/handler"
)

func SetupPresenceRouter(v1 *echo.Group) {
	presenceHandler := handler.GetPresenceHandler()

	v1.GET("/users/:userId/presence", presenceHandler.GetPresence)
}

func SetupNotificationRouter(v1 *echo.Group) {
	notificationHandler := handler.GetNotificationHandler()

	v1.PUT("/notifications/:notificationId/read", notificationHandler.MarkAsRead)
}
