package router

import (
	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/handler"
)

// SetupMessageRouter mounts message routes under /v1/sites/:siteId
func SetupMessageRouter(sites *echo.Group) {
	messageHandler := handler.GetMessageHandler()

	// Group chat
	sites.GET("/messages", messageHandler.GetGroupMessages)
	sites.POST("/messages", messageHandler.SendGroupMessage)
	sites.DELETE("/messages/:messageId", messageHandler.DeleteGroupMessage)
	sites.PUT("/messages/:messageId/read", messageHandler.MarkGroupMessageRead)

	// Direct chat with :userId
	sites.GET("/direct/:userId/messages", messageHandler.GetDirectMessages)
	sites.POST("/direct/:userId/messages", messageHandler.SendDirectMessage)
	sites.PUT("/direct/:userId/read", messageHandler.MarkDirectThreadRead)
	sites.DELETE("/direct/:userId/messages/:messageId", messageHandler.DeleteDirectMessage)
	sites.PUT("/direct/:userId/messages/:messageId/read", messageHandler.MarkDirectMessageRead)
}
