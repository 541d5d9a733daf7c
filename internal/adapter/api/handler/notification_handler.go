package handler

import (
	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/middleware"
	"sitechat/internal/usecase"
	"sitechat/pkg/response"
)

type NotificationHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewNotificationHandler(messageUseCase *usecase.MessageUseCase) *NotificationHandler {
	return &NotificationHandler{
		messageUseCase: messageUseCase,
	}
}

func (h *NotificationHandler) MarkAsRead(c echo.Context) error {
	notificationID := c.Param("notificationId")
	userID := middleware.CurrentUser(c).ID

	if err := h.messageUseCase.MarkNotificationAsRead(c.Request().Context(), userID, notificationID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Notification marked as read",
	})
}
