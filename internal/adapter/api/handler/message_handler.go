package handler

import (
	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/middleware"
	"sitechat/internal/domain/entity"
	"sitechat/internal/usecase"
	"sitechat/pkg/errors"
	"sitechat/pkg/response"
)

type MessageHandler struct {
	messageUseCase *usecase.MessageUseCase
}

func NewMessageHandler(messageUseCase *usecase.MessageUseCase) *MessageHandler {
	return &MessageHandler{
		messageUseCase: messageUseCase,
	}
}

type sendMessageRequest struct {
	ClientID       string   `json:"client_id" form:"client_id" validate:"omitempty,max=64"`
	Content        string   `json:"content" form:"content" validate:"max=4000"`
	Type           string   `json:"type" form:"type"`
	Priority       string   `json:"priority" form:"priority" validate:"omitempty,oneof=low medium high urgent"`
	AttachmentURLs []string `json:"attachment_urls" form:"attachment_urls" validate:"omitempty,dive,url"`
}

func groupScope(c echo.Context) entity.Scope {
	return entity.GroupScope(c.Param("siteId"))
}

func directScope(c echo.Context) entity.Scope {
	return entity.DirectScope(c.Param("siteId"), middleware.CurrentUser(c).ID, c.Param("userId"))
}

// GetGroupMessages returns the ordered history of the site group chat
func (h *MessageHandler) GetGroupMessages(c echo.Context) error {
	return h.list(c, groupScope(c))
}

func (h *MessageHandler) SendGroupMessage(c echo.Context) error {
	return h.send(c, groupScope(c))
}

func (h *MessageHandler) DeleteGroupMessage(c echo.Context) error {
	return h.delete(c, groupScope(c))
}

func (h *MessageHandler) MarkGroupMessageRead(c echo.Context) error {
	return h.markRead(c, groupScope(c))
}

// GetDirectMessages returns the ordered history between the caller and :userId
func (h *MessageHandler) GetDirectMessages(c echo.Context) error {
	return h.list(c, directScope(c))
}

func (h *MessageHandler) SendDirectMessage(c echo.Context) error {
	return h.send(c, directScope(c))
}

func (h *MessageHandler) DeleteDirectMessage(c echo.Context) error {
	return h.delete(c, directScope(c))
}

func (h *MessageHandler) MarkDirectMessageRead(c echo.Context) error {
	return h.markRead(c, directScope(c))
}

// MarkDirectThreadRead marks every unread message of the thread as read
func (h *MessageHandler) MarkDirectThreadRead(c echo.Context) error {
	marked, err := h.messageUseCase.MarkThreadRead(c.Request().Context(), middleware.CurrentUser(c), directScope(c))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"marked": marked,
	})
}

func (h *MessageHandler) list(c echo.Context, scope entity.Scope) error {
	messages, err := h.messageUseCase.LoadInitial(c.Request().Context(), middleware.CurrentUser(c), scope)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, messages)
}

func (h *MessageHandler) send(c echo.Context, scope entity.Scope) error {
	var req sendMessageRequest
	if err := c.Bind(&req); err != nil {
		return response.Error(c, err)
	}

	if err := c.Validate(&req); err != nil {
		return response.Error(c, err)
	}

	input := usecase.SendInput{
		ClientID:       req.ClientID,
		Content:        req.Content,
		Type:           entity.MessageType(req.Type),
		Priority:       entity.Priority(req.Priority),
		AttachmentURLs: req.AttachmentURLs,
	}

	if isMultipart(c) {
		media, closeAll, err := readMedia(c)
		if err != nil {
			return response.Error(c, err)
		}
		defer closeAll()
		input.Media = media
	}

	message, err := h.messageUseCase.Send(c.Request().Context(), middleware.CurrentUser(c), scope, input)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Created(c, message)
}

func (h *MessageHandler) delete(c echo.Context, scope entity.Scope) error {
	messageID := c.Param("messageId")
	if err := h.messageUseCase.Delete(c.Request().Context(), middleware.CurrentUser(c), scope, messageID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Message deleted successfully",
	})
}

func (h *MessageHandler) markRead(c echo.Context, scope entity.Scope) error {
	messageID := c.Param("messageId")
	if messageID == "" {
		return response.Error(c, errors.BadRequest("Message ID is required", nil))
	}

	if err := h.messageUseCase.MarkRead(c.Request().Context(), middleware.CurrentUser(c), scope, messageID); err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]string{
		"message": "Message marked as read",
	})
}
