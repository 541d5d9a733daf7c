package handler

import (
	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/middleware"
	"sitechat/internal/usecase"
	"sitechat/pkg/response"
)

type ThreadHandler struct {
	threadUseCase *usecase.ThreadUseCase
}

func NewThreadHandler(threadUseCase *usecase.ThreadUseCase) *ThreadHandler {
	return &ThreadHandler{
		threadUseCase: threadUseCase,
	}
}

// GetThreads lists the site group thread and the caller's direct threads
func (h *ThreadHandler) GetThreads(c echo.Context) error {
	ctx := c.Request().Context()
	user := middleware.CurrentUser(c)
	siteID := c.Param("siteId")

	group, err := h.threadUseCase.ListGroupThread(ctx, user, siteID)
	if err != nil {
		return response.Error(c, err)
	}

	direct, err := h.threadUseCase.ListDirectThreads(ctx, user, siteID)
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, map[string]interface{}{
		"group":  group,
		"direct": direct,
	})
}

// GetAdminRoster lists one thread per site administrator
func (h *ThreadHandler) GetAdminRoster(c echo.Context) error {
	roster, err := h.threadUseCase.ListAdminRoster(c.Request().Context(), middleware.CurrentUser(c), c.Param("siteId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, roster)
}

// ResolveDirectThread returns the handle of the thread with :userId
func (h *ThreadHandler) ResolveDirectThread(c echo.Context) error {
	handle, err := h.threadUseCase.ResolveOrOpenThread(c.Request().Context(), middleware.CurrentUser(c), c.Param("siteId"), c.Param("userId"))
	if err != nil {
		return response.Error(c, err)
	}

	return response.Success(c, handle)
}
