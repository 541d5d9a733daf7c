package handler

import (
	"time"

	"github.com/labstack/echo/v4"

	"sitechat/internal/usecase"
	"sitechat/pkg/response"
)

type PresenceHandler struct {
	presenceTracker *usecase.PresenceTracker
}

func NewPresenceHandler(presenceTracker *usecase.PresenceTracker) *PresenceHandler {
	return &PresenceHandler{
		presenceTracker: presenceTracker,
	}
}

type presenceResponse struct {
	UserID       string     `json:"user_id"`
	IsOnline     bool       `json:"is_online"`
	LastSeen     *time.Time `json:"last_seen,omitempty"`
	LastActivity *time.Time `json:"last_activity,omitempty"`
	Label        string     `json:"label"`
}

// GetPresence never fails; an unknown presence reads as offline
func (h *PresenceHandler) GetPresence(c echo.Context) error {
	userID := c.Param("userId")
	p := h.presenceTracker.GetStatus(c.Request().Context(), userID)

	return response.Success(c, presenceResponse{
		UserID:       userID,
		IsOnline:     p.IsOnline,
		LastSeen:     p.LastSeen,
		LastActivity: p.LastActivity,
		Label:        h.presenceTracker.Label(p),
	})
}
