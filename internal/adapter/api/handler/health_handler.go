package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	ws "sitechat/internal/infrastructure/websocket"
)

type HealthHandler struct {
	storeDriver string
	wsManager   *ws.Manager
}

func NewHealthHandler(storeDriver string, wsManager *ws.Manager) *HealthHandler {
	return &HealthHandler{
		storeDriver: storeDriver,
		wsManager:   wsManager,
	}
}

func (h *HealthHandler) CheckHealth(c echo.Context) error {
	body := map[string]interface{}{
		"status": "Server is running",
		"time":   time.Now().Format(time.RFC3339),
		"store":  h.storeDriver,
	}
	if h.wsManager != nil {
		body["connections"] = h.wsManager.ClientCount()
	}
	return c.JSON(http.StatusOK, body)
}
