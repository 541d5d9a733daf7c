package router

import (
	"github.com/labstack/echo/v4"

	"sitechat/internal/adapter/api/middleware"
	"sitechat/internal/infrastructure/ratelimit"
)

func Setup(e *echo.Echo, authMiddleware *middleware.AuthMiddleware, httpLimiter *ratelimit.RateLimiter) {
	SetupHealthRouter(e)
	SetupMetricsRouter(e)

	v1 := e.Group("/v1")
	if httpLimiter != nil {
		v1.Use(middleware.RateLimit(httpLimiter))
	}
	v1.Use(authMiddleware.Authenticate)

	sites := v1.Group("/sites/:siteId")
	sites.Use(middleware.SiteMember)

	SetupMessageRouter(sites)
	SetupThreadRouter(sites)
	SetupFileRouter(sites)
	SetupPresenceRouter(v1)
	SetupNotificationRouter(v1)
	SetupWebSocketRouter(v1)
}
