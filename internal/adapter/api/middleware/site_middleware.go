package middleware

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

// SiteMember rejects callers that do not belong to the :siteId of the route.
// It must run after Authenticate.
func SiteMember(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		user := CurrentUser(c)
		if user == nil {
			return echo.NewHTTPError(http.StatusUnauthorized, "Authentication required")
		}

		if !user.BelongsTo(c.Param("siteId")) {
			return echo.NewHTTPError(http.StatusForbidden, "Site membership required")
		}

		return next(c)
	}
}
