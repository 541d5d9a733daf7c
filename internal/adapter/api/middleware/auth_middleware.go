package middleware

import (
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"sitechat/internal/domain/entity"
	"sitechat/internal/domain/repository"
	"sitechat/internal/infrastructure/firebase"
	"sitechat/pkg/logger"
)

const (
	ContextKeyUID  = "uid"
	ContextKeyUser = "user"
)

type AuthMiddleware struct {
	verifier firebase.TokenVerifier
	userRepo repository.UserRepository
}

func NewAuthMiddleware(verifier firebase.TokenVerifier, userRepo repository.UserRepository) *AuthMiddleware {
	return &AuthMiddleware{
		verifier: verifier,
		userRepo: userRepo,
	}
}

// Authenticate verifies the bearer token and loads the caller's profile. The
// token may also come in the "token" query parameter, which browsers need for
// WebSocket handshakes.
func (m *AuthMiddleware) Authenticate(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		idToken, err := extractToken(c)
		if err != nil {
			return err
		}

		uid, err := m.verifier.VerifyToken(c.Request().Context(), idToken)
		if err != nil {
			logger.Debug("Authenticate: token rejected: %v", err)
			return echo.NewHTTPError(http.StatusUnauthorized, "Invalid or expired token")
		}

		user, err := m.userRepo.GetByID(c.Request().Context(), uid)
		if err != nil {
			logger.Warn("Authenticate Warning: no profile for %s: %v", uid, err)
			return echo.NewHTTPError(http.StatusUnauthorized, "User profile not found")
		}

		c.Set(ContextKeyUID, uid)
		c.Set(ContextKeyUser, user)

		return next(c)
	}
}

func extractToken(c echo.Context) (string, error) {
	authHeader := c.Request().Header.Get("Authorization")
	if authHeader == "" {
		if token := c.QueryParam("token"); token != "" {
			return token, nil
		}
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Authorization header is required")
	}

	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" || parts[1] == "" {
		return "", echo.NewHTTPError(http.StatusUnauthorized, "Invalid authorization format")
	}
	return parts[1], nil
}

// CurrentUser returns the profile loaded by Authenticate.
func CurrentUser(c echo.Context) *entity.User {
	user, _ := c.Get(ContextKeyUser).(*entity.User)
	return user
}
