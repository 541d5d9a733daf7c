package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"sitechat/internal/adapter/repository"
	"sitechat/internal/domain/entity"
	"sitechat/internal/infrastructure/firebase"
	"sitechat/internal/infrastructure/ratelimit"
)

func newAuthMiddleware() *AuthMiddleware {
	users := repository.NewMemoryUserRepository(
		&entity.User{ID: "U1", Name: "Ana", Role: entity.RoleWorker, SiteIDs: []string{"S1"}},
	)
	return NewAuthMiddleware(firebase.DevTokenVerifier{}, users)
}

func run(t *testing.T, req *http.Request, mw ...echo.MiddlewareFunc) (*httptest.ResponseRecorder, echo.Context, error) {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	var final echo.HandlerFunc = func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	}
	for i := len(mw) - 1; i >= 0; i-- {
		final = mw[i](final)
	}
	err := final(c)
	return rec, c, err
}

func TestAuthenticate(t *testing.T) {
	auth := newAuthMiddleware()

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("Authorization", "Bearer "+firebase.DevToken("U1"))
	rec, c, err := run(t, req, auth.Authenticate)
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "U1", c.Get(ContextKeyUID))
	require.NotNil(t, CurrentUser(c))
	assert.Equal(t, "Ana", CurrentUser(c).Name)

	req = httptest.NewRequest(http.MethodGet, "/?token="+firebase.DevToken("U1"), nil)
	_, _, err = run(t, req, auth.Authenticate)
	assert.NoError(t, err, "token may come in the query")
}

func TestAuthenticate_Rejections(t *testing.T) {
	auth := newAuthMiddleware()

	tests := []struct {
		name   string
		header string
	}{
		{"missing header", ""},
		{"wrong scheme", "Basic abc"},
		{"bad token", "Bearer nonsense"},
		{"unknown user", "Bearer " + firebase.DevToken("U404")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			_, _, err := run(t, req, auth.Authenticate)

			var httpErr *echo.HTTPError
			require.ErrorAs(t, err, &httpErr)
			assert.Equal(t, http.StatusUnauthorized, httpErr.Code)
		})
	}
}

func TestSiteMember(t *testing.T) {
	auth := newAuthMiddleware()

	check := func(siteID string) error {
		e := echo.New()
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		req.Header.Set("Authorization", "Bearer "+firebase.DevToken("U1"))
		c := e.NewContext(req, httptest.NewRecorder())
		c.SetParamNames("siteId")
		c.SetParamValues(siteID)
		return auth.Authenticate(SiteMember(func(c echo.Context) error { return nil }))(c)
	}

	assert.NoError(t, check("S1"))

	var httpErr *echo.HTTPError
	require.ErrorAs(t, check("S2"), &httpErr)
	assert.Equal(t, http.StatusForbidden, httpErr.Code)
}

func TestRateLimit(t *testing.T) {
	limiter := ratelimit.NewRateLimiter(1, 2)

	for i := 0; i < 2; i++ {
		rec, _, err := run(t, httptest.NewRequest(http.MethodGet, "/", nil), RateLimit(limiter))
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, rec.Code)
	}

	rec, _, err := run(t, httptest.NewRequest(http.MethodGet, "/", nil), RateLimit(limiter))
	require.NoError(t, err)
	assert.Equal(t, http.StatusTooManyRequests, rec.Code)
	assert.Contains(t, rec.Body.String(), "retry_after")
}
