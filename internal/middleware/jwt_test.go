package middleware_test

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/iliyamo/movie-seat-booking/internal/middleware"
	"github.com/iliyamo/movie-seat-booking/internal/utils"
)

const jwtTestSecret = "test-secret"

func protectedApp(mw ...echo.MiddlewareFunc) (*echo.Echo, *echo.Context) {
	var captured echo.Context
	e := echo.New()
	e.GET("/v1/me", func(c echo.Context) error {
		captured = c
		return c.NoContent(http.StatusOK)
	}, mw...)
	return e, &captured
}

func TestJWTAuthAcceptsValidToken(t *testing.T) {
	tok, err := utils.NewAccessToken(jwtTestSecret, 7, "USER", 60)
	require.NoError(t, err)

	e, captured := protectedApp(middleware.JWTAuth(jwtTestSecret))
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, uint64(7), (*captured).Get("user_id"))
	assert.Equal(t, "USER", (*captured).Get("role"))
}

func TestJWTAuthRejectsMissingHeader(t *testing.T) {
	e, _ := protectedApp(middleware.JWTAuth(jwtTestSecret))
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/v1/me", nil))

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestJWTAuthRejectsWrongSecret(t *testing.T) {
	tok, err := utils.NewAccessToken("other-secret", 7, "USER", 60)
	require.NoError(t, err)

	e, _ := protectedApp(middleware.JWTAuth(jwtTestSecret))
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
}

func TestRequireRoleAllowsListedRole(t *testing.T) {
	tok, err := utils.NewAccessToken(jwtTestSecret, 7, "ADMIN", 60)
	require.NoError(t, err)

	e, _ := protectedApp(middleware.JWTAuth(jwtTestSecret), middleware.RequireRole("ADMIN"))
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestRequireRoleForbidsOtherRole(t *testing.T) {
	tok, err := utils.NewAccessToken(jwtTestSecret, 7, "USER", 60)
	require.NoError(t, err)

	e, _ := protectedApp(middleware.JWTAuth(jwtTestSecret), middleware.RequireRole("ADMIN"))
	req := httptest.NewRequest(http.MethodGet, "/v1/me", nil)
	req.Header.Set("Authorization", "Bearer "+tok.Token)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusForbidden, rec.Code)
}
