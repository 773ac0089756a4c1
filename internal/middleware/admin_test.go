package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"lms-companion-api/internal/admin"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func setupRouter(tokens *admin.TokenService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AdminAuthMiddleware(tokens))
	r.GET("/protected", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestAdminAuthMiddleware_Success(t *testing.T) {
	tokens := admin.NewTokenService()
	require.NoError(t, tokens.Elevate("admin-tok", 900))
	r := setupRouter(tokens)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer admin-tok")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}

func TestAdminAuthMiddleware_MissingHeader(t *testing.T) {
	tokens := admin.NewTokenService()
	require.NoError(t, tokens.Elevate("admin-tok", 900))
	r := setupRouter(tokens)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMiddleware_WrongToken(t *testing.T) {
	tokens := admin.NewTokenService()
	require.NoError(t, tokens.Elevate("admin-tok", 900))
	r := setupRouter(tokens)

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer other-tok")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMiddleware_RejectsAfterDeescalation(t *testing.T) {
	tokens := admin.NewTokenService()
	require.NoError(t, tokens.Elevate("admin-tok", 900))
	r := setupRouter(tokens)

	tokens.Drop()

	req := httptest.NewRequest(http.MethodGet, "/protected", nil)
	req.Header.Set("Authorization", "Bearer admin-tok")
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestAdminAuthMiddleware_QueryParamFallback(t *testing.T) {
	tokens := admin.NewTokenService()
	require.NoError(t, tokens.Elevate("admin-tok", 900))
	r := setupRouter(tokens)

	req := httptest.NewRequest(http.MethodGet, "/protected?token=admin-tok", nil)
	w := httptest.NewRecorder()

	r.ServeHTTP(w, req)
	require.Equal(t, http.StatusOK, w.Code)
}
