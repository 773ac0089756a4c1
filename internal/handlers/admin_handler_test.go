package handlers

import (
	"net/http"
	"testing"

	"lms-companion-api/internal/auth"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/require"
)

func adminRouter(h *Handlers) *gin.Engine {
	r := gin.New()
	r.POST("/api/admin/elevate", h.Elevate)
	r.DELETE("/api/admin/elevate", h.Deescalate)
	r.GET("/api/admin/status", h.AdminStatus)
	return r
}

func TestElevate_Success(t *testing.T) {
	h := newTestHandlers(t)
	r := adminRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/admin/elevate", ElevateRequest{
		Token:     "admin-tok",
		ExpiresIn: 900,
	})
	require.Equal(t, http.StatusOK, w.Code)

	token, ok := h.Admin.Token()
	require.True(t, ok)
	require.Equal(t, "admin-tok", token)
}

func TestElevate_WrongPassphrase(t *testing.T) {
	h := newTestHandlers(t)
	hash, err := auth.HashPassphrase("sesame")
	require.NoError(t, err)
	h.PassphraseHash = hash
	r := adminRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/admin/elevate", ElevateRequest{
		Passphrase: "wrong",
		Token:      "admin-tok",
		ExpiresIn:  900,
	})
	require.Equal(t, http.StatusUnauthorized, w.Code)

	_, ok := h.Admin.Token()
	require.False(t, ok)
}

func TestElevate_CorrectPassphrase(t *testing.T) {
	h := newTestHandlers(t)
	hash, err := auth.HashPassphrase("sesame")
	require.NoError(t, err)
	h.PassphraseHash = hash
	r := adminRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/admin/elevate", ElevateRequest{
		Passphrase: "sesame",
		Token:      "admin-tok",
		ExpiresIn:  900,
	})
	require.Equal(t, http.StatusOK, w.Code)
}

func TestElevate_MissingFields(t *testing.T) {
	h := newTestHandlers(t)
	r := adminRouter(h)

	w := doJSON(t, r, http.MethodPost, "/api/admin/elevate", map[string]any{"token": "admin-tok"})
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAdminStatus_Lifecycle(t *testing.T) {
	h := newTestHandlers(t)
	r := adminRouter(h)

	w := doJSON(t, r, http.MethodGet, "/api/admin/status", nil)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"elevated":false`)

	doJSON(t, r, http.MethodPost, "/api/admin/elevate", ElevateRequest{Token: "admin-tok", ExpiresIn: 900})
	w = doJSON(t, r, http.MethodGet, "/api/admin/status", nil)
	require.Contains(t, w.Body.String(), `"elevated":true`)

	doJSON(t, r, http.MethodDelete, "/api/admin/elevate", nil)
	w = doJSON(t, r, http.MethodGet, "/api/admin/status", nil)
	require.Contains(t, w.Body.String(), `"elevated":false`)
}
