package handlers

import (
	"net/http"
	"time"

	"lms-companion-api/internal/auth"

	"github.com/gin-gonic/gin"
)

// ElevateRequest is the payload for acquiring admin privileges. The token
// comes from the upstream admin login; the passphrase is the local gate.
type ElevateRequest struct {
	Passphrase string `json:"passphrase"`
	Token      string `json:"token" binding:"required"`
	ExpiresIn  int    `json:"expiresIn" binding:"required"`
}

// Elevate handles POST /api/admin/elevate
func (h *Handlers) Elevate(c *gin.Context) {
	var req ElevateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{
			"error": "Invalid request. token and expiresIn are required.",
		})
		return
	}

	if err := auth.VerifyPassphrase(h.PassphraseHash, req.Passphrase); err != nil {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid admin passphrase"})
		return
	}

	if err := h.Admin.Elevate(req.Token, req.ExpiresIn); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	expiresAt, _ := h.Admin.ExpiresAt()
	c.JSON(http.StatusOK, gin.H{
		"message":   "Elevated",
		"expiresAt": expiresAt.Format(time.RFC3339),
	})
}

// Deescalate handles DELETE /api/admin/elevate
func (h *Handlers) Deescalate(c *gin.Context) {
	h.Admin.Drop()
	c.JSON(http.StatusOK, gin.H{"message": "De-escalated"})
}

// AdminStatus handles GET /api/admin/status
func (h *Handlers) AdminStatus(c *gin.Context) {
	expiresAt, elevated := h.Admin.ExpiresAt()
	resp := gin.H{"elevated": elevated}
	if elevated {
		resp["expiresAt"] = expiresAt.Format(time.RFC3339)
	}
	c.JSON(http.StatusOK, resp)
}
