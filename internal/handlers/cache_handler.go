package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// RefreshRequest names the trigger for a stale refresh. The front-end posts
// "focus" on window refocus; the connectivity monitor handles "reconnect"
// itself.
type RefreshRequest struct {
	Reason string `json:"reason"`
}

// RefreshCache handles POST /api/cache/refresh
func (h *Handlers) RefreshCache(c *gin.Context) {
	var req RefreshRequest
	_ = c.ShouldBindJSON(&req)
	if req.Reason == "" {
		req.Reason = "focus"
	}
	h.Cache.RefreshStale(req.Reason)
	c.JSON(http.StatusAccepted, gin.H{"message": "Refresh triggered"})
}

// UnsubscribeRequest drops a component subscription by fingerprint.
type UnsubscribeRequest struct {
	Fingerprint string `json:"fingerprint" binding:"required"`
}

// Unsubscribe handles POST /api/cache/unsubscribe
func (h *Handlers) Unsubscribe(c *gin.Context) {
	var req UnsubscribeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. fingerprint is required."})
		return
	}
	h.Cache.Unsubscribe(req.Fingerprint)
	c.JSON(http.StatusOK, gin.H{"message": "Unsubscribed"})
}

// SaveSnapshot handles POST /api/cache/snapshot
// Persistence failures are logged and swallowed; the endpoint always
// reports acceptance.
func (h *Handlers) SaveSnapshot(c *gin.Context) {
	h.Snapshots.SaveCache(h.Cache)
	c.JSON(http.StatusAccepted, gin.H{"message": "Snapshot requested"})
}

// RemoveSnapshot handles DELETE /api/cache/snapshot
func (h *Handlers) RemoveSnapshot(c *gin.Context) {
	if err := h.Snapshots.Remove(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to remove snapshot"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Snapshot removed"})
}

// CacheStats handles GET /api/cache/stats
func (h *Handlers) CacheStats(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"entries": h.Cache.Len(),
		"online":  h.Cache.Online(),
	})
}
