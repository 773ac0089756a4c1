package handlers

import (
	"errors"
	"net/http"

	"lms-companion-api/internal/admin"
	"lms-companion-api/internal/persist"
	"lms-companion-api/internal/querycache"
	"lms-companion-api/internal/realtime"
	"lms-companion-api/internal/scorm"
	"lms-companion-api/internal/upstream"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// Handlers carries the companion's services into the gin layer. main builds
// one instance and hands it to the router; nothing here is ambient state.
type Handlers struct {
	Client    *upstream.Client
	Cache     *querycache.Cache
	Admin     *admin.TokenService
	Hub       *realtime.Hub
	Registry  *scorm.Registry
	Snapshots *persist.Store
	DB        *gorm.DB

	// Offline selects the durable element store for the content bridge.
	Offline bool

	// PassphraseHash gates the elevation endpoint; empty disables the gate.
	PassphraseHash string
}

// respondError maps the error taxonomy onto inline HTTP error states.
// Client errors keep their upstream status; offline fail-fast is 503;
// anything else from the upstream surfaces as a bad gateway.
func respondError(c *gin.Context, err error) {
	var statusErr *upstream.StatusError
	switch {
	case errors.Is(err, querycache.ErrOffline):
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Offline and no cached value available"})
	case errors.Is(err, upstream.ErrNotElevated):
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Admin elevation required"})
	case errors.As(err, &statusErr):
		c.JSON(statusErr.Status, gin.H{"error": err.Error()})
	default:
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
	}
}
