package handlers

import (
	"context"
	"log"
	"math"
	"net/http"
	"time"

	"lms-companion-api/internal/realtime"
	"lms-companion-api/internal/scorm"

	"github.com/gin-gonic/gin"
)

// The bridge's host callbacks fan out two ways: an event to the front-end
// over the hub, and a best-effort report to the upstream.

func (h *Handlers) onLessonComplete(lessonID string) func() {
	return func() {
		h.Hub.Broadcast(realtime.Event{Type: realtime.EventLessonCompleted, LessonID: lessonID})
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.Client.CompleteUnit(ctx, lessonID); err != nil {
				log.Printf("scorm: reporting completion of %s failed: %v", lessonID, err)
			}
		}()
	}
}

func (h *Handlers) onLessonProgress(lessonID string) func(float64) {
	return func(score float64) {
		var s *float64
		if !math.IsNaN(score) {
			s = &score
		}
		h.Hub.Broadcast(realtime.Event{Type: realtime.EventLessonProgress, LessonID: lessonID, Score: s})
		if s == nil {
			return
		}
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()
			if err := h.Client.ReportScore(ctx, lessonID, score); err != nil {
				log.Printf("scorm: reporting score for %s failed: %v", lessonID, err)
			}
		}()
	}
}

// AttachBridge handles POST /api/scorm/bridge/:lessonId
// Installing while another lesson's bridge is live is a conflict; the
// legacy protocol assumes a single runtime.
func (h *Handlers) AttachBridge(c *gin.Context) {
	lessonID := c.Param("lessonId")

	var store scorm.ElementStore
	if h.Offline {
		store = scorm.NewDurableStore(h.DB)
	} else {
		store = scorm.NewSessionStore()
	}

	bridge := scorm.NewBridge(lessonID, store, h.onLessonComplete(lessonID), h.onLessonProgress(lessonID))
	if err := h.Registry.Install(bridge); err != nil {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Bridge attached", "lessonId": lessonID})
}

// DetachBridge handles DELETE /api/scorm/bridge
func (h *Handlers) DetachBridge(c *gin.Context) {
	bridge := h.Registry.Uninstall()
	if bridge == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": scorm.ErrNoBridge.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Bridge detached", "lessonId": bridge.LessonID()})
}

func (h *Handlers) currentBridge(c *gin.Context) (*scorm.Bridge, bool) {
	bridge, ok := h.Registry.Current()
	if !ok {
		c.JSON(http.StatusConflict, gin.H{"error": scorm.ErrNoBridge.Error()})
		return nil, false
	}
	return bridge, true
}

// RuntimeInitialize handles POST /api/scorm/runtime/initialize
func (h *Handlers) RuntimeInitialize(c *gin.Context) {
	bridge, ok := h.currentBridge(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": bridge.Initialize("")})
}

// RuntimeFinish handles POST /api/scorm/runtime/finish
func (h *Handlers) RuntimeFinish(c *gin.Context) {
	bridge, ok := h.currentBridge(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": bridge.Finish("")})
}

// RuntimeCommit handles POST /api/scorm/runtime/commit
func (h *Handlers) RuntimeCommit(c *gin.Context) {
	bridge, ok := h.currentBridge(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": bridge.Commit("")})
}

// RuntimeGetValue handles GET /api/scorm/runtime/value?element=...
func (h *Handlers) RuntimeGetValue(c *gin.Context) {
	bridge, ok := h.currentBridge(c)
	if !ok {
		return
	}
	element := c.Query("element")
	if element == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "element query parameter is required"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": bridge.GetValue(element)})
}

// SetValueRequest is the runtime set-value payload. Value may legitimately
// be empty, so only the element is required.
type SetValueRequest struct {
	Element string `json:"element" binding:"required"`
	Value   string `json:"value"`
}

// RuntimeSetValue handles POST /api/scorm/runtime/value
func (h *Handlers) RuntimeSetValue(c *gin.Context) {
	bridge, ok := h.currentBridge(c)
	if !ok {
		return
	}
	var req SetValueRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. element is required."})
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": bridge.SetValue(req.Element, req.Value)})
}

// RuntimeLastError handles GET /api/scorm/runtime/last-error
func (h *Handlers) RuntimeLastError(c *gin.Context) {
	bridge, ok := h.currentBridge(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": bridge.GetLastError()})
}

// RuntimeErrorString handles GET /api/scorm/runtime/error-string?code=...
func (h *Handlers) RuntimeErrorString(c *gin.Context) {
	bridge, ok := h.currentBridge(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": bridge.GetErrorString(c.Query("code"))})
}

// RuntimeDiagnostic handles GET /api/scorm/runtime/diagnostic?code=...
func (h *Handlers) RuntimeDiagnostic(c *gin.Context) {
	bridge, ok := h.currentBridge(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, gin.H{"result": bridge.GetDiagnostic(c.Query("code"))})
}
