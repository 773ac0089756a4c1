package handlers

import (
	"net/http"
	"net/url"

	"lms-companion-api/internal/upstream"

	"github.com/gin-gonic/gin"
)

// subscribeHeader carries the fingerprint back to subscribing components so
// they can unsubscribe on unmount.
const subscribeHeader = "X-Cache-Fingerprint"

// maybeSubscribe registers a component subscription when the request asks
// for one (?subscribe=1), making the entry eligible for background refresh
// on mount, refocus, and reconnect.
func (h *Handlers) maybeSubscribe(c *gin.Context, op string, params any, path string, elevated bool) {
	if c.Query("subscribe") != "1" {
		return
	}
	fp := h.Client.SubscribeRead(op, params, path, elevated)
	c.Header(subscribeHeader, fp)
}

// GetCourses handles GET /api/courses
func (h *Handlers) GetCourses(c *gin.Context) {
	h.maybeSubscribe(c, upstream.OpListCourses, nil, "/api/courses", false)
	courses, err := h.Client.ListCourses(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"courses": courses, "count": len(courses)})
}

// GetCourseByID handles GET /api/courses/:id
func (h *Handlers) GetCourseByID(c *gin.Context) {
	id := c.Param("id")
	h.maybeSubscribe(c, upstream.OpGetCourse, id, "/api/courses/"+url.PathEscape(id), false)
	course, err := h.Client.GetCourse(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, course)
}

// GetCourseUnits handles GET /api/courses/:id/units
func (h *Handlers) GetCourseUnits(c *gin.Context) {
	id := c.Param("id")
	h.maybeSubscribe(c, upstream.OpListUnits, id, "/api/courses/"+url.PathEscape(id)+"/units", false)
	units, err := h.Client.ListLearningUnits(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"units": units, "count": len(units)})
}

// EnrollCourse handles POST /api/courses/:id/enroll
func (h *Handlers) EnrollCourse(c *gin.Context) {
	if err := h.Client.EnrollCourse(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Enrolled"})
}

// GetCredentials handles GET /api/learners/:id/credentials
func (h *Handlers) GetCredentials(c *gin.Context) {
	id := c.Param("id")
	h.maybeSubscribe(c, upstream.OpListCredentials, id, "/api/learners/"+url.PathEscape(id)+"/credentials", false)
	credentials, err := h.Client.ListCredentials(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"credentials": credentials, "count": len(credentials)})
}

// NextAdaptiveQuestion handles POST /api/adaptive/next
func (h *Handlers) NextAdaptiveQuestion(c *gin.Context) {
	var req upstream.NextQuestionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. sessionId is required."})
		return
	}
	question, err := h.Client.NextAdaptiveQuestion(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, question)
}

// GetMatchingExercise handles GET /api/matching/:id
func (h *Handlers) GetMatchingExercise(c *gin.Context) {
	id := c.Param("id")
	h.maybeSubscribe(c, upstream.OpGetMatching, id, "/api/matching/"+url.PathEscape(id), false)
	exercise, err := h.Client.GetMatchingExercise(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, exercise)
}

// SubmitMatchingAttempt handles POST /api/matching/attempts
func (h *Handlers) SubmitMatchingAttempt(c *gin.Context) {
	var attempt upstream.MatchingAttempt
	if err := c.ShouldBindJSON(&attempt); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. exerciseId and pairs are required."})
		return
	}
	result, err := h.Client.SubmitMatchingAttempt(c.Request.Context(), attempt)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, result)
}

// GetCourseExceptions handles GET /api/courses/:id/exceptions (admin)
func (h *Handlers) GetCourseExceptions(c *gin.Context) {
	id := c.Param("id")
	exceptions, err := h.Client.ListCourseExceptions(c.Request.Context(), id)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exceptions": exceptions, "count": len(exceptions)})
}

// CreateException handles POST /api/exceptions (admin)
func (h *Handlers) CreateException(c *gin.Context) {
	var req upstream.CreateExceptionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. courseId, learnerId and reason are required."})
		return
	}
	exception, err := h.Client.CreateCourseException(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, exception)
}

// DeleteException handles DELETE /api/exceptions/:id (admin)
func (h *Handlers) DeleteException(c *gin.Context) {
	if err := h.Client.DeleteCourseException(c.Request.Context(), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Exception deleted"})
}

// IssueCredential handles POST /api/credentials (admin)
func (h *Handlers) IssueCredential(c *gin.Context) {
	var req upstream.IssueCredentialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request. learnerId, courseId and title are required."})
		return
	}
	credential, err := h.Client.IssueCredential(c.Request.Context(), req)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, credential)
}
