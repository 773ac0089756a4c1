package routes

import (
	"lms-companion-api/internal/handlers"
	"lms-companion-api/internal/middleware"

	"github.com/gin-gonic/gin"
)

func SetupRoutes(h *handlers.Handlers) *gin.Engine {
	// Create a new GIN Router
	ginRouter := gin.Default()

	// CORS middleware (for frontend integration)
	ginRouter.Use(func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", "*")
		c.Writer.Header().Set("Access-Control-Allow-Credentials", "true")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, X-CSRF-Token, Authorization, accept, origin, Cache-Control, X-Requested-With")
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, OPTIONS, GET, PUT, DELETE, PATCH")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204) // This depends on the implementation of the frontend
			return
		}

		c.Next()
	})

	// Health check endpoint
	ginRouter.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "ok",
			"message": "LMS companion service is running",
		})
	})

	api := ginRouter.Group("/api")
	{
		// Entity reads and learner-scoped mutations
		api.GET("/courses", h.GetCourses)
		api.GET("/courses/:id", h.GetCourseByID)
		api.GET("/courses/:id/units", h.GetCourseUnits)
		api.POST("/courses/:id/enroll", h.EnrollCourse)
		api.GET("/learners/:id/credentials", h.GetCredentials)
		api.POST("/adaptive/next", h.NextAdaptiveQuestion)
		api.GET("/matching/:id", h.GetMatchingExercise)
		api.POST("/matching/attempts", h.SubmitMatchingAttempt)

		// Admin escalation lifecycle
		api.POST("/admin/elevate", h.Elevate)
		api.DELETE("/admin/elevate", h.Deescalate)
		api.GET("/admin/status", h.AdminStatus)

		// Content-tracking bridge lifecycle and runtime surface
		api.POST("/scorm/bridge/:lessonId", h.AttachBridge)
		api.DELETE("/scorm/bridge", h.DetachBridge)
		api.POST("/scorm/runtime/initialize", h.RuntimeInitialize)
		api.POST("/scorm/runtime/finish", h.RuntimeFinish)
		api.POST("/scorm/runtime/commit", h.RuntimeCommit)
		api.GET("/scorm/runtime/value", h.RuntimeGetValue)
		api.POST("/scorm/runtime/value", h.RuntimeSetValue)
		api.GET("/scorm/runtime/last-error", h.RuntimeLastError)
		api.GET("/scorm/runtime/error-string", h.RuntimeErrorString)
		api.GET("/scorm/runtime/diagnostic", h.RuntimeDiagnostic)

		// Cache triggers and snapshot persistence
		api.POST("/cache/refresh", h.RefreshCache)
		api.POST("/cache/unsubscribe", h.Unsubscribe)
		api.POST("/cache/snapshot", h.SaveSnapshot)
		api.DELETE("/cache/snapshot", h.RemoveSnapshot)
		api.GET("/cache/stats", h.CacheStats)

		// Event stream
		api.GET("/ws", h.WebSocketHandler)
	}

	// Admin-scoped routes (live elevation token required)
	adminRoutes := api.Group("")
	adminRoutes.Use(middleware.AdminAuthMiddleware(h.Admin))
	{
		adminRoutes.GET("/courses/:id/exceptions", h.GetCourseExceptions)
		adminRoutes.POST("/exceptions", h.CreateException)
		adminRoutes.DELETE("/exceptions/:id", h.DeleteException)
		adminRoutes.POST("/credentials", h.IssueCredential)
	}

	return ginRouter
}
