package routes

import (
	"github.com/gin-gonic/gin"
	"github.com/voxprep/voxprep/internal/api/handlers"
	"github.com/voxprep/voxprep/internal/api/middleware"
)

type Deps struct {
	Interview *handlers.InterviewHandler
	Generate  *handlers.GenerateHandler
	Archive   *handlers.ArchiveHandler
	CallWS    *handlers.CallWSHandler
}

func RegisterRoutes(r *gin.Engine, d Deps) {
	// Health-ish
	r.GET("/ping", func(c *gin.Context) {
		c.JSON(200, gin.H{"message": "pong"})
	})

	// Voice-workflow callback; identity travels in the body.
	r.POST("/api/generate", d.Generate.Generate)

	// Protected routes (JWT)
	auth := r.Group("/")
	auth.Use(middleware.JWTAuth())

	auth.POST("/interviews", d.Interview.Create)
	auth.GET("/interviews", d.Interview.ListMine)
	auth.GET("/interviews/latest", d.Interview.ListLatest)
	auth.GET("/interviews/:interview_id", d.Interview.Get)
	auth.GET("/interviews/:interview_id/feedback", d.Interview.GetFeedback)
	auth.GET("/interviews/:interview_id/log", d.Archive.ListTranscriptLogs)

	// WebSocket call surface
	auth.GET("/ws/call", d.CallWS.CallWS)

	// Admin
	admin := r.Group("/admin")
	admin.Use(middleware.JWTAuth(), middleware.RequireAdmin())
	admin.GET("/archives", d.Archive.ListArchives)
}
