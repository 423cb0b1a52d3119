package routes

import (
	"civicreport-be/controllers"

	"github.com/gin-gonic/gin"
)

// IssueRoutes sets up the issue routes. createLimit guards issue creation.
func IssueRoutes(r *gin.Engine, h *controllers.IssueController, auth, createLimit gin.HandlerFunc) {
	issue := r.Group("/api/issues", auth)
	{
		issue.POST("", createLimit, h.CreateIssue)
		issue.GET("", h.GetAllIssues)
		issue.GET("/map", h.MapIssues)
		issue.POST("/classify", h.Classify)
		issue.GET("/:id", h.GetIssue)
		issue.PUT("/:id", h.UpdateIssue)
		issue.DELETE("/:id", h.DeleteIssue)
		issue.POST("/:id/images", h.UploadImages)
		issue.POST("/:id/comments", h.AddComment)
	}
}
