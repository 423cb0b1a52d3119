package routes

import (
	"civicreport-be/controllers"
	"civicreport-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AdminRoutes sets up staff triage, analytics and user administration.
func AdminRoutes(r *gin.Engine, h *controllers.AdminController, users *controllers.UserController, auth gin.HandlerFunc) {
	admin := r.Group("/api/admin", auth)
	{
		staff := admin.Group("", middlewares.RequireStaff())
		staff.GET("/dashboard", h.Dashboard)
		staff.PUT("/issues/:id/assign", h.AssignIssue)
		staff.PUT("/issues/:id/status", h.UpdateStatus)

		admins := admin.Group("", middlewares.RequireAdmin())
		admins.GET("/analytics", h.Analytics)
		admins.GET("/users", users.ListUsers)
		admins.PUT("/users/:id/role", users.UpdateRole)
	}
}
