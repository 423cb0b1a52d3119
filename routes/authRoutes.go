package routes

import (
	"civicreport-be/controllers"
	"civicreport-be/middlewares"

	"github.com/gin-gonic/gin"
)

// AuthRoutes sets up the authentication routes
func AuthRoutes(r *gin.Engine, h *controllers.AuthController, auth gin.HandlerFunc) {
	group := r.Group("/api/auth")
	{
		group.POST("/register", h.RegisterUser)
		group.POST("/login", h.LoginUser)
		group.POST("/logout", h.LogoutUser)
		group.GET("/me", auth, h.GetMe)
		group.POST("/refresh", auth, h.RefreshToken)
	}
}

// UserRoutes sets up the self-service account routes
func UserRoutes(r *gin.Engine, h *controllers.UserController, auth gin.HandlerFunc) {
	group := r.Group("/api/users", auth)
	{
		group.GET("/profile", h.GetProfile)
		group.PUT("/profile", h.UpdateProfile)
		group.PUT("/password", h.ChangePassword)
		group.GET("/issues", h.MyIssues)
		group.GET("/assigned-issues", middlewares.RequireStaff(), h.AssignedIssues)
	}
}
