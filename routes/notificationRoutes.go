package routes

import (
	"civicreport-be/controllers"

	"github.com/gin-gonic/gin"
)

func NotificationRoutes(r *gin.Engine, h *controllers.NotificationController, auth gin.HandlerFunc) {
	group := r.Group("/api/notifications", auth)
	{
		group.GET("", h.List)
		group.GET("/unread-count", h.UnreadCount)
		group.PUT("/read-all", h.MarkAllRead)
		group.PUT("/:id/read", h.MarkRead)
		group.DELETE("/:id", h.Delete)
	}
}

// RealtimeRoutes mounts the websocket endpoint. Browsers pass the token as
// a query parameter.
func RealtimeRoutes(r *gin.Engine, h *controllers.RealtimeController, auth gin.HandlerFunc) {
	r.GET("/ws", auth, h.Connect)
}
