package controllers

import (
	"civicreport-be/middlewares"
	"civicreport-be/realtime"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type RealtimeController struct {
	base
	hub *realtime.Hub
}

func NewRealtimeController(hub *realtime.Hub, opts Options) *RealtimeController {
	return &RealtimeController{base: newBase(opts), hub: hub}
}

// Connect upgrades to a websocket joined to the caller's room. It blocks
// until the client disconnects.
func (h *RealtimeController) Connect(c *gin.Context) {
	userID := middlewares.ActorFrom(c).ID
	if err := h.hub.Serve(c.Writer, c.Request, userID); err != nil {
		// the upgrader has already written the HTTP error
		h.log.Warn("websocket upgrade failed", zap.String("user_id", userID), zap.Error(err))
	}
}
