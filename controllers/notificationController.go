package controllers

import (
	"net/http"
	"strconv"

	"civicreport-be/middlewares"
	"civicreport-be/services"

	"github.com/gin-gonic/gin"
)

const defaultNotificationPageSize = 20

type NotificationController struct {
	base
	notifications *services.NotificationService
}

func NewNotificationController(notifications *services.NotificationService, opts Options) *NotificationController {
	return &NotificationController{base: newBase(opts), notifications: notifications}
}

func (h *NotificationController) List(c *gin.Context) {
	p := page(c, defaultNotificationPageSize)
	unreadOnly, _ := strconv.ParseBool(c.DefaultQuery("unreadOnly", "false"))

	ctx, cancel := h.ctx(c)
	defer cancel()

	items, total, err := h.notifications.List(ctx, middlewares.ActorFrom(c).ID, unreadOnly, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"notifications": items, "pagination": paginate(p, total)})
}

func (h *NotificationController) UnreadCount(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	n, err := h.notifications.UnreadCount(ctx, middlewares.ActorFrom(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"unreadCount": n})
}

func (h *NotificationController) MarkRead(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.notifications.MarkRead(ctx, c.Param("id"), middlewares.ActorFrom(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification marked as read"})
}

func (h *NotificationController) MarkAllRead(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	n, err := h.notifications.MarkAllRead(ctx, middlewares.ActorFrom(c).ID)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "All notifications marked as read", "updated": n})
}

func (h *NotificationController) Delete(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.notifications.Delete(ctx, c.Param("id"), middlewares.ActorFrom(c).ID); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Notification deleted successfully"})
}
