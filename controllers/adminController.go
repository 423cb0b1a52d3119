package controllers

import (
	"net/http"
	"strconv"

	"civicreport-be/apperrors"
	"civicreport-be/middlewares"
	"civicreport-be/services"

	"github.com/gin-gonic/gin"
)

// AdminController serves staff triage, the dashboard and analytics.
type AdminController struct {
	base
	admin  *services.AdminService
	issues *services.IssueService
}

func NewAdminController(admin *services.AdminService, issues *services.IssueService, opts Options) *AdminController {
	return &AdminController{base: newBase(opts), admin: admin, issues: issues}
}

func (h *AdminController) Dashboard(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	stats, err := h.admin.Dashboard(ctx, middlewares.ActorFrom(c))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"stats": stats})
}

// Analytics reads the trailing window from ?period=<days>.
func (h *AdminController) Analytics(c *gin.Context) {
	days, err := strconv.Atoi(c.DefaultQuery("period", strconv.Itoa(services.DefaultAnalyticsDays)))
	if err != nil {
		h.fail(c, apperrors.Validation("Period must be a number of days"))
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	analytics, err := h.admin.Analytics(ctx, middlewares.ActorFrom(c), days)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analytics": analytics})
}

func (h *AdminController) AssignIssue(c *gin.Context) {
	var input services.AssignInput
	if !h.bind(c, &input) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	issue, err := h.issues.Assign(ctx, middlewares.ActorFrom(c), c.Param("id"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue assigned successfully", "issue": issue})
}

func (h *AdminController) UpdateStatus(c *gin.Context) {
	var input services.StatusInput
	if !h.bind(c, &input) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	issue, err := h.issues.UpdateStatus(ctx, middlewares.ActorFrom(c), c.Param("id"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue status updated successfully", "issue": issue})
}
