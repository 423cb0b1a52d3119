package controllers

import (
	"net/http"

	"civicreport-be/middlewares"
	"civicreport-be/repositories"
	"civicreport-be/services"

	"github.com/gin-gonic/gin"
)

type IssueController struct {
	base
	issues *services.IssueService
}

func NewIssueController(issues *services.IssueService, opts Options) *IssueController {
	return &IssueController{base: newBase(opts), issues: issues}
}

// CreateIssue handles the creation of a new issue
func (h *IssueController) CreateIssue(c *gin.Context) {
	var input services.CreateIssueInput
	if !h.bind(c, &input) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	issue, err := h.issues.Create(ctx, middlewares.ActorFrom(c), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Issue created successfully", "issue": issue})
}

// GetAllIssues lists issues with filters and pagination, newest first.
func (h *IssueController) GetAllIssues(c *gin.Context) {
	q := repositories.IssueQuery{
		Status:     c.Query("status"),
		Category:   c.Query("category"),
		Priority:   c.Query("priority"),
		Search:     c.Query("search"),
		ReporterID: c.Query("userId"),
		AssigneeID: c.Query("assigneeId"),
	}
	p := page(c, services.DefaultIssuePageSize)

	ctx, cancel := h.ctx(c)
	defer cancel()

	issues, total, err := h.issues.List(ctx, q, p)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues, "pagination": paginate(p, total)})
}

// GetIssue returns one issue with comments and updates.
func (h *IssueController) GetIssue(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	issue, err := h.issues.Get(ctx, c.Param("id"))
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issue": issue})
}

func (h *IssueController) UpdateIssue(c *gin.Context) {
	var input services.UpdateIssueInput
	if !h.bind(c, &input) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	issue, err := h.issues.Update(ctx, middlewares.ActorFrom(c), c.Param("id"), input)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue updated successfully", "issue": issue})
}

func (h *IssueController) DeleteIssue(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	if err := h.issues.Delete(ctx, middlewares.ActorFrom(c), c.Param("id")); err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Issue deleted successfully"})
}

// UploadImages appends base64 images to an issue.
func (h *IssueController) UploadImages(c *gin.Context) {
	var input struct {
		Images []string `json:"images"`
	}
	if !h.bind(c, &input) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	res, err := h.issues.AppendImages(ctx, middlewares.ActorFrom(c), c.Param("id"), input.Images)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Images uploaded successfully",
		"images":   res.Issue.Images,
		"uploaded": res.Uploaded,
		"failed":   res.Failed,
	})
}

func (h *IssueController) AddComment(c *gin.Context) {
	var input struct {
		Content string `json:"content"`
	}
	if !h.bind(c, &input) {
		return
	}
	ctx, cancel := h.ctx(c)
	defer cancel()

	comment, err := h.issues.AddComment(ctx, middlewares.ActorFrom(c), c.Param("id"), input.Content)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Comment added successfully", "comment": comment})
}

// MapIssues returns map pins for recent issues with coordinates.
func (h *IssueController) MapIssues(c *gin.Context) {
	ctx, cancel := h.ctx(c)
	defer cancel()

	pins, err := h.issues.Map(ctx)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": pins})
}

// Classify previews the category the classifier would pick.
func (h *IssueController) Classify(c *gin.Context) {
	var input struct {
		Text string `json:"text"`
	}
	if !h.bind(c, &input) {
		return
	}
	res, err := h.issues.Classify(input.Text)
	if err != nil {
		h.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"analysis": res})
}
