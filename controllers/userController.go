package controllers

import (
	"net/http"

	"civicreport-be/middlewares"
	"civicreport-be/repositories"
	"civicreport-be/services"

	"github.com/gin-gonic/gin"
)

// UserController serves the caller's own account and the admin user list.
type UserController struct {
	base
	users  *services.UserService
	issues *services.IssueService
}

func NewUserController(users *services.UserService, issues *services.IssueService, opts Options) *UserController {
	return &UserController{base: newBase(opts), users: users, issues: issues}
}

func (u *UserController) GetProfile(c *gin.Context) {
	ctx, cancel := u.ctx(c)
	defer cancel()

	profile, err := u.users.Profile(ctx, middlewares.ActorFrom(c).ID)
	if err != nil {
		u.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": profile})
}

func (u *UserController) UpdateProfile(c *gin.Context) {
	var input services.ProfileInput
	if !u.bind(c, &input) {
		return
	}
	ctx, cancel := u.ctx(c)
	defer cancel()

	user, err := u.users.UpdateProfile(ctx, middlewares.ActorFrom(c).ID, input)
	if err != nil {
		u.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Profile updated successfully", "user": user})
}

func (u *UserController) ChangePassword(c *gin.Context) {
	var input services.PasswordInput
	if !u.bind(c, &input) {
		return
	}
	ctx, cancel := u.ctx(c)
	defer cancel()

	if err := u.users.ChangePassword(ctx, middlewares.ActorFrom(c).ID, input); err != nil {
		u.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Password changed successfully"})
}

// MyIssues lists issues reported by the caller.
func (u *UserController) MyIssues(c *gin.Context) {
	u.listIssues(c, repositories.IssueQuery{ReporterID: middlewares.ActorFrom(c).ID})
}

// AssignedIssues lists issues assigned to the caller.
func (u *UserController) AssignedIssues(c *gin.Context) {
	u.listIssues(c, repositories.IssueQuery{AssigneeID: middlewares.ActorFrom(c).ID})
}

func (u *UserController) listIssues(c *gin.Context, q repositories.IssueQuery) {
	q.Status = c.Query("status")
	q.Category = c.Query("category")
	p := page(c, services.DefaultIssuePageSize)

	ctx, cancel := u.ctx(c)
	defer cancel()

	issues, total, err := u.issues.List(ctx, q, p)
	if err != nil {
		u.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"issues": issues, "pagination": paginate(p, total)})
}

// ListUsers is the admin user directory.
func (u *UserController) ListUsers(c *gin.Context) {
	p := page(c, services.DefaultUserPageSize)
	ctx, cancel := u.ctx(c)
	defer cancel()

	users, total, err := u.users.List(ctx, middlewares.ActorFrom(c), services.UserQuery{
		Role:   c.Query("role"),
		Search: c.Query("search"),
	}, p)
	if err != nil {
		u.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"users": users, "pagination": paginate(p, total)})
}

func (u *UserController) UpdateRole(c *gin.Context) {
	var input struct {
		Role string `json:"role"`
	}
	if !u.bind(c, &input) {
		return
	}
	ctx, cancel := u.ctx(c)
	defer cancel()

	user, err := u.users.UpdateRole(ctx, middlewares.ActorFrom(c), c.Param("id"), input.Role)
	if err != nil {
		u.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "User role updated successfully", "user": user})
}
