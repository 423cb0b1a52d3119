package controllers

import (
	"net/http"
	"time"

	"civicreport-be/middlewares"
	"civicreport-be/services"

	"github.com/gin-gonic/gin"
)

type AuthController struct {
	base
	users    *services.UserService
	domain   string
	tokenTTL time.Duration
}

func NewAuthController(users *services.UserService, tokenTTL time.Duration, opts Options) *AuthController {
	return &AuthController{base: newBase(opts), users: users, domain: opts.Domain, tokenTTL: tokenTTL}
}

// setAuthCookie stores token in the auth_token cookie. Production cookies
// carry no domain so they work cross-origin.
func (a *AuthController) setAuthCookie(c *gin.Context, token string, maxAge int) {
	domain := a.domain
	if a.production {
		domain = ""
	}
	http.SetCookie(c.Writer, &http.Cookie{
		Name:     middlewares.AuthCookie,
		Value:    token,
		MaxAge:   maxAge,
		Path:     "/",
		Domain:   domain,
		Secure:   a.production,
		HttpOnly: true,
		SameSite: http.SameSiteNoneMode,
	})
}

// RegisterUser handles user registration
func (a *AuthController) RegisterUser(c *gin.Context) {
	var input services.RegisterInput
	if !a.bind(c, &input) {
		return
	}
	ctx, cancel := a.ctx(c)
	defer cancel()

	user, token, err := a.users.Register(ctx, input)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{
		"message": "User registered successfully",
		"user":    user,
		"token":   token,
	})
}

// LoginUser handles user login
func (a *AuthController) LoginUser(c *gin.Context) {
	var input services.LoginInput
	if !a.bind(c, &input) {
		return
	}
	ctx, cancel := a.ctx(c)
	defer cancel()

	user, token, err := a.users.Login(ctx, input)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.setAuthCookie(c, token, int(a.tokenTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"message": "Login successful",
		"user":    user,
		"token":   token,
	})
}

// GetMe retrieves the authenticated user's information
func (a *AuthController) GetMe(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	user, err := a.users.Me(ctx, middlewares.ActorFrom(c).ID)
	if err != nil {
		a.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": user})
}

// RefreshToken issues a new token carrying the stored role.
func (a *AuthController) RefreshToken(c *gin.Context) {
	ctx, cancel := a.ctx(c)
	defer cancel()

	token, err := a.users.Refresh(ctx, middlewares.ActorFrom(c).ID)
	if err != nil {
		a.fail(c, err)
		return
	}
	a.setAuthCookie(c, token, int(a.tokenTTL.Seconds()))
	c.JSON(http.StatusOK, gin.H{
		"message": "Token refreshed successfully",
		"token":   token,
	})
}

// LogoutUser handles user logout by clearing the auth_token cookie
func (a *AuthController) LogoutUser(c *gin.Context) {
	a.setAuthCookie(c, "", -1)
	c.JSON(http.StatusOK, gin.H{"message": "Logged out successfully"})
}
