package middlewares

import (
	"context"
	"net/http"
	"strings"

	"civicreport-be/apperrors"
	"civicreport-be/models"
	"civicreport-be/services"
	authUtils "civicreport-be/utils"

	"github.com/gin-gonic/gin"
)

const (
	ContextUserID = "user_id"
	ContextRole   = "role"

	// AuthCookie carries the token for browser clients.
	AuthCookie = "auth_token"
)

// bearerToken extracts the token from the Authorization header, the
// auth_token cookie or the token query parameter, in that order.
func bearerToken(c *gin.Context) string {
	if h := c.GetHeader("Authorization"); h != "" {
		if strings.HasPrefix(h, "Bearer ") {
			return strings.TrimSpace(h[7:])
		}
		return strings.TrimSpace(h)
	}
	if cookie, err := c.Cookie(AuthCookie); err == nil && cookie != "" {
		return cookie
	}
	return c.Query("token")
}

// AccountLookup loads the account behind a token.
//
//go:generate mockgen -destination=../mocks/mock_account_lookup.go -package=mocks civicreport-be/middlewares AccountLookup
type AccountLookup interface {
	Me(ctx context.Context, id string) (*models.User, error)
}

// AuthMiddleware verifies the JWT and stores user_id and role on the context.
// The role is read from the stored account. With nil accounts the token's
// role claim is used.
func AuthMiddleware(tokens *authUtils.Issuer, accounts AccountLookup) gin.HandlerFunc {
	return func(c *gin.Context) {
		tokenString := bearerToken(c)
		if tokenString == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "No authorization token provided"})
			return
		}

		claims, err := tokens.ParseToken(tokenString)
		if err != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "Invalid authorization token"})
			return
		}

		role := claims.Role
		if accounts != nil {
			user, err := accounts.Me(c.Request.Context(), claims.UserID)
			if err != nil {
				c.AbortWithStatusJSON(apperrors.HTTPStatus(err), gin.H{"error": apperrors.Message(err)})
				return
			}
			role = user.Role
		}

		c.Set(ContextUserID, claims.UserID)
		c.Set(ContextRole, role)
		c.Next()
	}
}

// ActorFrom returns the caller stored by AuthMiddleware.
func ActorFrom(c *gin.Context) services.Actor {
	actor := services.Actor{ID: c.GetString(ContextUserID)}
	if role, ok := c.Get(ContextRole); ok {
		actor.Role, _ = role.(models.Role)
	}
	return actor
}

func requireRole(allowed func(models.Role) bool, message string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if !allowed(ActorFrom(c).Role) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": message})
			return
		}
		c.Next()
	}
}

// RequireStaff admits DEPARTMENT, ADMIN and SUPERADMIN callers.
func RequireStaff() gin.HandlerFunc {
	return requireRole(models.Role.IsStaff, "Staff access required")
}

// RequireAdmin admits ADMIN and SUPERADMIN callers.
func RequireAdmin() gin.HandlerFunc {
	return requireRole(models.Role.IsAdmin, "Admin access required")
}
