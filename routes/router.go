package routes

import (
	"context"
	"net/http"
	"time"

	"civicreport-be/config"
	"civicreport-be/controllers"
	"civicreport-be/middlewares"
	"civicreport-be/realtime"
	"civicreport-be/repositories"
	"civicreport-be/services"
	authUtils "civicreport-be/utils"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Dependencies is everything the router needs. Redis may be nil.
type Dependencies struct {
	Config        *config.Config
	Log           *zap.Logger
	Store         repositories.Store
	Tokens        *authUtils.Issuer
	Users         *services.UserService
	Issues        *services.IssueService
	Notifications *services.NotificationService
	Admin         *services.AdminService
	Hub           *realtime.Hub
	Redis         *redis.Client
}

// CORS builds the cors middleware for the configured origins. A single "*"
// allows every origin without credentials.
func CORS(origins []string) gin.HandlerFunc {
	cfg := cors.DefaultConfig()
	cfg.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	cfg.AllowMethods = []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}
	cfg.MaxAge = 12 * time.Hour
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		cfg.AllowAllOrigins = true
	} else {
		cfg.AllowOrigins = origins
		cfg.AllowCredentials = true
	}
	return cors.New(cfg)
}

// NewRouter assembles the engine with every route group.
func NewRouter(d Dependencies) *gin.Engine {
	cfg := d.Config
	opts := controllers.Options{
		Log:            d.Log,
		Production:     cfg.Production(),
		Domain:         cfg.Domain,
		RequestTimeout: cfg.RequestTimeout,
	}

	r := gin.New()
	r.Use(middlewares.Recovery(d.Log, cfg.Production()), middlewares.RequestLogger(d.Log), CORS(cfg.CORSOrigins))

	auth := middlewares.AuthMiddleware(d.Tokens, d.Users)
	createLimit := middlewares.IssueRateLimiter(d.Redis, cfg.IssueLimitPrefix, cfg.IssueDailyLimit, d.Log)

	users := controllers.NewUserController(d.Users, d.Issues, opts)
	AuthRoutes(r, controllers.NewAuthController(d.Users, cfg.TokenTTL, opts), auth)
	UserRoutes(r, users, auth)
	IssueRoutes(r, controllers.NewIssueController(d.Issues, opts), auth, createLimit)
	AdminRoutes(r, controllers.NewAdminController(d.Admin, d.Issues, opts), users, auth)
	NotificationRoutes(r, controllers.NewNotificationController(d.Notifications, opts), auth)
	if d.Hub != nil {
		RealtimeRoutes(r, controllers.NewRealtimeController(d.Hub, opts), auth)
	}

	r.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"message": "pong"})
	})
	r.GET("/health", func(c *gin.Context) {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := d.Store.Ping(ctx); err != nil {
			d.Log.Warn("health check failed", zap.Error(err))
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
			return
		}
		c.JSON(http.StatusOK, gin.H{"status": "ok", "timestamp": time.Now().UTC()})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"error": "Route not found"})
	})
	return r
}
