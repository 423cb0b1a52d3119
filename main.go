package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"civicreport-be/config"
	"civicreport-be/realtime"
	"civicreport-be/routes"
	"civicreport-be/services"
	"civicreport-be/storage"
	authUtils "civicreport-be/utils"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

const shutdownTimeout = 15 * time.Second

func main() {
	envErr := godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		bootLog, _ := zap.NewProduction()
		bootLog.Fatal("invalid configuration", zap.Error(err))
	}
	log, err := config.NewLogger(cfg.Env)
	if err != nil {
		panic(err)
	}
	defer log.Sync()
	if envErr != nil {
		log.Info("No .env file found")
	}

	if err := run(cfg, log); err != nil {
		log.Fatal("server stopped", zap.Error(err))
	}
}

// originChecker accepts websocket upgrades from the configured CORS origins.
func originChecker(origins []string) func(r *http.Request) bool {
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return nil
	}
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		allowed[o] = true
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		return origin == "" || allowed[origin]
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if cfg.Production() {
		gin.SetMode(gin.ReleaseMode)
	}

	store, err := config.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	rdb, err := config.ConnectRedis(ctx, cfg, log)
	if err != nil {
		return err
	}
	if rdb != nil {
		defer rdb.Close()
	} else {
		log.Warn("REDIS_ADDRESS not set; rate limiting and cross-instance events are disabled")
	}

	tokens, err := authUtils.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}

	hub := realtime.NewHub(log, originChecker(cfg.CORSOrigins))

	var publisher realtime.Publisher = hub
	if rdb != nil {
		bridge := realtime.NewRedisBridge(rdb, cfg.RedisEventsChannel, hub, log)
		go bridge.Listen(ctx)
		publisher = bridge
	}

	images := storage.Disabled()
	if cfg.Minio.Endpoint != "" {
		minioStore, err := storage.NewMinioStore(ctx, cfg.Minio, log)
		if err != nil {
			return err
		}
		images = minioStore
	} else {
		log.Warn("MINIO_ENDPOINT not set; image uploads are disabled")
	}

	notifier := services.NewNotificationService(store, publisher, log)
	issues := services.NewIssueService(store, notifier, images, log)
	users := services.NewUserService(store, tokens, log)
	admin := services.NewAdminService(store, issues)

	router := routes.NewRouter(routes.Dependencies{
		Config:        cfg,
		Log:           log,
		Store:         store,
		Tokens:        tokens,
		Users:         users,
		Issues:        issues,
		Notifications: notifier,
		Admin:         admin,
		Hub:           hub,
		Redis:         rdb,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", srv.Addr), zap.String("store", cfg.StoreDriver))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return err
		}
	case <-ctx.Done():
		log.Info("shutting down")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	hub.Close()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("graceful shutdown failed", zap.Error(err))
	}
	notifier.Wait()
	return nil
}
