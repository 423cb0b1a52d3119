// Command create-admin provisions a staff account, or promotes an existing
// user with the same email.
package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"civicreport-be/config"
	"civicreport-be/models"
	"civicreport-be/services"
	authUtils "civicreport-be/utils"

	"github.com/joho/godotenv"
	flag "github.com/spf13/pflag"
	"go.uber.org/zap"
)

func main() {
	var (
		name     = flag.StringP("name", "n", "Administrator", "display name for a new account")
		email    = flag.StringP("email", "e", "", "account email (required)")
		password = flag.StringP("password", "p", "", "password for a new account; defaults to $ADMIN_PASSWORD")
		role     = flag.StringP("role", "r", string(models.RoleAdmin), "DEPARTMENT, ADMIN or SUPERADMIN")
		envFile  = flag.String("env-file", ".env", "optional dotenv file to load first")
		timeout  = flag.Duration("timeout", 30*time.Second, "overall deadline")
	)
	flag.Parse()

	_ = godotenv.Load(*envFile)
	if *password == "" {
		*password = os.Getenv("ADMIN_PASSWORD")
	}
	if *email == "" || *password == "" {
		fmt.Fprintln(os.Stderr, "create-admin: --email and a password are required")
		flag.Usage()
		os.Exit(2)
	}

	if err := run(*name, *email, *password, models.Role(strings.ToUpper(*role)), *timeout); err != nil {
		fmt.Fprintln(os.Stderr, "create-admin:", err)
		os.Exit(1)
	}
}

func run(name, email, password string, role models.Role, timeout time.Duration) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	log, err := config.NewLogger(cfg.Env)
	if err != nil {
		return err
	}
	defer log.Sync()

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	store, err := config.OpenStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer store.Close(context.Background())

	tokens, err := authUtils.NewIssuer(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return err
	}
	users := services.NewUserService(store, tokens, log)

	user, created, err := users.EnsureStaffAccount(ctx, services.RegisterInput{
		Name:     name,
		Email:    email,
		Password: password,
	}, role)
	if err != nil {
		return err
	}
	if created {
		log.Info("staff account created", zap.String("user_id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
	} else {
		log.Info("existing account promoted", zap.String("user_id", user.ID), zap.String("email", user.Email), zap.String("role", string(user.Role)))
	}
	return nil
}
