package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"civicreport-be/storage"
)

const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port           string
	Env            string
	Domain         string
	RequestTimeout time.Duration
	CORSOrigins    []string

	StoreDriver       string
	MongoURI          string
	MongoDatabase     string
	MongoTransactions bool
	DatabaseURL       string

	RedisAddress       string
	RedisPassword      string
	IssueLimitPrefix   string
	IssueDailyLimit    int
	RedisEventsChannel string

	JWTSecret string
	TokenTTL  time.Duration

	Minio storage.MinioConfig
}

func (c Config) Production() bool { return c.Env == "production" }

// Load reads the configuration from the environment. Callers load .env
// beforehand when they want one.
func Load() (*Config, error) {
	var errs []string
	fail := func(format string, args ...any) { errs = append(errs, fmt.Sprintf(format, args...)) }

	c := &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("GO_ENV", "development"),
		Domain:             getEnv("DOMAIN", ""),
		StoreDriver:        strings.ToLower(getEnv("STORE_DRIVER", DriverMongo)),
		MongoURI:           getEnv("MONGODB_URI", ""),
		MongoDatabase:      getEnv("MONGODB_DATABASE", "civicreport"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddress:       getEnv("REDIS_ADDRESS", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		IssueLimitPrefix:   getEnv("REDIS_QUEUE_FOR_ISSUE_LIMIT", "issue_limit"),
		RedisEventsChannel: getEnv("REDIS_EVENTS_CHANNEL", "civic:events"),
		JWTSecret:          getEnv("JWT_SECRET", ""),
		CORSOrigins:        splitList(getEnv("CORS_ORIGINS", "*")),
		Minio: storage.MinioConfig{
			Endpoint:  getEnv("MINIO_ENDPOINT", ""),
			AccessKey: getEnv("MINIO_ACCESS_KEY", ""),
			SecretKey: getEnv("MINIO_SECRET_KEY", ""),
			Bucket:    getEnv("MINIO_BUCKET", "civic-images"),
			PublicURL: getEnv("MINIO_PUBLIC_URL", ""),
		},
	}

	var err error
	if c.MongoTransactions, err = getEnvAsBool("MONGODB_TRANSACTIONS", false); err != nil {
		fail("MONGODB_TRANSACTIONS: %v", err)
	}
	if c.Minio.UseSSL, err = getEnvAsBool("MINIO_USE_SSL", false); err != nil {
		fail("MINIO_USE_SSL: %v", err)
	}
	if c.IssueDailyLimit, err = getEnvAsInt("ISSUE_DAILY_LIMIT", 20); err != nil || c.IssueDailyLimit < 1 {
		fail("ISSUE_DAILY_LIMIT must be a positive integer")
	}
	if c.TokenTTL, err = getEnvAsDuration("TOKEN_TTL", 72*time.Hour); err != nil || c.TokenTTL <= 0 {
		fail("TOKEN_TTL must be a positive duration")
	}
	if c.RequestTimeout, err = getEnvAsDuration("REQUEST_TIMEOUT", 10*time.Second); err != nil || c.RequestTimeout <= 0 {
		fail("REQUEST_TIMEOUT must be a positive duration")
	}

	if c.JWTSecret == "" {
		fail("JWT_SECRET is required")
	}
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			fail("MONGODB_URI is required for the mongo store")
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			fail("DATABASE_URL is required for the postgres store")
		}
	case DriverMemory:
	default:
		fail("STORE_DRIVER %q is not one of mongo, postgres, memory", c.StoreDriver)
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid configuration: %s", strings.Join(errs, "; "))
	}
	return c, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func getEnvAsBool(key string, fallback bool) (bool, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	return strconv.ParseBool(v)
}

func getEnvAsInt(key string, fallback int) (int, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	return strconv.Atoi(v)
}

func getEnvAsDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := getEnv(key, "")
	if v == "" {
		return fallback, nil
	}
	return time.ParseDuration(v)
}

func splitList(v string) []string {
	var out []string
	for _, part := range strings.Split(v, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
