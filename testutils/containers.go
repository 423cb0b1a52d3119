// Package testutils starts throwaway backing services for integration
// tests. Every helper skips the test unless CIVIC_INTEGRATION=1 or an
// explicit connection string is provided.
package testutils

import (
	"context"
	"fmt"
	"os"
	"testing"
	"time"

	"github.com/docker/go-connections/nat"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func integrationEnabled() bool {
	return os.Getenv("CIVIC_INTEGRATION") == "1"
}

// start runs req and returns host:port for the given container port.
func start(t *testing.T, req testcontainers.ContainerRequest, port string) string {
	t.Helper()
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("start %s: %v", req.Image, err)
	}
	t.Cleanup(func() {
		_ = c.Terminate(context.Background())
	})

	host, err := c.Host(ctx)
	if err != nil {
		t.Fatalf("container host: %v", err)
	}
	mapped, err := c.MappedPort(ctx, nat.Port(port))
	if err != nil {
		t.Fatalf("container port: %v", err)
	}
	return fmt.Sprintf("%s:%s", host, mapped.Port())
}

// PostgresDSN returns TEST_DB_DSN or the DSN of a fresh postgres container.
func PostgresDSN(t *testing.T) string {
	t.Helper()
	if dsn := os.Getenv("TEST_DB_DSN"); dsn != "" {
		return dsn
	}
	if !integrationEnabled() {
		t.Skip("set CIVIC_INTEGRATION=1 or TEST_DB_DSN to run postgres tests")
	}
	addr := start(t, testcontainers.ContainerRequest{
		Image: "postgres:15",
		Env: map[string]string{
			"POSTGRES_PASSWORD": "test",
			"POSTGRES_USER":     "test",
			"POSTGRES_DB":       "civicreport",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}, "5432")
	return fmt.Sprintf("postgres://test:test@%s/civicreport?sslmode=disable", addr)
}

// MongoURI returns TEST_MONGODB_URI or the URI of a fresh single-node
// replica set, so transactions are available. The container accepts fail
// points.
func MongoURI(t *testing.T) string {
	t.Helper()
	if uri := os.Getenv("TEST_MONGODB_URI"); uri != "" {
		return uri
	}
	if !integrationEnabled() {
		t.Skip("set CIVIC_INTEGRATION=1 or TEST_MONGODB_URI to run mongo tests")
	}
	addr := start(t, testcontainers.ContainerRequest{
		Image:        "mongo:7",
		Cmd:          []string{"--replSet", "rs0", "--bind_ip_all", "--setParameter", "enableTestCommands=1"},
		ExposedPorts: []string{"27017/tcp"},
		WaitingFor:   wait.ForLog("Waiting for connections").WithStartupTimeout(60 * time.Second),
		LifecycleHooks: []testcontainers.ContainerLifecycleHooks{{
			PostReadies: []testcontainers.ContainerHook{
				func(ctx context.Context, c testcontainers.Container) error {
					_, _, err := c.Exec(ctx, []string{"mongosh", "--quiet", "--eval",
						`rs.initiate({_id: "rs0", members: [{_id: 0, host: "localhost:27017"}]})`})
					return err
				},
			},
		}},
	}, "27017")
	return fmt.Sprintf("mongodb://%s/?directConnection=true", addr)
}

// RedisAddr returns TEST_REDIS_ADDR or the address of a fresh redis.
func RedisAddr(t *testing.T) string {
	t.Helper()
	if addr := os.Getenv("TEST_REDIS_ADDR"); addr != "" {
		return addr
	}
	if !integrationEnabled() {
		t.Skip("set CIVIC_INTEGRATION=1 or TEST_REDIS_ADDR to run redis tests")
	}
	return start(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	}, "6379")
}
