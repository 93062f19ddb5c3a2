package testutil

import (
	"context"
	"testing"
	"time"

	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func startContainer(t *testing.T, req testcontainers.ContainerRequest) (string, func()) {
	t.Helper()
	if testing.Short() {
		t.Skipf("%s container tests are skipped in -short mode", req.Image)
	}
	ctx := context.Background()

	c, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		t.Fatalf("Failed to start %s container: %v", req.Image, err)
	}

	endpoint, err := c.Endpoint(ctx, "")
	if err != nil {
		t.Fatalf("Failed to get %s endpoint: %v", req.Image, err)
	}

	return endpoint, func() {
		if err := c.Terminate(ctx); err != nil {
			t.Errorf("Failed to terminate container: %v", err)
		}
	}
}

// SetupRedis starts a disposable Redis. Skipped under -short.
func SetupRedis(t *testing.T) (*redis.Client, func()) {
	t.Helper()

	addr, terminate := startContainer(t, testcontainers.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForLog("Ready to accept connections").WithStartupTimeout(30 * time.Second),
	})

	rdb := redis.NewClient(&redis.Options{Addr: addr})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		terminate()
		t.Fatalf("Failed to ping redis: %v", err)
	}

	return rdb, func() {
		rdb.Close()
		terminate()
	}
}

// SetupNATS starts a disposable nats-server. Skipped under -short.
func SetupNATS(t *testing.T) (*nats.Conn, func()) {
	t.Helper()

	addr, terminate := startContainer(t, testcontainers.ContainerRequest{
		Image:        "nats:2-alpine",
		ExposedPorts: []string{"4222/tcp"},
		WaitingFor:   wait.ForLog("Server is ready").WithStartupTimeout(30 * time.Second),
	})

	conn, err := nats.Connect("nats://" + addr)
	if err != nil {
		terminate()
		t.Fatalf("Failed to connect to nats: %v", err)
	}

	return conn, func() {
		conn.Close()
		terminate()
	}
}
