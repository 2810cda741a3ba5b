//go:build integration

package email

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
)

func setupRedis(t *testing.T) *redis.Client {
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForLog("Ready to accept connections"),
		},
		Started: true,
	})
	require.NoError(t, err)

	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379")
	require.NoError(t, err)

	client := redis.NewClient(&redis.Options{Addr: fmt.Sprintf("%s:%s", host, port.Port())})
	t.Cleanup(func() { _ = client.Close() })

	return client
}

func TestRedisQuota_Reserve(t *testing.T) {
	client := setupRedis(t)
	ctx := context.Background()

	now := time.Now()
	quota := NewRedisQuota(client, 2, time.Minute)
	quota.now = func() time.Time { return now }

	require.NoError(t, quota.Reserve(ctx, "t1"))
	require.NoError(t, quota.Reserve(ctx, "t1"))
	require.ErrorIs(t, quota.Reserve(ctx, "t1"), ErrQuotaExceeded)
	require.NoError(t, quota.Reserve(ctx, "t2"))

	used, err := quota.Used(ctx, "t1")
	require.NoError(t, err)
	require.Equal(t, int64(2), used)

	now = now.Add(2 * time.Minute)
	require.NoError(t, quota.Reserve(ctx, "t1"))
}
