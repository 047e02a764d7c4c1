//go:build integration

package redis

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/99minutos/session-client/internal/core/domain"
)

func startRedis(t *testing.T) Config {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7-alpine",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "6379/tcp")
	require.NoError(t, err)

	return Config{Addr: fmt.Sprintf("%s:%s", host, port.Port())}
}

func TestRedisStores(t *testing.T) {
	ctx := context.Background()
	client, err := Connect(ctx, startRedis(t))
	require.NoError(t, err)
	defer client.Close()

	tokens := NewTokenStore(client, "it", zerolog.Nop())
	profiles := NewProfileStore(client, "it", zerolog.Nop())

	t.Run("token round trip with ttl", func(t *testing.T) {
		_, err := tokens.Get(ctx)
		assert.ErrorIs(t, err, domain.ErrNoToken)

		require.NoError(t, tokens.Set(ctx, "tok1", domain.DefaultTokenOptions()))
		rec, err := tokens.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, "tok1", rec.Value)

		ttl, err := client.TTL(ctx, keyspace("it").token()).Result()
		require.NoError(t, err)
		assert.InDelta(t, (7 * 24 * time.Hour).Seconds(), ttl.Seconds(), 60)

		require.NoError(t, tokens.Remove(ctx))
		_, err = tokens.Get(ctx)
		assert.ErrorIs(t, err, domain.ErrNoToken)
	})

	t.Run("corrupt token reads absent", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, keyspace("it").token(), "{not json", 0).Err())
		_, err := tokens.Get(ctx)
		assert.ErrorIs(t, err, domain.ErrNoToken)
	})

	t.Run("profile round trip", func(t *testing.T) {
		rec := domain.CachedProfile{
			User:  domain.User{ID: "1", Email: "a@b.com", Role: domain.RoleCustomer, Address: &domain.Address{City: "Lima"}},
			Token: "tok1",
		}
		require.NoError(t, profiles.Set(ctx, rec))

		got, err := profiles.Get(ctx)
		require.NoError(t, err)
		assert.Equal(t, &rec, got)

		require.NoError(t, profiles.Remove(ctx))
		got, err = profiles.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("corrupt profile reads absent", func(t *testing.T) {
		require.NoError(t, client.Set(ctx, keyspace("it").profile(), "garbage", 0).Err())
		got, err := profiles.Get(ctx)
		require.NoError(t, err)
		assert.Nil(t, got)
	})
}
