//go:build integration

package mongo

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
	"go.mongodb.org/mongo-driver/bson"

	"github.com/99minutos/session-client/internal/core/domain"
)

func startMongo(t *testing.T) Config {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForListeningPort("27017/tcp").WithStartupTimeout(2 * time.Minute),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(context.Background()) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "27017/tcp")
	require.NoError(t, err)

	return Config{URI: fmt.Sprintf("mongodb://%s:%s", host, port.Port()), Database: "session_it"}
}

func TestProfileStore(t *testing.T) {
	ctx := context.Background()
	client, db, err := Connect(ctx, startMongo(t))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	s := NewProfileStore(db, "it", zerolog.Nop())

	got, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)

	rec := domain.CachedProfile{
		User:  domain.User{ID: "1", FirstName: "Ana", Role: domain.RoleProvider},
		Token: "tok1",
	}
	require.NoError(t, s.Set(ctx, rec))

	rec.User.Phone = "555-1111"
	require.NoError(t, s.Set(ctx, rec))

	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, &rec, got)

	n, err := db.Collection(profileCollection).CountDocuments(ctx, bson.M{})
	require.NoError(t, err)
	assert.Equal(t, int64(1), n, "upsert keeps one document per namespace")

	// Another namespace does not see it.
	other, err := NewProfileStore(db, "other", zerolog.Nop()).Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, other)

	require.NoError(t, s.Remove(ctx))
	got, err = s.Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}

func TestProfileStore_CorruptDocument(t *testing.T) {
	ctx := context.Background()
	client, db, err := Connect(ctx, startMongo(t))
	require.NoError(t, err)
	defer func() { _ = client.Disconnect(context.Background()) }()

	_, err = db.Collection(profileCollection).InsertOne(ctx, bson.M{"_id": "it", "user": "not a document"})
	require.NoError(t, err)

	got, err := NewProfileStore(db, "it", zerolog.Nop()).Get(ctx)
	require.NoError(t, err)
	assert.Nil(t, got)
}
