package redis

import (
	"context"
	"encoding/json"
	"errors"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/infrastructure/store"
)

// ProfileStore keeps the cached {user, token} record in Redis.
type ProfileStore struct {
	client *redis.Client
	keys   keyspace
	log    zerolog.Logger
}

// NewProfileStore wraps client; namespace separates sessions sharing a server.
func NewProfileStore(client *redis.Client, namespace string, log zerolog.Logger) *ProfileStore {
	return &ProfileStore{client: client, keys: keyspace(namespace), log: log}
}

// Get returns nil when the record is absent or corrupt.
func (s *ProfileStore) Get(ctx context.Context) (*domain.CachedProfile, error) {
	data, err := s.client.Get(ctx, s.keys.profile()).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code(store.CodeReadFailed).With("key", s.keys.profile()).Wrap(err)
	}

	var rec domain.CachedProfile
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn().Err(err).Str("key", s.keys.profile()).Msg("cached profile is corrupt, ignoring it")
		return nil, nil
	}
	return &rec, nil
}

func (s *ProfileStore) Set(ctx context.Context, rec domain.CachedProfile) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return oops.Code(store.CodeEncodeFailed).Wrap(err)
	}
	if err := s.client.Set(ctx, s.keys.profile(), data, 0).Err(); err != nil {
		return oops.Code(store.CodeWriteFailed).With("key", s.keys.profile()).Wrap(err)
	}
	return nil
}

func (s *ProfileStore) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.keys.profile()).Err(); err != nil {
		return oops.Code(store.CodeRemoveFailed).With("key", s.keys.profile()).Wrap(err)
	}
	return nil
}
