package redis

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/infrastructure/store"
)

// TokenStore keeps the session token in Redis. Expiry is enforced by the key
// TTL, so an elapsed token simply disappears.
type TokenStore struct {
	client *redis.Client
	keys   keyspace
	log    zerolog.Logger
}

// NewTokenStore wraps client; namespace separates sessions sharing a server.
func NewTokenStore(client *redis.Client, namespace string, log zerolog.Logger) *TokenStore {
	return &TokenStore{client: client, keys: keyspace(namespace), log: log}
}

func (s *TokenStore) Get(ctx context.Context) (domain.TokenRecord, error) {
	data, err := s.client.Get(ctx, s.keys.token()).Bytes()
	if errors.Is(err, redis.Nil) {
		return domain.TokenRecord{}, domain.ErrNoToken
	}
	if err != nil {
		return domain.TokenRecord{}, oops.Code(store.CodeReadFailed).With("key", s.keys.token()).Wrap(err)
	}

	var rec domain.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.Value == "" {
		s.log.Warn().Str("key", s.keys.token()).Msg("discarding unreadable token record")
		_ = s.client.Del(ctx, s.keys.token()).Err()
		return domain.TokenRecord{}, domain.ErrNoToken
	}
	if rec.Expired(time.Now()) {
		_ = s.client.Del(ctx, s.keys.token()).Err()
		return domain.TokenRecord{}, domain.ErrNoToken
	}
	return rec, nil
}

func (s *TokenStore) Set(ctx context.Context, token string, opts domain.TokenOptions) error {
	if token == "" {
		return oops.Code(store.CodeTokenEmpty).Errorf("refusing to store an empty token")
	}
	data, err := json.Marshal(domain.NewTokenRecord(token, opts, time.Now()))
	if err != nil {
		return oops.Code(store.CodeEncodeFailed).Wrap(err)
	}
	if err := s.client.Set(ctx, s.keys.token(), data, opts.TTL()).Err(); err != nil {
		return oops.Code(store.CodeWriteFailed).With("key", s.keys.token()).Wrap(err)
	}
	return nil
}

func (s *TokenStore) Remove(ctx context.Context) error {
	if err := s.client.Del(ctx, s.keys.token()).Err(); err != nil {
		return oops.Code(store.CodeRemoveFailed).With("key", s.keys.token()).Wrap(err)
	}
	return nil
}
