package mongo

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/infrastructure/store"
)

const profileCollection = "cached_profiles"

// ProfileStore keeps one cached profile document per session namespace.
type ProfileStore struct {
	coll      *mongo.Collection
	namespace string
	log       zerolog.Logger
}

func NewProfileStore(db *mongo.Database, namespace string, log zerolog.Logger) *ProfileStore {
	return &ProfileStore{coll: db.Collection(profileCollection), namespace: namespace, log: log}
}

type mongoProfile struct {
	ID        string      `bson:"_id"`
	User      domain.User `bson:"user"`
	Token     string      `bson:"token"`
	UpdatedAt int64       `bson:"updated_at"`
}

// Get returns nil when no document exists or it cannot be decoded.
func (s *ProfileStore) Get(ctx context.Context) (*domain.CachedProfile, error) {
	res := s.coll.FindOne(ctx, bson.M{"_id": s.namespace})
	if err := res.Err(); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, oops.Code(store.CodeReadFailed).With("namespace", s.namespace).Wrap(err)
	}

	var doc mongoProfile
	if err := res.Decode(&doc); err != nil {
		s.log.Warn().Err(err).Str("namespace", s.namespace).Msg("cached profile is corrupt, ignoring it")
		return nil, nil
	}
	return &domain.CachedProfile{User: doc.User, Token: doc.Token}, nil
}

func (s *ProfileStore) Set(ctx context.Context, rec domain.CachedProfile) error {
	doc := mongoProfile{
		ID:        s.namespace,
		User:      rec.User,
		Token:     rec.Token,
		UpdatedAt: time.Now().UTC().Unix(),
	}
	_, err := s.coll.ReplaceOne(ctx, bson.M{"_id": s.namespace}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return oops.Code(store.CodeWriteFailed).With("namespace", s.namespace).Wrap(err)
	}
	return nil
}

func (s *ProfileStore) Remove(ctx context.Context) error {
	if _, err := s.coll.DeleteOne(ctx, bson.M{"_id": s.namespace}); err != nil {
		return oops.Code(store.CodeRemoveFailed).With("namespace", s.namespace).Wrap(err)
	}
	return nil
}
