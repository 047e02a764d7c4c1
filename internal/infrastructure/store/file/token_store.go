package file

import (
	"context"
	"encoding/json"
	"path/filepath"
	"time"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/infrastructure/store"
)

const tokenFile = "token.json"

// TokenStore keeps the session token and its attributes in <dir>/token.json.
type TokenStore struct {
	path string
	now  func() time.Time
	log  zerolog.Logger
}

// NewTokenStore creates the store directory if needed.
func NewTokenStore(dir string, log zerolog.Logger) (*TokenStore, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	return &TokenStore{
		path: filepath.Join(dir, tokenFile),
		now:  time.Now,
		log:  log,
	}, nil
}

// Get returns the stored token record. Expired or unreadable records are
// deleted and reported as domain.ErrNoToken.
func (s *TokenStore) Get(_ context.Context) (domain.TokenRecord, error) {
	data, err := readFile(s.path)
	if err != nil {
		return domain.TokenRecord{}, err
	}
	if data == nil {
		return domain.TokenRecord{}, domain.ErrNoToken
	}

	var rec domain.TokenRecord
	if err := json.Unmarshal(data, &rec); err != nil || rec.Value == "" {
		s.log.Warn().Str("path", s.path).Msg("discarding unreadable token record")
		_ = removeFile(s.path)
		return domain.TokenRecord{}, domain.ErrNoToken
	}
	if rec.Expired(s.now()) {
		s.log.Debug().Time("expired_at", rec.ExpiresAt).Msg("stored token expired")
		_ = removeFile(s.path)
		return domain.TokenRecord{}, domain.ErrNoToken
	}
	return rec, nil
}

// Set persists token with the expiry and attributes from opts.
func (s *TokenStore) Set(_ context.Context, token string, opts domain.TokenOptions) error {
	if token == "" {
		return oops.Code(store.CodeTokenEmpty).Errorf("refusing to store an empty token")
	}
	data, err := json.Marshal(domain.NewTokenRecord(token, opts, s.now()))
	if err != nil {
		return oops.Code(store.CodeEncodeFailed).Wrap(err)
	}
	return writeAtomic(s.path, data)
}

// Remove deletes the token. Removing an absent token is not an error.
func (s *TokenStore) Remove(_ context.Context) error {
	return removeFile(s.path)
}
