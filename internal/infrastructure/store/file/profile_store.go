package file

import (
	"context"
	"encoding/json"
	"path/filepath"

	"github.com/rs/zerolog"
	"github.com/samber/oops"

	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/infrastructure/store"
)

const profileFile = "profile.json"

// ProfileStore keeps the cached {user, token} record in <dir>/profile.json.
type ProfileStore struct {
	path string
	log  zerolog.Logger
}

// NewProfileStore creates the store directory if needed.
func NewProfileStore(dir string, log zerolog.Logger) (*ProfileStore, error) {
	if err := EnsureDir(dir); err != nil {
		return nil, err
	}
	return &ProfileStore{path: filepath.Join(dir, profileFile), log: log}, nil
}

// Get returns the cached profile, or nil when there is none. Corrupt content
// is a cache miss, never an error.
func (s *ProfileStore) Get(_ context.Context) (*domain.CachedProfile, error) {
	data, err := readFile(s.path)
	if err != nil || data == nil {
		return nil, err
	}

	var rec domain.CachedProfile
	if err := json.Unmarshal(data, &rec); err != nil {
		s.log.Warn().Err(err).Str("path", s.path).Msg("cached profile is corrupt, ignoring it")
		return nil, nil
	}
	return &rec, nil
}

// Set replaces the cached profile.
func (s *ProfileStore) Set(_ context.Context, rec domain.CachedProfile) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return oops.Code(store.CodeEncodeFailed).Wrap(err)
	}
	return writeAtomic(s.path, data)
}

// Remove deletes the cached profile. Removing an absent profile is not an error.
func (s *ProfileStore) Remove(_ context.Context) error {
	return removeFile(s.path)
}
