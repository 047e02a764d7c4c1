package file

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/infrastructure/store"
)

func newTokenStore(t *testing.T) (*TokenStore, string) {
	t.Helper()
	dir := filepath.Join(t.TempDir(), "session")
	s, err := NewTokenStore(dir, zerolog.Nop())
	require.NoError(t, err)
	return s, dir
}

func TestTokenStore_EmptyReadsAbsent(t *testing.T) {
	s, _ := newTokenStore(t)

	_, err := s.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoToken)
}

func TestTokenStore_SetGetRemove(t *testing.T) {
	ctx := context.Background()
	s, dir := newTokenStore(t)

	opts := domain.TokenOptions{ExpiryDays: 7, Secure: true, HTTPOnly: true, SameSite: http.SameSiteStrictMode}
	require.NoError(t, s.Set(ctx, "tok1", opts))

	rec, err := s.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok1", rec.Value)
	assert.True(t, rec.Secure)
	assert.True(t, rec.HTTPOnly)
	assert.Equal(t, http.SameSiteStrictMode, rec.SameSite)
	assert.WithinDuration(t, time.Now().Add(7*24*time.Hour), rec.ExpiresAt, time.Minute)

	info, err := os.Stat(filepath.Join(dir, tokenFile))
	require.NoError(t, err)
	assert.Equal(t, os.FileMode(filePerm), info.Mode().Perm())

	require.NoError(t, s.Remove(ctx))
	_, err = s.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNoToken)

	// Removing twice is fine.
	require.NoError(t, s.Remove(ctx))
}

func TestTokenStore_SurvivesReopen(t *testing.T) {
	ctx := context.Background()
	s, dir := newTokenStore(t)
	require.NoError(t, s.Set(ctx, "tok1", domain.DefaultTokenOptions()))

	reopened, err := NewTokenStore(dir, zerolog.Nop())
	require.NoError(t, err)
	rec, err := reopened.Get(ctx)
	require.NoError(t, err)
	assert.Equal(t, "tok1", rec.Value)
}

func TestTokenStore_ExpiredTokenIsRemoved(t *testing.T) {
	ctx := context.Background()
	s, dir := newTokenStore(t)
	require.NoError(t, s.Set(ctx, "tok1", domain.TokenOptions{ExpiryDays: 1}))

	s.now = func() time.Time { return time.Now().Add(25 * time.Hour) }

	_, err := s.Get(ctx)
	assert.ErrorIs(t, err, domain.ErrNoToken)
	_, statErr := os.Stat(filepath.Join(dir, tokenFile))
	assert.True(t, os.IsNotExist(statErr))
}

func TestTokenStore_CorruptRecordReadsAbsent(t *testing.T) {
	s, dir := newTokenStore(t)
	require.NoError(t, os.WriteFile(filepath.Join(dir, tokenFile), []byte("{not json"), 0o600))

	_, err := s.Get(context.Background())
	assert.ErrorIs(t, err, domain.ErrNoToken)
}

func TestTokenStore_RejectsEmptyToken(t *testing.T) {
	s, _ := newTokenStore(t)
	err := s.Set(context.Background(), "", domain.DefaultTokenOptions())
	require.Error(t, err)
	assert.Equal(t, store.CodeTokenEmpty, store.Code(err))
}
