package ports

import (
	"context"

	"github.com/99minutos/session-client/internal/core/domain"
)

// ProfileStore holds the last-known {user, token} pair. It is advisory only:
// Get returns (nil, nil) when the record is absent or cannot be decoded.
type ProfileStore interface {
	Get(ctx context.Context) (*domain.CachedProfile, error)
	Set(ctx context.Context, rec domain.CachedProfile) error
	Remove(ctx context.Context) error
}
