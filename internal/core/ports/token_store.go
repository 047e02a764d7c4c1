package ports

import (
	"context"

	"github.com/99minutos/session-client/internal/core/domain"
)

// TokenStore persists the single opaque session token outside process memory.
// Get returns domain.ErrNoToken when nothing is stored or the token expired.
type TokenStore interface {
	Get(ctx context.Context) (domain.TokenRecord, error)
	Set(ctx context.Context, token string, opts domain.TokenOptions) error
	Remove(ctx context.Context) error
}
