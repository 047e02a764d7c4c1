package ports

import (
	"context"

	"github.com/99minutos/session-client/internal/core/domain"
)

// SessionReader is the read side of the session handed to consumers.
type SessionReader interface {
	Snapshot() domain.Session
	HasRole(role domain.Role) bool
	HasAnyRole(roles ...domain.Role) bool
}

// SessionService is the full surface consumers may call. Only the session
// service itself writes the durable stores.
type SessionService interface {
	SessionReader

	Start(ctx context.Context)
	Ready() <-chan struct{}
	Subscribe(fn func(domain.Session)) (unsubscribe func())

	Login(ctx context.Context, creds domain.Credentials) domain.Result[domain.User]
	Register(ctx context.Context, reg domain.Registration) domain.Result[domain.User]
	Logout(ctx context.Context)
	UpdateProfile(ctx context.Context, patch domain.ProfilePatch) domain.Result[domain.User]
	ChangePassword(ctx context.Context, change domain.PasswordChange) domain.Result[domain.Empty]
	ClearError()
}
