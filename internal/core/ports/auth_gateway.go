package ports

import (
	"context"

	"github.com/99minutos/session-client/internal/core/domain"
)

// AuthGateway is the server-side authentication API. Failures are returned as
// *domain.RequestError whenever the request reached the transport.
type AuthGateway interface {
	Login(ctx context.Context, creds domain.Credentials) (domain.AuthPayload, error)
	Register(ctx context.Context, reg domain.Registration) (domain.AuthPayload, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (domain.User, error)
	UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (domain.UserPatch, error)
	ChangePassword(ctx context.Context, change domain.PasswordChange) error
}

// InvalidationPublisher raises the global "session rejected" signal.
type InvalidationPublisher interface {
	Publish(inv domain.Invalidation)
}

// InvalidationSubscriber lets the session owner react to rejected sessions.
type InvalidationSubscriber interface {
	Subscribe(handler func(domain.Invalidation)) (unsubscribe func())
}
