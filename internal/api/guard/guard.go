// Package guard gates consumer surfaces on the session: signed-in checks and
// role checks, in the shape of handler middleware.
package guard

import (
	"context"
	"errors"

	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/core/ports"
)

var (
	// ErrLoginRequired tells the consumer to send the user to a login surface.
	ErrLoginRequired = errors.New("please log in to continue")
	ErrForbidden     = errors.New("you do not have permission to do that")
	// ErrSessionLoading means startup has not settled yet; wait on Ready.
	ErrSessionLoading = errors.New("session is still loading")
)

// Handler is a guarded consumer action.
type Handler func(ctx context.Context) error

// Middleware wraps a Handler with a precondition.
type Middleware func(next Handler) Handler

// RequireAuthenticated lets next run only with a signed-in session.
func RequireAuthenticated(s ports.SessionReader) Middleware {
	return func(next Handler) Handler {
		return func(ctx context.Context) error {
			if err := authenticated(s.Snapshot()); err != nil {
				return err
			}
			return next(ctx)
		}
	}
}

// RequireRole lets next run only when the signed-in user has one of roles.
func RequireRole(s ports.SessionReader, roles ...domain.Role) Middleware {
	allowed := make(map[domain.Role]struct{}, len(roles))
	for _, r := range roles {
		allowed[r] = struct{}{}
	}

	return func(next Handler) Handler {
		return func(ctx context.Context) error {
			snap := s.Snapshot()
			if err := authenticated(snap); err != nil {
				return err
			}
			if _, ok := allowed[snap.User.Role]; !ok {
				return ErrForbidden
			}
			return next(ctx)
		}
	}
}

// Chain applies mws so the first one runs outermost.
func Chain(h Handler, mws ...Middleware) Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		h = mws[i](h)
	}
	return h
}

func authenticated(snap domain.Session) error {
	switch {
	case snap.Loading:
		return ErrSessionLoading
	case !snap.Authenticated():
		return ErrLoginRequired
	}
	return nil
}

// Surfaces records which named surfaces are reachable without a session.
// Forced-logout redirects are skipped while the user is on a public surface.
type Surfaces struct {
	public map[string]struct{}
}

// Public marks names as public surfaces.
func Public(names ...string) Surfaces {
	s := Surfaces{public: make(map[string]struct{}, len(names))}
	for _, n := range names {
		s.public[n] = struct{}{}
	}
	return s
}

func (s Surfaces) IsPublic(name string) bool {
	_, ok := s.public[name]
	return ok
}
