package guard

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/99minutos/session-client/internal/core/domain"
)

type fixedSession domain.Session

func (f fixedSession) Snapshot() domain.Session { return domain.Session(f) }

func (f fixedSession) HasRole(r domain.Role) bool { return domain.Session(f).HasRole(r) }

func (f fixedSession) HasAnyRole(roles ...domain.Role) bool {
	return domain.Session(f).HasAnyRole(roles...)
}

func signedIn(role domain.Role) fixedSession {
	return fixedSession{User: &domain.User{ID: "1", Role: role}, Token: "tok", Phase: domain.PhaseAuthenticated}
}

func TestRequireAuthenticated(t *testing.T) {
	tests := []struct {
		name    string
		session fixedSession
		want    error
	}{
		{"signed in", signedIn(domain.RoleCustomer), nil},
		{"signed out", fixedSession{Phase: domain.PhaseUnauthenticated}, ErrLoginRequired},
		{"loading", fixedSession{Loading: true, Phase: domain.PhaseInitializing}, ErrSessionLoading},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			called := false
			h := RequireAuthenticated(tc.session)(func(context.Context) error {
				called = true
				return nil
			})

			err := h(context.Background())

			assert.ErrorIs(t, err, tc.want)
			assert.Equal(t, tc.want == nil, called)
		})
	}
}

func TestRequireRole(t *testing.T) {
	tests := []struct {
		name    string
		session fixedSession
		want    error
	}{
		{"allowed", signedIn(domain.RoleAdmin), nil},
		{"other role", signedIn(domain.RoleCustomer), ErrForbidden},
		{"signed out", fixedSession{}, ErrLoginRequired},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			h := RequireRole(tc.session, domain.RoleAdmin, domain.RoleProvider)(func(context.Context) error {
				return nil
			})
			assert.ErrorIs(t, h(context.Background()), tc.want)
		})
	}
}

func TestChain_Order(t *testing.T) {
	var order []string
	mw := func(name string) Middleware {
		return func(next Handler) Handler {
			return func(ctx context.Context) error {
				order = append(order, name)
				return next(ctx)
			}
		}
	}

	h := Chain(func(context.Context) error { order = append(order, "handler"); return nil }, mw("a"), mw("b"))

	assert.NoError(t, h(context.Background()))
	assert.Equal(t, []string{"a", "b", "handler"}, order)
}

func TestPublic(t *testing.T) {
	s := Public("login", "register")

	assert.True(t, s.IsPublic("login"))
	assert.False(t, s.IsPublic("whoami"))
}
