package service

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/99minutos/session-client/internal/core/domain"
)

func TestReducer_Transitions(t *testing.T) {
	user := domain.User{ID: "1", Role: domain.RoleCustomer}
	authed := domain.Session{User: &user, Token: "tok1", Phase: domain.PhaseAuthenticated}

	tests := []struct {
		name string
		from domain.Session
		act  action
		want domain.Session
	}{
		{
			name: "init started",
			from: domain.Session{Phase: domain.PhaseUninitialized},
			act:  initStarted{},
			want: domain.Session{Phase: domain.PhaseInitializing, Loading: true},
		},
		{
			name: "init finished without user",
			from: domain.Session{Phase: domain.PhaseInitializing, Loading: true},
			act:  initFinished{},
			want: domain.Session{Phase: domain.PhaseUnauthenticated},
		},
		{
			name: "timeout keeps optimistic user",
			from: domain.Session{User: &user, Token: "tok1", Phase: domain.PhaseInitializing, Loading: true},
			act:  startupTimedOut{},
			want: authed,
		},
		{
			name: "auth failure keeps identity",
			from: domain.Session{User: &user, Token: "tok1", Phase: domain.PhaseAuthenticated, Loading: true},
			act:  authFailed{message: "nope"},
			want: domain.Session{User: &user, Token: "tok1", Phase: domain.PhaseAuthenticated, Error: "nope"},
		},
		{
			name: "signed out",
			from: domain.Session{User: &user, Token: "tok1", Phase: domain.PhaseAuthenticated, Error: "x"},
			act:  signedOut{},
			want: domain.Session{Phase: domain.PhaseUnauthenticated},
		},
		{
			name: "revoked identity keeps pending loading",
			from: domain.Session{User: &user, Token: "tok1", Phase: domain.PhaseAuthenticated, Loading: true},
			act:  identityRevoked{},
			want: domain.Session{Phase: domain.PhaseUnauthenticated, Loading: true},
		},
		{
			name: "merge ignored when signed out",
			from: domain.Session{Phase: domain.PhaseUnauthenticated},
			act:  profileMerged{user: user},
			want: domain.Session{Phase: domain.PhaseUnauthenticated},
		},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			got := tc.act.reduce(tc.from)
			assert.Equal(t, tc.want, got)
			assert.True(t, got.Consistent())
		})
	}
}
