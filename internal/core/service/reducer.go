package service

import "github.com/99minutos/session-client/internal/core/domain"

// action is the closed set of session transitions. Each action owns its
// transition, so a new action cannot be added without defining one.
type action interface {
	reduce(s domain.Session) domain.Session
}

type (
	// initStarted enters the Initializing phase.
	initStarted struct{}
	// profileRestored applies the cached profile optimistically; loading stays set.
	profileRestored struct {
		user  domain.User
		token string
	}
	// initFinished resolves startup. A nil user means Unauthenticated.
	initFinished struct {
		user  *domain.User
		token string
	}
	// startupTimedOut clears loading when reconciliation overran its budget.
	startupTimedOut struct{}
	// operationStarted marks a Login/Register attempt in flight.
	operationStarted struct{}
	authSucceeded    struct {
		user  domain.User
		token string
	}
	// authFailed keeps user/token as they were before the attempt.
	authFailed struct {
		message string
	}
	// signedOut covers both user-initiated and forced logout.
	signedOut struct{}
	// identityRevoked drops a rejected session while a newer Login/Register
	// is still in flight; loading belongs to that operation.
	identityRevoked struct{}
	profileMerged   struct {
		user domain.User
	}
	errorCleared struct{}
)

func (initStarted) reduce(s domain.Session) domain.Session {
	s.Phase = domain.PhaseInitializing
	s.Loading = true
	s.Error = ""
	return s
}

func (a profileRestored) reduce(s domain.Session) domain.Session {
	u := a.user.Clone()
	s.User = &u
	s.Token = a.token
	return s
}

func (a initFinished) reduce(s domain.Session) domain.Session {
	s.Loading = false
	if a.user == nil || a.token == "" {
		return clearIdentity(s)
	}
	u := a.user.Clone()
	s.User = &u
	s.Token = a.token
	s.Phase = domain.PhaseAuthenticated
	return s
}

func (startupTimedOut) reduce(s domain.Session) domain.Session {
	s.Loading = false
	s.Phase = phaseOf(s)
	return s
}

func (operationStarted) reduce(s domain.Session) domain.Session {
	s.Loading = true
	s.Error = ""
	return s
}

func (a authSucceeded) reduce(s domain.Session) domain.Session {
	u := a.user.Clone()
	s.User = &u
	s.Token = a.token
	s.Loading = false
	s.Error = ""
	s.Phase = domain.PhaseAuthenticated
	return s
}

func (a authFailed) reduce(s domain.Session) domain.Session {
	s.Loading = false
	s.Error = a.message
	s.Phase = phaseOf(s)
	return s
}

func (signedOut) reduce(s domain.Session) domain.Session {
	s.Loading = false
	s.Error = ""
	return clearIdentity(s)
}

func (identityRevoked) reduce(s domain.Session) domain.Session {
	s.Error = ""
	return clearIdentity(s)
}

func (a profileMerged) reduce(s domain.Session) domain.Session {
	if s.User == nil {
		return s
	}
	u := a.user.Clone()
	s.User = &u
	return s
}

func (errorCleared) reduce(s domain.Session) domain.Session {
	s.Error = ""
	return s
}

func clearIdentity(s domain.Session) domain.Session {
	s.User = nil
	s.Token = ""
	s.Phase = domain.PhaseUnauthenticated
	return s
}

func phaseOf(s domain.Session) domain.Phase {
	if s.Authenticated() {
		return domain.PhaseAuthenticated
	}
	return domain.PhaseUnauthenticated
}
