package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"github.com/99minutos/session-client/internal/api/metrics"
	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/core/ports"
)

// DefaultStartupTimeout bounds startup reconciliation before loading is
// forcibly cleared.
const DefaultStartupTimeout = 5 * time.Second

// storeTimeout bounds store calls made outside any caller's context.
const storeTimeout = 5 * time.Second

const (
	msgLoginFailed      = "Login failed. Please check your credentials and try again."
	msgRegisterFailed   = "Registration failed. Please try again."
	msgUpdateFailed     = "Profile update failed. Please try again."
	msgPasswordFailed   = "Password change failed. Please try again."
	msgStoreFailed      = "Unable to save the session on this device."
	msgNotAuthenticated = "You must be logged in to do that."
)

// anySeq applies a transition regardless of newer operations.
const anySeq = 0

// Options configures a SessionManager.
type Options struct {
	TokenOptions   domain.TokenOptions
	StartupTimeout time.Duration
	// Revalidate confirms a restored token against the server at startup.
	Revalidate bool
	// OnForcedLogout is called after the session was dropped because the
	// server rejected the token. Consumers use it to send the user to a login
	// surface.
	OnForcedLogout func(domain.Invalidation)
}

// DefaultOptions returns the options used when nothing is configured.
func DefaultOptions() Options {
	return Options{
		TokenOptions:   domain.DefaultTokenOptions(),
		StartupTimeout: DefaultStartupTimeout,
		Revalidate:     true,
	}
}

// SessionManager owns the process-wide session. It is the only writer of the
// in-memory state and of both durable stores.
type SessionManager struct {
	tokens   ports.TokenStore
	profiles ports.ProfileStore
	gateway  ports.AuthGateway
	opts     Options
	log      zerolog.Logger

	mu       sync.Mutex
	state    domain.Session
	seq      uint64
	tokenSeq uint64 // seq of the operation that installed state.Token
	started  bool
	initDone bool
	timer    *time.Timer
	subs     map[int]func(domain.Session)
	nextSub  int

	startOnce   sync.Once
	ready       chan struct{}
	readyOnce   sync.Once
	unsubscribe func()
}

// NewSessionManager wires the session to its stores and gateway and subscribes
// it to invalidation signals. invalidations may be nil.
func NewSessionManager(
	tokens ports.TokenStore,
	profiles ports.ProfileStore,
	gateway ports.AuthGateway,
	invalidations ports.InvalidationSubscriber,
	opts Options,
	log zerolog.Logger,
) *SessionManager {
	if opts.StartupTimeout <= 0 {
		opts.StartupTimeout = DefaultStartupTimeout
	}
	if opts.TokenOptions.ExpiryDays <= 0 {
		opts.TokenOptions.ExpiryDays = domain.DefaultTokenExpiryDays
	}

	m := &SessionManager{
		tokens:   tokens,
		profiles: profiles,
		gateway:  gateway,
		opts:     opts,
		log:      log,
		state:    domain.Session{Phase: domain.PhaseUninitialized},
		subs:     make(map[int]func(domain.Session)),
		ready:    make(chan struct{}),
	}
	if invalidations != nil {
		m.unsubscribe = invalidations.Subscribe(m.handleInvalidation)
	}
	return m
}

// Close detaches the manager from the invalidation signal.
func (m *SessionManager) Close() {
	if m.unsubscribe != nil {
		m.unsubscribe()
	}
}

// Snapshot returns a copy of the current session state.
func (m *SessionManager) Snapshot() domain.Session {
	m.mu.Lock()
	defer m.mu.Unlock()
	return copySession(m.state)
}

// HasRole reports whether the signed-in user has role. False when signed out.
func (m *SessionManager) HasRole(role domain.Role) bool {
	return m.Snapshot().HasRole(role)
}

// HasAnyRole reports whether the signed-in user has any of roles.
func (m *SessionManager) HasAnyRole(roles ...domain.Role) bool {
	return m.Snapshot().HasAnyRole(roles...)
}

// Subscribe registers fn to be called with a fresh snapshot after every state
// change. fn may be called from any goroutine and must not block.
func (m *SessionManager) Subscribe(fn func(domain.Session)) func() {
	m.mu.Lock()
	id := m.nextSub
	m.nextSub++
	m.subs[id] = fn
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		delete(m.subs, id)
		m.mu.Unlock()
	}
}

// Ready is closed once loading is cleared for the first time after Start.
func (m *SessionManager) Ready() <-chan struct{} {
	return m.ready
}

// ClearError drops the message of the last failed operation.
func (m *SessionManager) ClearError() {
	m.transition(anySeq, errorCleared{})
}

// Login authenticates with creds and persists the resulting session.
func (m *SessionManager) Login(ctx context.Context, creds domain.Credentials) domain.Result[domain.User] {
	seq := m.begin()
	payload, err := m.gateway.Login(ctx, creds)
	return m.finishAuth(ctx, "login", seq, payload, err, msgLoginFailed)
}

// Register creates an account and signs it in. The cached profile is written
// exactly as for Login.
func (m *SessionManager) Register(ctx context.Context, reg domain.Registration) domain.Result[domain.User] {
	seq := m.begin()
	payload, err := m.gateway.Register(ctx, reg)
	return m.finishAuth(ctx, "register", seq, payload, err, msgRegisterFailed)
}

// Logout ends the session. The in-memory session is cleared immediately; the
// server call is best effort and both durable records are removed afterwards
// whatever its outcome. Safe to call when signed out.
func (m *SessionManager) Logout(ctx context.Context) {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	prevToken := m.state.Token
	snap, subs := m.applyLocked(signedOut{})
	m.mu.Unlock()
	m.notify(snap, subs)

	if _, err := m.tokens.Get(ctx); err == nil {
		if err := m.gateway.Logout(ctx); err != nil {
			m.log.Warn().Err(err).Msg("server logout failed, clearing local session anyway")
		}
	}

	m.mu.Lock()
	if seq == m.seq {
		m.clearStores(ctx)
	} else {
		// A newer operation owns the stores now; only drop what this session wrote.
		m.clearStoresHolding(ctx, prevToken)
	}
	m.mu.Unlock()

	metrics.AuthOperationsTotal.WithLabelValues("logout", metrics.ResultSuccess).Inc()
	m.log.Info().Str("token_fp", domain.TokenFingerprint(prevToken)).Msg("logged out")
}

// UpdateProfile sends patch to the server and merges the returned fields into
// the current user. Failures are reported to the caller only.
func (m *SessionManager) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) domain.Result[domain.User] {
	before := m.Snapshot()
	if !before.Authenticated() {
		metrics.AuthOperationsTotal.WithLabelValues("update_profile", metrics.ResultFailure).Inc()
		return domain.Failure[domain.User](msgNotAuthenticated)
	}

	returned, err := m.gateway.UpdateProfile(ctx, patch)
	if err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("update_profile", metrics.ResultFailure).Inc()
		m.log.Warn().Err(err).Msg("profile update failed")
		return domain.Failure[domain.User](domain.UserMessage(err, msgUpdateFailed))
	}

	var merged domain.User
	applied := m.commit(anySeq, func() action {
		// Only merge into the session the update was issued for.
		if m.state.User == nil || m.state.Token != before.Token {
			return nil
		}
		merged = m.state.User.Merge(returned)
		m.writeProfile(ctx, domain.CachedProfile{User: merged, Token: before.Token})
		return profileMerged{user: merged}
	})
	if !applied {
		metrics.AuthOperationsTotal.WithLabelValues("update_profile", metrics.ResultSuperseded).Inc()
		return domain.Failure[domain.User](domain.ErrSuperseded.Error())
	}

	metrics.AuthOperationsTotal.WithLabelValues("update_profile", metrics.ResultSuccess).Inc()
	m.log.Info().Str("user_id", merged.ID).Msg("profile updated")
	return domain.Success(merged)
}

// ChangePassword forwards change to the server. No local state changes.
func (m *SessionManager) ChangePassword(ctx context.Context, change domain.PasswordChange) domain.Result[domain.Empty] {
	if err := m.gateway.ChangePassword(ctx, change); err != nil {
		metrics.AuthOperationsTotal.WithLabelValues("change_password", metrics.ResultFailure).Inc()
		m.log.Warn().Err(err).Msg("password change failed")
		return domain.Failure[domain.Empty](domain.UserMessage(err, msgPasswordFailed))
	}
	metrics.AuthOperationsTotal.WithLabelValues("change_password", metrics.ResultSuccess).Inc()
	return domain.Success(domain.Empty{})
}

func (m *SessionManager) finishAuth(
	ctx context.Context,
	op string,
	seq uint64,
	payload domain.AuthPayload,
	callErr error,
	fallback string,
) domain.Result[domain.User] {
	if callErr != nil {
		msg := domain.UserMessage(callErr, fallback)
		if !m.transition(seq, authFailed{message: msg}) {
			metrics.AuthOperationsTotal.WithLabelValues(op, metrics.ResultSuperseded).Inc()
		} else {
			metrics.AuthOperationsTotal.WithLabelValues(op, metrics.ResultFailure).Inc()
		}
		m.log.Info().Err(callErr).Str("operation", op).Msg("authentication failed")
		return domain.Failure[domain.User](msg)
	}

	var storeErr error
	applied := m.commit(seq, func() action {
		if storeErr = m.tokens.Set(ctx, payload.Token, m.opts.TokenOptions); storeErr != nil {
			return authFailed{message: msgStoreFailed}
		}
		m.writeProfile(ctx, domain.CachedProfile{User: payload.User, Token: payload.Token})
		return authSucceeded{user: payload.User, token: payload.Token}
	})

	switch {
	case !applied:
		metrics.AuthOperationsTotal.WithLabelValues(op, metrics.ResultSuperseded).Inc()
		m.log.Debug().Str("operation", op).Msg("stale authentication result discarded")
		return domain.Failure[domain.User](domain.ErrSuperseded.Error())
	case storeErr != nil:
		metrics.AuthOperationsTotal.WithLabelValues(op, metrics.ResultFailure).Inc()
		m.log.Error().Err(storeErr).Str("operation", op).Msg("failed to persist session token")
		return domain.Failure[domain.User](msgStoreFailed)
	}

	metrics.AuthOperationsTotal.WithLabelValues(op, metrics.ResultSuccess).Inc()
	m.log.Info().
		Str("operation", op).
		Str("user_id", payload.User.ID).
		Str("role", string(payload.User.Role)).
		Str("token_fp", domain.TokenFingerprint(payload.Token)).
		Msg("authenticated")
	return domain.Success(payload.User.Clone())
}

// handleInvalidation turns a rejected-token signal into a forced logout. The
// signal is ignored unless it concerns the token the session currently holds.
func (m *SessionManager) handleInvalidation(inv domain.Invalidation) {
	m.mu.Lock()
	if m.state.Token == "" || domain.TokenFingerprint(m.state.Token) != inv.TokenFingerprint {
		m.mu.Unlock()
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), storeTimeout)
	defer cancel()
	if err := m.profiles.Remove(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to remove cached profile on invalidation")
	}

	var a action = signedOut{}
	if m.seq != m.tokenSeq {
		// A Login/Register started after this token was installed; its
		// result decides the final state.
		a = identityRevoked{}
	} else {
		m.seq++
	}
	snap, subs := m.applyLocked(a)
	m.mu.Unlock()

	m.notify(snap, subs)
	metrics.InvalidationsTotal.Inc()
	m.log.Info().Str("path", inv.Path).Int("status", inv.Status).Msg("session invalidated by server")

	if m.opts.OnForcedLogout != nil {
		m.opts.OnForcedLogout(inv)
	}
}

// begin starts a Login/Register attempt and returns its sequence number.
func (m *SessionManager) begin() uint64 {
	m.mu.Lock()
	m.seq++
	seq := m.seq
	snap, subs := m.applyLocked(operationStarted{})
	m.mu.Unlock()

	m.notify(snap, subs)
	return seq
}

// transition applies a when seq is still current (or anySeq).
func (m *SessionManager) transition(seq uint64, a action) bool {
	return m.commit(seq, func() action { return a })
}

// commit evaluates next under the lock when seq is still current, so durable
// writes and the in-memory transition happen together. A nil action applies
// nothing and reports false.
func (m *SessionManager) commit(seq uint64, next func() action) bool {
	m.mu.Lock()
	if seq != anySeq && seq != m.seq {
		m.mu.Unlock()
		return false
	}

	a := next()
	if a == nil {
		m.mu.Unlock()
		return false
	}

	snap, subs := m.applyLocked(a)
	m.mu.Unlock()

	m.notify(snap, subs)
	return true
}

func (m *SessionManager) applyLocked(a action) (domain.Session, []func(domain.Session)) {
	prevToken := m.state.Token
	m.state = a.reduce(m.state)
	if m.state.Token != "" && m.state.Token != prevToken {
		m.tokenSeq = m.seq
	}
	if m.started && !m.state.Loading {
		m.readyOnce.Do(func() { close(m.ready) })
	}

	subs := make([]func(domain.Session), 0, len(m.subs))
	for _, fn := range m.subs {
		subs = append(subs, fn)
	}
	return copySession(m.state), subs
}

func (m *SessionManager) notify(snap domain.Session, subs []func(domain.Session)) {
	for _, fn := range subs {
		fn(snap)
	}
}

// writeProfile persists the advisory cached profile. Failures are logged only.
func (m *SessionManager) writeProfile(ctx context.Context, rec domain.CachedProfile) {
	if err := m.profiles.Set(ctx, rec); err != nil {
		m.log.Warn().Err(err).Msg("failed to write cached profile")
	}
}

func (m *SessionManager) clearStores(ctx context.Context) {
	if err := m.tokens.Remove(ctx); err != nil && !errors.Is(err, domain.ErrNoToken) {
		m.log.Warn().Err(err).Msg("failed to remove session token")
	}
	if err := m.profiles.Remove(ctx); err != nil {
		m.log.Warn().Err(err).Msg("failed to remove cached profile")
	}
}

// clearStoresHolding removes the durable records only if they still belong to
// token.
func (m *SessionManager) clearStoresHolding(ctx context.Context, token string) {
	if token == "" {
		return
	}
	if rec, err := m.tokens.Get(ctx); err == nil && rec.Value == token {
		if err := m.tokens.Remove(ctx); err != nil {
			m.log.Warn().Err(err).Msg("failed to remove session token")
		}
	}
	if rec, err := m.profiles.Get(ctx); err == nil && rec != nil && rec.Token == token {
		if err := m.profiles.Remove(ctx); err != nil {
			m.log.Warn().Err(err).Msg("failed to remove cached profile")
		}
	}
}

func copySession(s domain.Session) domain.Session {
	if s.User != nil {
		u := s.User.Clone()
		s.User = &u
	}
	return s
}
