package service

import (
	"context"
	"errors"
	"sync"

	"github.com/99minutos/session-client/internal/core/domain"
)

type memTokenStore struct {
	mu     sync.Mutex
	rec    *domain.TokenRecord
	setErr error
}

func (s *memTokenStore) Get(context.Context) (domain.TokenRecord, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return domain.TokenRecord{}, domain.ErrNoToken
	}
	return *s.rec, nil
}

func (s *memTokenStore) Set(_ context.Context, token string, opts domain.TokenOptions) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.setErr != nil {
		return s.setErr
	}
	s.rec = &domain.TokenRecord{Value: token, Secure: opts.Secure, HTTPOnly: opts.HTTPOnly, SameSite: opts.SameSite}
	return nil
}

func (s *memTokenStore) Remove(context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rec = nil
	return nil
}

func (s *memTokenStore) value() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.rec == nil {
		return ""
	}
	return s.rec.Value
}

type memProfileStore struct {
	mu     sync.Mutex
	rec    *domain.CachedProfile
	getErr error
	// bounded records whether the last Remove came with a deadline.
	bounded bool
}

func (s *memProfileStore) Get(context.Context) (*domain.CachedProfile, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.getErr != nil {
		return nil, s.getErr
	}
	if s.rec == nil {
		return nil, nil
	}
	cp := *s.rec
	cp.User = cp.User.Clone()
	return &cp, nil
}

func (s *memProfileStore) Set(_ context.Context, rec domain.CachedProfile) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	rec.User = rec.User.Clone()
	s.rec = &rec
	return nil
}

func (s *memProfileStore) Remove(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, s.bounded = ctx.Deadline()
	s.rec = nil
	return nil
}

func (s *memProfileStore) removeWasBounded() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.bounded
}

func (s *memProfileStore) current() *domain.CachedProfile {
	rec, _ := s.Get(context.Background())
	return rec
}

// stubGateway answers each call with its fn field; an unset fn fails loudly.
type stubGateway struct {
	loginFn    func(ctx context.Context, creds domain.Credentials) (domain.AuthPayload, error)
	registerFn func(ctx context.Context, reg domain.Registration) (domain.AuthPayload, error)
	logoutFn   func(ctx context.Context) error
	meFn       func(ctx context.Context) (domain.User, error)
	profileFn  func(ctx context.Context, patch domain.ProfilePatch) (domain.UserPatch, error)
	passwordFn func(ctx context.Context, change domain.PasswordChange) error

	mu          sync.Mutex
	logoutCalls int
}

var errNotStubbed = errors.New("not stubbed")

func (g *stubGateway) Login(ctx context.Context, creds domain.Credentials) (domain.AuthPayload, error) {
	if g.loginFn == nil {
		return domain.AuthPayload{}, errNotStubbed
	}
	return g.loginFn(ctx, creds)
}

func (g *stubGateway) Register(ctx context.Context, reg domain.Registration) (domain.AuthPayload, error) {
	if g.registerFn == nil {
		return domain.AuthPayload{}, errNotStubbed
	}
	return g.registerFn(ctx, reg)
}

func (g *stubGateway) Logout(ctx context.Context) error {
	g.mu.Lock()
	g.logoutCalls++
	g.mu.Unlock()
	if g.logoutFn == nil {
		return nil
	}
	return g.logoutFn(ctx)
}

func (g *stubGateway) Me(ctx context.Context) (domain.User, error) {
	if g.meFn == nil {
		return domain.User{}, errNotStubbed
	}
	return g.meFn(ctx)
}

func (g *stubGateway) UpdateProfile(ctx context.Context, patch domain.ProfilePatch) (domain.UserPatch, error) {
	if g.profileFn == nil {
		return domain.UserPatch{}, errNotStubbed
	}
	return g.profileFn(ctx, patch)
}

func (g *stubGateway) ChangePassword(ctx context.Context, change domain.PasswordChange) error {
	if g.passwordFn == nil {
		return errNotStubbed
	}
	return g.passwordFn(ctx, change)
}

func (g *stubGateway) logouts() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.logoutCalls
}

// manualSignals lets tests deliver invalidations synchronously.
type manualSignals struct {
	mu      sync.Mutex
	handler func(domain.Invalidation)
}

func (s *manualSignals) Subscribe(h func(domain.Invalidation)) func() {
	s.mu.Lock()
	s.handler = h
	s.mu.Unlock()
	return func() {
		s.mu.Lock()
		s.handler = nil
		s.mu.Unlock()
	}
}

func (s *manualSignals) fire(inv domain.Invalidation) {
	s.mu.Lock()
	h := s.handler
	s.mu.Unlock()
	if h != nil {
		h(inv)
	}
}

func unauthorized(msg string) error {
	return &domain.RequestError{Category: domain.CategoryUnauthorized, Status: 401, Message: msg}
}

func serverDown() error {
	return &domain.RequestError{Category: domain.CategoryNetwork, Err: errors.New("connection refused")}
}

func strPtr(s string) *string { return &s }
