package service

import (
	"context"
	"errors"
	"time"

	"github.com/99minutos/session-client/internal/api/metrics"
	"github.com/99minutos/session-client/internal/core/domain"
)

// Start runs startup reconciliation in the background. Only the first call
// has any effect. Ready is closed when loading clears, which happens no later
// than the configured startup timeout.
func (m *SessionManager) Start(ctx context.Context) {
	m.startOnce.Do(func() {
		began := time.Now()

		m.mu.Lock()
		m.started = true
		m.seq++
		seq := m.seq
		snap, subs := m.applyLocked(initStarted{})
		m.timer = time.AfterFunc(m.opts.StartupTimeout, func() { m.onStartupTimeout(seq, began) })
		m.mu.Unlock()
		m.notify(snap, subs)

		go m.reconcile(ctx, seq, began)
	})
}

// onStartupTimeout clears loading unless reconciliation finished or a newer
// operation has taken over the state.
func (m *SessionManager) onStartupTimeout(seq uint64, began time.Time) {
	m.mu.Lock()
	if m.initDone || seq != m.seq {
		m.mu.Unlock()
		return
	}
	snap, subs := m.applyLocked(startupTimedOut{})
	m.mu.Unlock()
	m.notify(snap, subs)

	metrics.StartupDuration.WithLabelValues("timeout").Observe(time.Since(began).Seconds())
	m.log.Warn().Dur("timeout", m.opts.StartupTimeout).Msg("startup reconciliation timed out, clearing loading")
}

// reconcile restores the session from the durable stores and, when enabled,
// confirms it with the server.
func (m *SessionManager) reconcile(ctx context.Context, seq uint64, began time.Time) {
	rec, err := m.tokens.Get(ctx)
	if err != nil {
		if !errors.Is(err, domain.ErrNoToken) {
			m.log.Warn().Err(err).Msg("failed to read session token, starting signed out")
		}
		m.finishStartup(seq, began, nil, "")
		return
	}
	token := rec.Value

	cached := m.readCachedUser(ctx, token)
	if cached != nil {
		m.transition(seq, profileRestored{user: *cached, token: token})
	}

	if !m.opts.Revalidate {
		if cached == nil {
			// A token without a profile cannot be shown as a session.
			if err := m.tokens.Remove(ctx); err != nil {
				m.log.Warn().Err(err).Msg("failed to remove orphaned session token")
			}
		}
		m.finishStartup(seq, began, cached, token)
		return
	}

	user, err := m.gateway.Me(ctx)
	switch {
	case err == nil:
		m.mu.Lock()
		current := seq == m.seq
		if current {
			m.writeProfile(ctx, domain.CachedProfile{User: user, Token: token})
		}
		m.mu.Unlock()
		m.finishStartup(seq, began, &user, token)

	case domain.CategoryOf(err) == domain.CategoryUnauthorized || errors.Is(err, domain.ErrInvalidPayload):
		m.log.Info().Err(err).Msg("stored session rejected, clearing it")
		m.mu.Lock()
		if seq == m.seq {
			m.clearStores(ctx)
		}
		m.mu.Unlock()
		m.finishStartup(seq, began, nil, "")

	default:
		// Server unreachable: keep whatever the cache gave us.
		m.log.Warn().Err(err).Bool("cached", cached != nil).Msg("could not revalidate session")
		m.finishStartup(seq, began, cached, token)
	}
}

// readCachedUser returns the cached user when it belongs to token. Anything
// else (absent, unreadable, or written for another token) is a cache miss.
func (m *SessionManager) readCachedUser(ctx context.Context, token string) *domain.User {
	rec, err := m.profiles.Get(ctx)
	switch {
	case err != nil:
		metrics.CachedProfileReadsTotal.WithLabelValues("error").Inc()
		m.log.Warn().Err(err).Msg("failed to read cached profile")
		return nil
	case rec == nil || rec.Token != token || rec.User.ID == "":
		metrics.CachedProfileReadsTotal.WithLabelValues("miss").Inc()
		return nil
	}
	metrics.CachedProfileReadsTotal.WithLabelValues("hit").Inc()
	u := rec.User.Clone()
	return &u
}

func (m *SessionManager) finishStartup(seq uint64, began time.Time, user *domain.User, token string) {
	m.mu.Lock()
	m.initDone = true
	if m.timer != nil {
		m.timer.Stop()
	}
	if seq != m.seq {
		// A user operation started meanwhile and owns the state now.
		m.mu.Unlock()
		return
	}
	snap, subs := m.applyLocked(initFinished{user: user, token: token})
	m.mu.Unlock()
	m.notify(snap, subs)

	outcome := string(snap.Phase)
	metrics.StartupDuration.WithLabelValues(outcome).Observe(time.Since(began).Seconds())
	m.log.Debug().Str("phase", outcome).Dur("elapsed", time.Since(began)).Msg("startup reconciliation finished")
}
