// Package httpclient is the session transport: it attaches the stored token to
// every outgoing request, classifies failures, and raises the invalidation
// signal when the server rejects the token.
package httpclient

import (
	"net"
	"net/http"
	"net/url"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/99minutos/session-client/internal/api/metrics"
	"github.com/99minutos/session-client/internal/core/domain"
	"github.com/99minutos/session-client/internal/core/ports"
)

// HeaderRequestID correlates client requests with server logs.
const HeaderRequestID = "X-Request-ID"

// RequestState is the transport-level lifecycle of one request.
type RequestState string

const (
	StateIdle      RequestState = "idle"
	StateSending   RequestState = "sending"
	StateSucceeded RequestState = "succeeded"
	StateFailed    RequestState = "failed"
)

// Transport is an http.RoundTripper that authenticates requests from the
// TokenStore. It reads the store on every request, so it is correct before the
// session has finished initialising.
type Transport struct {
	base    http.RoundTripper
	tokens  ports.TokenStore
	signals ports.InvalidationPublisher
	log     zerolog.Logger
	now     func() time.Time
}

// NewTransport wraps base (http.DefaultTransport when nil).
func NewTransport(base http.RoundTripper, tokens ports.TokenStore, signals ports.InvalidationPublisher, log zerolog.Logger) *Transport {
	if base == nil {
		base = http.DefaultTransport
	}
	return &Transport{base: base, tokens: tokens, signals: signals, log: log, now: time.Now}
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	req = req.Clone(req.Context())
	if req.Header.Get(HeaderRequestID) == "" {
		req.Header.Set(HeaderRequestID, uuid.NewString())
	}
	sent := t.attachToken(req)

	t.trace(req, StateSending, "")
	metrics.TransportInFlight.Inc()
	resp, err := t.base.RoundTrip(req)
	metrics.TransportInFlight.Dec()

	if err != nil {
		metrics.TransportRequestsTotal.WithLabelValues(string(domain.CategoryNetwork)).Inc()
		t.trace(req, StateFailed, domain.CategoryNetwork)
		return nil, err
	}

	if resp.StatusCode < http.StatusBadRequest {
		metrics.TransportRequestsTotal.WithLabelValues("ok").Inc()
		t.trace(req, StateSucceeded, "")
		return resp, nil
	}

	category := Categorize(resp.StatusCode)
	metrics.TransportRequestsTotal.WithLabelValues(string(category)).Inc()
	t.trace(req, StateFailed, category)

	// A 401 only means the session was rejected if a session token was sent.
	if category == domain.CategoryUnauthorized && sent != "" {
		t.invalidate(req, sent, resp.StatusCode)
	}
	return resp, nil
}

// attachToken sets the bearer credential and returns the token it sent.
func (t *Transport) attachToken(req *http.Request) string {
	rec, err := t.tokens.Get(req.Context())
	if err != nil {
		return ""
	}
	if rec.Secure && !secureChannel(req.URL) {
		t.log.Debug().Str("path", req.URL.Path).Msg("secure token withheld from insecure request")
		return ""
	}
	req.Header.Set("Authorization", "Bearer "+rec.Value)
	return rec.Value
}

// secureChannel reports whether a Secure token may travel to u. Loopback
// hosts count as secure, as browsers treat them.
func secureChannel(u *url.URL) bool {
	if u.Scheme == "https" {
		return true
	}
	host := u.Hostname()
	if host == "localhost" {
		return true
	}
	ip := net.ParseIP(host)
	return ip != nil && ip.IsLoopback()
}

// invalidate drops the rejected token, unless the store already holds a newer
// one, and raises the signal.
func (t *Transport) invalidate(req *http.Request, sent string, status int) {
	ctx := req.Context()
	if rec, err := t.tokens.Get(ctx); err == nil && rec.Value == sent {
		if err := t.tokens.Remove(ctx); err != nil {
			t.log.Error().Err(err).Msg("failed to remove rejected token")
		}
	}

	fp := domain.TokenFingerprint(sent)
	t.log.Info().Str("path", req.URL.Path).Str("token_fp", fp).Msg("server rejected session token")

	if t.signals != nil {
		t.signals.Publish(domain.Invalidation{
			TokenFingerprint: fp,
			Method:           req.Method,
			Path:             req.URL.Path,
			Status:           status,
			At:               t.now(),
		})
	}
}

func (t *Transport) trace(req *http.Request, state RequestState, category domain.RequestCategory) {
	ev := t.log.Trace().
		Str("method", req.Method).
		Str("path", req.URL.Path).
		Str("request_id", req.Header.Get(HeaderRequestID)).
		Str("state", string(state))
	if category != "" {
		ev = ev.Str("category", string(category))
	}
	ev.Msg("request")
}

// Categorize maps an HTTP error status to its failure category.
func Categorize(status int) domain.RequestCategory {
	switch {
	case status == http.StatusUnauthorized:
		return domain.CategoryUnauthorized
	case status == http.StatusForbidden:
		return domain.CategoryForbidden
	case status == http.StatusNotFound:
		return domain.CategoryNotFound
	case status == http.StatusTooManyRequests:
		return domain.CategoryRateLimited
	case status == http.StatusBadRequest,
		status == http.StatusConflict,
		status == http.StatusUnprocessableEntity:
		return domain.CategoryValidation
	case status >= http.StatusInternalServerError:
		return domain.CategoryServer
	default:
		return domain.CategoryUnknown
	}
}
