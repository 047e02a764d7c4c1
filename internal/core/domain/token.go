package domain

import (
	"net/http"
	"strings"
	"time"
)

// DefaultTokenExpiryDays is how long a stored token lives unless configured.
const DefaultTokenExpiryDays = 7

// TokenOptions are the security attributes a token is persisted with.
type TokenOptions struct {
	ExpiryDays int
	// Secure restricts the token to https requests.
	Secure bool
	// HTTPOnly keeps the token out of reach of anything but the transport.
	HTTPOnly bool
	SameSite http.SameSite
}

// DefaultTokenOptions returns the attributes used when nothing is configured.
func DefaultTokenOptions() TokenOptions {
	return TokenOptions{
		ExpiryDays: DefaultTokenExpiryDays,
		Secure:     true,
		HTTPOnly:   true,
		SameSite:   http.SameSiteStrictMode,
	}
}

// TTL returns the token lifetime, falling back to the default expiry.
func (o TokenOptions) TTL() time.Duration {
	days := o.ExpiryDays
	if days <= 0 {
		days = DefaultTokenExpiryDays
	}
	return time.Duration(days) * 24 * time.Hour
}

// ParseSameSite maps "strict", "lax" or "none" to http.SameSite.
func ParseSameSite(s string) http.SameSite {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "lax":
		return http.SameSiteLaxMode
	case "none":
		return http.SameSiteNoneMode
	case "strict":
		return http.SameSiteStrictMode
	default:
		return http.SameSiteDefaultMode
	}
}

// TokenRecord is the persisted form of the token and its attributes.
type TokenRecord struct {
	Value     string        `json:"value"`
	ExpiresAt time.Time     `json:"expires_at"`
	Secure    bool          `json:"secure"`
	HTTPOnly  bool          `json:"http_only"`
	SameSite  http.SameSite `json:"same_site"`
}

// NewTokenRecord stamps token with the expiry derived from opts.
func NewTokenRecord(token string, opts TokenOptions, now time.Time) TokenRecord {
	return TokenRecord{
		Value:     token,
		ExpiresAt: now.Add(opts.TTL()),
		Secure:    opts.Secure,
		HTTPOnly:  opts.HTTPOnly,
		SameSite:  opts.SameSite,
	}
}

// Expired reports whether the record is past its expiry at now.
func (r TokenRecord) Expired(now time.Time) bool {
	return !r.ExpiresAt.IsZero() && !now.Before(r.ExpiresAt)
}
