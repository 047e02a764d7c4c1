package domain

import (
	"crypto/sha256"
	"encoding/hex"
	"time"
)

// Phase is the lifecycle state of the in-memory session.
type Phase string

const (
	PhaseUninitialized   Phase = "uninitialized"
	PhaseInitializing    Phase = "initializing"
	PhaseAuthenticated   Phase = "authenticated"
	PhaseUnauthenticated Phase = "unauthenticated"
)

// Session is a read-only snapshot of the process-wide session state.
type Session struct {
	User    *User
	Token   string
	Loading bool
	Error   string
	Phase   Phase
}

// Authenticated reports whether both a user and a token are present.
func (s Session) Authenticated() bool {
	return s.User != nil && s.Token != ""
}

// Consistent reports whether user and token are set or cleared together.
func (s Session) Consistent() bool {
	return (s.User == nil) == (s.Token == "")
}

// HasRole reports whether the session user has role r. False when signed out.
func (s Session) HasRole(r Role) bool {
	return s.User != nil && s.User.Role == r
}

// HasAnyRole reports whether the session user has any of roles.
func (s Session) HasAnyRole(roles ...Role) bool {
	if s.User == nil {
		return false
	}
	for _, r := range roles {
		if s.User.Role == r {
			return true
		}
	}
	return false
}

// CachedProfile is the durable, non-authoritative {user, token} record used to
// populate the session before the server confirms it.
type CachedProfile struct {
	User  User   `json:"user" bson:"user"`
	Token string `json:"token" bson:"token"`
}

// Invalidation is raised when the server rejects the stored token.
type Invalidation struct {
	// TokenFingerprint identifies the rejected token, see TokenFingerprint.
	TokenFingerprint string
	Method           string
	Path             string
	Status           int
	At               time.Time
}

// TokenFingerprint returns a short, non-reversible identifier for token so it
// can be compared and logged without exposing the token itself.
func TokenFingerprint(token string) string {
	if token == "" {
		return ""
	}
	sum := sha256.Sum256([]byte(token))
	return hex.EncodeToString(sum[:6])
}
