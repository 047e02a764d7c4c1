package domain

import (
	"errors"
	"fmt"
)

var (
	ErrNoToken        = errors.New("no session token stored")
	ErrInvalidPayload = errors.New("invalid server payload")
	ErrUnknownBackend = errors.New("unknown store backend")
	ErrSuperseded     = errors.New("superseded by a newer session operation")
)

// RequestCategory classifies a failed request for the UI layer.
type RequestCategory string

const (
	CategoryUnauthorized RequestCategory = "unauthorized"
	CategoryForbidden    RequestCategory = "forbidden"
	CategoryNotFound     RequestCategory = "not_found"
	CategoryRateLimited  RequestCategory = "rate_limited"
	CategoryValidation   RequestCategory = "validation"
	CategoryServer       RequestCategory = "server"
	CategoryNetwork      RequestCategory = "network"
	CategoryUnknown      RequestCategory = "unknown"
)

// Describe returns the human-readable text shown when the server gave none.
func (c RequestCategory) Describe() string {
	switch c {
	case CategoryUnauthorized:
		return "Your session has expired. Please log in again."
	case CategoryForbidden:
		return "You do not have permission to perform this action."
	case CategoryNotFound:
		return "The requested resource was not found."
	case CategoryRateLimited:
		return "Too many requests. Please wait a moment and try again."
	case CategoryValidation:
		return "The submitted data is invalid."
	case CategoryServer:
		return "The server encountered an error. Please try again later."
	case CategoryNetwork:
		return "Unable to reach the server. Check your connection."
	default:
		return "An unexpected error occurred."
	}
}

// Transient reports whether retrying the request may succeed.
func (c RequestCategory) Transient() bool {
	return c == CategoryNetwork || c == CategoryServer
}

// RequestError is a failed request as seen by the transport.
type RequestError struct {
	Category RequestCategory
	Status   int
	// Message is the server-supplied message, empty when none was given.
	Message string
	Err     error
}

func (e *RequestError) Error() string {
	msg := e.Message
	if msg == "" {
		msg = e.Category.Describe()
	}
	if e.Status != 0 {
		return fmt.Sprintf("%s (HTTP %d): %s", e.Category, e.Status, msg)
	}
	return fmt.Sprintf("%s: %s", e.Category, msg)
}

func (e *RequestError) Unwrap() error { return e.Err }

// UserMessage picks the server message when there is one, else fallback.
func UserMessage(err error, fallback string) string {
	var re *RequestError
	if errors.As(err, &re) && re.Message != "" {
		return re.Message
	}
	return fallback
}

// CategoryOf extracts the request category from err, CategoryUnknown otherwise.
func CategoryOf(err error) RequestCategory {
	var re *RequestError
	if errors.As(err, &re) {
		return re.Category
	}
	return CategoryUnknown
}
