// Package store holds what the token and profile store backends share.
package store

import "github.com/samber/oops"

// Error codes attached to store failures.
const (
	CodeReadFailed   = "STORE_READ_FAILED"
	CodeWriteFailed  = "STORE_WRITE_FAILED"
	CodeRemoveFailed = "STORE_REMOVE_FAILED"
	CodeTokenEmpty   = "TOKEN_EMPTY"
	CodeEncodeFailed = "STORE_ENCODE_FAILED"
)

// Code returns the store error code carried by err, or "" if none.
func Code(err error) string {
	if oopsErr, ok := oops.AsOops(err); ok {
		if code, ok := oopsErr.Code().(string); ok {
			return code
		}
	}
	return ""
}
