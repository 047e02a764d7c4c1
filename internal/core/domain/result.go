package domain

// Result is the outcome of a session operation. Operations never return Go
// errors to consumers; a failure carries a human-readable message instead.
type Result[T any] struct {
	OK    bool
	Value T
	Error string
}

// Success wraps v in a successful Result.
func Success[T any](v T) Result[T] {
	return Result[T]{OK: true, Value: v}
}

// Failure builds a failed Result with message msg.
func Failure[T any](msg string) Result[T] {
	return Result[T]{Error: msg}
}

// Empty is the value type of operations with nothing to return.
type Empty struct{}
