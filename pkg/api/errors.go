package api

import "errors"

var (
	// ErrIllegalState marks an operation invoked at the wrong point of a
	// flow execution lifecycle.
	ErrIllegalState = errors.New("illegal state")

	// ErrIllegalArgument marks an invalid constructor or setter argument.
	ErrIllegalArgument = errors.New("illegal argument")
)

// IllegalStateError carries a fixed, human-readable description of the
// violated precondition. Error() returns that description unchanged.
type IllegalStateError struct {
	Message string
}

// NewIllegalStateError creates an IllegalStateError.
func NewIllegalStateError(msg string) *IllegalStateError {
	return &IllegalStateError{Message: msg}
}

func (e *IllegalStateError) Error() string { return e.Message }

// Is makes errors.Is(err, ErrIllegalState) hold for every IllegalStateError,
// and matches other IllegalStateErrors carrying the same message.
func (e *IllegalStateError) Is(target error) bool {
	if target == ErrIllegalState {
		return true
	}
	var other *IllegalStateError
	if errors.As(target, &other) {
		return other.Message == e.Message
	}
	return false
}

// IllegalArgumentError reports an invalid argument.
type IllegalArgumentError struct {
	Message string
}

// NewIllegalArgumentError creates an IllegalArgumentError.
func NewIllegalArgumentError(msg string) *IllegalArgumentError {
	return &IllegalArgumentError{Message: msg}
}

func (e *IllegalArgumentError) Error() string { return e.Message }

func (e *IllegalArgumentError) Is(target error) bool {
	if target == ErrIllegalArgument {
		return true
	}
	var other *IllegalArgumentError
	if errors.As(target, &other) {
		return other.Message == e.Message
	}
	return false
}
