package vybiumrescueair

import "fmt"

// ErrorCode represents a vybium-rescue-air error code
type ErrorCode int

const (
	// ErrUnknown represents an unknown error
	ErrUnknown ErrorCode = iota

	// ErrInvalidTraceLength reports a trace length that is not a positive
	// multiple of the permutation cycle length
	ErrInvalidTraceLength

	// ErrInvalidExtensionFactor reports an invalid blow-up factor
	ErrInvalidExtensionFactor

	// ErrConstantTable reports a malformed round-constant table received from
	// the permutation collaborator
	ErrConstantTable

	// ErrInvalidInput represents an invalid input error
	ErrInvalidInput
)

// Error represents a vybium-rescue-air error
type Error struct {
	Code    ErrorCode
	Message string
	Cause   error
}

// Error returns the error message
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("vybium-rescue-air error [%d]: %s (caused by: %v)", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("vybium-rescue-air error [%d]: %s", e.Code, e.Message)
}

// Unwrap returns the cause of the error
func (e *Error) Unwrap() error {
	return e.Cause
}

// Is checks if the error matches the target error
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// NewError creates a new error with the given code and message
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError creates a new error wrapping a cause
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}
