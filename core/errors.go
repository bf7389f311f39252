package core

import "github.com/pkg/errors"

// FieldError ties a validation message to the request field that caused it,
// eg. a taken email on registration or a malformed time range on a booking.
type FieldError struct {
	Field string
	Error string
}

// ValidationError is returned by model Validate() methods and rendered by the
// API as a field -> message map.
type ValidationError struct {
	Err    error
	Fields []FieldError
}

func NewValidationError(err error, flds ...FieldError) error {
	return &ValidationError{err, flds}
}

func (err ValidationError) Error() string {
	if err.Err == nil {
		return ""
	}
	return err.Err.Error()
}

type shutdown struct {
	message string
}

// NewShutdownError flags an unrecoverable integrity error so the API can
// terminate instead of serving on a broken state.
func NewShutdownError(msg string) error {
	return &shutdown{message: msg}
}

func (s shutdown) Error() string {
	return s.message
}

func IsShutdown(err error) bool {
	_, ok := errors.Cause(err).(*shutdown)
	return ok
}
