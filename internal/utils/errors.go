package utils

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures so screens can decide how to surface them.
type ErrorKind string

const (
	// KindTransport marks network failures reaching the record service.
	KindTransport ErrorKind = "transport"
	// KindStatus marks non-success HTTP responses.
	KindStatus ErrorKind = "status"
	// KindShape marks payloads that could not be decoded.
	KindShape ErrorKind = "shape"
	// KindValidation marks input refused before any request was made.
	KindValidation ErrorKind = "validation"
)

// AppError wraps an operation, failure kind, human-facing message, and underlying error.
type AppError struct {
	Op   string
	Kind ErrorKind
	Msg  string
	Err  error
}

func (e *AppError) Error() string {
	if e.Err == nil {
		return fmt.Sprintf("%s: %s", e.Op, e.Msg)
	}
	return fmt.Sprintf("%s: %s: %v", e.Op, e.Msg, e.Err)
}

func (e *AppError) Unwrap() error {
	return e.Err
}

// NewAppError constructs an AppError.
func NewAppError(op string, kind ErrorKind, msg string, err error) error {
	return &AppError{Op: op, Kind: kind, Msg: msg, Err: err}
}

// IsKind reports whether any AppError in err's chain has the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var appErr *AppError
	for err != nil {
		if !errors.As(err, &appErr) {
			return false
		}
		if appErr.Kind == kind {
			return true
		}
		err = appErr.Err
	}
	return false
}
