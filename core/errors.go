package core

import (
	"fmt"

	"github.com/pkg/errors"
)

// FieldError is used to indicate an error with a specific struct field.
type FieldError struct {
	Field string
	Error string
}

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

// FetchFailure wraps any failure of the external data collaborator: network errors,
// malformed rows or a panic inside a fetch, normalized into a message.
type FetchFailure struct {
	Op  string // the failed fetch, eg. "fetching schools"
	Msg string
	Err error
}

func NewFetchFailure(op string, cause interface{}) *FetchFailure {
	ff := &FetchFailure{Op: op}
	switch c := cause.(type) {
	case nil:
		ff.Msg = "unknown error"
	case error:
		ff.Err = c
		ff.Msg = c.Error()
	case string:
		ff.Msg = c
	default:
		ff.Msg = fmt.Sprintf("%v", c)
	}
	return ff
}

func (err *FetchFailure) Error() string {
	if err.Op == "" {
		return err.Msg
	}
	return err.Op + ": " + err.Msg
}

func (err *FetchFailure) Unwrap() error { return err.Err }

// IsFetchFailure reports whether the root cause of err is a *FetchFailure.
func IsFetchFailure(err error) bool {
	_, ok := errors.Cause(err).(*FetchFailure)
	return ok
}

type shutdown struct {
	message string
}

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
