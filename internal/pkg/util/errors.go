package util

import (
	"errors"
	"fmt"
)

// Error kinds shared by the core and its adapters. Wrap them with %w and
// test with errors.Is; the HTTP layer maps each kind to a status code.
var (
	ErrValidation   = errors.New("validation failed")
	ErrNotFound     = errors.New("not found")
	ErrConflict     = errors.New("conflict")
	ErrUnauthorized = errors.New("unauthorized")
)

// Validationf returns an ErrValidation carrying a formatted message.
func Validationf(format string, args ...any) error {
	return &kindError{kind: ErrValidation, msg: fmt.Sprintf(format, args...)}
}

// NotFoundf returns an ErrNotFound carrying a formatted message.
func NotFoundf(format string, args ...any) error {
	return &kindError{kind: ErrNotFound, msg: fmt.Sprintf(format, args...)}
}

// Conflictf returns an ErrConflict carrying a formatted message.
func Conflictf(format string, args ...any) error {
	return &kindError{kind: ErrConflict, msg: fmt.Sprintf(format, args...)}
}

// Unauthorizedf returns an ErrUnauthorized carrying a formatted message.
func Unauthorizedf(format string, args ...any) error {
	return &kindError{kind: ErrUnauthorized, msg: fmt.Sprintf(format, args...)}
}

type kindError struct {
	kind error
	msg  string
}

// Error returns only the message; the kind is reported through Unwrap.
func (e *kindError) Error() string { return e.msg }

func (e *kindError) Unwrap() error { return e.kind }
