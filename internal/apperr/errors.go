// Package apperr holds the sentinel errors shared by the service and its transports.
package apperr

import "errors"

var (
	ErrNotFound      = errors.New("not found")
	ErrAlreadyExists = errors.New("already exists")
	ErrInvalidName   = errors.New("invalid file name")
	ErrEmptySecret   = errors.New("secret must not be empty")
	ErrUnsupported   = errors.New("unsupported file type")
	ErrTooLarge      = errors.New("file too large")
	ErrWrongSecret   = errors.New("wrong secret")
	ErrDenied        = errors.New("access denied")
	ErrNotReady      = errors.New("graph not generated yet")
)
