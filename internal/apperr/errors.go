// Package apperr holds sentinel errors shared by the service and transports.
package apperr

import "errors"

var (
	ErrNotFound         = errors.New("not found")
	ErrInvalidSelection = errors.New("invalid selection")
	ErrInvalidArgument  = errors.New("invalid argument")
)
