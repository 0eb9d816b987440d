// Package apperr holds sentinel errors shared by the storage, resource and
// transport layers.
package apperr

import "errors"

var (
	ErrNotFound        = errors.New("not found")
	ErrAccessDenied    = errors.New("access denied")
	ErrUnknownResource = errors.New("unknown resource")
	ErrInvalidPath     = errors.New("invalid path")
)
