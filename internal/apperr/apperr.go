// Package apperr holds the error classes shared by every service.
// Domain errors wrap one of these so callers can branch with errors.Is.
package apperr

import "errors"

var (
	// ErrValidation is a user-correctable input problem; nothing was written.
	ErrValidation = errors.New("validation failed")
	// ErrIntegrity means the change would orphan or corrupt related records.
	ErrIntegrity = errors.New("integrity check failed")
	// ErrNotFound means the referenced record does not exist.
	ErrNotFound = errors.New("not found")
)
