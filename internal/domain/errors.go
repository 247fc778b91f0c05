package domain

import "errors"

var (
	// ErrValidation marks malformed or incomplete caller input.
	ErrValidation = errors.New("validation error")
	// ErrNotFound marks lookups that matched no record.
	ErrNotFound = errors.New("not found")
	// ErrConflict marks state transitions rejected by the current record state.
	ErrConflict = errors.New("conflict")
	// ErrPermission marks callers without SMS access for the target gateway.
	ErrPermission = errors.New("permission denied")
	// ErrConfiguration marks an unusable gateway setup (missing gateway,
	// missing SMPP credentials). Never retried.
	ErrConfiguration = errors.New("configuration error")
)
