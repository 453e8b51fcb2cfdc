package moderation

import "errors"

var (
	// ErrNotFound is returned when no record has the requested id.
	ErrNotFound = errors.New("moderation: record not found")

	// ErrAlreadyResolved is returned when resolving a record that is no longer pending.
	ErrAlreadyResolved = errors.New("moderation: record already resolved")

	// ErrInvalidStatus is returned for unknown or non-terminal resolution statuses.
	ErrInvalidStatus = errors.New("moderation: invalid status")

	// ErrInvalidResolution is returned when a resolution is missing required fields.
	ErrInvalidResolution = errors.New("moderation: invalid resolution")
)
