// Package common defines sentinel errors shared by the subreport packages.
// Callers should use errors.Is to match these values; producers wrap them
// with fmt.Errorf("...: %w", ...) so the underlying cause is kept.
package common

import "errors"

var (
	// Repository-level errors.
	ErrorNotFound = errors.New("not found")

	// Source errors: the backend could not be reached or returned rows that
	// could not be decoded. A run that hits this never persists anything.
	ErrSourceUnavailable = errors.New("source unavailable")

	// Sink errors.
	ErrPersistence = errors.New("persistence failure")

	// Snapshot construction errors.
	ErrInvalidSnapshot = errors.New("invalid snapshot")

	// Configuration errors (missing credentials, bad values).
	ErrConfig = errors.New("configuration error")
)
