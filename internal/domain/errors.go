package domain

import "errors"

// Error kinds surfaced by the core. Callers classify failures with errors.Is;
// everything user-visible is derived from one of these.
var (
	// ErrNotFound means a free-text name did not resolve to a catalog entry.
	ErrNotFound = errors.New("reference not found")

	// ErrUnknownProduct means the stock ledger has no row for the product yet.
	ErrUnknownProduct = errors.New("unknown product")

	// ErrInvalidReference means an id was passed that has no backing row.
	ErrInvalidReference = errors.New("invalid reference")

	// ErrValidationFailed means an amount or quantity failed validation.
	ErrValidationFailed = errors.New("validation failed")

	// ErrRecordingFailed means the storage transaction did not complete.
	// No partial state is observable when it is returned.
	ErrRecordingFailed = errors.New("recording failed")
)
