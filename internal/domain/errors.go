package domain

import "errors"

// Configuration-class errors. These reject a run before any simulated day
// executes; everything else degrades to a report warning.
var (
	ErrInvalidDateRange = errors.New("end date is before start date")
	ErrUnknownTenant    = errors.New("tenant has no items in the historical store")
)
