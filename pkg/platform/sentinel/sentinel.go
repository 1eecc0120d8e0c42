package sentinel

import "errors"

// Sentinel errors for infrastructure facts. Stores return these (optionally
// wrapped) and services translate them into domain errors:
// - ErrNotFound: record does not exist in the store
// - ErrAlreadyUsed: a unique key (DNI, CUIL) already belongs to another record
// - ErrUnavailable: backing service temporarily unavailable
// - ErrModified: the record changed since it was read (optimistic lock)
//
// For validation errors (bad input, missing fields), use pkg/domain-errors directly.
var (
	ErrNotFound    = errors.New("not found")
	ErrAlreadyUsed = errors.New("already used")
	ErrUnavailable = errors.New("unavailable")
	ErrModified    = errors.New("modified concurrently")
)
