// Package store persists employee records: in memory, in Postgres, and
// behind a Redis read-through cache.
package store

import "legajo/pkg/platform/sentinel"

// ConflictError names the unique field a write collided on. It matches
// sentinel.ErrAlreadyUsed with errors.Is.
type ConflictError struct {
	Field string
}

func (e *ConflictError) Error() string { return e.Field + " already used" }

func (e *ConflictError) Unwrap() error { return sentinel.ErrAlreadyUsed }
