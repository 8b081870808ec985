// Package storage persists tasks and sort sessions. Tasks live either in a
// YAML file guarded by a file lock or in a SQLite database; sort sessions are
// kept as one YAML file each.
package storage

import "errors"

var (
	// ErrNotFound is returned when a task or session ID is unknown.
	ErrNotFound = errors.New("not found")

	// ErrVersionConflict is returned by Update when the stored version no
	// longer matches the caller's copy.
	ErrVersionConflict = errors.New("version conflict")

	// ErrAlreadyExists is returned by Create for a duplicate ID.
	ErrAlreadyExists = errors.New("already exists")
)
