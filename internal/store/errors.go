package store

import "errors"

var (
	// ErrNotFound means the requested row does not exist.
	ErrNotFound = errors.New("store: record not found")
	// ErrDuplicate means a write violated a unique constraint.
	ErrDuplicate = errors.New("store: duplicate entry")
)

var errReadOnly = errors.New("store: write attempted in read-only view")
