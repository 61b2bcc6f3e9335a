package store

import "errors"

var (
	// ErrNotFound is returned when a user, post or blob does not exist.
	// Malformed identifiers are reported the same way.
	ErrNotFound = errors.New("not found")

	// ErrAlreadyExists is returned by Insert when the email is taken.
	ErrAlreadyExists = errors.New("already exists")

	// ErrNoUpload is returned by Put when no file was selected.
	ErrNoUpload = errors.New("no file uploaded")
)

// DefaultPageSize is used by the paged post sequences when the caller passes
// a non-positive page size.
const DefaultPageSize = 50
