package sdindex

import "errors"

var (
	// ErrNotFound is returned by Rename when oldKey is not present in the
	// index.
	ErrNotFound = errors.New("sdindex: key not found")

	// ErrKeyExists is returned by Rename when newKey is already present in
	// the index (precondition failure; the index is left untouched).
	ErrKeyExists = errors.New("sdindex: key already exists")

	// ErrMalformedLine is returned when a stored index line has no "=".
	ErrMalformedLine = errors.New("sdindex: malformed index line")
)
