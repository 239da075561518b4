package types

import "errors"

var (
	// ErrFieldNotFound is returned when a requested accessor does not exist
	// on the record type.
	ErrFieldNotFound = errors.New("field not found")

	// ErrAccessorNotFound is returned when an accessor cannot be read from a
	// record at runtime and missing values are not allowed.
	ErrAccessorNotFound = errors.New("accessor not found")

	ErrCycle    = errors.New("reference cycle detected")
	ErrMaxDepth = errors.New("maximum nesting depth exceeded")

	// ErrInvalidPrefix is returned for prefix templates with placeholders
	// other than {accessor}.
	ErrInvalidPrefix = errors.New("invalid prefix template")

	ErrUnsupportedCollection = errors.New("unsupported collection")
)
