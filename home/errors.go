package home

import "errors"

var (
	// ErrInvalidArgument is returned for out-of-range arguments, such as a
	// product list outside the 1..12 bound or a non-positive target position.
	ErrInvalidArgument = errors.New("vitrine: invalid argument")

	// ErrInvalidReference is returned when a category or product reference
	// is malformed or does not resolve.
	ErrInvalidReference = errors.New("vitrine: reference does not resolve")

	// ErrCapacityExceeded is returned when adding a section beyond the
	// homepage limit.
	ErrCapacityExceeded = errors.New("vitrine: homepage section limit reached")

	// ErrNotFound is returned when no section holds the target position.
	ErrNotFound = errors.New("vitrine: homepage section not found")

	// ErrConcurrentModification is returned when a section moved between
	// the read and the conditional write of a reorder step.
	ErrConcurrentModification = errors.New("vitrine: section was modified concurrently")
)
