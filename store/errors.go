package store

import "errors"

var (
	// ErrNotFound is returned when no document matches a FindOne filter.
	ErrNotFound = errors.New("vitrine: document not found")

	// ErrAlreadyExists is returned when inserting a document whose id is
	// already present in the collection.
	ErrAlreadyExists = errors.New("vitrine: document already exists")
)
