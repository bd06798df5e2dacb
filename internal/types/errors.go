package types

import "errors"

// Sentinel errors shared by the store implementations
var (
	// ErrStateConflict means the generation state changed since it was read
	ErrStateConflict = errors.New("generation state was advanced by another run")
	// ErrDuplicateSlug means an article with the same slug already exists
	ErrDuplicateSlug = errors.New("article slug already exists")
)
