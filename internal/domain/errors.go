package domain

import "errors"

// ErrNotFound is returned when an entity no longer exists. Indexing callers
// treat it as a skip, not a failure: the entity may have been deleted
// between discovery and processing.
var ErrNotFound = errors.New("entity not found")
