package model

import "errors"

var (
	// ErrNotFound is returned when a swiped entity id cannot be resolved.
	ErrNotFound = errors.New("entity not found")

	// ErrInvalidRole is returned when the viewer's role cannot act on the entity kind.
	ErrInvalidRole = errors.New("role incompatible with entity")

	// ErrPersistenceUnavailable wraps any failure of the backing stores.
	ErrPersistenceUnavailable = errors.New("persistence unavailable")

	// ErrInvalidTransition is returned by the session when advance is not allowed.
	ErrInvalidTransition = errors.New("invalid session transition")

	// ErrStaleSession is returned when a result was issued under an older session generation.
	ErrStaleSession = errors.New("stale session generation")
)
