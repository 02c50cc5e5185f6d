// Package domain holds shared domain types and sentinel errors.
package domain

import "errors"

var (
	// ErrValidation signals a malformed filter or options object.
	// Surfaced to the caller, never retried.
	ErrValidation = errors.New("validation failed")
	// ErrNotFound signals a missing resource.
	ErrNotFound = errors.New("not found")
	// ErrUpstreamUnavailable signals an unreachable listing store or cache backend.
	ErrUpstreamUnavailable = errors.New("upstream unavailable")
	// ErrSerialization signals a cache value that could not be decoded.
	// Treated as a cache miss on the read path, fatal only on the write path.
	ErrSerialization = errors.New("serialization failed")
)
