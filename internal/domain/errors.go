package domain

import "errors"

var (
	// ErrSourceUnavailable means a discovery endpoint could not be reached,
	// timed out or answered with a non-200 status.
	ErrSourceUnavailable = errors.New("source unavailable")

	// ErrMalformedManifest means a discovery endpoint answered with a body
	// that is not a valid manifest.
	ErrMalformedManifest = errors.New("malformed manifest")

	// ErrRuntimeQuery means the local container runtime could not be queried.
	ErrRuntimeQuery = errors.New("container runtime query failed")

	// ErrSink means a routing configuration sink rejected or failed a write.
	ErrSink = errors.New("sink failure")

	// ErrValidation means administrative input was rejected.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound means the referenced entity does not exist.
	ErrNotFound = errors.New("not found")
)
