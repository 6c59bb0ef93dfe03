package ports

import "errors"

// Infrastructure errors for adapter layer.
//
// These errors represent infrastructure/adapter concerns and are separate from
// domain errors which represent record-level failures.
//
// Usage:
//   - Adapters wrap these errors with the target and cause
//   - The discovery engine classifies them into warnings; none are fatal

// ErrRepositoryUnavailable indicates a repository host could not be reached or
// answered with a non-success status.
//
// Used by:
//   - xrpc adapter on transport errors and non-2xx responses
//   - inmemory adapter for repositories configured to fail
var ErrRepositoryUnavailable = errors.New("repository unavailable")

// ErrRepositoryNotFound indicates the host does not know the repository.
//
// Used by:
//   - xrpc adapter for RepoNotFound responses
//   - mirror adapter when no directory exists for the repository
var ErrRepositoryNotFound = errors.New("repository not found")

// ErrIndexerUnavailable indicates an indexer could not be reached or answered
// with a non-success status.
var ErrIndexerUnavailable = errors.New("indexer unavailable")

// ErrMalformedResponse indicates a host answered with a body that could not be decoded.
var ErrMalformedResponse = errors.New("malformed response")

// ErrNotConfigured indicates a port required by the request has no adapter wired.
var ErrNotConfigured = errors.New("port not configured")

// ErrTruncated is returned together with a partial listing when the page
// limit was reached while the host still reported a cursor.
//
// Used by:
//   - registry adapter when a registry lists more pages than allowed
//   - social adapter when a follow list is longer than allowed
var ErrTruncated = errors.New("listing truncated")

// Compile-time check that errors implement error interface
var (
	_ error = ErrRepositoryUnavailable
	_ error = ErrRepositoryNotFound
	_ error = ErrIndexerUnavailable
	_ error = ErrMalformedResponse
	_ error = ErrNotConfigured
	_ error = ErrTruncated
)
