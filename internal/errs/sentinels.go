// Package errs contains sentinel errors used across layers for stable error mapping.
package errs

import "errors"

// Common sentinels across client and server layers.
var (
	// ErrNotFound indicates the requested entity does not exist.
	ErrNotFound = errors.New("not found")

	// ErrUnauthenticated indicates a missing, expired or rejected session.
	ErrUnauthenticated = errors.New("unauthenticated")

	// ErrTransient indicates a network or server-side failure; callers may retry.
	ErrTransient = errors.New("transient network failure")

	// ErrRemoteValidation indicates a 4xx answer whose message should be shown verbatim.
	ErrRemoteValidation = errors.New("remote validation failure")

	// ErrSubscriptionRequired indicates the current plan does not allow the operation.
	ErrSubscriptionRequired = errors.New("subscription required")

	// ErrStorage indicates local session persistence failed.
	ErrStorage = errors.New("session storage failure")

	// ErrRateLimited indicates temporary login lock due to rate limiting.
	ErrRateLimited = errors.New("rate limited")

	// ErrAlreadyExists indicates a unique constraint violation (e.g., email taken).
	ErrAlreadyExists = errors.New("already exists")

	// ErrInvalidArgument indicates a malformed request rejected by the API server.
	ErrInvalidArgument = errors.New("invalid argument")
)
