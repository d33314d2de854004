package postman

import "errors"

// Sentinel errors for Postman API failures. Wrapped errors carry the
// request path and HTTP status; use errors.Is to classify.
var (
	// ErrUnauthorized indicates a rejected or missing API key (401/403).
	ErrUnauthorized = errors.New("postman: unauthorised")

	// ErrNotFound indicates the requested entity does not exist (404).
	ErrNotFound = errors.New("postman: not found")

	// ErrRateLimited indicates the server-side rate limit was hit (429).
	// The client-side limiter should normally prevent this.
	ErrRateLimited = errors.New("postman: rate limited")
)
