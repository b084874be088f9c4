package goAuthClient

import "errors"

var (
	// ErrInvalidTokenFormat is returned when a token fails the three-segment or
	// claims-decoding check. Such a token is never persisted.
	ErrInvalidTokenFormat = errors.New("invalid token format")
	// ErrTokenExpired is returned when a structurally valid token is past its exp.
	ErrTokenExpired = errors.New("token expired")
	// ErrMissingToken is returned when an OAuth completion carries neither a token
	// nor a provider error.
	ErrMissingToken = errors.New("oauth completion missing token")
	// ErrProviderError is returned when the identity provider reported an error.
	ErrProviderError = errors.New("identity provider error")
	// ErrUnauthenticated marks a forced logout caused by the backend rejecting the
	// session.
	ErrUnauthenticated = errors.New("backend reported session unauthenticated")
	// ErrStorageUnavailable is returned when the persistence backend fails.
	ErrStorageUnavailable = errors.New("session storage unavailable")
	// ErrSessionNotInitialized is returned by mutations attempted before Init.
	ErrSessionNotInitialized = errors.New("session context not initialized")
	// ErrBuilderUsed is returned when Build is called twice on one Builder.
	ErrBuilderUsed = errors.New("builder already used")
)
