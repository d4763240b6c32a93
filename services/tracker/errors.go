package tracker

import "errors"

var (
	// ErrAuthFailure is a single failed exchange of credentials for a token.
	ErrAuthFailure = errors.New("authentication failed")
	// ErrTokenExpired is returned when the server answered 401.
	ErrTokenExpired = errors.New("session token expired")
	// ErrTransientHTTP is a timeout, a dropped connection or a non-200
	// status other than 401.
	ErrTransientHTTP = errors.New("transient http failure")
	// ErrMalformedResponse is a 200 whose body could not be understood.
	ErrMalformedResponse = errors.New("malformed response")
	// ErrBookingRejected is any reservation that was not confirmed.
	ErrBookingRejected = errors.New("booking rejected")
	// ErrSessionExhausted is returned after every login attempt of a
	// refresh has failed.
	ErrSessionExhausted = errors.New("session refresh attempts exhausted")
	// ErrNoCredentials is returned when a token must be refreshed for a
	// tracker that was created without credentials.
	ErrNoCredentials = errors.New("no credentials to refresh the session with")

	ErrInvalidWindow    = errors.New("window end is before its start")
	ErrInvalidFilter    = errors.New("region, district and clinic are required")
	ErrDuplicateTracker = errors.New("tracker is already registered")
	ErrNotStarted       = errors.New("scheduler is not running")
)
