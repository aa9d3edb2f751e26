package probe

import "errors"

var (
	// ErrNoMatches is returned when the host has nothing to track.
	ErrNoMatches = errors.New("no relevant matches")
	// ErrUnexpectedStatus wraps non-success HTTP answers.
	ErrUnexpectedStatus = errors.New("unexpected status")
	// ErrVerification is returned when the report has problems.
	ErrVerification = errors.New("verification failed")
)
