package registry

import "errors"

// Sentinel kinds for registry errors.
var (
	ErrInvalidSession = errors.New("invalid session")
)
