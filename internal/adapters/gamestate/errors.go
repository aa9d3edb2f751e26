package gamestate

import "errors"

// ErrInvalidEvent is returned for events missing a session, player or kind.
var ErrInvalidEvent = errors.New("invalid game event")
