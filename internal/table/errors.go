package table

import "errors"

var (
	// ErrInvalidBet is returned when a start request carries a non-positive bet
	ErrInvalidBet = errors.New("table: bet must be a positive amount")

	// ErrSessionActive is returned when a player already has a live session
	ErrSessionActive = errors.New("table: session already active for player")

	// ErrNoActiveSession is returned when an action targets a player or
	// session that has no live game
	ErrNoActiveSession = errors.New("table: no active session")

	// ErrInvalidState is returned when an action arrives after the player's
	// turn is over
	ErrInvalidState = errors.New("table: session is not awaiting a player action")

	// ErrNotAuthorized is returned when someone other than the session owner
	// tries to act
	ErrNotAuthorized = errors.New("table: not your game")

	// ErrClosed is returned when the registry is draining for shutdown
	ErrClosed = errors.New("table: registry is shutting down")
)
