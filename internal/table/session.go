package table

import (
	"sync"
	"time"

	"github.com/coder/quartz"

	"github.com/lox/blackjack21/internal/blackjack"
	"github.com/lox/blackjack21/internal/deck"
)

// State identifies where a session is in its lifecycle
type State int

const (
	// StateAwaitingPlayer accepts hit/stand actions from the owner
	StateAwaitingPlayer State = iota

	// StateDealerTurn is transient while the dealer policy runs
	StateDealerTurn

	// StateSettled is terminal: the wager has been resolved exactly once
	StateSettled
)

// String returns the state name
func (s State) String() string {
	switch s {
	case StateAwaitingPlayer:
		return "awaiting_player"
	case StateDealerTurn:
		return "dealer_turn"
	case StateSettled:
		return "settled"
	default:
		return "unknown"
	}
}

// Action is a player move on a live session
type Action int

const (
	ActionHit Action = iota
	ActionStand
)

// String returns the action name
func (a Action) String() string {
	switch a {
	case ActionHit:
		return "hit"
	case ActionStand:
		return "stand"
	default:
		return "unknown"
	}
}

// Session is the live state of one game: one deck, two hands, one wager,
// bound to one player. The bet was debited before the session was created.
// All mutation happens through the registry under the session mutex, so at
// most one action executes at a time.
type Session struct {
	id        string
	playerID  string
	bet       int64
	deck      *deck.Deck
	player    blackjack.Hand
	dealer    blackjack.Hand
	state     State
	createdAt time.Time

	// set when the session settles
	outcome blackjack.Outcome
	balance int64

	timer *quartz.Timer
	mu    sync.Mutex
}

// ID returns the session identifier
func (s *Session) ID() string {
	return s.id
}

// PlayerID returns the owning player
func (s *Session) PlayerID() string {
	return s.playerID
}
