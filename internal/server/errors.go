package server

import (
	"errors"

	"github.com/lox/blackjack21/internal/deck"
	"github.com/lox/blackjack21/internal/ledger"
	"github.com/lox/blackjack21/internal/table"
)

// Wire error codes surfaced to clients
const (
	CodeInvalidBet        = "invalid_bet"
	CodeInsufficientFunds = "insufficient_funds"
	CodeSessionActive     = "session_already_active"
	CodeNoActiveSession   = "no_active_session"
	CodeInvalidState      = "invalid_state"
	CodeNotAuthorized     = "not_authorized"
	CodeAlreadyClaimed    = "already_claimed_today"
	CodeDeckExhausted     = "deck_exhausted"
	CodeNotIdentified     = "not_identified"
	CodeShuttingDown      = "shutting_down"
	CodeBadRequest        = "bad_request"
	CodeInternal          = "internal"
)

// errorCode maps a typed domain error to its wire code
func errorCode(err error) string {
	switch {
	case errors.Is(err, table.ErrInvalidBet), errors.Is(err, ledger.ErrInvalidAmount):
		return CodeInvalidBet
	case errors.Is(err, ledger.ErrInsufficientFunds):
		return CodeInsufficientFunds
	case errors.Is(err, table.ErrSessionActive):
		return CodeSessionActive
	case errors.Is(err, table.ErrNoActiveSession):
		return CodeNoActiveSession
	case errors.Is(err, table.ErrInvalidState):
		return CodeInvalidState
	case errors.Is(err, table.ErrNotAuthorized):
		return CodeNotAuthorized
	case errors.Is(err, ledger.ErrAlreadyClaimed):
		return CodeAlreadyClaimed
	case errors.Is(err, deck.ErrExhausted):
		return CodeDeckExhausted
	case errors.Is(err, table.ErrClosed):
		return CodeShuttingDown
	default:
		return CodeInternal
	}
}
