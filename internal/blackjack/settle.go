package blackjack

// Outcome is the result of a settled hand from the player's perspective
type Outcome int

const (
	OutcomePlayerBust Outcome = iota
	OutcomeDealerBust
	OutcomePlayerWin
	OutcomeDealerWin
	OutcomePush
)

// String returns the wire/display name of the outcome
func (o Outcome) String() string {
	switch o {
	case OutcomePlayerBust:
		return "player_bust"
	case OutcomeDealerBust:
		return "dealer_bust"
	case OutcomePlayerWin:
		return "player_win"
	case OutcomeDealerWin:
		return "dealer_win"
	case OutcomePush:
		return "push"
	default:
		return "unknown"
	}
}

// PlayerWins reports whether the outcome pays the player
func (o Outcome) PlayerWins() bool {
	return o == OutcomeDealerBust || o == OutcomePlayerWin
}

// Settle determines the outcome of a finished hand. The rules are evaluated
// in order: a player bust loses before the dealer's hand is even considered,
// then a dealer bust wins, then scores are compared with ties pushing.
// A two-card 21 settles by the same comparison as any other hand; there is
// no blackjack bonus payout.
func Settle(playerScore, dealerScore int) Outcome {
	switch {
	case playerScore > Target:
		return OutcomePlayerBust
	case dealerScore > Target:
		return OutcomeDealerBust
	case playerScore > dealerScore:
		return OutcomePlayerWin
	case dealerScore > playerScore:
		return OutcomeDealerWin
	default:
		return OutcomePush
	}
}

// Payout returns the amount to credit back for a bet that was already
// debited at the start of the hand: double the bet on a win, the bet back
// on a push, nothing on a loss (the debit stands as the forfeit).
func Payout(o Outcome, bet int64) int64 {
	switch {
	case o.PlayerWins():
		return 2 * bet
	case o == OutcomePush:
		return bet
	default:
		return 0
	}
}
