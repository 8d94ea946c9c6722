package table

import "github.com/lox/blackjack21/internal/blackjack"

// HiddenCard is the placeholder shown for the dealer's hole card while the
// session is still live.
const HiddenCard = "??"

// View is the presentation-agnostic snapshot of a session returned to the
// serving layer. The dealer's first card and score stay masked until the
// session is terminal.
type View struct {
	SessionID   string   `json:"session_id"`
	PlayerID    string   `json:"player_id"`
	Bet         int64    `json:"bet"`
	PlayerCards []string `json:"player_cards"`
	DealerCards []string `json:"dealer_cards"`
	PlayerScore int      `json:"player_score"`
	DealerScore int      `json:"dealer_score,omitempty"`
	Terminal    bool     `json:"terminal"`
	Outcome     string   `json:"outcome,omitempty"`
	Balance     int64    `json:"balance,omitempty"`
}

// view builds a snapshot of the session. Caller must hold the session mutex.
func (s *Session) view() View {
	v := View{
		SessionID:   s.id,
		PlayerID:    s.playerID,
		Bet:         s.bet,
		PlayerCards: s.player.Strings(),
		PlayerScore: blackjack.Score(s.player),
		Terminal:    s.state == StateSettled,
	}

	if v.Terminal {
		v.DealerCards = s.dealer.Strings()
		v.DealerScore = blackjack.Score(s.dealer)
		v.Outcome = s.outcome.String()
		v.Balance = s.balance
	} else {
		cards := s.dealer.Strings()
		if len(cards) > 0 {
			cards[0] = HiddenCard
		}
		v.DealerCards = cards
	}

	return v
}
