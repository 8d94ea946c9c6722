// Package blackjack implements the pure rules of the game: hand scoring
// with the soft-ace reduction, the dealer's fixed draw policy, and the
// settlement of a finished hand against a wager.
package blackjack

import (
	"strings"

	"github.com/lox/blackjack21/internal/deck"
)

const (
	// Target is the score a hand is trying to reach without exceeding
	Target = 21

	// dealerStand is the score at which the dealer stops drawing
	dealerStand = 17
)

// Hand is an ordered, append-only sequence of cards
type Hand []deck.Card

// Add appends a card to the hand
func (h *Hand) Add(card deck.Card) {
	*h = append(*h, card)
}

// Strings returns the display form of each card in deal order
func (h Hand) Strings() []string {
	out := make([]string, len(h))
	for i, c := range h {
		out[i] = c.String()
	}
	return out
}

// String returns the hand as space-separated cards (e.g., "A♠ K♦")
func (h Hand) String() string {
	return strings.Join(h.Strings(), " ")
}

// Score computes the blackjack value of the hand. Face cards count 10,
// number cards their face value, and each ace counts 11 until the total
// exceeds Target, at which point aces are reduced to 1 one at a time until
// the total fits or no unreduced aces remain. A score above Target is a bust.
func Score(h Hand) int {
	total := 0
	aces := 0
	for _, card := range h {
		switch {
		case card.IsAce():
			aces++
			total += 11
		case card.IsFaceCard():
			total += 10
		default:
			total += int(card.Rank)
		}
	}

	for total > Target && aces > 0 {
		total -= 10
		aces--
	}

	return total
}

// IsBust reports whether the hand's score exceeds Target
func IsBust(h Hand) bool {
	return Score(h) > Target
}
