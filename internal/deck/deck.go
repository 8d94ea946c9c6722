package deck

import (
	"errors"
	rand "math/rand/v2"
)

// ErrExhausted is returned by Draw when no cards remain. A freshly shuffled
// deck never runs out over a single blackjack hand, so hitting this means a
// session reused a deck it should not have.
var ErrExhausted = errors.New("deck: no cards remaining")

// Deck is an ordered set of playing cards, drawn from the front. A deck
// belongs to exactly one session and is never re-shuffled once dealt from.
type Deck struct {
	cards []Card
}

// New creates a full 52-card deck shuffled with the provided source. Every
// rank/suit pair appears exactly once; shuffling permutes, never resamples.
func New(rng *rand.Rand) *Deck {
	d := &Deck{cards: make([]Card, 0, 52)}
	for suit := Spades; suit <= Clubs; suit++ {
		for rank := Two; rank <= Ace; rank++ {
			d.cards = append(d.cards, NewCard(rank, suit))
		}
	}
	rng.Shuffle(len(d.cards), func(i, j int) {
		d.cards[i], d.cards[j] = d.cards[j], d.cards[i]
	})
	return d
}

// Stacked creates a deck that deals the given cards in order. Used by tests
// to force specific hands; production decks always come from New.
func Stacked(cards ...Card) *Deck {
	d := &Deck{cards: make([]Card, len(cards))}
	copy(d.cards, cards)
	return d
}

// Draw removes and returns the front card
func (d *Deck) Draw() (Card, error) {
	if len(d.cards) == 0 {
		return Card{}, ErrExhausted
	}
	card := d.cards[0]
	d.cards = d.cards[1:]
	return card, nil
}

// Remaining returns the number of cards left in the deck
func (d *Deck) Remaining() int {
	return len(d.cards)
}
