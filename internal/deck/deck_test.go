package deck

import (
	"testing"

	"github.com/lox/blackjack21/internal/randutil"
)

func TestNewDeckIsPermutation(t *testing.T) {
	for seed := int64(0); seed < 20; seed++ {
		d := New(randutil.New(seed))

		if d.Remaining() != 52 {
			t.Fatalf("seed %d: expected 52 cards, got %d", seed, d.Remaining())
		}

		seen := make(map[Card]bool, 52)
		for {
			card, err := d.Draw()
			if err != nil {
				break
			}
			if seen[card] {
				t.Errorf("seed %d: duplicate card %s", seed, card)
			}
			seen[card] = true
		}

		if len(seen) != 52 {
			t.Errorf("seed %d: expected 52 distinct cards, got %d", seed, len(seen))
		}
	}
}

func TestDrawReducesDeck(t *testing.T) {
	d := New(randutil.New(42))

	card, err := d.Draw()
	if err != nil {
		t.Fatalf("Draw on new deck: %v", err)
	}
	if d.Remaining() != 51 {
		t.Errorf("expected 51 cards after draw, got %d", d.Remaining())
	}
	if card.Rank < Two || card.Rank > Ace {
		t.Errorf("invalid rank drawn: %v", card.Rank)
	}
	if card.Suit < Spades || card.Suit > Clubs {
		t.Errorf("invalid suit drawn: %v", card.Suit)
	}
}

func TestDrawExhausted(t *testing.T) {
	d := New(randutil.New(42))
	for i := 0; i < 52; i++ {
		if _, err := d.Draw(); err != nil {
			t.Fatalf("draw %d failed: %v", i+1, err)
		}
	}

	if _, err := d.Draw(); err != ErrExhausted {
		t.Errorf("expected ErrExhausted, got %v", err)
	}
}

func TestShuffleIsDeterministicPerSeed(t *testing.T) {
	a := New(randutil.New(7))
	b := New(randutil.New(7))

	for a.Remaining() > 0 {
		ca, _ := a.Draw()
		cb, _ := b.Draw()
		if ca != cb {
			t.Fatalf("same seed produced different orders: %s vs %s", ca, cb)
		}
	}
}

func TestStackedDealsInOrder(t *testing.T) {
	want := []Card{
		NewCard(Ace, Spades),
		NewCard(King, Hearts),
		NewCard(Five, Clubs),
	}
	d := Stacked(want...)

	for i, expected := range want {
		card, err := d.Draw()
		if err != nil {
			t.Fatalf("draw %d: %v", i, err)
		}
		if card != expected {
			t.Errorf("draw %d: expected %s, got %s", i, expected, card)
		}
	}
}

func TestCardString(t *testing.T) {
	cases := []struct {
		card Card
		want string
	}{
		{NewCard(Ace, Spades), "A♠"},
		{NewCard(Ten, Diamonds), "10♦"},
		{NewCard(Two, Clubs), "2♣"},
		{NewCard(Queen, Hearts), "Q♥"},
	}
	for _, tc := range cases {
		if got := tc.card.String(); got != tc.want {
			t.Errorf("expected %s, got %s", tc.want, got)
		}
	}
}
