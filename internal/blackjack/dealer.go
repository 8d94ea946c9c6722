package blackjack

import "github.com/lox/blackjack21/internal/deck"

// PlayDealer runs the dealer's fixed policy against the session's deck:
// draw while the hand scores below 17, stand at 17 or more even when that
// busts. The policy takes no input from the player and has no variants.
func PlayDealer(d *deck.Deck, hand *Hand) error {
	for Score(*hand) < dealerStand {
		card, err := d.Draw()
		if err != nil {
			return err
		}
		hand.Add(card)
	}
	return nil
}
