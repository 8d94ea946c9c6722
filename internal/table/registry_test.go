package table

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/lox/blackjack21/internal/deck"
	"github.com/lox/blackjack21/internal/ledger"
)

func testLogger() *log.Logger {
	return log.New(io.Discard)
}

// newTestLedger returns a ledger with the given players funded
func newTestLedger(t *testing.T, coins int64, players ...string) *ledger.Ledger {
	t.Helper()
	l, err := ledger.Open(ledger.NewMemStore(), testLogger())
	require.NoError(t, err)
	for _, p := range players {
		_, err := l.Credit(p, coins)
		require.NoError(t, err)
	}
	return l
}

// stackedDecks returns a deck func that serves the given decks in order
func stackedDecks(t *testing.T, decks ...*deck.Deck) func() *deck.Deck {
	t.Helper()
	i := 0
	return func() *deck.Deck {
		require.Less(t, i, len(decks), "more sessions started than decks stacked")
		d := decks[i]
		i++
		return d
	}
}

func card(rank deck.Rank, suit deck.Suit) deck.Card {
	return deck.NewCard(rank, suit)
}

// openingDeck stacks a deck dealing playerCards then dealerCards, with any
// extra cards available for draws.
func openingDeck(playerCards, dealerCards []deck.Card, draws ...deck.Card) *deck.Deck {
	cards := make([]deck.Card, 0, 4+len(draws))
	cards = append(cards, playerCards...)
	cards = append(cards, dealerCards...)
	cards = append(cards, draws...)
	return deck.Stacked(cards...)
}

func TestStartDebitsBetAndDeals(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger())

	view, err := r.Start("p1", 100)
	require.NoError(t, err)

	assert.Equal(t, int64(400), l.Balance("p1"), "bet debited at start")
	assert.Equal(t, "p1", view.PlayerID)
	assert.Equal(t, int64(100), view.Bet)
	assert.Len(t, view.PlayerCards, 2)
	assert.Len(t, view.DealerCards, 2)
	assert.Equal(t, HiddenCard, view.DealerCards[0], "dealer hole card masked")
	assert.NotEqual(t, HiddenCard, view.DealerCards[1])
	assert.False(t, view.Terminal)
	assert.Zero(t, view.DealerScore, "dealer score masked until terminal")
	assert.Positive(t, view.PlayerScore)
	assert.Equal(t, 1, r.Count())
}

func TestStartInvalidBet(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger())

	_, err := r.Start("p1", 0)
	assert.ErrorIs(t, err, ErrInvalidBet)
	_, err = r.Start("p1", -50)
	assert.ErrorIs(t, err, ErrInvalidBet)

	assert.Equal(t, int64(500), l.Balance("p1"))
	assert.Equal(t, 0, r.Count())
}

func TestStartInsufficientFunds(t *testing.T) {
	l := newTestLedger(t, 50, "p1")
	r := NewRegistry(l, testLogger())

	_, err := r.Start("p1", 100)
	assert.ErrorIs(t, err, ledger.ErrInsufficientFunds)
	assert.Equal(t, int64(50), l.Balance("p1"), "no debit on failed start")
	assert.Equal(t, 0, r.Count())
}

func TestStartSessionAlreadyActive(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger())

	_, err := r.Start("p1", 100)
	require.NoError(t, err)

	_, err = r.Start("p1", 100)
	assert.ErrorIs(t, err, ErrSessionActive)
	assert.Equal(t, int64(400), l.Balance("p1"), "bet debited exactly once")
	assert.Equal(t, 1, r.Count())
}

func TestHitBustSettlesWithoutCredit(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.King, deck.Spades), card(deck.Queen, deck.Hearts)},
			[]deck.Card{card(deck.Five, deck.Clubs), card(deck.Six, deck.Diamonds)},
			card(deck.Three, deck.Spades),
		),
	)))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)

	view, err := r.Hit("p1")
	require.NoError(t, err)

	assert.True(t, view.Terminal)
	assert.Equal(t, 23, view.PlayerScore)
	assert.Equal(t, "player_bust", view.Outcome)
	assert.Equal(t, int64(400), view.Balance, "bust forfeits the bet, no credit")
	assert.Equal(t, int64(400), l.Balance("p1"))
	assert.Equal(t, 0, r.Count(), "settled session is removed")
}

func TestHitBelowTwentyOneContinues(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.Two, deck.Spades), card(deck.Three, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Seven, deck.Diamonds)},
			card(deck.Four, deck.Spades),
		),
	)))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)

	view, err := r.Hit("p1")
	require.NoError(t, err)

	assert.False(t, view.Terminal)
	assert.Equal(t, 9, view.PlayerScore)
	assert.Len(t, view.PlayerCards, 3)
	assert.Equal(t, 1, r.Count())
}

func TestHitToExactlyTwentyOneEndsTurnWithoutDealerDraws(t *testing.T) {
	// Hitting to exactly 21 ends the turn immediately; the dealer keeps the
	// dealt hand even though it is under 17.
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.Ace, deck.Spades), card(deck.Five, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Six, deck.Diamonds)},
			card(deck.Five, deck.Spades),
		),
	)))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)

	view, err := r.Hit("p1")
	require.NoError(t, err)

	assert.True(t, view.Terminal)
	assert.Equal(t, 21, view.PlayerScore)
	assert.Len(t, view.DealerCards, 2, "dealer does not draw when the hit ends the hand")
	assert.Equal(t, 16, view.DealerScore)
	assert.Equal(t, "player_win", view.Outcome)
	assert.Equal(t, int64(600), view.Balance)
}

func TestStandDealerDrawsToSeventeenPlayerWins(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.King, deck.Spades), card(deck.Ten, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Three, deck.Diamonds)},
			card(deck.Four, deck.Spades),
		),
	)))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)
	require.Equal(t, int64(400), l.Balance("p1"))

	view, err := r.Stand("p1")
	require.NoError(t, err)

	assert.True(t, view.Terminal)
	assert.Equal(t, 20, view.PlayerScore)
	assert.Equal(t, 17, view.DealerScore)
	assert.Equal(t, "player_win", view.Outcome)
	assert.Equal(t, int64(600), view.Balance, "win credits 2x the bet")
	assert.Equal(t, int64(600), l.Balance("p1"))
	assert.NotEqual(t, HiddenCard, view.DealerCards[0], "hole card revealed at settlement")
}

func TestStandPushRefundsBet(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.Ten, deck.Spades), card(deck.Nine, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Nine, deck.Diamonds)},
		),
	)))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)

	view, err := r.Stand("p1")
	require.NoError(t, err)

	assert.Equal(t, "push", view.Outcome)
	assert.Equal(t, int64(500), view.Balance, "push returns to the pre-bet balance")
}

func TestStandDealerBustPays(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.Ten, deck.Spades), card(deck.Eight, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Six, deck.Diamonds)},
			card(deck.King, deck.Spades),
		),
	)))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)

	view, err := r.Stand("p1")
	require.NoError(t, err)

	assert.Equal(t, "dealer_bust", view.Outcome)
	assert.Equal(t, 26, view.DealerScore)
	assert.Equal(t, int64(600), l.Balance("p1"))
}

func TestActByNonOwnerRejected(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger())

	view, err := r.Start("p1", 100)
	require.NoError(t, err)

	_, err = r.Act(view.SessionID, "p2", ActionHit)
	assert.ErrorIs(t, err, ErrNotAuthorized)

	// No state change from the rejected action
	after, err := r.ViewSession("p1")
	require.NoError(t, err)
	assert.Len(t, after.PlayerCards, 2)
	assert.False(t, after.Terminal)
}

func TestActOnUnknownSession(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger())

	_, err := r.Act("nope", "p1", ActionHit)
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestActionsAfterSettlement(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.Ten, deck.Spades), card(deck.Nine, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Nine, deck.Diamonds)},
		),
	)))

	view, err := r.Start("p1", 100)
	require.NoError(t, err)
	_, err = r.Stand("p1")
	require.NoError(t, err)

	// Settled sessions are gone from the registry entirely
	_, err = r.Hit("p1")
	assert.ErrorIs(t, err, ErrNoActiveSession)
	_, err = r.Act(view.SessionID, "p1", ActionStand)
	assert.ErrorIs(t, err, ErrNoActiveSession)

	assert.Equal(t, int64(500), l.Balance("p1"), "settlement applied exactly once")
}

func TestHitOnUnknownPlayer(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger())

	_, err := r.Hit("p1")
	assert.ErrorIs(t, err, ErrNoActiveSession)
	_, err = r.Stand("p1")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestTimeoutResolvesAsImplicitStand(t *testing.T) {
	clock := quartz.NewMock(t)
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(),
		WithClock(clock),
		WithDeckFunc(stackedDecks(t,
			openingDeck(
				[]deck.Card{card(deck.King, deck.Spades), card(deck.Ten, deck.Hearts)},
				[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Seven, deck.Diamonds)},
			),
		)),
	)

	_, err := r.Start("p1", 100)
	require.NoError(t, err)
	require.Equal(t, int64(400), l.Balance("p1"))

	clock.Advance(DefaultTimeout).MustWait(context.Background())

	assert.Equal(t, 0, r.Count(), "expired session settled and removed")
	assert.Equal(t, int64(600), l.Balance("p1"), "timeout settles the wager, 20 beats 17")

	_, err = r.Hit("p1")
	assert.ErrorIs(t, err, ErrNoActiveSession)
}

func TestTimerStoppedAfterSettlement(t *testing.T) {
	clock := quartz.NewMock(t)
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(),
		WithClock(clock),
		WithDeckFunc(stackedDecks(t,
			openingDeck(
				[]deck.Card{card(deck.Ten, deck.Spades), card(deck.Nine, deck.Hearts)},
				[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Nine, deck.Diamonds)},
			),
		)),
	)

	_, err := r.Start("p1", 100)
	require.NoError(t, err)
	_, err = r.Stand("p1")
	require.NoError(t, err)
	require.Equal(t, int64(500), l.Balance("p1"))

	// Firing the stale timer must not settle (and credit) a second time
	clock.Advance(DefaultTimeout)
	assert.Equal(t, int64(500), l.Balance("p1"))
}

func TestDrainForceSettlesLiveSessions(t *testing.T) {
	l := newTestLedger(t, 500, "p1", "p2")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck( // p1 stands at 20 vs dealer 17: win
			[]deck.Card{card(deck.King, deck.Spades), card(deck.Ten, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Seven, deck.Diamonds)},
		),
		openingDeck( // p2 at 12 vs dealer 19: loss
			[]deck.Card{card(deck.Five, deck.Spades), card(deck.Seven, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Spades), card(deck.Nine, deck.Clubs)},
		),
	)))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)
	_, err = r.Start("p2", 100)
	require.NoError(t, err)

	r.Drain()

	assert.Equal(t, 0, r.Count(), "all sessions resolved at shutdown")
	assert.Equal(t, int64(600), l.Balance("p1"))
	assert.Equal(t, int64(400), l.Balance("p2"))

	_, err = r.Start("p1", 100)
	assert.ErrorIs(t, err, ErrClosed)
}

func TestConcurrentHitsSerialize(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.Two, deck.Spades), card(deck.Three, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Ten, deck.Diamonds)},
			card(deck.Two, deck.Hearts),
			card(deck.Two, deck.Clubs),
		),
	)))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)

	var wg sync.WaitGroup
	for i := 0; i < 2; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Hit("p1")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	view, err := r.ViewSession("p1")
	require.NoError(t, err)
	assert.Len(t, view.PlayerCards, 4, "each hit drew exactly one card")
	assert.Equal(t, 9, view.PlayerScore)
}

func TestBetDebitedAndCreditedExactlyOnceAcrossManyHits(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.Two, deck.Spades), card(deck.Two, deck.Hearts)},
			[]deck.Card{card(deck.Ten, deck.Clubs), card(deck.Nine, deck.Diamonds)},
			card(deck.Two, deck.Clubs),
			card(deck.Two, deck.Diamonds),
			card(deck.Three, deck.Spades),
			card(deck.Ten, deck.Spades), // fourth hit lands exactly on 21
		),
	)))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)

	var view View
	for i := 0; i < 4; i++ {
		view, err = r.Hit("p1")
		require.NoError(t, err)
	}

	require.True(t, view.Terminal)
	assert.Equal(t, 21, view.PlayerScore)
	assert.Equal(t, "player_win", view.Outcome, "21 beats dealer's 19")
	assert.Equal(t, int64(600), l.Balance("p1"), "single debit, single credit")
}

func TestSessionViewHidesDealerUntilTerminal(t *testing.T) {
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.Ten, deck.Spades), card(deck.Nine, deck.Hearts)},
			[]deck.Card{card(deck.Ace, deck.Clubs), card(deck.Nine, deck.Diamonds)},
		),
	)))

	view, err := r.Start("p1", 100)
	require.NoError(t, err)
	assert.Equal(t, []string{HiddenCard, "9♦"}, view.DealerCards)
	assert.Zero(t, view.DealerScore)

	view, err = r.Stand("p1")
	require.NoError(t, err)
	assert.Equal(t, []string{"A♣", "9♦"}, view.DealerCards)
	assert.Equal(t, 20, view.DealerScore)
	assert.Equal(t, "dealer_win", view.Outcome)
}

func TestOutcomeRecordedOnBlackjackScores(t *testing.T) {
	// A dealt 21 does not auto-settle; the player still chooses to stand,
	// and a dealt 21 vs dealer 21 pushes with no bonus payout.
	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithDeckFunc(stackedDecks(t,
		openingDeck(
			[]deck.Card{card(deck.Ace, deck.Spades), card(deck.King, deck.Hearts)},
			[]deck.Card{card(deck.Ace, deck.Clubs), card(deck.King, deck.Diamonds)},
		),
	)))

	view, err := r.Start("p1", 100)
	require.NoError(t, err)
	assert.False(t, view.Terminal, "dealt 21 still awaits the player")
	assert.Equal(t, 21, view.PlayerScore)

	view, err = r.Stand("p1")
	require.NoError(t, err)
	assert.Equal(t, "push", view.Outcome)
	assert.Equal(t, int64(500), view.Balance)
}

func TestSessionTimestampsUseInjectedClock(t *testing.T) {
	clock := quartz.NewMock(t)
	clock.Set(time.Date(2026, time.August, 31, 12, 0, 0, 0, time.UTC))

	l := newTestLedger(t, 500, "p1")
	r := NewRegistry(l, testLogger(), WithClock(clock))

	_, err := r.Start("p1", 100)
	require.NoError(t, err)

	s, ok := r.lookupPlayer("p1")
	require.True(t, ok)
	assert.Equal(t, clock.Now(), s.createdAt)
}
