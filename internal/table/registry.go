// Package table runs blackjack sessions against the coin ledger. The
// registry enforces one live session per player, serializes actions on a
// session, and guarantees every debited bet is settled exactly once, even
// when the player walks away (timeout) or the process shuts down (drain).
package table

import (
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/coder/quartz"

	"github.com/lox/blackjack21/internal/blackjack"
	"github.com/lox/blackjack21/internal/deck"
	"github.com/lox/blackjack21/internal/gameid"
	"github.com/lox/blackjack21/internal/ledger"
	"github.com/lox/blackjack21/internal/randutil"
)

// DefaultTimeout is how long a session waits for player input before it is
// resolved as an implicit stand.
const DefaultTimeout = 120 * time.Second

// Option configures a Registry
type Option func(*Registry)

// WithClock injects the clock used for session timeouts
func WithClock(clock quartz.Clock) Option {
	return func(r *Registry) { r.clock = clock }
}

// WithTimeout overrides the session timeout
func WithTimeout(d time.Duration) Option {
	return func(r *Registry) { r.timeout = d }
}

// WithDeckFunc overrides how session decks are built, so tests can stack
// exact cards
func WithDeckFunc(f func() *deck.Deck) Option {
	return func(r *Registry) { r.newDeck = f }
}

// WithIDGenerator overrides session ID generation
func WithIDGenerator(g *gameid.Generator) Option {
	return func(r *Registry) { r.idgen = g }
}

// Registry owns all live sessions. Player actions arrive as overlapping
// events from the serving layer; the registry routes each through the target
// session's mutex so a session executes at most one action at a time,
// including the ledger write it triggers.
type Registry struct {
	logger  *log.Logger
	ledger  *ledger.Ledger
	clock   quartz.Clock
	timeout time.Duration
	idgen   *gameid.Generator
	newDeck func() *deck.Deck

	mu       sync.Mutex
	byPlayer map[string]*Session
	byID     map[string]*Session
	closed   bool
}

// NewRegistry creates a registry bound to a ledger
func NewRegistry(l *ledger.Ledger, logger *log.Logger, opts ...Option) *Registry {
	r := &Registry{
		logger:   logger.WithPrefix("table"),
		ledger:   l,
		clock:    quartz.NewReal(),
		timeout:  DefaultTimeout,
		idgen:    gameid.NewGenerator(nil),
		newDeck:  func() *deck.Deck { return deck.New(randutil.NewFromTime()) },
		byPlayer: make(map[string]*Session),
		byID:     make(map[string]*Session),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Start debits the bet and opens a new session for the player: a fresh
// shuffled deck, two cards to the player and two to the dealer. Fails closed
// before any card is dealt if the player already has a session, the bet is
// invalid, or the balance does not cover it.
func (r *Registry) Start(playerID string, bet int64) (View, error) {
	if bet <= 0 {
		return View{}, ErrInvalidBet
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return View{}, ErrClosed
	}
	if _, ok := r.byPlayer[playerID]; ok {
		return View{}, ErrSessionActive
	}

	if _, err := r.ledger.Debit(playerID, bet); err != nil {
		return View{}, err
	}

	s := &Session{
		id:        r.idgen.Generate(),
		playerID:  playerID,
		bet:       bet,
		deck:      r.newDeck(),
		state:     StateAwaitingPlayer,
		createdAt: r.clock.Now(),
	}

	if err := s.dealOpening(); err != nil {
		// Undo the debit so a malformed deck never eats the bet
		if _, creditErr := r.ledger.Credit(playerID, bet); creditErr != nil {
			r.logger.Error("Failed to refund bet after deal error",
				"player", playerID, "bet", bet, "error", creditErr)
		}
		return View{}, fmt.Errorf("failed to deal opening hands: %w", err)
	}

	r.byPlayer[playerID] = s
	r.byID[s.id] = s

	sessionID := s.id
	s.timer = r.clock.AfterFunc(r.timeout, func() {
		r.expire(sessionID)
	})

	r.logger.Info("Session started", "session", s.id, "player", playerID, "bet", bet)

	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// dealOpening deals two cards to the player then two to the dealer, the
// order the original table dealt in.
func (s *Session) dealOpening() error {
	for _, hand := range []*blackjack.Hand{&s.player, &s.player, &s.dealer, &s.dealer} {
		card, err := s.deck.Draw()
		if err != nil {
			return err
		}
		hand.Add(card)
	}
	return nil
}

// Hit draws one card for the player's own session
func (r *Registry) Hit(playerID string) (View, error) {
	s, ok := r.lookupPlayer(playerID)
	if !ok {
		return View{}, ErrNoActiveSession
	}
	return r.act(s, playerID, ActionHit)
}

// Stand ends the player's turn on their own session
func (r *Registry) Stand(playerID string) (View, error) {
	s, ok := r.lookupPlayer(playerID)
	if !ok {
		return View{}, ErrNoActiveSession
	}
	return r.act(s, playerID, ActionStand)
}

// Act applies an action to a specific session on behalf of actorID. The
// serving layer uses this for button-style events that reference a session,
// where the presser may not be the owner.
func (r *Registry) Act(sessionID, actorID string, action Action) (View, error) {
	r.mu.Lock()
	s, ok := r.byID[sessionID]
	r.mu.Unlock()
	if !ok {
		return View{}, ErrNoActiveSession
	}
	return r.act(s, actorID, action)
}

// ViewSession returns a snapshot of the player's live session
func (r *Registry) ViewSession(playerID string) (View, error) {
	s, ok := r.lookupPlayer(playerID)
	if !ok {
		return View{}, ErrNoActiveSession
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.view(), nil
}

// Count returns the number of live sessions
func (r *Registry) Count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byPlayer)
}

// Drain stops accepting new sessions and force-settles every live session
// as an implicit stand, so no debited bet is left unresolved at shutdown.
func (r *Registry) Drain() {
	r.mu.Lock()
	r.closed = true
	pending := make([]*Session, 0, len(r.byID))
	for _, s := range r.byID {
		pending = append(pending, s)
	}
	r.mu.Unlock()

	if len(pending) > 0 {
		r.logger.Info("Draining live sessions", "count", len(pending))
	}
	for _, s := range pending {
		r.forceSettle(s, "shutdown")
	}
}

func (r *Registry) lookupPlayer(playerID string) (*Session, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.byPlayer[playerID]
	return s, ok
}

// act runs a single player action under the session lock
func (r *Registry) act(s *Session, actorID string, action Action) (View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if actorID != s.playerID {
		return View{}, ErrNotAuthorized
	}
	if s.state != StateAwaitingPlayer {
		return View{}, ErrInvalidState
	}

	switch action {
	case ActionHit:
		card, err := s.deck.Draw()
		if err != nil {
			return View{}, err
		}
		s.player.Add(card)
		r.logger.Debug("Player hit", "session", s.id, "card", card, "score", blackjack.Score(s.player))

		// Reaching 21 ends the turn the same way a bust does: settle
		// immediately against the dealer's dealt hand, no dealer draws.
		if blackjack.Score(s.player) >= blackjack.Target {
			r.settle(s)
		}

	case ActionStand:
		s.state = StateDealerTurn
		r.runDealerAndSettle(s)

	default:
		return View{}, fmt.Errorf("table: unknown action %d", action)
	}

	return s.view(), nil
}

// expire fires when a session's timer lapses. An expired session that is
// still waiting on the player resolves as an implicit stand so the wager is
// settled rather than stranded.
func (r *Registry) expire(sessionID string) {
	r.mu.Lock()
	s, ok := r.byID[sessionID]
	r.mu.Unlock()
	if !ok {
		return
	}

	r.logger.Info("Session timed out, resolving as stand", "session", sessionID, "player", s.playerID)
	r.forceSettle(s, "timeout")
}

// forceSettle resolves a still-live session as an implicit stand. Safe to
// call on sessions that settle concurrently; only the first settle applies.
func (r *Registry) forceSettle(s *Session, reason string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.state != StateAwaitingPlayer {
		return
	}

	s.state = StateDealerTurn
	r.runDealerAndSettle(s)
	r.logger.Info("Session force-settled", "session", s.id, "reason", reason, "outcome", s.outcome)
}

// runDealerAndSettle plays the dealer policy to completion and settles.
// Caller must hold the session lock with state == StateDealerTurn.
func (r *Registry) runDealerAndSettle(s *Session) {
	if err := blackjack.PlayDealer(s.deck, &s.dealer); err != nil {
		// Can only happen with a stacked deck that is too short. The dealer
		// stands on whatever it holds; settling still must happen.
		r.logger.Error("Dealer draw failed", "session", s.id, "error", err)
	}
	r.settle(s)
}

// settle resolves the wager exactly once and removes the session. Caller
// must hold the session lock. The session leaves the registry before the
// lock is released, so no later action can reach a settled session.
func (r *Registry) settle(s *Session) {
	playerScore := blackjack.Score(s.player)
	dealerScore := blackjack.Score(s.dealer)

	s.outcome = blackjack.Settle(playerScore, dealerScore)
	s.state = StateSettled
	s.timer.Stop()

	payout := blackjack.Payout(s.outcome, s.bet)
	if payout > 0 {
		balance, err := r.ledger.Credit(s.playerID, payout)
		if err != nil {
			// The credit did not apply; surfacing a retry path would need
			// settlement journaling, which the single-document ledger does
			// not have. Log loudly and report the unchanged balance.
			r.logger.Error("Failed to credit payout", "session", s.id,
				"player", s.playerID, "payout", payout, "error", err)
			balance = r.ledger.Balance(s.playerID)
		}
		s.balance = balance
	} else {
		s.balance = r.ledger.Balance(s.playerID)
	}

	r.mu.Lock()
	delete(r.byPlayer, s.playerID)
	delete(r.byID, s.id)
	r.mu.Unlock()

	r.logger.Info("Session settled", "session", s.id, "player", s.playerID,
		"outcome", s.outcome, "player_score", playerScore, "dealer_score", dealerScore,
		"payout", payout, "balance", s.balance)
}
