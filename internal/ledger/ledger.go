// Package ledger maintains per-player coin balances and daily-grant
// eligibility. All mutations are atomic read-modify-write operations under a
// single writer lock, since the backing store is one shared document.
package ledger

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/charmbracelet/log"
)

const (
	// DailyGrant is the amount awarded by ClaimDaily, once per calendar date
	DailyGrant = 1000

	// dateLayout is the ISO-8601 date stored in last_claimed. ISO dates
	// compare correctly as strings, which the claim gate relies on.
	dateLayout = "2006-01-02"
)

var (
	// ErrInsufficientFunds is returned when a debit exceeds the balance
	ErrInsufficientFunds = errors.New("ledger: insufficient funds")

	// ErrAlreadyClaimed is returned when the daily grant was already taken today
	ErrAlreadyClaimed = errors.New("ledger: daily grant already claimed today")

	// ErrInvalidAmount is returned for zero or negative debit/credit amounts
	ErrInvalidAmount = errors.New("ledger: amount must be positive")
)

// Account holds one player's balance and daily-grant state. LastClaimed is
// an ISO date string, empty if the player has never claimed.
type Account struct {
	Coins       int64  `json:"coins"`
	LastClaimed string `json:"last_claimed,omitempty"`
}

// Ledger is the shared coin store. Every operation takes the ledger lock,
// mutates the in-memory state, and persists before returning; if persisting
// fails the mutation is rolled back so no partial change is observable.
type Ledger struct {
	logger   *log.Logger
	store    Store
	mu       sync.Mutex
	accounts map[string]*Account
}

// Open loads the ledger from the store
func Open(store Store, logger *log.Logger) (*Ledger, error) {
	accounts, err := store.Load()
	if err != nil {
		return nil, fmt.Errorf("failed to load ledger: %w", err)
	}

	l := &Ledger{
		logger:   logger.WithPrefix("ledger"),
		store:    store,
		accounts: accounts,
	}
	l.logger.Info("Ledger loaded", "accounts", len(accounts))
	return l, nil
}

// account returns the player's account, creating it lazily at zero.
// Caller must hold the lock.
func (l *Ledger) account(playerID string) *Account {
	acct, ok := l.accounts[playerID]
	if !ok {
		acct = &Account{}
		l.accounts[playerID] = acct
	}
	return acct
}

// Balance returns the player's current coin balance
func (l *Ledger) Balance(playerID string) int64 {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.account(playerID).Coins
}

// Debit removes amount from the player's balance and returns the new
// balance. Fails with ErrInsufficientFunds before any mutation if the
// balance does not cover the amount; coins never go negative.
func (l *Ledger) Debit(playerID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.account(playerID)
	if acct.Coins < amount {
		return acct.Coins, ErrInsufficientFunds
	}

	acct.Coins -= amount
	if err := l.persist(); err != nil {
		acct.Coins += amount
		return acct.Coins, err
	}

	l.logger.Debug("Debited", "player", playerID, "amount", amount, "balance", acct.Coins)
	return acct.Coins, nil
}

// Credit adds amount to the player's balance and returns the new balance
func (l *Ledger) Credit(playerID string, amount int64) (int64, error) {
	if amount <= 0 {
		return 0, ErrInvalidAmount
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.account(playerID)
	acct.Coins += amount
	if err := l.persist(); err != nil {
		acct.Coins -= amount
		return acct.Coins, err
	}

	l.logger.Debug("Credited", "player", playerID, "amount", amount, "balance", acct.Coins)
	return acct.Coins, nil
}

// ClaimDaily grants DailyGrant coins if the player has not claimed on or
// after today's date. last_claimed only ever advances.
func (l *Ledger) ClaimDaily(playerID string, today time.Time) (int64, error) {
	date := today.Format(dateLayout)

	l.mu.Lock()
	defer l.mu.Unlock()

	acct := l.account(playerID)
	if acct.LastClaimed != "" && acct.LastClaimed >= date {
		return acct.Coins, ErrAlreadyClaimed
	}

	prevClaimed := acct.LastClaimed
	acct.Coins += DailyGrant
	acct.LastClaimed = date
	if err := l.persist(); err != nil {
		acct.Coins -= DailyGrant
		acct.LastClaimed = prevClaimed
		return acct.Coins, err
	}

	l.logger.Info("Daily grant claimed", "player", playerID, "balance", acct.Coins)
	return acct.Coins, nil
}

// persist saves the full account map. Caller must hold the lock.
func (l *Ledger) persist() error {
	if err := l.store.Save(l.accounts); err != nil {
		l.logger.Error("Failed to persist ledger", "error", err)
		return fmt.Errorf("failed to persist ledger: %w", err)
	}
	return nil
}
