package server

import (
	"time"

	"github.com/charmbracelet/log"

	"github.com/lox/blackjack21/internal/ledger"
	"github.com/lox/blackjack21/internal/table"
)

// Service is the game-facing surface the connection layer talks to. It
// validates wagers against the table limits and forwards everything else to
// the registry and ledger, which own the real invariants.
type Service struct {
	logger   *log.Logger
	registry *table.Registry
	ledger   *ledger.Ledger
	game     GameSettings
}

// NewService creates a service over a registry and ledger
func NewService(registry *table.Registry, l *ledger.Ledger, game GameSettings, logger *log.Logger) *Service {
	return &Service{
		logger:   logger.WithPrefix("service"),
		registry: registry,
		ledger:   l,
		game:     game,
	}
}

// Start opens a new session for the player
func (s *Service) Start(playerID string, bet int64) (table.View, error) {
	if bet < s.game.MinBet {
		return table.View{}, table.ErrInvalidBet
	}
	if s.game.MaxBet > 0 && bet > s.game.MaxBet {
		return table.View{}, table.ErrInvalidBet
	}
	return s.registry.Start(playerID, bet)
}

// Act applies a hit or stand. An empty sessionID targets the player's own
// live session; otherwise the referenced session is used, which lets the
// registry reject presses on someone else's game.
func (s *Service) Act(playerID, sessionID string, action table.Action) (table.View, error) {
	if sessionID != "" {
		return s.registry.Act(sessionID, playerID, action)
	}
	switch action {
	case table.ActionHit:
		return s.registry.Hit(playerID)
	default:
		return s.registry.Stand(playerID)
	}
}

// Balance returns the player's coin balance
func (s *Service) Balance(playerID string) int64 {
	return s.ledger.Balance(playerID)
}

// ClaimDaily grants the daily coins if the player has not claimed today
func (s *Service) ClaimDaily(playerID string) (int64, error) {
	return s.ledger.ClaimDaily(playerID, time.Now())
}

// Drain force-settles every live session ahead of shutdown
func (s *Service) Drain() {
	s.registry.Drain()
}
