package exchange

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/solarflux/pulsetrader/internal/db"
)

// SessionService manages the trading-session lifecycle around an exchange:
// one session per pipeline run, opened at start and closed with the final
// capital at shutdown. All order flow happens elsewhere (the broker layer);
// this service only owns the session bookkeeping.
type SessionService struct {
	exchange Exchange
	db       *db.DB
}

// NewSessionService creates a session service over an exchange
func NewSessionService(ex Exchange, database *db.DB) *SessionService {
	return &SessionService{
		exchange: ex,
		db:       database,
	}
}

// StartSession opens a new trading session and attaches it to the exchange
// so subsequent orders and fills are recorded against it.
func (s *SessionService) StartSession(ctx context.Context, mode db.TradingMode, symbol, exchangeName string, initialCapital float64, config map[string]interface{}) (*db.TradingSession, error) {
	if symbol == "" {
		return nil, fmt.Errorf("symbol is required")
	}
	if initialCapital <= 0 {
		return nil, fmt.Errorf("initial_capital must be positive")
	}

	session := &db.TradingSession{
		Mode:           mode,
		Symbol:         symbol,
		Exchange:       exchangeName,
		StartedAt:      time.Now(),
		InitialCapital: initialCapital,
		Config:         config,
	}

	if s.db != nil {
		if err := s.db.CreateSession(ctx, session); err != nil {
			return nil, fmt.Errorf("failed to create session: %w", err)
		}
	}

	s.exchange.SetSession(&session.ID)

	log.Info().
		Str("session_id", session.ID.String()).
		Str("symbol", symbol).
		Str("mode", string(mode)).
		Float64("initial_capital", initialCapital).
		Msg("Trading session started")

	return session, nil
}

// StopSession closes the active session with the final capital and detaches
// it from the exchange.
func (s *SessionService) StopSession(ctx context.Context, finalCapital float64) (*db.TradingSession, error) {
	sessionID := s.exchange.GetSession()
	if sessionID == nil {
		return nil, fmt.Errorf("no active trading session")
	}
	if finalCapital < 0 {
		return nil, fmt.Errorf("final_capital cannot be negative")
	}

	if s.db != nil {
		if err := s.db.StopSession(ctx, *sessionID, finalCapital); err != nil {
			return nil, fmt.Errorf("failed to stop session: %w", err)
		}
	}

	s.exchange.SetSession(nil)

	if s.db == nil {
		return &db.TradingSession{ID: *sessionID, FinalCapital: &finalCapital}, nil
	}

	session, err := s.db.GetSession(ctx, *sessionID)
	if err != nil {
		log.Error().Err(err).Str("session_id", sessionID.String()).Msg("Failed to retrieve session after stopping")
		return &db.TradingSession{ID: *sessionID, FinalCapital: &finalCapital}, nil
	}

	log.Info().
		Str("session_id", sessionID.String()).
		Float64("final_capital", finalCapital).
		Float64("total_pnl", session.TotalPnL).
		Int("total_trades", session.TotalTrades).
		Msg("Trading session stopped")

	return session, nil
}

// SessionStats retrieves the active session's statistics.
func (s *SessionService) SessionStats(ctx context.Context) (*db.TradingSession, error) {
	sessionID := s.exchange.GetSession()
	if sessionID == nil {
		return nil, fmt.Errorf("no active trading session")
	}
	if s.db == nil {
		return nil, fmt.Errorf("no session store configured")
	}

	session, err := s.db.GetSession(ctx, *sessionID)
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}
	return session, nil
}
