package exchange

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/solarflux/pulsetrader/internal/db"
)

func TestNewSessionService(t *testing.T) {
	ex := NewMockExchange(nil)
	service := NewSessionService(ex, nil)
	require.NotNil(t, service)
}

func TestStartSession_ErrorPaths(t *testing.T) {
	service := NewSessionService(NewMockExchange(nil), nil)
	ctx := context.Background()

	t.Run("missing symbol", func(t *testing.T) {
		_, err := service.StartSession(ctx, db.TradingModePaper, "", "PAPER", 10000, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "symbol is required")
	})

	t.Run("zero initial capital", func(t *testing.T) {
		_, err := service.StartSession(ctx, db.TradingModePaper, "BTCUSDT", "PAPER", 0, nil)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "initial_capital must be positive")
	})

	t.Run("negative initial capital", func(t *testing.T) {
		_, err := service.StartSession(ctx, db.TradingModePaper, "BTCUSDT", "PAPER", -500, nil)
		require.Error(t, err)
	})
}

func TestStopSession_ErrorPaths(t *testing.T) {
	ctx := context.Background()

	t.Run("no active session", func(t *testing.T) {
		service := NewSessionService(NewMockExchange(nil), nil)
		_, err := service.StopSession(ctx, 10000)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no active trading session")
	})

	t.Run("negative final capital", func(t *testing.T) {
		ex := NewMockExchange(nil)
		service := NewSessionService(ex, nil)
		_, err := service.StartSession(ctx, db.TradingModePaper, "BTCUSDT", "PAPER", 10000, nil)
		require.NoError(t, err)

		_, err = service.StopSession(ctx, -1)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "final_capital cannot be negative")
	})
}

func TestSessionStats_ErrorPaths(t *testing.T) {
	ctx := context.Background()

	t.Run("no active session", func(t *testing.T) {
		service := NewSessionService(NewMockExchange(nil), nil)
		_, err := service.SessionStats(ctx)
		require.Error(t, err)
	})

	t.Run("no session store", func(t *testing.T) {
		ex := NewMockExchange(nil)
		service := NewSessionService(ex, nil)
		_, err := service.StartSession(ctx, db.TradingModePaper, "BTCUSDT", "PAPER", 10000, nil)
		require.NoError(t, err)

		_, err = service.SessionStats(ctx)
		require.Error(t, err)
		assert.Contains(t, err.Error(), "no session store configured")
	})
}

func TestStartSession_CarriesConfig(t *testing.T) {
	ex := NewMockExchange(nil)
	service := NewSessionService(ex, nil)

	cfg := map[string]interface{}{"primary_timeframe": "15m", "base_notional": 1000.0}
	session, err := service.StartSession(context.Background(), db.TradingModePaper, "BTCUSDT", "PAPER", 10000, cfg)
	require.NoError(t, err)
	assert.Equal(t, cfg, session.Config)
	assert.Equal(t, db.TradingModePaper, session.Mode)
	assert.Equal(t, "BTCUSDT", session.Symbol)
}
