package broker

import (
	"context"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"

	"github.com/solarflux/pulsetrader/internal/exchange"
)

func TestBrokerSeedsPerAgentBalance(t *testing.T) {
	ex := exchange.NewMockExchange(nil)
	b := New(ex, 1000, "USDT", zerolog.Nop())

	bal, err := b.GetBalance(context.Background(), "agent-1")
	require.NoError(t, err)
	require.Equal(t, 1000.0, bal.Available)
}

func TestBrokerPlaceAndCloseDebitsAndCreditsLedger(t *testing.T) {
	ex := exchange.NewMockExchange(nil)
	ex.SetMarketPrice("BTCUSDT", 100)
	b := New(ex, 1000, "USDT", zerolog.Nop())
	ctx := context.Background()

	order, err := b.PlaceMarketOrder(ctx, "agent-1", "BTCUSDT", exchange.OrderSideBuy, 1, nil, nil)
	require.NoError(t, err)
	require.NotEmpty(t, order.BrokerTicket)

	balAfterBuy, _ := b.GetBalance(ctx, "agent-1")
	require.Less(t, balAfterBuy.Available, 1000.0)

	ex.SetMarketPrice("BTCUSDT", 110)
	closeRes, err := b.ClosePosition(ctx, "agent-1", order.BrokerTicket, 1.0)
	require.NoError(t, err)
	require.Greater(t, closeRes.RealizedPnL, 0.0)

	balAfterClose, _ := b.GetBalance(ctx, "agent-1")
	require.Greater(t, balAfterClose.Available, balAfterBuy.Available)
}

func TestBrokerClosePositionUnknownTicketIsRejected(t *testing.T) {
	ex := exchange.NewMockExchange(nil)
	b := New(ex, 1000, "USDT", zerolog.Nop())

	res, err := b.ClosePosition(context.Background(), "agent-1", "does-not-exist", 1.0)
	require.NoError(t, err)
	require.Equal(t, exchange.OrderStatusRejected, res.Status)
}

func TestBrokerTickerFallsBackToMockLastPrice(t *testing.T) {
	ex := exchange.NewMockExchange(nil)
	ex.SetMarketPrice("ETHUSDT", 2500)
	b := New(ex, 1000, "USDT", zerolog.Nop())

	tick, err := b.Ticker(context.Background(), "ETHUSDT")
	require.NoError(t, err)
	require.Equal(t, 2500.0, tick.Last)
}
