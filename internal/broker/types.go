// Package broker provides the agent-aware order placement surface
// (PlaceMarketOrder/ClosePosition/GetBalance/Ticker, all scoped per agent)
// over the single-session internal/exchange.Exchange, which has no notion
// of an agent at all. Broker wraps an Exchange with a per-agent virtual
// balance ledger so many agents can trade concurrently against one
// underlying account/session.
package broker

import (
	"time"

	"github.com/solarflux/pulsetrader/internal/exchange"
)

// Ticker is the quote bundle used for position sizing and market context.
type Ticker struct {
	Bid          float64
	Ask          float64
	Last         float64
	Change24hPct float64
	QuoteVolume  float64
}

// Balance is one agent's available balance on a broker.
type Balance struct {
	Currency  string
	Available float64
}

// OrderResult is the outcome of PlaceMarketOrder.
type OrderResult struct {
	Status       exchange.OrderStatus
	BrokerTicket string
	FillPrice    float64
	Error        string
}

// CloseResult is the outcome of ClosePosition.
type CloseResult struct {
	Status      exchange.OrderStatus
	RealizedPnL float64
	Error       string
}

// position is the ledger's record of one open agent order, enough to
// compute realized PnL and a partial-close remainder.
type position struct {
	Symbol    string
	Side      exchange.OrderSide
	Quantity  float64
	EntryTime time.Time
	Entry     float64
	Ticket    string
}
