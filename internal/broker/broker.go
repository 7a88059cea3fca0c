package broker

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/rs/zerolog"

	"github.com/solarflux/pulsetrader/internal/exchange"
	"github.com/solarflux/pulsetrader/internal/validation"
)

// Broker is the agent-aware trading surface. It is
// intentionally narrower than exchange.Exchange: no session concept, no
// order-book management, just the four verbs the executor needs.
type Broker interface {
	PlaceMarketOrder(ctx context.Context, agentID, symbol string, side exchange.OrderSide, quantity float64, stop, target *float64) (OrderResult, error)
	ClosePosition(ctx context.Context, agentID, brokerTicket string, fraction float64) (CloseResult, error)
	GetBalance(ctx context.Context, agentID string) (Balance, error)
	Ticker(ctx context.Context, symbol string) (Ticker, error)
}

// priceSource is satisfied by exchange.MockExchange: a synchronous last-price
// lookup with no network round trip.
type priceSource interface {
	GetMarketPrice(symbol string) (float64, bool)
}

// tickerSource is satisfied by exchange.BinanceExchange: a live quote.
type tickerSource interface {
	GetTicker(ctx context.Context, symbol string) (exchange.TickerSnapshot, error)
}

// ExchangeBroker adapts any exchange.Exchange into a Broker by layering a
// per-agent virtual balance ledger on top of it. Every agent starts with
// initialBalance and trades debit/credit that ledger; the underlying
// exchange still executes a single pooled order flow.
type ExchangeBroker struct {
	ex              exchange.Exchange
	initialBalance  float64
	currency        string
	log             zerolog.Logger

	mu        sync.Mutex
	balances  map[string]float64
	positions map[string]position // brokerTicket -> position
	byAgent   map[string][]string // agentID -> brokerTickets
}

// New wraps ex. initialBalance seeds every agent's virtual ledger the first
// time it is observed.
func New(ex exchange.Exchange, initialBalance float64, currency string, log zerolog.Logger) *ExchangeBroker {
	if currency == "" {
		currency = "USDT"
	}
	return &ExchangeBroker{
		ex:             ex,
		initialBalance: initialBalance,
		currency:       currency,
		log:            log.With().Str("component", "broker").Logger(),
		balances:       make(map[string]float64),
		positions:      make(map[string]position),
		byAgent:        make(map[string][]string),
	}
}

func (b *ExchangeBroker) balanceLocked(agentID string) float64 {
	bal, ok := b.balances[agentID]
	if !ok {
		bal = b.initialBalance
		b.balances[agentID] = bal
	}
	return bal
}

// GetBalance returns agentID's current virtual available balance.
func (b *ExchangeBroker) GetBalance(ctx context.Context, agentID string) (Balance, error) {
	b.mu.Lock()
	defer b.mu.Unlock()
	return Balance{Currency: b.currency, Available: b.balanceLocked(agentID)}, nil
}

// Ticker returns a current quote for symbol, preferring a live book ticker
// when the wrapped exchange supports it and falling back to the mock
// exchange's last-set price otherwise.
func (b *ExchangeBroker) Ticker(ctx context.Context, symbol string) (Ticker, error) {
	if ts, ok := b.ex.(tickerSource); ok {
		snap, err := ts.GetTicker(ctx, symbol)
		if err != nil {
			return Ticker{}, err
		}
		return Ticker{Bid: snap.Bid, Ask: snap.Ask, Last: snap.Last, Change24hPct: snap.Change24hPct, QuoteVolume: snap.QuoteVolume}, nil
	}
	if ps, ok := b.ex.(priceSource); ok {
		price, have := ps.GetMarketPrice(symbol)
		if !have {
			return Ticker{}, fmt.Errorf("ticker: no price known for %s", symbol)
		}
		return Ticker{Bid: price, Ask: price, Last: price}, nil
	}
	return Ticker{}, fmt.Errorf("ticker: exchange %T exposes no price source", b.ex)
}

// PlaceMarketOrder places a market order on behalf of agentID, debiting its
// virtual balance by the filled notional and recording the position so a
// later ClosePosition can compute realized PnL.
func (b *ExchangeBroker) PlaceMarketOrder(ctx context.Context, agentID, symbol string, side exchange.OrderSide, quantity float64, stop, target *float64) (OrderResult, error) {
	v := validation.NewTradingOrderValidator()
	v.ValidateOrderSide(strings.ToUpper(string(side)))
	v.ValidateQuantity(quantity)
	v.Required("symbol", symbol)
	v.Alphanumeric("symbol", symbol)
	if stop != nil {
		v.ValidateStopPrice(*stop, false)
	}
	if target != nil {
		v.ValidatePrice(*target, false)
	}
	if v.HasErrors() {
		return OrderResult{Status: exchange.OrderStatusRejected, Error: v.Errors().Error()}, nil
	}

	resp, err := b.ex.PlaceOrder(ctx, exchange.PlaceOrderRequest{
		Symbol:   symbol,
		Side:     side,
		Type:     exchange.OrderTypeMarket,
		Quantity: quantity,
	})
	if err != nil {
		return OrderResult{Status: exchange.OrderStatusRejected, Error: err.Error()}, nil
	}
	if resp.Status == exchange.OrderStatusRejected {
		return OrderResult{Status: resp.Status, Error: resp.Message}, nil
	}

	order, err := b.ex.GetOrder(ctx, resp.OrderID)
	if err != nil {
		return OrderResult{}, fmt.Errorf("place market order: fetch fill: %w", err)
	}
	fillPrice := order.AvgFillPrice
	if fillPrice <= 0 {
		t, terr := b.Ticker(ctx, symbol)
		if terr == nil {
			fillPrice = t.Last
		}
	}

	b.mu.Lock()
	notional := fillPrice * quantity
	b.balances[agentID] = b.balanceLocked(agentID) - notional
	b.positions[resp.OrderID] = position{Symbol: symbol, Side: side, Quantity: quantity, Entry: fillPrice, Ticket: resp.OrderID}
	b.byAgent[agentID] = append(b.byAgent[agentID], resp.OrderID)
	b.mu.Unlock()

	b.log.Info().Str("agent_id", agentID).Str("symbol", symbol).Str("side", string(side)).
		Float64("quantity", quantity).Float64("fill_price", fillPrice).Msg("placed market order")

	return OrderResult{Status: resp.Status, BrokerTicket: resp.OrderID, FillPrice: fillPrice}, nil
}

// ClosePosition closes fraction of brokerTicket's remaining quantity with an
// opposing market order, crediting the agent's ledger with proceeds and
// realized PnL. fraction=1.0 fully closes and removes the position.
func (b *ExchangeBroker) ClosePosition(ctx context.Context, agentID, brokerTicket string, fraction float64) (CloseResult, error) {
	if fraction <= 0 || fraction > 1 {
		return CloseResult{}, fmt.Errorf("close position: fraction %f out of (0,1]", fraction)
	}

	b.mu.Lock()
	pos, ok := b.positions[brokerTicket]
	b.mu.Unlock()
	if !ok {
		return CloseResult{Status: exchange.OrderStatusRejected, Error: "unknown broker ticket"}, nil
	}

	closeQty := pos.Quantity * fraction
	closeSide := exchange.OrderSideSell
	if pos.Side == exchange.OrderSideSell {
		closeSide = exchange.OrderSideBuy
	}

	resp, err := b.ex.PlaceOrder(ctx, exchange.PlaceOrderRequest{
		Symbol:   pos.Symbol,
		Side:     closeSide,
		Type:     exchange.OrderTypeMarket,
		Quantity: closeQty,
	})
	if err != nil {
		return CloseResult{Status: exchange.OrderStatusRejected, Error: err.Error()}, nil
	}
	if resp.Status == exchange.OrderStatusRejected {
		return CloseResult{Status: resp.Status, Error: resp.Message}, nil
	}

	order, err := b.ex.GetOrder(ctx, resp.OrderID)
	if err != nil {
		return CloseResult{}, fmt.Errorf("close position: fetch fill: %w", err)
	}
	exitPrice := order.AvgFillPrice
	if exitPrice <= 0 {
		t, terr := b.Ticker(ctx, pos.Symbol)
		if terr == nil {
			exitPrice = t.Last
		}
	}

	direction := 1.0
	if pos.Side == exchange.OrderSideSell {
		direction = -1.0
	}
	realizedPnL := (exitPrice - pos.Entry) * closeQty * direction
	proceeds := exitPrice * closeQty

	b.mu.Lock()
	b.balances[agentID] = b.balanceLocked(agentID) + proceeds
	remaining := pos.Quantity - closeQty
	if remaining <= 1e-9 {
		delete(b.positions, brokerTicket)
	} else {
		pos.Quantity = remaining
		b.positions[brokerTicket] = pos
	}
	b.mu.Unlock()

	b.log.Info().Str("agent_id", agentID).Str("broker_ticket", brokerTicket).
		Float64("fraction", fraction).Float64("realized_pnl", realizedPnL).Msg("closed position")

	return CloseResult{Status: resp.Status, RealizedPnL: realizedPnL}, nil
}
