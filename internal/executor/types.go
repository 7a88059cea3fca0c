// Package executor implements the Executor & Monitor component: a bounded worker pool drains the validated-signal queue, places
// market orders through the broker adapter, and registers every fill with a
// Monitor that re-consults the pattern oracles on each subsequent primary
// close to decide full/partial exit.
package executor

import (
	"time"

	"github.com/solarflux/pulsetrader/internal/composer"
	"github.com/solarflux/pulsetrader/internal/exchange"
	"github.com/solarflux/pulsetrader/internal/oracle"
)

// OpenPosition is the monitor's record of one live position.
// EntryVerdicts pins the four oracle verdicts observed at entry time so the
// monitor's exit votes (Fibonacci level change, EMA trend flip, ...) have a
// baseline to compare the current tick against.
type OpenPosition struct {
	TradeID       string
	AgentID       string
	Instrument    string
	Side          exchange.OrderSide
	EntryPrice    float64
	Quantity      float64
	BrokerTicket  string
	OpenedAt      time.Time
	OriginSignal  *composer.Signal
	EntryVerdicts [4]oracle.Verdict
	HoldingOnly   bool // no origin metadata recoverable at startup: broker-side SL/TP only

	targetR float64 // |target-entry| distance, used by the 0.618*targetR partial-exit test
}

// ExitVote is one oracle's opinion on whether to exit a position this tick.
type ExitVote struct {
	Kind oracle.Kind
	Fire bool
}

// ExitDecision is the monitor's aggregated per-tick verdict for one position.
type ExitDecision string

const (
	ExitHold    ExitDecision = "hold"
	ExitPartial ExitDecision = "partial"
	ExitFull    ExitDecision = "full"
)

// PartialExitFraction is the default fraction closed on a partial exit
// ("partial exit (default 50%)").
const PartialExitFraction = 0.5

// partialExitPnLFraction is the 0.618*targetR profit threshold that, combined
// with >=2/4 exit votes, triggers a partial exit.
const partialExitPnLFraction = 0.618
