// Package broadcast implements the Broadcast & Validator component: it
// snapshots the agent population, applies cheap eligibility checks, then
// fans out per-agent validation in parallel and enqueues survivors.
package broadcast

import (
	"time"

	"github.com/solarflux/pulsetrader/internal/composer"
	"github.com/solarflux/pulsetrader/internal/oracle"
)

// ValidatedSignal is a composed signal narrowed to one agent after
// validation.
type ValidatedSignal struct {
	Signal           *composer.Signal
	AgentID          string
	PositionSize     float64
	SizePercent      float64 // one of 1.00, 0.70, 0.40
	RiskBand         oracle.RiskBand
	StopOverride     *float64
	TargetOverride   *float64
	ValidatedAt      time.Time
}

// ExclusionReason is the canonical audit token recorded when an agent is
// excluded before validation is even attempted.
type ExclusionReason string

const (
	ExclusionInactive            ExclusionReason = "inactive"
	ExclusionCategoryMismatch    ExclusionReason = "category_mismatch"
	ExclusionSymbolInadmissible  ExclusionReason = "symbol_inadmissible"
	ExclusionInsufficientBalance ExclusionReason = "insufficient_balance"
	ExclusionMaxOpenPositions    ExclusionReason = "max_open_positions"
	ExclusionBelowMinConfidence  ExclusionReason = "below_min_confidence"
	ExclusionCheckFailed         ExclusionReason = "failed_to_check"
)

// MinimumBalance is the default minimum available-balance eligibility
// threshold.
const MinimumBalance = 10.0
