// Package oracle defines the pattern-analysis oracle pool: four independent,
// opaque graders (Fibonacci, Trend/Momentum, Volume/Price-Action,
// Support/Resistance) that each turn a timeframe snapshot into a
// recommendation and a confidence, plus the per-agent validation oracle
// consulted by the broadcast component.
package oracle

import (
	"time"

	"github.com/solarflux/pulsetrader/internal/candle"
	"github.com/solarflux/pulsetrader/internal/htf"
	"github.com/solarflux/pulsetrader/internal/indicators"
)

// Kind discriminates the four pattern-oracle variants.
type Kind string

const (
	KindFibonacci         Kind = "fibonacci"
	KindTrendMomentum     Kind = "trend_momentum"
	KindVolumePriceAction Kind = "volume_price_action"
	KindSupportResistance Kind = "support_resistance"
)

// Recommendation is the directional call every oracle (and the composer's
// consensus tally) operates on.
type Recommendation string

const (
	Buy  Recommendation = "BUY"
	Sell Recommendation = "SELL"
	Hold Recommendation = "HOLD"
)

// Input is what every pattern oracle receives: a timeframe snapshot plus its
// derived indicators.
type Input struct {
	Instrument   string
	Timeframe    candle.Timeframe
	Candles      []candle.Candle
	Indicators   indicators.Bundle
	CurrentPrice float64
}

// Verdict is the structured result every oracle returns, kind-discriminated
// TypedFields carries the kind-specific payload; callers
// that need it type-assert on Kind first rather than reaching across
// variants; graders do not reach into one another.
type Verdict struct {
	Kind           Kind
	Recommendation Recommendation
	Confidence     float64 // 0..100
	Reasoning      string
	TypedFields    any
	computedAt     time.Time
}

// IsSentinel reports whether v is the HOLD/0 fallback substituted when an
// oracle fails or times out.
func (v Verdict) IsSentinel() bool {
	return v.Recommendation == Hold && v.Confidence == 0 && v.Reasoning == "sentinel"
}

// Sentinel builds the HOLD/0 fallback verdict for a kind.
func Sentinel(kind Kind) Verdict {
	return Verdict{Kind: kind, Recommendation: Hold, Confidence: 0, Reasoning: "sentinel"}
}

// FibonacciFields is the Kind-Fibonacci typed payload.
type FibonacciFields struct {
	CurrentLevel string // e.g. "61.8%", "PP"
	EntryZoneLow float64
	EntryZoneHigh float64
}

// TrendMomentumFields is the Kind-TrendMomentum typed payload.
type TrendMomentumFields struct {
	EMATrend string // "BULLISH", "BEARISH", "NEUTRAL"
	Momentum string // "STRONG", "MODERATE", "WEAK"
}

// VolumePriceActionFields is the Kind-VolumePriceAction typed payload.
type VolumePriceActionFields struct {
	ReversalCandle bool
	VolumeSpike    bool
}

// SupportResistanceFields is the Kind-SupportResistance typed payload.
type SupportResistanceFields struct {
	NearestSupport    float64
	NearestResistance float64
	Crossed           bool
}

// ConsensusPattern is the categorical token summarizing the 4-oracle vote
// distribution on the primary timeframe.
type ConsensusPattern string

const (
	PatternUnanimousBuy         ConsensusPattern = "unanimous-buy"
	PatternUnanimousSell        ConsensusPattern = "unanimous-sell"
	PatternSupermajority        ConsensusPattern = "supermajority"
	PatternMajorityWithNeutrals ConsensusPattern = "majority-with-neutrals"
	PatternMildSplit            ConsensusPattern = "mild-split"
	PatternCounterSplit         ConsensusPattern = "counter-split"
	PatternSplit                ConsensusPattern = "split"
)

// Tally is the raw vote count across the four primary-timeframe oracles.
type Tally struct {
	Buy    int
	Sell   int
	Hold   int
	Total  int
}

// TimeframeAnalysis bundles the four oracle verdicts for one timeframe plus
// a consensus summary. Supporting timeframes only populate Direction (via
// the same four verdicts) for confluence purposes; Pattern is meaningful
// only on the primary.
type TimeframeAnalysis struct {
	Timeframe      candle.Timeframe
	Verdicts       [4]Verdict
	VotesFor       int
	VotesAgainst   int
	VotesNeutral   int
	Direction      Recommendation
	Pattern        ConsensusPattern
}

// ValidationRequest is the input bundle the validation oracle receives for
// one agent/signal pair.
type ValidationRequest struct {
	AgentID              string
	AgentRiskLevel       int
	Budget               float64
	AvailableBalance     float64
	OpenPositions        int
	MaxOpenPositions     int
	ConsecutiveLosses    int
	RecentWinRate        float64
	RecentPnL            float64
	Drawdown             float64
	LiquidityBucket      string
	Spread               float64
	Volatility           float64
	Signal               SignalSummary
}

// SignalSummary is the minimal composed-signal projection the validation
// oracle needs; internal/composer.Signal satisfies a superset of this via
// conversion at the broadcast boundary (keeps internal/oracle free of a
// dependency on internal/composer).
type SignalSummary struct {
	Instrument string
	Direction  Recommendation
	Confidence float64
	Entry      float64
	Stop       float64
	Target     float64
	RiskReward float64
	Quality    string // grade letter
}

// RiskBand is the validation oracle's risk classification, mapped 1-to-1 to
// a position-size percentage by the broadcast component.
type RiskBand string

const (
	Safe     RiskBand = "SAFE"
	Moderate RiskBand = "MODERATE"
	Risky    RiskBand = "RISKY"
)

// ValidationDecision is the validation oracle's structured output.
type ValidationDecision struct {
	ShouldExecute      bool
	RiskBand           RiskBand
	Reasoning          string
	StopOverride       *float64
	TargetOverride     *float64
	Confidence         float64
	KeyRisks           []string
	KeyOpportunities   []string
}

// HTFSnapshotRef is re-exported here purely so oracle callers can reference
// it without importing internal/htf directly in most call sites; it is the
// same type as htf.Snapshot.
type HTFSnapshotRef = htf.Snapshot
