// Package composer implements the Signal Composer: on each primary-closed
// event it runs the oracle pool on the primary timeframe, blends it with
// multi-timeframe confluence and HTF context, and runs the filter stack
// to decide emit/reject/invert and size.
package composer

import (
	"time"

	"github.com/solarflux/pulsetrader/internal/htf"
	"github.com/solarflux/pulsetrader/internal/oracle"
)

// Grade is the quality-score bucket.
type Grade string

const (
	GradeA Grade = "A"
	GradeB Grade = "B"
	GradeC Grade = "C"
	GradeD Grade = "D"
)

// QualityComponents is the five capped sub-scores that sum to Quality.Total.
type QualityComponents struct {
	Consensus      float64 // capped 25
	Confidence     float64 // capped 25, scaled from 60-100
	RiskReward     float64 // capped 20, scaled from 1.0
	HTFAlignment   float64 // 15 aligned / 8 neutral / 0 counter
	Professional   float64 // capped 15, scaled from 35-100
}

// Quality is the composite 100-point quality score and its grade.
type Quality struct {
	Total      float64
	Grade      Grade
	Components QualityComponents
}

// ProfessionalScore is the 0-100 professional-entry score and its sub-scores.
type ProfessionalScore struct {
	Total         float64
	Warnings      int
	MarketStructure float64
	OptimalEntry    float64
	OrderBlock      float64
	LiquiditySweep  float64
}

// Audit carries the full decision trail for observability.
type Audit struct {
	Tally        oracle.Tally
	Pattern      oracle.ConsensusPattern
	Confluence   float64
	PrimaryConf  float64
	OverallConf  float64
	HTFAligned   bool
	HTFNeutral   bool
	HTFCounter   bool
	Inverted     bool
	Professional ProfessionalScore
	RejectReason string
}

// Signal is the composed signal emitted by the Composer.
type Signal struct {
	ID             string
	Instrument     string
	Direction      oracle.Recommendation
	Confidence     float64
	Entry          float64
	Stop           float64
	Target         float64
	RiskReward     float64
	Quality        Quality
	SizeMultiplier float64
	Reasoning      string
	OriginOracles  [4]oracle.Verdict
	HTFSnapshot    htf.Snapshot
	EmittedAt      time.Time
	Audit          Audit
}

// Outcome is the Step-by-step result of one composition attempt: either a
// rejection with a canonical reason, or an emitted Signal:
// rejection in the filter stack is "a dedicated rejected variant carrying
// the canonical reason."
type Outcome struct {
	Signal   *Signal
	Rejected bool
	Reason   string
}
