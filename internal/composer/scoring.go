package composer

import (
	"github.com/solarflux/pulsetrader/internal/candle"
	"github.com/solarflux/pulsetrader/internal/oracle"
)

// requiredConsensusCount implements Step F: the required count of agreeing
// oracle votes is 2 if confidence>=80 and HTF-aligned, else 3.
func requiredConsensusCount(confidence float64, htfAligned bool) int {
	if confidence >= 80 && htfAligned {
		return 2
	}
	return 3
}

// minConfidenceFloor is Step G's overall-confidence reject threshold.
const minConfidenceFloor = 50.0

// dynamicRRTarget implements Step H's "dynamic R:R by realized volatility".
func dynamicRRTarget(atrPct float64) float64 {
	switch {
	case atrPct < 0.3:
		return 1.5
	case atrPct < 0.6:
		return 2.0
	default:
		return 2.5
	}
}

// requiredMinRR implements Step I's dynamic R:R floor by overall confidence.
func requiredMinRR(confidence float64) float64 {
	switch {
	case confidence >= 80:
		return 0.5
	case confidence >= 75:
		return 0.55
	case confidence >= 70:
		return 0.75
	default:
		return 0.7
	}
}

// StopTargetInputs bundles the Step-H candidate boundary inputs.
type StopTargetInputs struct {
	Entry          float64
	Direction      oracle.Recommendation
	ATR            float64
	ATRPercent     float64
	FibZoneBoundary float64 // the entry-zone boundary on the trade side; 0 if unavailable
	SRLevel        float64 // nearest matching S/R level; 0 if unavailable
}

// ComputeStopTarget implements Step H: stop is the tighter of the fib
// entry-zone boundary, the nearest matching S/R level, and entry -/+
// 1.5*ATR; target uses the dynamic R:R table capped at 2*ATR from entry.
// ok is false if no finite positive-reward stop/target could be derived.
func ComputeStopTarget(in StopTargetInputs) (stop, target, riskReward float64, ok bool) {
	if in.ATR <= 0 || in.Entry <= 0 {
		return 0, 0, 0, false
	}

	atrStop := 1.5 * in.ATR
	candidates := []float64{atrStop}
	if in.FibZoneBoundary > 0 {
		dist := abs(in.Entry - in.FibZoneBoundary)
		if dist > 0 {
			candidates = append(candidates, dist)
		}
	}
	if in.SRLevel > 0 {
		dist := abs(in.Entry - in.SRLevel)
		if dist > 0 {
			candidates = append(candidates, dist)
		}
	}

	stopDist := candidates[0]
	for _, c := range candidates[1:] {
		if c < stopDist {
			stopDist = c
		}
	}

	rrTarget := dynamicRRTarget(in.ATRPercent)
	rawTargetDist := rrTarget * stopDist
	capDist := 2 * in.ATR
	targetDist := rawTargetDist
	if targetDist > capDist {
		targetDist = capDist
	}

	switch in.Direction {
	case oracle.Buy:
		stop = in.Entry - stopDist
		target = in.Entry + targetDist
	case oracle.Sell:
		stop = in.Entry + stopDist
		target = in.Entry - targetDist
	default:
		return 0, 0, 0, false
	}

	if stop <= 0 || target <= 0 {
		return 0, 0, 0, false
	}

	reward := abs(target - in.Entry)
	risk := abs(in.Entry - stop)
	if risk <= 0 || reward <= 0 {
		return 0, 0, 0, false
	}

	return stop, target, reward / risk, true
}

// MirrorStopTarget rebuilds stop/target around entry at the same distances
// but on the opposite side, for HTF-counter inversion.
func MirrorStopTarget(entry, oldStop, oldTarget float64, newDirection oracle.Recommendation) (stop, target float64) {
	stopDist := abs(entry - oldStop)
	targetDist := abs(oldTarget - entry)
	switch newDirection {
	case oracle.Buy:
		return entry - stopDist, entry + targetDist
	case oracle.Sell:
		return entry + stopDist, entry - targetDist
	default:
		return oldStop, oldTarget
	}
}

func abs(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// marketStructureScore implements the first Step-K sub-analysis: up to 30
// points for HH/HL (bullish) or LH/LL (bearish) structure aligned with
// direction, partial for ranging.
func marketStructureScore(candles []candle.Candle, direction oracle.Recommendation) (points float64, warning bool) {
	if len(candles) < 6 {
		return 0, true
	}
	recent := candles[len(candles)-6:]

	var higherHighs, lowerHighs, higherLows, lowerLows int
	for i := 1; i < len(recent); i++ {
		if recent[i].High > recent[i-1].High {
			higherHighs++
		} else if recent[i].High < recent[i-1].High {
			lowerHighs++
		}
		if recent[i].Low > recent[i-1].Low {
			higherLows++
		} else if recent[i].Low < recent[i-1].Low {
			lowerLows++
		}
	}

	switch direction {
	case oracle.Buy:
		aligned := higherHighs + higherLows
		counter := lowerHighs + lowerLows
		return structurePoints(aligned, counter), false
	case oracle.Sell:
		aligned := lowerHighs + lowerLows
		counter := higherHighs + higherLows
		return structurePoints(aligned, counter), false
	default:
		return 0, true
	}
}

func structurePoints(aligned, counter int) float64 {
	switch {
	case aligned >= 6:
		return 30
	case aligned > counter:
		return 15
	default:
		return 0
	}
}

// optimalEntryScore implements the Fibonacci OTE sub-analysis: 30 points if
// price sits in the 61.8%-78.6% retracement of the latest impulse for the
// traded direction, 15 for being on the correct side of the 50%
// equilibrium, else 0.
func optimalEntryScore(candles []candle.Candle, price float64, direction oracle.Recommendation) (points float64, warning bool) {
	if len(candles) < 10 {
		return 0, true
	}
	impulseLow, impulseHigh := impulseRange(candles)
	if impulseHigh <= impulseLow {
		return 0, true
	}
	rng := impulseHigh - impulseLow

	// Retracement measured from the impulse's far end back toward its start.
	var retr float64
	switch direction {
	case oracle.Buy:
		retr = (impulseHigh - price) / rng
	case oracle.Sell:
		retr = (price - impulseLow) / rng
	default:
		return 0, true
	}

	switch {
	case retr >= 0.618 && retr <= 0.786:
		return 30, false
	case retr >= 0.5:
		return 15, false
	default:
		return 0, false
	}
}

// impulseRange returns the low/high of the last 10 candles as a proxy for
// the latest impulse leg.
func impulseRange(candles []candle.Candle) (low, high float64) {
	window := candles[len(candles)-10:]
	low, high = window[0].Low, window[0].High
	for _, c := range window {
		if c.Low < low {
			low = c.Low
		}
		if c.High > high {
			high = c.High
		}
	}
	return low, high
}

// orderBlockScore implements the order-block sub-analysis: the last
// opposite-colored candle before a >=0.3% move in direction. 25 if fresh
// (not yet revisited by price), 15 if tested (price has returned into it
// since).
func orderBlockScore(candles []candle.Candle, direction oracle.Recommendation) (points float64, warning bool) {
	idx, ok := findOrderBlock(candles, direction)
	if !ok {
		return 0, true
	}
	ob := candles[idx]
	tested := false
	for _, c := range candles[idx+1:] {
		if c.Low <= ob.High && c.High >= ob.Low {
			tested = true
			break
		}
	}
	if tested {
		return 15, false
	}
	return 25, false
}

// findOrderBlock scans for the last opposite-colored candle preceding a
// >=0.3% directional move, returning its index.
func findOrderBlock(candles []candle.Candle, direction oracle.Recommendation) (int, bool) {
	for i := len(candles) - 2; i >= 1; i-- {
		move := (candles[len(candles)-1].Close - candles[i].Close) / candles[i].Close
		bullishMove := move >= 0.003
		bearishMove := move <= -0.003
		candleBearish := candles[i].Close < candles[i].Open
		candleBullish := candles[i].Close > candles[i].Open

		if direction == oracle.Buy && bullishMove && candleBearish {
			return i, true
		}
		if direction == oracle.Sell && bearishMove && candleBullish {
			return i, true
		}
	}
	return 0, false
}

// liquiditySweepScore implements the liquidity-sweep sub-analysis: a recent
// wick above a prior swing high with close back inside (or symmetric
// below), scored when the sweep side is consistent with direction.
func liquiditySweepScore(candles []candle.Candle, direction oracle.Recommendation) (points float64, warning bool) {
	if len(candles) < 8 {
		return 0, true
	}
	recent := candles[len(candles)-8:]
	last := recent[len(recent)-1]

	priorHigh := recent[0].High
	priorLow := recent[0].Low
	for _, c := range recent[:len(recent)-1] {
		if c.High > priorHigh {
			priorHigh = c.High
		}
		if c.Low < priorLow {
			priorLow = c.Low
		}
	}

	sweptHighReclaimed := last.High > priorHigh && last.Close < priorHigh
	sweptLowReclaimed := last.Low < priorLow && last.Close > priorLow

	switch direction {
	case oracle.Buy:
		if sweptLowReclaimed {
			return 15, false
		}
	case oracle.Sell:
		if sweptHighReclaimed {
			return 15, false
		}
	}
	return 0, false
}

// ProfessionalEntryScore implements Step K end to end: the four weighted
// sub-analyses, bonus points, and warning-count bookkeeping (the warning
// count is applied as a multiplier discount by SizeMultiplierForProScore,
// not here).
func ProfessionalEntryScore(candles []candle.Candle, price float64, direction oracle.Recommendation, confidence float64, unanimous, htfAligned bool) ProfessionalScore {
	ms, msWarn := marketStructureScore(candles, direction)
	oe, oeWarn := optimalEntryScore(candles, price, direction)
	ob, obWarn := orderBlockScore(candles, direction)
	ls, lsWarn := liquiditySweepScore(candles, direction)

	total := ms + oe + ob + ls
	if confidence >= 80 {
		total += 10
	}
	if unanimous {
		total += 10
	}
	if htfAligned {
		total += 5
	}

	warnings := 0
	for _, w := range []bool{msWarn, oeWarn, obWarn, lsWarn} {
		if w {
			warnings++
		}
	}

	return ProfessionalScore{
		Total:           total,
		Warnings:        warnings,
		MarketStructure: ms,
		OptimalEntry:    oe,
		OrderBlock:      ob,
		LiquiditySweep:  ls,
	}
}

// SizeMultiplierForProScore implements Step K's never-reject sizing
// schedule, subtracting 0.1 per warning floored at half the tier value.
func SizeMultiplierForProScore(score float64, warnings int) float64 {
	var tier float64
	switch {
	case score >= 60:
		tier = 1.0
	case score >= 40:
		tier = 0.75
	case score >= 25:
		tier = 0.5
	default:
		tier = 0.35
	}

	adjusted := tier - 0.1*float64(warnings)
	floor := tier * 0.5
	if adjusted < floor {
		adjusted = floor
	}
	return adjusted
}

// QualityScore implements Step L: five capped components summing to a
// 0-100 score, graded A/B/C/D with the matching size multiplier.
func QualityScore(t oracle.Tally, overallConfidence, riskReward float64, htfComponent float64, proScore float64) Quality {
	consensus := consensusComponent(t)
	confComp := scaleCapped(overallConfidence, 60, 100, 25)
	rrComp := scaleCapped(riskReward, 1.0, 2.5, 20)
	proComp := scaleCapped(proScore, 35, 100, 15)

	total := consensus + confComp + rrComp + htfComponent + proComp

	grade, multiplier := gradeFor(total)
	_ = multiplier // size multiplier is folded in by the caller (final size = product of three multipliers)

	return Quality{
		Total: total,
		Grade: grade,
		Components: QualityComponents{
			Consensus:    consensus,
			Confidence:   confComp,
			RiskReward:   rrComp,
			HTFAlignment: htfComponent,
			Professional: proComp,
		},
	}
}

// consensusComponent scores up to 25 points by how many of the 4 oracles
// agree with the dominant side.
func consensusComponent(t oracle.Tally) float64 {
	dominant := t.Buy
	if t.Sell > dominant {
		dominant = t.Sell
	}
	return float64(dominant) / 4.0 * 25.0
}

// scaleCapped linearly scales v from [lo,hi] to [0,capVal], clamped.
func scaleCapped(v, lo, hi, capVal float64) float64 {
	if v <= lo {
		return 0
	}
	if v >= hi {
		return capVal
	}
	return (v - lo) / (hi - lo) * capVal
}

// HTFAlignmentComponent implements Step L's HTF sub-score: 15 aligned, 8
// neutral, 0 counter.
func HTFAlignmentComponent(aligned, neutral bool) float64 {
	switch {
	case aligned:
		return 15
	case neutral:
		return 8
	default:
		return 0
	}
}

// gradeFor maps the 100-point quality total to a grade and its size
// multiplier.
func gradeFor(total float64) (Grade, float64) {
	switch {
	case total >= 67:
		return GradeA, 1.0
	case total >= 52:
		return GradeB, 0.5
	case total >= 35:
		return GradeC, 0.25
	default:
		return GradeD, 0.0
	}
}

// GradeMultiplier returns the size multiplier for a grade, used by the
// composer when folding the three independent multipliers together.
func GradeMultiplier(g Grade) float64 {
	switch g {
	case GradeA:
		return 1.0
	case GradeB:
		return 0.5
	case GradeC:
		return 0.25
	default:
		return 0.0
	}
}
