package htf

import (
	"time"

	"github.com/solarflux/pulsetrader/internal/candle"
)

// lockDuration is how long a promoted trend stays locked regardless of
// incoming candidates.
const lockDuration = time.Hour

// trendState is the explicit hysteresis state machine behind the published
// trend label: {label, pendingCandidate, pendingConfirmations, confirmedAt}.
// It is
// owned exclusively by Context and serialized behind its mutex.
type trendState struct {
	label                TrendLabel
	pendingCandidate     TrendLabel
	pendingConfirmations int
	confirmedAt          time.Time
	lockedUntil          time.Time
}

// newTrendState starts NEUTRAL
func newTrendState() *trendState {
	return &trendState{label: Neutral}
}

// candidateFrom4h analyzes the last 5 closes of a 4h series (oldest first)
//: count higher-highs/lower-highs/higher-lows/lower-lows
// among consecutive pairs. BULLISH requires higherHighs>=2 && higherHighs>
// lowerHighs; BEARISH is symmetric; else NEUTRAL.
func candidateFrom4h(candles []candle.Candle) (TrendLabel, bool) {
	if len(candles) < 5 {
		return Neutral, false
	}
	last5 := candles[len(candles)-5:]

	var higherHighs, lowerHighs, higherLows, lowerLows int
	for i := 1; i < len(last5); i++ {
		prev, cur := last5[i-1], last5[i]
		switch {
		case cur.High > prev.High:
			higherHighs++
		case cur.High < prev.High:
			lowerHighs++
		}
		switch {
		case cur.Low > prev.Low:
			higherLows++
		case cur.Low < prev.Low:
			lowerLows++
		}
	}

	switch {
	case higherHighs >= 2 && higherHighs > lowerHighs:
		return Bullish, true
	case lowerLows >= 2 && lowerLows > higherLows:
		return Bearish, true
	default:
		return Neutral, true
	}
}

// candidateFromGeometry is the fallback heuristic when 4h data is
// unavailable: compare distance to nearest resistance vs support (>=1.5x
// ratio decides direction), breaking ties by counting STRONG levels on each
// side.
func candidateFromGeometry(levels []Level, price float64) TrendLabel {
	support, resistance, _, _ := Proximity(levels, price)
	if support == nil && resistance == nil {
		return Neutral
	}
	if support == nil {
		return Bearish
	}
	if resistance == nil {
		return Bullish
	}

	distToSupport := price - support.Price
	distToResistance := resistance.Price - price
	if distToSupport <= 0 || distToResistance <= 0 {
		return Neutral
	}

	switch {
	case distToResistance >= 1.5*distToSupport:
		return Bullish
	case distToSupport >= 1.5*distToResistance:
		return Bearish
	default:
		return strongLevelTieBreak(levels, price)
	}
}

func strongLevelTieBreak(levels []Level, price float64) TrendLabel {
	var strongSupport, strongResistance int
	for _, lvl := range levels {
		if lvl.Strength != Strong {
			continue
		}
		switch lvl.Type {
		case Support:
			if lvl.Price <= price {
				strongSupport++
			}
		case Resistance:
			if lvl.Price >= price {
				strongResistance++
			}
		}
	}
	switch {
	case strongSupport > strongResistance:
		return Bullish
	case strongResistance > strongSupport:
		return Bearish
	default:
		return Neutral
	}
}

// advance feeds a new candidate label into the state machine at time `now`,
// applying the persistence rules:
//   - locked for one hour after promotion: candidate is ignored
//   - a first transition out of NEUTRAL is accepted immediately
//   - otherwise promotion requires two consecutive confirmations of the
//     same candidate
func (s *trendState) advance(candidate TrendLabel, now time.Time) {
	if now.Before(s.lockedUntil) {
		return
	}

	if candidate == s.label {
		s.pendingCandidate = ""
		s.pendingConfirmations = 0
		return
	}

	if s.label == Neutral {
		s.promote(candidate, now)
		return
	}

	if candidate != s.pendingCandidate {
		s.pendingCandidate = candidate
		s.pendingConfirmations = 1
		return
	}

	s.pendingConfirmations++
	if s.pendingConfirmations >= 2 {
		s.promote(candidate, now)
	}
}

func (s *trendState) promote(label TrendLabel, now time.Time) {
	s.label = label
	s.confirmedAt = now
	s.lockedUntil = now.Add(lockDuration)
	s.pendingCandidate = ""
	s.pendingConfirmations = 0
}
