package htf

import "github.com/solarflux/pulsetrader/internal/candle"

// lookbackFor returns the swing-detection lookback depth for a timeframe
// (weekly ~3, daily ~5, 4h ~8).
func lookbackFor(tf Timeframe) int {
	switch tf {
	case TF1w:
		return 3
	case TF1d:
		return 5
	case TF4h:
		return 8
	default:
		return 5
	}
}

// proximityBand is the +/-0.2% band used to bucket swing strength by touch count.
const proximityBand = 0.002

// SwingLevels scans candles (oldest first) for swing highs/lows using the
// timeframe's lookback depth. A bar is a swing high if its High dominates
// `lookback` bars on both sides; symmetric for swing low. Strength is
// bucketed by how many prior bars' extreme lies within 0.2% of that price.
func SwingLevels(tf Timeframe, candles []candle.Candle) []Level {
	lookback := lookbackFor(tf)
	n := len(candles)
	var levels []Level

	for i := lookback; i < n-lookback; i++ {
		if isSwingHigh(candles, i, lookback) {
			touches := countTouches(candles, i, candles[i].High, func(c candle.Candle) float64 { return c.High })
			levels = append(levels, Level{
				Price:      candles[i].High,
				Timeframe:  tf,
				Type:       Resistance,
				Strength:   strengthFor(touches),
				SourceKind: Swing,
				Touches:    touches,
			})
		}
		if isSwingLow(candles, i, lookback) {
			touches := countTouches(candles, i, candles[i].Low, func(c candle.Candle) float64 { return c.Low })
			levels = append(levels, Level{
				Price:      candles[i].Low,
				Timeframe:  tf,
				Type:       Support,
				Strength:   strengthFor(touches),
				SourceKind: Swing,
				Touches:    touches,
			})
		}
	}
	return levels
}

func isSwingHigh(candles []candle.Candle, i, lookback int) bool {
	h := candles[i].High
	for j := i - lookback; j <= i+lookback; j++ {
		if j == i {
			continue
		}
		if candles[j].High >= h {
			return false
		}
	}
	return true
}

func isSwingLow(candles []candle.Candle, i, lookback int) bool {
	l := candles[i].Low
	for j := i - lookback; j <= i+lookback; j++ {
		if j == i {
			continue
		}
		if candles[j].Low <= l {
			return false
		}
	}
	return true
}

// countTouches counts prior bars (excluding i) whose extreme lies within
// proximityBand of price.
func countTouches(candles []candle.Candle, i int, price float64, extreme func(candle.Candle) float64) int {
	count := 0
	for j, c := range candles {
		if j == i {
			continue
		}
		v := extreme(c)
		if v == 0 {
			continue
		}
		diff := v - price
		if diff < 0 {
			diff = -diff
		}
		if diff/price <= proximityBand {
			count++
		}
	}
	return count
}

func strengthFor(touches int) Strength {
	switch {
	case touches >= 3:
		return Strong
	case touches == 2:
		return Moderate
	default:
		return Weak
	}
}
