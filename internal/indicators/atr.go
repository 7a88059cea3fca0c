package indicators

import "fmt"

// ATR computes the Average True Range over period using Wilder's smoothing,
// the same primitive ADX uses. cinar/indicator v2 has no ATR primitive, so
// this reuses ADX's true-range/smoothing helpers instead of introducing a
// second implementation.
func ATR(high, low, close []float64, period int) (float64, error) {
	if len(high) != len(low) || len(high) != len(close) {
		return 0, fmt.Errorf("high, low, and close must have the same length")
	}
	if period < 1 || len(close) < period+1 {
		return 0, fmt.Errorf("insufficient data: need at least %d candles, got %d", period+1, len(close))
	}

	tr := trueRangeSeries(high, low, close)
	smoothed := smoothWilder(tr, period)
	return smoothed[len(smoothed)-1], nil
}

// ATRPercent expresses ATR as a percentage of the reference price, the form
// the composer's dynamic risk:reward sizing reads.
func ATRPercent(high, low, close []float64, period int, referencePrice float64) (float64, error) {
	atr, err := ATR(high, low, close, period)
	if err != nil {
		return 0, err
	}
	if referencePrice == 0 {
		return 0, fmt.Errorf("reference price must be non-zero")
	}
	return (atr / referencePrice) * 100, nil
}
