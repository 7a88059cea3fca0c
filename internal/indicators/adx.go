package indicators

import (
	"fmt"
	"math"
)

// ADX computes the Average Directional Index manually; cinar/indicator v2
// has no ADX primitive.
func ADX(high, low, close []float64, period int) (float64, error) {
	if len(high) != len(low) || len(high) != len(close) {
		return 0, fmt.Errorf("high, low, and close must have the same length")
	}
	if period < 1 {
		return 0, fmt.Errorf("invalid period: %d (must be >= 1)", period)
	}

	minRequired := period * 2
	if len(close) < minRequired {
		return 0, fmt.Errorf("insufficient data: need at least %d candles, got %d", minRequired, len(close))
	}

	adx := calculateADXManual(high, low, close, period)
	if adx == 0 {
		return 0, fmt.Errorf("ADX calculation failed")
	}
	return adx, nil
}

// calculateADXManual implements ADX calculation
func calculateADXManual(high, low, close []float64, period int) float64 {
	n := len(close)
	if n < period*2 {
		return 0
	}

	// Calculate True Range, +DM, -DM
	tr := trueRangeSeries(high, low, close)
	plusDM := make([]float64, n)
	minusDM := make([]float64, n)

	for i := 1; i < n; i++ {
		upMove := high[i] - high[i-1]
		downMove := low[i-1] - low[i]

		if upMove > downMove && upMove > 0 {
			plusDM[i] = upMove
		}
		if downMove > upMove && downMove > 0 {
			minusDM[i] = downMove
		}
	}

	// Smooth TR, +DM, -DM using Wilder's smoothing
	smoothTR := smoothWilder(tr, period)
	smoothPlusDM := smoothWilder(plusDM, period)
	smoothMinusDM := smoothWilder(minusDM, period)

	// Calculate +DI and -DI
	plusDI := make([]float64, n)
	minusDI := make([]float64, n)
	dx := make([]float64, n)

	for i := period; i < n; i++ {
		if smoothTR[i] != 0 {
			plusDI[i] = 100 * smoothPlusDM[i] / smoothTR[i]
			minusDI[i] = 100 * smoothMinusDM[i] / smoothTR[i]

			diSum := plusDI[i] + minusDI[i]
			if diSum != 0 {
				dx[i] = 100 * math.Abs(plusDI[i]-minusDI[i]) / diSum
			}
		}
	}

	// Calculate ADX as smoothed DX
	adxValues := smoothWilder(dx, period)

	// Return the most recent ADX value
	return adxValues[n-1]
}

// trueRangeSeries computes the per-candle true range; tr[0] is always zero
// since it needs a prior close. Shared by ADX and ATR.
func trueRangeSeries(high, low, close []float64) []float64 {
	n := len(close)
	tr := make([]float64, n)
	for i := 1; i < n; i++ {
		tr[i] = math.Max(high[i]-low[i],
			math.Max(math.Abs(high[i]-close[i-1]),
				math.Abs(low[i]-close[i-1])))
	}
	return tr
}

// smoothWilder applies Wilder's smoothing method
func smoothWilder(data []float64, period int) []float64 {
	n := len(data)
	result := make([]float64, n)

	if n < period {
		return result
	}

	// Calculate first smoothed value as simple average
	sum := 0.0
	for i := 0; i < period; i++ {
		sum += data[i]
	}
	result[period-1] = sum / float64(period)

	// Apply Wilder's smoothing for remaining values
	for i := period; i < n; i++ {
		result[i] = (result[i-1]*float64(period-1) + data[i]) / float64(period)
	}

	return result
}
