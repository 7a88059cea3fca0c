package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/trend"
)

// EMA computes the exponential moving average series for period over values,
// oldest first, via cinar/indicator's channel-based compute pipeline.
func EMA(values []float64, period int) ([]float64, error) {
	if period < 1 || period > len(values) {
		return nil, fmt.Errorf("invalid period: %d (must be between 1 and %d)", period, len(values))
	}

	in := make(chan float64, len(values))
	for _, v := range values {
		in <- v
	}
	close(in)

	out := trend.NewEmaWithPeriod[float64](period).Compute(in)

	result := make([]float64, 0, len(values))
	for v := range out {
		result = append(result, v)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no EMA values calculated")
	}
	return result, nil
}

// CurrentEMA returns the most recent EMA value for period.
func CurrentEMA(values []float64, period int) (float64, error) {
	series, err := EMA(values, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}
