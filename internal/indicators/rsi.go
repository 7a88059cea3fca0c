package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/momentum"
)

// RSI computes the relative strength index series for period over values.
func RSI(values []float64, period int) ([]float64, error) {
	if period < 1 || period > len(values) {
		return nil, fmt.Errorf("invalid period: %d (must be between 1 and %d)", period, len(values))
	}

	in := make(chan float64, len(values))
	for _, v := range values {
		in <- v
	}
	close(in)

	out := momentum.NewRsiWithPeriod[float64](period).Compute(in)

	result := make([]float64, 0, len(values))
	for v := range out {
		result = append(result, v)
	}
	if len(result) == 0 {
		return nil, fmt.Errorf("no RSI values calculated")
	}
	return result, nil
}

// CurrentRSI returns the most recent RSI value for period.
func CurrentRSI(values []float64, period int) (float64, error) {
	series, err := RSI(values, period)
	if err != nil {
		return 0, err
	}
	return series[len(series)-1], nil
}
