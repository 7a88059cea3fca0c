package indicators

import (
	"fmt"

	"github.com/cinar/indicator/v2/volatility"
)

// BollingerBands holds one point of upper/middle/lower band values.
type BollingerBands struct {
	Upper  float64
	Middle float64
	Lower  float64
}

// Width returns the band width as a percentage of the middle band, the
// volatility-contraction measure the composer's quality scoring reads.
func (b BollingerBands) Width() float64 {
	if b.Middle == 0 {
		return 0
	}
	return ((b.Upper - b.Lower) / b.Middle) * 100
}

// Bollinger computes Bollinger Bands for period over values. The
// cinar/indicator dependency fixes the multiplier at 2 standard deviations;
// that constraint is inherited here rather than worked around.
func Bollinger(values []float64, period int) ([]BollingerBands, error) {
	if period < 2 || period > len(values) {
		return nil, fmt.Errorf("invalid period: %d (must be between 2 and %d)", period, len(values))
	}

	lower, middle, upper, err := computeBollingerRaw(values, period)
	if err != nil {
		return nil, err
	}

	out := make([]BollingerBands, len(middle))
	for i := range middle {
		out[i] = BollingerBands{Upper: upper[i], Middle: middle[i], Lower: lower[i]}
	}
	return out, nil
}

// CurrentBollinger returns the most recent Bollinger Bands point.
func CurrentBollinger(values []float64, period int) (BollingerBands, error) {
	series, err := Bollinger(values, period)
	if err != nil {
		return BollingerBands{}, err
	}
	return series[len(series)-1], nil
}

func computeBollingerRaw(values []float64, period int) (lower, middle, upper []float64, err error) {
	in := make(chan float64, len(values))
	for _, v := range values {
		in <- v
	}
	close(in)

	lowerChan, middleChan, upperChan := volatility.NewBollingerBandsWithPeriod[float64](period).Compute(in)

	for {
		l, lok := <-lowerChan
		m, mok := <-middleChan
		u, uok := <-upperChan
		if !lok || !mok || !uok {
			break
		}
		lower = append(lower, l)
		middle = append(middle, m)
		upper = append(upper, u)
	}

	if len(middle) == 0 {
		return nil, nil, nil, fmt.Errorf("no Bollinger Bands values calculated")
	}
	return lower, middle, upper, nil
}
