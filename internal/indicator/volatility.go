package indicator

import "math"

// tradingDaysPerYear is the conventional annualisation factor for daily returns.
const tradingDaysPerYear = 252

// Volatility computes the annualised volatility of daily percentage changes
// over the trailing period. Requires at least period+1 prices. The standard
// deviation is the population form (divide by n, not n-1), annualised by
// sqrt(252) and rounded to 6 decimal places. A flat or constant-growth series
// yields exactly 0.0.
func Volatility(prices []float64, period int) (float64, bool) {
	if period <= 0 || !validSeries(prices, period+1) {
		return 0, false
	}
	tail := prices[len(prices)-(period+1):]
	returns := make([]float64, period)
	for i := 1; i < len(tail); i++ {
		returns[i-1] = tail[i]/tail[i-1] - 1.0
	}

	mean := 0.0
	for _, r := range returns {
		mean += r
	}
	mean /= float64(len(returns))

	variance := 0.0
	for _, r := range returns {
		d := r - mean
		variance += d * d
	}
	variance /= float64(len(returns))

	return roundTo(math.Sqrt(variance)*math.Sqrt(tradingDaysPerYear), 6), true
}
