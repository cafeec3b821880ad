package indicator

// PeriodReturn computes the n-day simple return: prices[last]/prices[last-n] - 1.
// Requires at least n+1 prices; unavailable when the base price is exactly zero.
func PeriodReturn(prices []float64, n int) (float64, bool) {
	if n <= 0 || !validSeries(prices, n+1) {
		return 0, false
	}
	now := prices[len(prices)-1]
	base := prices[len(prices)-1-n]
	if base == 0 {
		return 0, false
	}
	return now/base - 1.0, true
}
