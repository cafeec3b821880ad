package indicator

// MovingAverage computes the simple moving average of the last window prices.
// Only the most recent window values are used; older history is ignored.
func MovingAverage(prices []float64, window int) (float64, bool) {
	if window <= 0 || !validSeries(prices, window) {
		return 0, false
	}
	sum := 0.0
	for _, v := range prices[len(prices)-window:] {
		sum += v
	}
	return sum / float64(window), true
}
