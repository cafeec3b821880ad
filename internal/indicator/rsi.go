package indicator

// RSI computes the relative strength index using Wilder's smoothed method.
// Requires at least period+1 prices. Returns 100.0 when the average loss is
// zero (all-gain series). The result is rounded to 4 decimal places and is
// always in [0, 100].
func RSI(prices []float64, period int) (float64, bool) {
	if period <= 0 || !validSeries(prices, period+1) {
		return 0, false
	}

	deltas := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		deltas[i-1] = prices[i] - prices[i-1]
	}

	// Seed with the simple mean of the first period gains/losses.
	var avgGain, avgLoss float64
	for _, d := range deltas[:period] {
		if d > 0 {
			avgGain += d
		} else {
			avgLoss -= d
		}
	}
	avgGain /= float64(period)
	avgLoss /= float64(period)

	// Wilder smoothing: weight is period, not period+1 as in a plain EMA.
	for _, d := range deltas[period:] {
		gain, loss := 0.0, 0.0
		if d > 0 {
			gain = d
		} else {
			loss = -d
		}
		avgGain = (avgGain*float64(period-1) + gain) / float64(period)
		avgLoss = (avgLoss*float64(period-1) + loss) / float64(period)
	}

	if avgLoss == 0 {
		return 100.0, true
	}
	rs := avgGain / avgLoss
	return roundTo(100.0-100.0/(1.0+rs), 4), true
}
