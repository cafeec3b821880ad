// Package indicator provides pure, stateless technical indicator functions
// over ascending-by-date price and volume series.
//
// Numeric indicators report missing or invalid input with a false second
// return value rather than an error or a sentinel number; callers must check
// it before using the value.
package indicator

import "math"

// validSeries reports whether prices has at least minLen values and no NaN.
func validSeries(prices []float64, minLen int) bool {
	if len(prices) < minLen {
		return false
	}
	for _, v := range prices {
		if math.IsNaN(v) {
			return false
		}
	}
	return true
}

// roundTo rounds v to the given number of decimal places.
func roundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
