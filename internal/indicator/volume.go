package indicator

// VolumeAnomaly reports whether the most recent volume is at least multiplier
// times the mean of the prior window volumes (the window excludes today).
// This is a boolean signal: insufficient history or a zero trailing average
// yields false, never an "unavailable" state.
func VolumeAnomaly(volumes []int64, multiplier float64, window int) bool {
	if window <= 0 || len(volumes) < window+1 {
		return false
	}
	var sum int64
	for _, v := range volumes[len(volumes)-1-window : len(volumes)-1] {
		sum += v
	}
	avg := float64(sum) / float64(window)
	if avg == 0 {
		return false
	}
	return float64(volumes[len(volumes)-1]) >= multiplier*avg
}
