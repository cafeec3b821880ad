// Package trend combines indicator values into a weighted composite strength
// score (0-100) and a three-way trend label. Classification is a pure,
// single-pass function: missing indicators degrade to documented neutral
// sub-scores instead of failing.
package trend

import (
	"math"

	"TrendWatch/internal/indicator"
)

// Label is the categorical trend classification.
type Label string

const (
	Uptrend   Label = "Uptrend"
	Downtrend Label = "Downtrend"
	Sideways  Label = "Sideways"
)

// Composite sub-score weights.
const (
	weightMA         = 0.30
	weightRSI        = 0.25
	weightMomentum   = 0.30
	weightVolatility = 0.15
)

// Options are the caller-configurable classification thresholds.
type Options struct {
	UptrendMin              float64
	DowntrendMax            float64
	VolumeAnomalyMultiplier float64
}

// DefaultOptions returns the standard thresholds: composite >= 62 is an
// uptrend, <= 38 a downtrend, and a 2x volume spike is anomalous.
func DefaultOptions() Options {
	return Options{
		UptrendMin:              62.0,
		DowntrendMax:            38.0,
		VolumeAnomalyMultiplier: 2.0,
	}
}

// Result is the immutable output of Classify. Nil indicator fields mean the
// underlying series was too short (or contained NaN) for that indicator.
type Result struct {
	Label         Label
	Strength      float64 // composite rounded to 1 decimal
	Composite     float64 // unrounded clamped value; label is decided on this
	MA20          *float64
	MA50          *float64
	RSI14         *float64
	Return1D      *float64
	Return5D      *float64
	Return20D     *float64
	Volatility20D *float64
	VolumeAnomaly bool
}

// Classify computes all indicators for one instrument and blends them into a
// composite score and label. prices and volumes are ascending by date.
func Classify(prices []float64, volumes []int64, opts Options) Result {
	price := 0.0
	if len(prices) > 0 {
		price = prices[len(prices)-1]
	}

	ma20 := opt(indicator.MovingAverage(prices, 20))
	ma50 := opt(indicator.MovingAverage(prices, 50))
	rsi14 := opt(indicator.RSI(prices, 14))
	ret1d := opt(indicator.PeriodReturn(prices, 1))
	ret5d := opt(indicator.PeriodReturn(prices, 5))
	ret20d := opt(indicator.PeriodReturn(prices, 20))
	vol20d := opt(indicator.Volatility(prices, 20))
	volAnom := indicator.VolumeAnomaly(volumes, opts.VolumeAnomalyMultiplier, 20)

	maS := maScore(price, ma20, ma50)
	rsiS := 50.0 // neutral default; RSI is already 0-100 scaled
	if rsi14 != nil {
		rsiS = *rsi14
	}
	momS := momentumScore(ret20d)
	volS := volatilityScore(vol20d)

	composite := weightMA*maS + weightRSI*rsiS + weightMomentum*momS + weightVolatility*volS
	composite = clamp(composite, 0, 100)

	// The label is decided on the unrounded composite: a borderline value like
	// 61.96 rounds to a strength of 62.0 yet stays Sideways.
	var label Label
	switch {
	case composite >= opts.UptrendMin:
		label = Uptrend
	case composite <= opts.DowntrendMax:
		label = Downtrend
	default:
		label = Sideways
	}

	return Result{
		Label:         label,
		Strength:      math.Round(composite*10) / 10,
		Composite:     composite,
		MA20:          ma20,
		MA50:          ma50,
		RSI14:         rsi14,
		Return1D:      ret1d,
		Return5D:      ret5d,
		Return20D:     ret20d,
		Volatility20D: vol20d,
		VolumeAnomaly: volAnom,
	}
}

// maScore maps moving-average alignment to a 0-100 sub-score.
func maScore(price float64, ma20, ma50 *float64) float64 {
	if ma20 == nil && ma50 == nil {
		return 50.0
	}
	if ma20 == nil || ma50 == nil {
		ma := ma20
		if ma == nil {
			ma = ma50
		}
		if price > *ma {
			return 70.0
		}
		return 30.0
	}
	switch {
	case price > *ma20 && *ma20 > *ma50:
		return 90.0 // strong bullish stack
	case price < *ma20 && *ma20 < *ma50:
		return 10.0 // strong bearish stack
	case price > *ma20 && *ma20 <= *ma50:
		return 60.0
	case price < *ma20 && *ma20 >= *ma50:
		return 40.0
	default:
		return 50.0
	}
}

// momentumScore maps the 20-day return onto 0-100. The linear slope saturates
// at a +/-14.3% 20-day move.
func momentumScore(return20d *float64) float64 {
	if return20d == nil {
		return 50.0
	}
	return clamp(50.0+*return20d*350.0, 0, 100)
}

// volatilityScore maps annualised volatility onto 0-100; lower volatility
// scores higher. Buckets are exclusive-upper, checked in ascending order.
func volatilityScore(vol *float64) float64 {
	if vol == nil {
		return 50.0
	}
	switch {
	case *vol < 0.15:
		return 70.0
	case *vol < 0.25:
		return 55.0
	case *vol < 0.40:
		return 40.0
	default:
		return 25.0
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

func opt(v float64, ok bool) *float64 {
	if !ok {
		return nil
	}
	return &v
}
