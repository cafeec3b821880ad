package model

import "time"

// PriceRow is one daily OHLCV record for a ticker, as fetched from a provider.
type PriceRow struct {
	Ticker    string    `json:"ticker"`
	Date      time.Time `json:"date"`
	Open      float64   `json:"open"`
	High      float64   `json:"high"`
	Low       float64   `json:"low"`
	Close     float64   `json:"close"`
	AdjClose  float64   `json:"adj_close"`
	Volume    int64     `json:"volume"`
	Source    string    `json:"source"`
	FetchedAt time.Time `json:"fetched_at"`
}

// IndicatorRow holds the computed indicators and trend classification for one
// (ticker, date). Nil pointer fields mean the indicator was unavailable.
type IndicatorRow struct {
	Ticker        string    `json:"ticker"`
	Date          time.Time `json:"date"`
	MA20          *float64  `json:"ma20"`
	MA50          *float64  `json:"ma50"`
	RSI14         *float64  `json:"rsi14"`
	Return1D      *float64  `json:"return_1d"`
	Return5D      *float64  `json:"return_5d"`
	Return20D     *float64  `json:"return_20d"`
	Volatility20D *float64  `json:"volatility_20d"`
	VolumeAnomaly bool      `json:"volume_anomaly"`
	Trend         string    `json:"trend"`
	Strength      float64   `json:"trend_strength"`
	ComputedAt    time.Time `json:"computed_at"`
}
