package model

import "time"

// Report is the persisted summary of one digest run.
type Report struct {
	ID             int64     `json:"id"`
	RunDate        time.Time `json:"run_date"`
	GeneratedAt    time.Time `json:"generated_at"`
	TickerCount    int       `json:"ticker_count"`
	UptrendCount   int       `json:"uptrend_count"`
	DowntrendCount int       `json:"downtrend_count"`
	SidewaysCount  int       `json:"sideways_count"`
	TopMoversJSON  string    `json:"-"`
	SummaryText    string    `json:"-"`
	MarkdownPath   string    `json:"markdown_path"`
	JSONPath       string    `json:"json_path"`
}
