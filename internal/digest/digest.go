// Package digest ranks a day's classified tickers and renders the daily
// summary in every delivery format.
package digest

import (
	"encoding/json"
	"fmt"
	"math"
	"sort"
	"time"

	"TrendWatch/internal/model"
	"TrendWatch/internal/trend"
)

// Digest holds everything needed to render the daily summary.
type Digest struct {
	RunDate time.Time
	Rows    []model.IndicatorRow

	Total          int
	UptrendCount   int
	DowntrendCount int
	SidewaysCount  int
	AvgStrength    float64

	TopGainers      []model.IndicatorRow
	TopLosers       []model.IndicatorRow
	StrongestUp     []model.IndicatorRow
	StrongestDown   []model.IndicatorRow
	VolumeAnomalies []model.IndicatorRow
}

// Build computes all derived digest fields from the raw indicator rows.
func Build(runDate time.Time, rows []model.IndicatorRow, topN int) *Digest {
	d := &Digest{RunDate: runDate, Rows: rows, Total: len(rows)}

	var up, down []model.IndicatorRow
	strengthSum := 0.0
	for _, r := range rows {
		strengthSum += r.Strength
		switch trend.Label(r.Trend) {
		case trend.Uptrend:
			up = append(up, r)
			d.UptrendCount++
		case trend.Downtrend:
			down = append(down, r)
			d.DowntrendCount++
		default:
			d.SidewaysCount++
		}
		if r.VolumeAnomaly {
			d.VolumeAnomalies = append(d.VolumeAnomalies, r)
		}
	}
	if d.Total > 0 {
		d.AvgStrength = math.Round(strengthSum/float64(d.Total)*10) / 10
	}

	withReturn := make([]model.IndicatorRow, 0, len(rows))
	for _, r := range rows {
		if r.Return1D != nil {
			withReturn = append(withReturn, r)
		}
	}

	gainers := append([]model.IndicatorRow(nil), withReturn...)
	sort.SliceStable(gainers, func(i, j int) bool { return *gainers[i].Return1D > *gainers[j].Return1D })
	d.TopGainers = head(gainers, topN)

	losers := append([]model.IndicatorRow(nil), withReturn...)
	sort.SliceStable(losers, func(i, j int) bool { return *losers[i].Return1D < *losers[j].Return1D })
	d.TopLosers = head(losers, topN)

	sort.SliceStable(up, func(i, j int) bool { return up[i].Strength > up[j].Strength })
	d.StrongestUp = head(up, topN)

	sort.SliceStable(down, func(i, j int) bool { return down[i].Strength > down[j].Strength })
	d.StrongestDown = head(down, topN)

	return d
}

func head(rows []model.IndicatorRow, n int) []model.IndicatorRow {
	if len(rows) > n {
		return rows[:n]
	}
	return rows
}

// topMovers groups the ranked lists for JSON serialization.
type topMovers struct {
	TopGainers      []model.IndicatorRow `json:"top_gainers"`
	TopLosers       []model.IndicatorRow `json:"top_losers"`
	StrongestUp     []model.IndicatorRow `json:"strongest_up"`
	StrongestDown   []model.IndicatorRow `json:"strongest_down"`
	VolumeAnomalies []model.IndicatorRow `json:"volume_anomalies"`
}

// TopMoversJSON serializes the ranked lists for the reports table.
func (d *Digest) TopMoversJSON() (string, error) {
	b, err := json.Marshal(topMovers{
		TopGainers:      d.TopGainers,
		TopLosers:       d.TopLosers,
		StrongestUp:     d.StrongestUp,
		StrongestDown:   d.StrongestDown,
		VolumeAnomalies: d.VolumeAnomalies,
	})
	if err != nil {
		return "", fmt.Errorf("marshal top movers: %w", err)
	}
	return string(b), nil
}

// JSON renders the full digest artifact written to reports/<date>.json.
func (d *Digest) JSON() (string, error) {
	payload := struct {
		RunDate string `json:"run_date"`
		Summary struct {
			Total          int     `json:"total"`
			UptrendCount   int     `json:"uptrend_count"`
			DowntrendCount int     `json:"downtrend_count"`
			SidewaysCount  int     `json:"sideways_count"`
			AvgStrength    float64 `json:"avg_strength"`
		} `json:"summary"`
		TopMovers     topMovers            `json:"top_movers"`
		AllIndicators []model.IndicatorRow `json:"all_indicators"`
	}{
		RunDate: d.RunDate.Format("2006-01-02"),
		TopMovers: topMovers{
			TopGainers:      d.TopGainers,
			TopLosers:       d.TopLosers,
			StrongestUp:     d.StrongestUp,
			StrongestDown:   d.StrongestDown,
			VolumeAnomalies: d.VolumeAnomalies,
		},
		AllIndicators: d.Rows,
	}
	payload.Summary.Total = d.Total
	payload.Summary.UptrendCount = d.UptrendCount
	payload.Summary.DowntrendCount = d.DowntrendCount
	payload.Summary.SidewaysCount = d.SidewaysCount
	payload.Summary.AvgStrength = d.AvgStrength

	b, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return "", fmt.Errorf("marshal digest: %w", err)
	}
	return string(b), nil
}
