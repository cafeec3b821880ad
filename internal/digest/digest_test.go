package digest

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendWatch/internal/model"
	"TrendWatch/internal/trend"
)

func fp(v float64) *float64 { return &v }

func row(ticker string, ret1d *float64, label trend.Label, strength float64, anomaly bool) model.IndicatorRow {
	return model.IndicatorRow{
		Ticker:        ticker,
		Date:          time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC),
		RSI14:         fp(55.5),
		Return1D:      ret1d,
		VolumeAnomaly: anomaly,
		Trend:         string(label),
		Strength:      strength,
	}
}

func sampleRows() []model.IndicatorRow {
	return []model.IndicatorRow{
		row("AAPL", fp(0.031), trend.Uptrend, 78.5, false),
		row("MSFT", fp(0.012), trend.Uptrend, 66.0, true),
		row("TSLA", fp(-0.045), trend.Downtrend, 22.3, false),
		row("NVDA", fp(0.058), trend.Uptrend, 91.2, false),
		row("INTC", fp(-0.011), trend.Downtrend, 31.0, false),
		row("KO", fp(0.002), trend.Sideways, 51.4, false),
		row("GE", nil, trend.Sideways, 50.0, false),
	}
}

func TestBuildCountsAndAverage(t *testing.T) {
	d := Build(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), sampleRows(), 3)

	assert.Equal(t, 7, d.Total)
	assert.Equal(t, 3, d.UptrendCount)
	assert.Equal(t, 2, d.DowntrendCount)
	assert.Equal(t, 2, d.SidewaysCount)
	// (78.5+66.0+22.3+91.2+31.0+51.4+50.0)/7 = 55.77... -> 55.8
	assert.Equal(t, 55.8, d.AvgStrength)
}

func TestBuildRankings(t *testing.T) {
	d := Build(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), sampleRows(), 2)

	require.Len(t, d.TopGainers, 2)
	assert.Equal(t, "NVDA", d.TopGainers[0].Ticker)
	assert.Equal(t, "AAPL", d.TopGainers[1].Ticker)

	require.Len(t, d.TopLosers, 2)
	assert.Equal(t, "TSLA", d.TopLosers[0].Ticker)
	assert.Equal(t, "INTC", d.TopLosers[1].Ticker)

	require.Len(t, d.StrongestUp, 2)
	assert.Equal(t, "NVDA", d.StrongestUp[0].Ticker)
	assert.Equal(t, "AAPL", d.StrongestUp[1].Ticker)

	require.Len(t, d.StrongestDown, 2)
	assert.Equal(t, "INTC", d.StrongestDown[0].Ticker)
	assert.Equal(t, "TSLA", d.StrongestDown[1].Ticker)

	require.Len(t, d.VolumeAnomalies, 1)
	assert.Equal(t, "MSFT", d.VolumeAnomalies[0].Ticker)
}

func TestBuildSkipsNilReturnsInMovers(t *testing.T) {
	d := Build(time.Now(), sampleRows(), 10)
	for _, r := range d.TopGainers {
		assert.NotNil(t, r.Return1D)
	}
	for _, r := range d.TopLosers {
		assert.NotNil(t, r.Return1D)
	}
	assert.Len(t, d.TopGainers, 6)
}

func TestBuildEmpty(t *testing.T) {
	d := Build(time.Now(), nil, 5)
	assert.Equal(t, 0, d.Total)
	assert.Equal(t, 0.0, d.AvgStrength)
	assert.Empty(t, d.TopGainers)
	assert.Empty(t, d.VolumeAnomalies)
}

func TestMarkdown(t *testing.T) {
	d := Build(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), sampleRows(), 3)
	md, err := d.Markdown()
	require.NoError(t, err)

	assert.Contains(t, md, "# TrendWatch Digest — 2026-08-25")
	assert.Contains(t, md, "**Uptrend:** 3")
	assert.Contains(t, md, "## Top gainers")
	assert.Contains(t, md, "NVDA")
	assert.Contains(t, md, "+5.80%")
	assert.Contains(t, md, "## Volume anomalies")
	assert.Contains(t, md, "MSFT")
}

func TestEmailBodies(t *testing.T) {
	d := Build(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), sampleRows(), 3)

	text, err := d.EmailText()
	require.NoError(t, err)
	assert.Contains(t, text, "TrendWatch Digest — 2026-08-25")
	assert.Contains(t, text, "TOP GAINERS")
	assert.Contains(t, text, "NVDA")

	html, err := d.EmailHTML()
	require.NoError(t, err)
	assert.Contains(t, html, "<h2>TrendWatch Digest — 2026-08-25</h2>")
	assert.Contains(t, html, "<td>NVDA</td>")
}

func TestTweet(t *testing.T) {
	d := Build(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), sampleRows(), 3)

	tw, err := d.Tweet(280)
	require.NoError(t, err)
	assert.Contains(t, tw, "TrendWatch 2026-08-25")
	assert.Contains(t, tw, "▲3")
	assert.Contains(t, tw, "NVDA")
	assert.LessOrEqual(t, len([]rune(tw)), 280)
}

func TestTweetTruncates(t *testing.T) {
	d := Build(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), sampleRows(), 3)

	tw, err := d.Tweet(40)
	require.NoError(t, err)
	runes := []rune(tw)
	assert.Len(t, runes, 40)
	assert.True(t, strings.HasSuffix(tw, "…"))
}

func TestTweetDegenerateLimit(t *testing.T) {
	d := Build(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), sampleRows(), 3)

	for _, maxChars := range []int{0, -5, 1} {
		tw, err := d.Tweet(maxChars)
		require.NoError(t, err)
		assert.Equal(t, "…", tw)
	}
}

func TestJSONArtifacts(t *testing.T) {
	d := Build(time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC), sampleRows(), 2)

	movers, err := d.TopMoversJSON()
	require.NoError(t, err)
	var parsed map[string]json.RawMessage
	require.NoError(t, json.Unmarshal([]byte(movers), &parsed))
	assert.Contains(t, parsed, "top_gainers")
	assert.Contains(t, parsed, "volume_anomalies")

	full, err := d.JSON()
	require.NoError(t, err)
	var artifact struct {
		RunDate string `json:"run_date"`
		Summary struct {
			Total int `json:"total"`
		} `json:"summary"`
		AllIndicators []model.IndicatorRow `json:"all_indicators"`
	}
	require.NoError(t, json.Unmarshal([]byte(full), &artifact))
	assert.Equal(t, "2026-08-25", artifact.RunDate)
	assert.Equal(t, 7, artifact.Summary.Total)
	assert.Len(t, artifact.AllIndicators, 7)
}
