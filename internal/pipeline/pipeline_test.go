package pipeline

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendWatch/internal/config"
	"TrendWatch/internal/delivery"
	"TrendWatch/internal/model"
	"TrendWatch/internal/provider"
	"TrendWatch/internal/store"
)

// tuesday is a plain trading day used by most tests.
var tuesday = time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

func testConfig(t *testing.T, tickers ...string) *config.Config {
	t.Helper()
	cfg := &config.Config{}
	cfg.Watchlist.Tickers = tickers
	cfg.Thresholds.UptrendMin = 62
	cfg.Thresholds.DowntrendMax = 38
	cfg.Thresholds.VolumeAnomalyMultiplier = 2.0
	cfg.Thresholds.TopMoversCount = 5
	cfg.History.BackfillDays = 120
	cfg.History.SeriesLimit = 300
	cfg.Reports.Dir = filepath.Join(t.TempDir(), "reports")
	return cfg
}

func testPipeline(t *testing.T, cfg *config.Config, p provider.Provider) (*Pipeline, *store.Store) {
	t.Helper()
	st, err := store.Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { st.Close() })

	pipe := New(cfg, st, p, nil, nil)
	pipe.Out = &bytes.Buffer{}
	return pipe, st
}

func TestIsTradingDay(t *testing.T) {
	holidays := []string{"2026-09-07"}

	assert.True(t, IsTradingDay(tuesday, holidays))
	assert.False(t, IsTradingDay(time.Date(2026, 8, 29, 0, 0, 0, 0, time.UTC), holidays)) // Saturday
	assert.False(t, IsTradingDay(time.Date(2026, 8, 30, 0, 0, 0, 0, time.UTC), holidays)) // Sunday
	assert.False(t, IsTradingDay(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), holidays))  // Labor Day
	assert.True(t, IsTradingDay(time.Date(2026, 9, 7, 0, 0, 0, 0, time.UTC), nil))
}

func TestRunEndToEnd(t *testing.T) {
	cfg := testConfig(t, "UPCO", "DOWNCO")
	mock := &provider.MockProvider{Rows: map[string][]model.PriceRow{
		"UPCO":   provider.GenerateRows("UPCO", tuesday, 80, 100, 1.005, 1_000_000),
		"DOWNCO": provider.GenerateRows("DOWNCO", tuesday, 80, 100, 0.995, 1_000_000),
	}}
	pipe, st := testPipeline(t, cfg, mock)

	require.NoError(t, pipe.Run(context.Background(), tuesday))

	rep, err := st.LastReport()
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 2, rep.TickerCount)
	assert.Equal(t, 1, rep.UptrendCount)
	assert.Equal(t, 1, rep.DowntrendCount)
	assert.Equal(t, 0, rep.SidewaysCount)

	rows, err := st.IndicatorsForDate(tuesday)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "DOWNCO", rows[0].Ticker)
	assert.Equal(t, "UPCO", rows[1].Ticker)

	for _, path := range []string{rep.MarkdownPath, rep.JSONPath} {
		_, err := os.Stat(path)
		assert.NoError(t, err, path)
	}
}

func TestRunSameDateTwiceAfterDelivery(t *testing.T) {
	cfg := testConfig(t, "UPCO")
	mock := &provider.MockProvider{Rows: map[string][]model.PriceRow{
		"UPCO": provider.GenerateRows("UPCO", tuesday, 80, 100, 1.005, 1_000_000),
	}}
	pipe, st := testPipeline(t, cfg, mock)
	// Dry-run email still writes an email_logs row referencing the report.
	pipe.Email = delivery.NewEmailSender("smtp.example.com", 587, "", "", "bot@example.com", []string{"a@example.com"}, true)

	require.NoError(t, pipe.Run(context.Background(), tuesday))
	first, err := st.LastReport()
	require.NoError(t, err)
	require.NotNil(t, first)

	// A re-run for the same date must update the report in place.
	require.NoError(t, pipe.Run(context.Background(), tuesday))
	second, err := st.LastReport()
	require.NoError(t, err)
	require.NotNil(t, second)
	assert.Equal(t, first.ID, second.ID)

	n, err := st.ReportCount()
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestRunSkipsNonTradingDay(t *testing.T) {
	cfg := testConfig(t, "UPCO")
	cfg.Schedule.Holidays = []string{tuesday.Format("2006-01-02")}
	mock := &provider.MockProvider{}
	pipe, st := testPipeline(t, cfg, mock)

	require.NoError(t, pipe.Run(context.Background(), tuesday))
	assert.Equal(t, 0, mock.Calls)

	n, err := st.ReportCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}

func TestRunSkipsFailingTickerButClassifiesRest(t *testing.T) {
	cfg := testConfig(t, "GOODCO", "BADCO")
	mock := &provider.MockProvider{Rows: map[string][]model.PriceRow{
		"GOODCO": provider.GenerateRows("GOODCO", tuesday, 80, 100, 1.002, 1_000_000),
		// BADCO has no rows: the fetch succeeds empty and classification
		// fails on missing history, which must not abort the run.
	}}
	pipe, st := testPipeline(t, cfg, mock)

	require.NoError(t, pipe.Run(context.Background(), tuesday))

	rep, err := st.LastReport()
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 1, rep.TickerCount)
}

func TestRunThinHistoryStillClassifies(t *testing.T) {
	cfg := testConfig(t, "NEWCO")
	mock := &provider.MockProvider{Rows: map[string][]model.PriceRow{
		// 10 rows: MA20/MA50/RSI unavailable, but a row is still produced.
		"NEWCO": provider.GenerateRows("NEWCO", tuesday, 10, 50, 1.001, 500_000),
	}}
	pipe, st := testPipeline(t, cfg, mock)

	require.NoError(t, pipe.Run(context.Background(), tuesday))

	rows, err := st.IndicatorsForDate(tuesday)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Nil(t, rows[0].MA20)
	assert.Nil(t, rows[0].RSI14)
	assert.NotNil(t, rows[0].Return1D)
}

func TestRunIncrementalFetchWindow(t *testing.T) {
	cfg := testConfig(t, "UPCO")
	mock := &provider.MockProvider{Rows: map[string][]model.PriceRow{
		"UPCO": provider.GenerateRows("UPCO", tuesday, 80, 100, 1.005, 1_000_000),
	}}
	pipe, st := testPipeline(t, cfg, mock)

	// Seed history through the prior Friday.
	friday := tuesday.AddDate(0, 0, -4)
	_, err := st.UpsertPrices(provider.GenerateRows("UPCO", friday, 76, 100, 1.005, 1_000_000))
	require.NoError(t, err)

	start, err := pipe.fetchStart("UPCO", tuesday)
	require.NoError(t, err)
	assert.Equal(t, friday.AddDate(0, 0, 1), start)

	require.NoError(t, pipe.Run(context.Background(), tuesday))
	rep, err := st.LastReport()
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 1, rep.TickerCount)
}

func TestRunFailsWhenNothingClassified(t *testing.T) {
	cfg := testConfig(t, "GHOST")
	mock := &provider.MockProvider{}
	pipe, _ := testPipeline(t, cfg, mock)

	err := pipe.Run(context.Background(), tuesday)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no tickers classified")
}

func TestBackfill(t *testing.T) {
	cfg := testConfig(t, "UPCO")
	mock := &provider.MockProvider{Rows: map[string][]model.PriceRow{
		"UPCO": provider.GenerateRows("UPCO", tuesday, 60, 100, 1.001, 1_000_000),
	}}
	pipe, st := testPipeline(t, cfg, mock)

	require.NoError(t, pipe.Backfill(context.Background(), tuesday))

	last, err := st.MaxPriceDate("UPCO")
	require.NoError(t, err)
	assert.Equal(t, tuesday.Format("2006-01-02"), last.Format("2006-01-02"))

	// No report or indicators from a backfill.
	n, err := st.ReportCount()
	require.NoError(t, err)
	assert.Equal(t, 0, n)
}
