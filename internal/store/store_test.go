package store

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"TrendWatch/internal/model"
	"TrendWatch/internal/provider"
)

func day(s string) time.Time {
	d, _ := time.ParseInLocation(dateLayout, s, time.UTC)
	return d
}

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestUpsertPrices_Idempotent(t *testing.T) {
	s := openTestStore(t)
	rows := provider.GenerateRows("AAPL", day("2026-08-25"), 10, 100.0, 1.005, 1_000_000)

	n, err := s.UpsertPrices(rows)
	require.NoError(t, err)
	assert.Equal(t, 10, n)

	// Re-upserting the same dates must not duplicate.
	rows[9].AdjClose = 123.45
	_, err = s.UpsertPrices(rows)
	require.NoError(t, err)

	prices, volumes, err := s.AdjCloseSeries("AAPL", 300)
	require.NoError(t, err)
	require.Len(t, prices, 10)
	require.Len(t, volumes, 10)
	assert.Equal(t, 123.45, prices[9], "conflict path refreshes adj_close")
}

func TestAdjCloseSeries_LastNAscending(t *testing.T) {
	s := openTestStore(t)
	rows := provider.GenerateRows("MSFT", day("2026-08-25"), 40, 100.0, 1.01, 1_000_000)
	_, err := s.UpsertPrices(rows)
	require.NoError(t, err)

	prices, _, err := s.AdjCloseSeries("MSFT", 5)
	require.NoError(t, err)
	require.Len(t, prices, 5, "limit caps to the most recent rows")
	for i := 1; i < len(prices); i++ {
		assert.Greater(t, prices[i], prices[i-1], "ascending by date")
	}
	assert.InDelta(t, rows[39].AdjClose, prices[4], 1e-9, "newest row is last")
}

func TestMaxPriceDate(t *testing.T) {
	s := openTestStore(t)

	d, err := s.MaxPriceDate("AAPL")
	require.NoError(t, err)
	assert.True(t, d.IsZero(), "no rows yet")

	_, err = s.UpsertPrices(provider.GenerateRows("AAPL", day("2026-08-25"), 3, 100, 1.0, 1))
	require.NoError(t, err)

	d, err = s.MaxPriceDate("AAPL")
	require.NoError(t, err)
	assert.Equal(t, day("2026-08-25"), d)
}

func TestUpsertIndicator_RoundtripNullables(t *testing.T) {
	s := openTestStore(t)
	ma20 := 101.5
	row := model.IndicatorRow{
		Ticker:        "AAPL",
		Date:          day("2026-08-25"),
		MA20:          &ma20,
		MA50:          nil, // thin history
		VolumeAnomaly: true,
		Trend:         "Uptrend",
		Strength:      88.5,
	}
	require.NoError(t, s.UpsertIndicator(row))

	// Overwrite for the same day must replace, not duplicate.
	row.Strength = 90.1
	require.NoError(t, s.UpsertIndicator(row))

	got, err := s.IndicatorsForDate(day("2026-08-25"))
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.NotNil(t, got[0].MA20)
	assert.Equal(t, 101.5, *got[0].MA20)
	assert.Nil(t, got[0].MA50)
	assert.True(t, got[0].VolumeAnomaly)
	assert.Equal(t, "Uptrend", got[0].Trend)
	assert.Equal(t, 90.1, got[0].Strength)
}

func TestReportsAndDeliveryLogs(t *testing.T) {
	s := openTestStore(t)

	rep, err := s.LastReport()
	require.NoError(t, err)
	assert.Nil(t, rep)

	id, err := s.InsertReport(&model.Report{
		RunDate:        day("2026-08-25"),
		TickerCount:    3,
		UptrendCount:   2,
		DowntrendCount: 1,
		TopMoversJSON:  "{}",
		SummaryText:    "summary",
	})
	require.NoError(t, err)
	require.Greater(t, id, int64(0))

	rep, err = s.LastReport()
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, day("2026-08-25"), rep.RunDate)
	assert.Equal(t, 3, rep.TickerCount)

	count, err := s.ReportCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	require.NoError(t, s.InsertEmailLog(&EmailLog{
		ReportID:   id,
		Recipients: []string{"a@example.com"},
		Subject:    "digest",
		Status:     "dry_run",
	}))

	posted, err := s.HasTweetForDate(day("2026-08-25"))
	require.NoError(t, err)
	assert.False(t, posted)

	require.NoError(t, s.InsertTweetLog(&TweetLog{
		ReportID: id, RunDate: day("2026-08-25"), Payload: "tweet", Status: "posted",
	}))

	posted, err = s.HasTweetForDate(day("2026-08-25"))
	require.NoError(t, err)
	assert.True(t, posted)

	// Failed attempts do not count as posted.
	posted, err = s.HasTweetForDate(day("2026-08-26"))
	require.NoError(t, err)
	assert.False(t, posted)
}

func TestInsertReport_SameDateKeepsIdAndDeliveryLogs(t *testing.T) {
	s := openTestStore(t)

	id, err := s.InsertReport(&model.Report{
		RunDate:       day("2026-08-25"),
		TickerCount:   3,
		TopMoversJSON: "{}",
	})
	require.NoError(t, err)

	require.NoError(t, s.InsertEmailLog(&EmailLog{
		ReportID: id, Recipients: []string{"a@example.com"}, Subject: "digest", Status: "sent",
	}))
	require.NoError(t, s.InsertTweetLog(&TweetLog{
		ReportID: id, RunDate: day("2026-08-25"), Payload: "tweet", Status: "posted",
	}))

	// Re-running the same date must update in place, not replace the row
	// the delivery logs reference.
	id2, err := s.InsertReport(&model.Report{
		RunDate:       day("2026-08-25"),
		TickerCount:   5,
		UptrendCount:  4,
		TopMoversJSON: "{}",
	})
	require.NoError(t, err)
	assert.Equal(t, id, id2)

	rep, err := s.LastReport()
	require.NoError(t, err)
	require.NotNil(t, rep)
	assert.Equal(t, 5, rep.TickerCount)
	assert.Equal(t, 4, rep.UptrendCount)

	count, err := s.ReportCount()
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	posted, err := s.HasTweetForDate(day("2026-08-25"))
	require.NoError(t, err)
	assert.True(t, posted)
}
