// Package provider fetches daily OHLCV history from market-data sources.
package provider

import (
	"context"
	"time"

	"TrendWatch/internal/model"
)

// Provider is the interface for market-data sources. Implementations must be
// drop-in replaceable so the pipeline never knows which source is active.
type Provider interface {
	// FetchOHLCV returns daily rows for ticker between start and end
	// inclusive, sorted by date ascending. May be empty when the range
	// contains no trading days.
	FetchOHLCV(ctx context.Context, ticker string, start, end time.Time) ([]model.PriceRow, error)
	Name() string
}

// MockProvider returns controllable fixed data for development and testing.
type MockProvider struct {
	Rows map[string][]model.PriceRow
	Err  error
	// Calls counts FetchOHLCV invocations, useful for retry assertions.
	Calls int
}

func (m *MockProvider) Name() string { return "mock" }

func (m *MockProvider) FetchOHLCV(_ context.Context, ticker string, start, end time.Time) ([]model.PriceRow, error) {
	m.Calls++
	if m.Err != nil {
		return nil, m.Err
	}
	var out []model.PriceRow
	for _, r := range m.Rows[ticker] {
		if !r.Date.Before(start) && !r.Date.After(end) {
			out = append(out, r)
		}
	}
	return out, nil
}

// GenerateRows builds count consecutive daily rows ending at end, with closes
// following a fixed daily growth factor. Handy for seeding tests.
func GenerateRows(ticker string, end time.Time, count int, base, growth float64, volume int64) []model.PriceRow {
	rows := make([]model.PriceRow, count)
	price := base
	for i := 0; i < count; i++ {
		d := end.AddDate(0, 0, -(count - 1 - i))
		rows[i] = model.PriceRow{
			Ticker:    ticker,
			Date:      d,
			Open:      price * 0.999,
			High:      price * 1.005,
			Low:       price * 0.995,
			Close:     price,
			AdjClose:  price,
			Volume:    volume,
			Source:    "mock",
			FetchedAt: end,
		}
		price *= growth
	}
	return rows
}
