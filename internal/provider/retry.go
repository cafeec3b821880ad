package provider

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"TrendWatch/internal/model"
	"TrendWatch/pkg/logger"
)

// FetchWithRetry calls p.FetchOHLCV with exponential backoff. Attempts must
// be at least 1; backoff doubles from one second between attempts and the
// context cancels the wait.
func FetchWithRetry(ctx context.Context, p Provider, ticker string, start, end time.Time, attempts int) ([]model.PriceRow, error) {
	var lastErr error
	for i := 0; i < attempts; i++ {
		rows, err := p.FetchOHLCV(ctx, ticker, start, end)
		if err == nil {
			return rows, nil
		}
		lastErr = err

		if i == attempts-1 {
			break
		}
		backoff := time.Duration(1<<uint(i)) * time.Second
		logger.L().Warn("provider fetch failed, retrying",
			zap.String("provider", p.Name()),
			zap.String("ticker", ticker),
			zap.Int("attempt", i+1),
			zap.Duration("backoff", backoff),
			zap.Error(err))
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(backoff):
		}
	}
	return nil, fmt.Errorf("all %d fetch attempts for %s exhausted: %w", attempts, ticker, lastErr)
}
