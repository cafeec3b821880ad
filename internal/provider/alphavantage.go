package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"sort"
	"strconv"
	"time"

	"TrendWatch/internal/model"
)

const dateLayout = "2006-01-02"

// AlphaVantageProvider fetches daily adjusted OHLCV from Alpha Vantage.
// Requires an API key; useful when Yahoo rate limits become a problem.
type AlphaVantageProvider struct {
	APIKey  string
	Client  *http.Client
	BaseURL string
}

// NewAlphaVantageProvider creates a fetcher with optional proxy support.
func NewAlphaVantageProvider(apiKey, proxyURL string) *AlphaVantageProvider {
	transport := &http.Transport{}
	if proxyURL != "" {
		if u, err := url.Parse(proxyURL); err == nil {
			transport.Proxy = http.ProxyURL(u)
		}
	}
	return &AlphaVantageProvider{
		APIKey: apiKey,
		Client: &http.Client{
			Timeout:   30 * time.Second,
			Transport: transport,
		},
		BaseURL: "https://www.alphavantage.co",
	}
}

func (p *AlphaVantageProvider) Name() string { return "alphavantage" }

// avResponse is the TIME_SERIES_DAILY_ADJUSTED payload. Values arrive as
// strings keyed by numbered field names.
type avResponse struct {
	ErrorMessage string                       `json:"Error Message"`
	Note         string                       `json:"Note"`
	Series       map[string]map[string]string `json:"Time Series (Daily)"`
}

func (p *AlphaVantageProvider) FetchOHLCV(ctx context.Context, ticker string, start, end time.Time) ([]model.PriceRow, error) {
	u := fmt.Sprintf("%s/query?function=TIME_SERIES_DAILY_ADJUSTED&symbol=%s&outputsize=full&apikey=%s",
		p.BaseURL, url.QueryEscape(ticker), url.QueryEscape(p.APIKey))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, err
	}
	resp, err := p.Client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("alphavantage fetch: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("alphavantage read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("alphavantage: status %d, body: %s", resp.StatusCode, string(body))
	}

	var av avResponse
	if err := json.Unmarshal(body, &av); err != nil {
		return nil, fmt.Errorf("alphavantage decode: %w", err)
	}
	if av.ErrorMessage != "" {
		return nil, fmt.Errorf("alphavantage api error: %s", av.ErrorMessage)
	}
	if av.Note != "" {
		// Rate limit responses come back 200 with a Note instead of data.
		return nil, fmt.Errorf("alphavantage throttled: %s", av.Note)
	}

	fetchedAt := time.Now().UTC()
	rows := make([]model.PriceRow, 0, len(av.Series))
	for dateStr, fields := range av.Series {
		d, err := time.ParseInLocation(dateLayout, dateStr, time.UTC)
		if err != nil {
			continue
		}
		if d.Before(start) || d.After(end) {
			continue
		}
		row := model.PriceRow{
			Ticker:    ticker,
			Date:      d,
			Open:      parseField(fields, "1. open"),
			High:      parseField(fields, "2. high"),
			Low:       parseField(fields, "3. low"),
			Close:     parseField(fields, "4. close"),
			AdjClose:  parseField(fields, "5. adjusted close"),
			Volume:    int64(parseField(fields, "6. volume")),
			Source:    p.Name(),
			FetchedAt: fetchedAt,
		}
		if row.Close == 0 {
			continue
		}
		rows = append(rows, row)
	}

	sort.Slice(rows, func(i, j int) bool { return rows[i].Date.Before(rows[j].Date) })
	return rows, nil
}

func parseField(fields map[string]string, key string) float64 {
	v, err := strconv.ParseFloat(fields[key], 64)
	if err != nil {
		return 0
	}
	return v
}
