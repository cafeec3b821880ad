// Package pipeline orchestrates the daily run: fetch prices, compute
// indicators, classify trends, build the digest, and deliver it.
package pipeline

import (
	"context"
	"fmt"
	"io"
	"os"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"TrendWatch/internal/config"
	"TrendWatch/internal/delivery"
	"TrendWatch/internal/digest"
	"TrendWatch/internal/model"
	"TrendWatch/internal/provider"
	"TrendWatch/internal/store"
	"TrendWatch/internal/trend"
	"TrendWatch/pkg/logger"
)

const (
	fetchAttempts   = 3
	classifyWorkers = 4
)

// Pipeline wires the stages of a daily run together.
type Pipeline struct {
	Cfg      *config.Config
	Store    *store.Store
	Provider provider.Provider
	Email    *delivery.EmailSender
	Poster   *delivery.XPoster
	Out      io.Writer
}

// New builds a pipeline from its dependencies. Email and poster may be nil
// when those channels are disabled.
func New(cfg *config.Config, st *store.Store, p provider.Provider, email *delivery.EmailSender, poster *delivery.XPoster) *Pipeline {
	return &Pipeline{
		Cfg:      cfg,
		Store:    st,
		Provider: p,
		Email:    email,
		Poster:   poster,
		Out:      os.Stdout,
	}
}

// IsTradingDay reports whether d is a weekday outside the holiday list.
func IsTradingDay(d time.Time, holidays []string) bool {
	switch d.Weekday() {
	case time.Saturday, time.Sunday:
		return false
	}
	stamp := d.Format("2006-01-02")
	for _, h := range holidays {
		if h == stamp {
			return false
		}
	}
	return true
}

// Run executes the full daily pipeline for runDate. Non-trading days are
// skipped without error.
func (p *Pipeline) Run(ctx context.Context, runDate time.Time) error {
	log := logger.L().With(zap.String("run_date", runDate.Format("2006-01-02")))

	if !IsTradingDay(runDate, p.Cfg.Schedule.Holidays) {
		runsTotal.WithLabelValues("skipped").Inc()
		log.Info("not a trading day, skipping run")
		return nil
	}
	log.Info("pipeline run starting", zap.Int("tickers", len(p.Cfg.Watchlist.Tickers)))

	fetched := p.fetchAll(ctx, runDate)
	rows := p.classifyAll(ctx, runDate)
	if len(rows) == 0 {
		runsTotal.WithLabelValues("empty").Inc()
		return fmt.Errorf("no tickers classified for %s", runDate.Format("2006-01-02"))
	}

	d := digest.Build(runDate, rows, p.Cfg.Thresholds.TopMoversCount)
	reportID, err := p.persistReport(d)
	if err != nil {
		runsTotal.WithLabelValues("failed").Inc()
		return err
	}

	delivery.PrintDigest(d, p.Out)
	p.deliver(d, reportID, log)

	runsTotal.WithLabelValues("ok").Inc()
	lastRunTimestamp.SetToCurrentTime()
	log.Info("pipeline run complete",
		zap.Int("fetched_rows", fetched),
		zap.Int("classified", len(rows)),
		zap.Int64("report_id", reportID))
	return nil
}

// Backfill fetches history for every watchlist ticker without classifying
// or delivering anything.
func (p *Pipeline) Backfill(ctx context.Context, end time.Time) error {
	fetched := p.fetchAll(ctx, end)
	if fetched == 0 {
		return fmt.Errorf("backfill fetched no rows")
	}
	logger.L().Info("backfill complete", zap.Int("rows", fetched))
	return nil
}

// fetchAll pulls missing history for each ticker up to runDate. A failed
// ticker is logged and skipped; classification still runs on whatever
// history is already stored.
func (p *Pipeline) fetchAll(ctx context.Context, runDate time.Time) int {
	total := 0
	for _, ticker := range p.Cfg.Watchlist.Tickers {
		if ctx.Err() != nil {
			return total
		}
		start, err := p.fetchStart(ticker, runDate)
		if err != nil {
			logger.L().Warn("resolve fetch window", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		if start.After(runDate) {
			continue
		}
		rows, err := provider.FetchWithRetry(ctx, p.Provider, ticker, start, runDate, fetchAttempts)
		if err != nil {
			fetchErrorsTotal.WithLabelValues(p.Provider.Name()).Inc()
			logger.L().Warn("fetch ticker failed, skipping", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		n, err := p.Store.UpsertPrices(rows)
		if err != nil {
			logger.L().Warn("store prices", zap.String("ticker", ticker), zap.Error(err))
			continue
		}
		rowsFetchedTotal.WithLabelValues(p.Provider.Name()).Add(float64(n))
		total += n
	}
	return total
}

func (p *Pipeline) fetchStart(ticker string, runDate time.Time) (time.Time, error) {
	last, err := p.Store.MaxPriceDate(ticker)
	if err != nil {
		return time.Time{}, err
	}
	if last.IsZero() {
		return runDate.AddDate(0, 0, -p.Cfg.History.BackfillDays), nil
	}
	return last.AddDate(0, 0, 1), nil
}

// classifyAll computes indicators for every ticker with stored history.
func (p *Pipeline) classifyAll(ctx context.Context, runDate time.Time) []model.IndicatorRow {
	opts := trend.Options{
		UptrendMin:              p.Cfg.Thresholds.UptrendMin,
		DowntrendMax:            p.Cfg.Thresholds.DowntrendMax,
		VolumeAnomalyMultiplier: p.Cfg.Thresholds.VolumeAnomalyMultiplier,
	}

	var (
		mu   sync.Mutex
		rows []model.IndicatorRow
		wg   sync.WaitGroup
		sem  = make(chan struct{}, classifyWorkers)
	)
	for _, ticker := range p.Cfg.Watchlist.Tickers {
		if ctx.Err() != nil {
			break
		}
		wg.Add(1)
		sem <- struct{}{}
		go func(ticker string) {
			defer wg.Done()
			defer func() { <-sem }()

			row, err := p.classifyTicker(ticker, runDate, opts)
			if err != nil {
				logger.L().Warn("classify ticker", zap.String("ticker", ticker), zap.Error(err))
				return
			}
			tickersClassifiedTotal.Inc()
			mu.Lock()
			rows = append(rows, *row)
			mu.Unlock()
		}(ticker)
	}
	wg.Wait()

	// Restore deterministic digest order after the concurrent phase.
	sort.Slice(rows, func(i, j int) bool { return rows[i].Ticker < rows[j].Ticker })
	return rows
}

func (p *Pipeline) classifyTicker(ticker string, runDate time.Time, opts trend.Options) (*model.IndicatorRow, error) {
	prices, volumes, err := p.Store.AdjCloseSeries(ticker, p.Cfg.History.SeriesLimit)
	if err != nil {
		return nil, err
	}
	if len(prices) == 0 {
		return nil, fmt.Errorf("no stored history for %s", ticker)
	}

	res := trend.Classify(prices, volumes, opts)
	row := model.IndicatorRow{
		Ticker:        ticker,
		Date:          runDate,
		MA20:          res.MA20,
		MA50:          res.MA50,
		RSI14:         res.RSI14,
		Return1D:      res.Return1D,
		Return5D:      res.Return5D,
		Return20D:     res.Return20D,
		Volatility20D: res.Volatility20D,
		VolumeAnomaly: res.VolumeAnomaly,
		Trend:         string(res.Label),
		Strength:      res.Strength,
		ComputedAt:    time.Now().UTC(),
	}
	if err := p.Store.UpsertIndicator(row); err != nil {
		return nil, err
	}
	return &row, nil
}

func (p *Pipeline) persistReport(d *digest.Digest) (int64, error) {
	mdPath, jsonPath, err := delivery.WriteArtifacts(d, p.Cfg.Reports.Dir)
	if err != nil {
		return 0, err
	}
	movers, err := d.TopMoversJSON()
	if err != nil {
		return 0, err
	}
	summary, err := d.EmailText()
	if err != nil {
		return 0, err
	}
	return p.Store.InsertReport(&model.Report{
		RunDate:        d.RunDate,
		GeneratedAt:    time.Now().UTC(),
		TickerCount:    d.Total,
		UptrendCount:   d.UptrendCount,
		DowntrendCount: d.DowntrendCount,
		SidewaysCount:  d.SidewaysCount,
		TopMoversJSON:  movers,
		SummaryText:    summary,
		MarkdownPath:   mdPath,
		JSONPath:       jsonPath,
	})
}

// deliver sends the digest to the optional channels. Delivery failures are
// logged, not fatal: the report on disk is the source of truth.
func (p *Pipeline) deliver(d *digest.Digest, reportID int64, log *zap.Logger) {
	if p.Email != nil {
		if err := p.Email.Send(d, p.Store, reportID); err != nil {
			log.Error("email delivery failed", zap.Error(err))
		}
	}
	if p.Poster != nil {
		if err := p.Poster.Post(d, p.Store, reportID); err != nil {
			log.Error("tweet delivery failed", zap.Error(err))
		}
	}
}
