// Package store persists prices, indicators, reports, and delivery logs to a
// SQLite database.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	_ "modernc.org/sqlite"

	"TrendWatch/internal/model"
)

const dateLayout = "2006-01-02"

// Store wraps the SQLite database. All methods are safe for concurrent use.
type Store struct {
	db *sql.DB
	mu sync.Mutex
}

// Open opens (or creates) the database, enables WAL, and runs migrations.
func Open(dbPath string) (*Store, error) {
	if dbPath != ":memory:" {
		if dir := filepath.Dir(dbPath); dir != "." {
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return nil, fmt.Errorf("create db dir: %w", err)
			}
		}
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A single connection avoids per-connection :memory: databases and write
	// contention on file databases.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enable foreign keys: %w", err)
	}

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

func (s *Store) migrate() error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS prices (
			id         INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker     TEXT    NOT NULL,
			date       TEXT    NOT NULL,
			open       REAL    NOT NULL,
			high       REAL    NOT NULL,
			low        REAL    NOT NULL,
			close      REAL    NOT NULL,
			adj_close  REAL    NOT NULL,
			volume     INTEGER NOT NULL,
			fetched_at TEXT    NOT NULL,
			source     TEXT    NOT NULL,
			UNIQUE(ticker, date)
		)`,
		`CREATE INDEX IF NOT EXISTS idx_prices_ticker_date ON prices(ticker, date DESC)`,

		`CREATE TABLE IF NOT EXISTS indicators (
			id             INTEGER PRIMARY KEY AUTOINCREMENT,
			ticker         TEXT    NOT NULL,
			date           TEXT    NOT NULL,
			ma20           REAL,
			ma50           REAL,
			rsi14          REAL,
			return_1d      REAL,
			return_5d      REAL,
			return_20d     REAL,
			volatility_20d REAL,
			volume_anomaly INTEGER NOT NULL DEFAULT 0,
			trend          TEXT    NOT NULL,
			trend_strength REAL    NOT NULL,
			computed_at    TEXT    NOT NULL,
			UNIQUE(ticker, date)
		)`,

		`CREATE TABLE IF NOT EXISTS reports (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			run_date        TEXT    NOT NULL UNIQUE,
			generated_at    TEXT    NOT NULL,
			ticker_count    INTEGER NOT NULL,
			uptrend_count   INTEGER NOT NULL,
			downtrend_count INTEGER NOT NULL,
			sideways_count  INTEGER NOT NULL,
			top_movers_json TEXT    NOT NULL,
			summary_text    TEXT,
			markdown_path   TEXT,
			json_path       TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS email_logs (
			id              INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id       INTEGER NOT NULL REFERENCES reports(id),
			sent_at         TEXT    NOT NULL,
			recipients_json TEXT    NOT NULL,
			subject         TEXT    NOT NULL,
			message_id      TEXT,
			status          TEXT    NOT NULL,
			error_message   TEXT
		)`,

		`CREATE TABLE IF NOT EXISTS tweet_logs (
			id            INTEGER PRIMARY KEY AUTOINCREMENT,
			report_id     INTEGER NOT NULL REFERENCES reports(id),
			posted_at     TEXT    NOT NULL,
			run_date      TEXT    NOT NULL,
			payload_text  TEXT    NOT NULL,
			tweet_id      TEXT,
			status        TEXT    NOT NULL,
			error_message TEXT
		)`,
	}
	for _, stmt := range stmts {
		if _, err := s.db.Exec(stmt); err != nil {
			return fmt.Errorf("exec %.40q: %w", stmt, err)
		}
	}
	return nil
}

// UpsertPrices inserts or refreshes a batch of OHLCV rows in one transaction.
// Returns the number of rows processed.
func (s *Store) UpsertPrices(rows []model.PriceRow) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin tx: %w", err)
	}
	stmt, err := tx.Prepare(`INSERT INTO prices
		(ticker, date, open, high, low, close, adj_close, volume, fetched_at, source)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(ticker, date) DO UPDATE SET
			close=excluded.close,
			adj_close=excluded.adj_close,
			volume=excluded.volume,
			fetched_at=excluded.fetched_at`)
	if err != nil {
		tx.Rollback()
		return 0, fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range rows {
		if _, err := stmt.Exec(
			r.Ticker, r.Date.Format(dateLayout),
			r.Open, r.High, r.Low, r.Close, r.AdjClose, r.Volume,
			r.FetchedAt.UTC().Format(time.RFC3339), r.Source,
		); err != nil {
			tx.Rollback()
			return 0, fmt.Errorf("upsert %s %s: %w", r.Ticker, r.Date.Format(dateLayout), err)
		}
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit: %w", err)
	}
	return len(rows), nil
}

// MaxPriceDate returns the most recent stored price date for ticker, or a
// zero time when there is none.
func (s *Store) MaxPriceDate(ticker string) (time.Time, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var maxDate sql.NullString
	err := s.db.QueryRow(`SELECT MAX(date) FROM prices WHERE ticker = ?`, ticker).Scan(&maxDate)
	if err != nil {
		return time.Time{}, fmt.Errorf("max price date: %w", err)
	}
	if !maxDate.Valid || maxDate.String == "" {
		return time.Time{}, nil
	}
	return time.ParseInLocation(dateLayout, maxDate.String, time.UTC)
}

// AdjCloseSeries returns the last limit adjusted closes and volumes for
// ticker, oldest first.
func (s *Store) AdjCloseSeries(ticker string, limit int) (prices []float64, volumes []int64, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT adj_close, volume FROM (
			SELECT date, adj_close, volume FROM prices
			WHERE ticker = ? ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC`, ticker, limit)
	if err != nil {
		return nil, nil, fmt.Errorf("query series: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var p float64
		var v int64
		if err := rows.Scan(&p, &v); err != nil {
			return nil, nil, fmt.Errorf("scan series: %w", err)
		}
		prices = append(prices, p)
		volumes = append(volumes, v)
	}
	return prices, volumes, rows.Err()
}

// UpsertIndicator inserts or replaces the indicator row for (ticker, date).
func (s *Store) UpsertIndicator(row model.IndicatorRow) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	computedAt := row.ComputedAt
	if computedAt.IsZero() {
		computedAt = time.Now().UTC()
	}
	anomaly := 0
	if row.VolumeAnomaly {
		anomaly = 1
	}
	_, err := s.db.Exec(`INSERT INTO indicators
		(ticker, date, ma20, ma50, rsi14, return_1d, return_5d, return_20d,
		 volatility_20d, volume_anomaly, trend, trend_strength, computed_at)
		VALUES (?,?,?,?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(ticker, date) DO UPDATE SET
			ma20=excluded.ma20, ma50=excluded.ma50, rsi14=excluded.rsi14,
			return_1d=excluded.return_1d, return_5d=excluded.return_5d,
			return_20d=excluded.return_20d, volatility_20d=excluded.volatility_20d,
			volume_anomaly=excluded.volume_anomaly, trend=excluded.trend,
			trend_strength=excluded.trend_strength, computed_at=excluded.computed_at`,
		row.Ticker, row.Date.Format(dateLayout),
		row.MA20, row.MA50, row.RSI14, row.Return1D, row.Return5D, row.Return20D,
		row.Volatility20D, anomaly, row.Trend, row.Strength,
		computedAt.Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("upsert indicator %s: %w", row.Ticker, err)
	}
	return nil
}

// IndicatorsForDate returns all indicator rows computed for runDate.
func (s *Store) IndicatorsForDate(runDate time.Time) ([]model.IndicatorRow, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rows, err := s.db.Query(`SELECT ticker, date, ma20, ma50, rsi14,
			return_1d, return_5d, return_20d, volatility_20d,
			volume_anomaly, trend, trend_strength, computed_at
		FROM indicators WHERE date = ? ORDER BY ticker ASC`,
		runDate.Format(dateLayout))
	if err != nil {
		return nil, fmt.Errorf("query indicators: %w", err)
	}
	defer rows.Close()

	var out []model.IndicatorRow
	for rows.Next() {
		var (
			r         model.IndicatorRow
			dateStr   string
			computed  string
			anomaly   int
			nullables [7]sql.NullFloat64
		)
		if err := rows.Scan(&r.Ticker, &dateStr,
			&nullables[0], &nullables[1], &nullables[2], &nullables[3],
			&nullables[4], &nullables[5], &nullables[6],
			&anomaly, &r.Trend, &r.Strength, &computed,
		); err != nil {
			return nil, fmt.Errorf("scan indicator: %w", err)
		}
		r.Date, _ = time.ParseInLocation(dateLayout, dateStr, time.UTC)
		r.ComputedAt, _ = time.Parse(time.RFC3339, computed)
		r.VolumeAnomaly = anomaly != 0
		targets := []**float64{
			&r.MA20, &r.MA50, &r.RSI14, &r.Return1D,
			&r.Return5D, &r.Return20D, &r.Volatility20D,
		}
		for i, n := range nullables {
			if n.Valid {
				v := n.Float64
				*targets[i] = &v
			}
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// InsertReport upserts the report for a run date and returns its id. The
// update path keeps the existing row id so email_logs and tweet_logs rows
// referencing it survive a re-run for the same date.
func (s *Store) InsertReport(rep *model.Report) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	generatedAt := rep.GeneratedAt
	if generatedAt.IsZero() {
		generatedAt = time.Now().UTC()
	}
	runDate := rep.RunDate.Format(dateLayout)
	_, err := s.db.Exec(`INSERT INTO reports
		(run_date, generated_at, ticker_count, uptrend_count, downtrend_count,
		 sideways_count, top_movers_json, summary_text, markdown_path, json_path)
		VALUES (?,?,?,?,?,?,?,?,?,?)
		ON CONFLICT(run_date) DO UPDATE SET
			generated_at = excluded.generated_at,
			ticker_count = excluded.ticker_count,
			uptrend_count = excluded.uptrend_count,
			downtrend_count = excluded.downtrend_count,
			sideways_count = excluded.sideways_count,
			top_movers_json = excluded.top_movers_json,
			summary_text = excluded.summary_text,
			markdown_path = excluded.markdown_path,
			json_path = excluded.json_path`,
		runDate, generatedAt.Format(time.RFC3339),
		rep.TickerCount, rep.UptrendCount, rep.DowntrendCount, rep.SidewaysCount,
		rep.TopMoversJSON, rep.SummaryText, rep.MarkdownPath, rep.JSONPath,
	)
	if err != nil {
		return 0, fmt.Errorf("insert report: %w", err)
	}
	var id int64
	if err := s.db.QueryRow(`SELECT id FROM reports WHERE run_date = ?`, runDate).Scan(&id); err != nil {
		return 0, fmt.Errorf("report id: %w", err)
	}
	return id, nil
}

// LastReport returns the most recent report, or nil when none exist.
func (s *Store) LastReport() (*model.Report, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRow(`SELECT id, run_date, generated_at, ticker_count,
			uptrend_count, downtrend_count, sideways_count,
			top_movers_json, COALESCE(summary_text, ''),
			COALESCE(markdown_path, ''), COALESCE(json_path, '')
		FROM reports ORDER BY id DESC LIMIT 1`)

	var (
		rep              model.Report
		runDate, genTime string
	)
	err := row.Scan(&rep.ID, &runDate, &genTime, &rep.TickerCount,
		&rep.UptrendCount, &rep.DowntrendCount, &rep.SidewaysCount,
		&rep.TopMoversJSON, &rep.SummaryText, &rep.MarkdownPath, &rep.JSONPath)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan report: %w", err)
	}
	rep.RunDate, _ = time.ParseInLocation(dateLayout, runDate, time.UTC)
	rep.GeneratedAt, _ = time.Parse(time.RFC3339, genTime)
	return &rep, nil
}

// ReportCount returns the number of stored reports.
func (s *Store) ReportCount() (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM reports`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count reports: %w", err)
	}
	return n, nil
}

// EmailLog records one delivery attempt of the digest email.
type EmailLog struct {
	ReportID   int64
	Recipients []string
	Subject    string
	MessageID  string
	Status     string // "sent", "failed", "dry_run"
	ErrMessage string
}

// InsertEmailLog appends an email delivery record.
func (s *Store) InsertEmailLog(l *EmailLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	recipients, err := json.Marshal(l.Recipients)
	if err != nil {
		return fmt.Errorf("marshal recipients: %w", err)
	}
	_, err = s.db.Exec(`INSERT INTO email_logs
		(report_id, sent_at, recipients_json, subject, message_id, status, error_message)
		VALUES (?,?,?,?,?,?,?)`,
		l.ReportID, time.Now().UTC().Format(time.RFC3339),
		string(recipients), l.Subject, l.MessageID, l.Status, l.ErrMessage,
	)
	if err != nil {
		return fmt.Errorf("insert email log: %w", err)
	}
	return nil
}

// TweetLog records one attempt to post the digest tweet.
type TweetLog struct {
	ReportID   int64
	RunDate    time.Time
	Payload    string
	TweetID    string
	Status     string // "posted", "failed", "dry_run"
	ErrMessage string
}

// InsertTweetLog appends a tweet delivery record.
func (s *Store) InsertTweetLog(l *TweetLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	_, err := s.db.Exec(`INSERT INTO tweet_logs
		(report_id, posted_at, run_date, payload_text, tweet_id, status, error_message)
		VALUES (?,?,?,?,?,?,?)`,
		l.ReportID, time.Now().UTC().Format(time.RFC3339),
		l.RunDate.Format(dateLayout), l.Payload, l.TweetID, l.Status, l.ErrMessage,
	)
	if err != nil {
		return fmt.Errorf("insert tweet log: %w", err)
	}
	return nil
}

// HasTweetForDate reports whether a tweet was already posted for runDate.
func (s *Store) HasTweetForDate(runDate time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var one int
	err := s.db.QueryRow(`SELECT 1 FROM tweet_logs WHERE run_date = ? AND status = 'posted'`,
		runDate.Format(dateLayout)).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("query tweet log: %w", err)
	}
	return true, nil
}

// Close closes the underlying database.
func (s *Store) Close() error {
	return s.db.Close()
}
