package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Equal(t, 62.0, cfg.Thresholds.UptrendMin)
	assert.Equal(t, 38.0, cfg.Thresholds.DowntrendMax)
	assert.Equal(t, 2.0, cfg.Thresholds.VolumeAnomalyMultiplier)
	assert.Equal(t, 5, cfg.Thresholds.TopMoversCount)
	assert.Equal(t, 300, cfg.History.SeriesLimit)
	assert.Equal(t, "yahoo", cfg.Provider.Name)
	assert.Equal(t, 280, cfg.Twitter.MaxChars)
	assert.Equal(t, "America/New_York", cfg.Schedule.Timezone)
}

func TestLoad_FileAndEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
watchlist:
  tickers: [AAPL, MSFT]
thresholds:
  uptrend_min: 65
database:
  sqlite_path: from-file.db
`), 0o644))

	t.Setenv("SQLITE_PATH", "from-env.db")
	t.Setenv("TICKERS", "NVDA, GOOG")
	t.Setenv("DRY_RUN", "true")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 65.0, cfg.Thresholds.UptrendMin)
	assert.Equal(t, "from-env.db", cfg.Database.SQLitePath, "env wins over file")
	assert.Equal(t, []string{"NVDA", "GOOG"}, cfg.Watchlist.Tickers)
	assert.True(t, cfg.DryRun)
}

func TestValidate(t *testing.T) {
	cfg, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.NoError(t, err)

	assert.Error(t, cfg.Validate(), "empty watchlist must fail")

	cfg.Watchlist.Tickers = []string{"AAPL"}
	assert.NoError(t, cfg.Validate())

	cfg.Thresholds.DowntrendMax = 70.0
	assert.Error(t, cfg.Validate(), "inverted thresholds must fail")
	cfg.Thresholds.DowntrendMax = 38.0

	cfg.Provider.Name = "alphavantage"
	assert.Error(t, cfg.Validate(), "alphavantage needs an api key")
	cfg.Provider.APIKey = "demo"
	assert.NoError(t, cfg.Validate())

	cfg.Email.Enabled = true
	assert.Error(t, cfg.Validate(), "email enabled without smtp settings must fail")
	cfg.Email.Enabled = false

	cfg.Twitter.MaxChars = -1
	assert.Error(t, cfg.Validate(), "negative max_chars must fail")
	cfg.Twitter.MaxChars = 280
	assert.NoError(t, cfg.Validate())
}
