package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PRICE_SOURCE", "DATA_DIR", "REQUESTS_PER_SECOND", "SHARPE_PERIODS", "MARKET_SYMBOL", "EVENT_THRESHOLD", "CACHE_ENABLED"} {
		t.Setenv(key, "")
	}

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "yahoo", cfg.PriceSource)
	assert.Equal(t, "data", cfg.DataDir)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
	assert.Equal(t, 2, cfg.RequestsPerSecond)
	assert.Equal(t, 0, cfg.SharpePeriods)
	assert.Equal(t, "SPY", cfg.MarketSymbol)
	assert.Equal(t, 10.0, cfg.EventThreshold)
	assert.Equal(t, "9095", cfg.Port)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PRICE_SOURCE", "CSV")
	t.Setenv("SHARPE_PERIODS", "252")
	t.Setenv("MARKET_SYMBOL", "qqq")
	t.Setenv("EVENT_THRESHOLD", "5.5")
	t.Setenv("CACHE_ENABLED", "false")
	t.Setenv("REQUEST_TIMEOUT", "not-a-number")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "csv", cfg.PriceSource)
	assert.Equal(t, 252, cfg.SharpePeriods)
	assert.Equal(t, "QQQ", cfg.MarketSymbol)
	assert.Equal(t, 5.5, cfg.EventThreshold)
	assert.False(t, cfg.CacheEnabled)
	assert.Equal(t, 15*time.Second, cfg.RequestTimeout)
}

func TestLoadRejects(t *testing.T) {
	tests := map[string]string{
		"PRICE_SOURCE":        "bloomberg",
		"REQUESTS_PER_SECOND": "0",
		"SHARPE_PERIODS":      "-1",
	}
	for key, value := range tests {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			assert.ErrorContains(t, err, key)
		})
	}
}

func TestRequireBot(t *testing.T) {
	err := Config{}.RequireBot()
	assert.ErrorContains(t, err, "TELEGRAM_BOT_TOKEN, WEBHOOK_PUBLIC_URL")

	assert.NoError(t, Config{TelegramToken: "t", WebhookPublicURL: "https://example.com"}.RequireBot())
}

func writeStudy(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "study.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestLoadStudy(t *testing.T) {
	path := writeStudy(t, `
start: 2011-01-01
end: 2011-12-31
symbols: [aapl, "GLD ", goog, xom]
allocation: [0.4, 0.4, 0.0, 0.2]
step: 0.1
method: grid
`)
	s, err := LoadStudy(path)
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "GLD", "GOOG", "XOM"}, s.Symbols)
	assert.Equal(t, []float64{0.4, 0.4, 0, 0.2}, s.Allocation)
	assert.Equal(t, "grid", s.Method)

	start, end, err := s.Range()
	require.NoError(t, err)
	assert.Equal(t, time.Date(2011, 1, 1, 0, 0, 0, 0, time.UTC), start)
	assert.Equal(t, time.Date(2011, 12, 31, 0, 0, 0, 0, time.UTC), end)
}

func TestLoadStudyErrors(t *testing.T) {
	tests := map[string]string{
		"no symbols":     "start: 2011-01-01\nend: 2011-12-31\n",
		"weight count":   "start: 2011-01-01\nend: 2011-12-31\nsymbols: [A, B]\nallocation: [1]\n",
		"reversed range": "start: 2011-12-31\nend: 2011-01-01\nsymbols: [A]\n",
		"bad date":       "start: 01/01/2011\nend: 2011-01-01\nsymbols: [A]\n",
		"not yaml":       "symbols: [A\n",
	}
	for name, body := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := LoadStudy(writeStudy(t, body))
			assert.Error(t, err)
		})
	}

	_, err := LoadStudy(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
