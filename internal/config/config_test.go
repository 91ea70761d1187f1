package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "arbitrage-server", cfg.ServiceName)
	assert.Equal(t, []string{"BTC"}, cfg.Assets)
	assert.Equal(t, time.Second, cfg.PollInterval)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, "https://api.wallex.ir", cfg.WallexBaseURL)
	assert.Equal(t, "https://apiv2.nobitex.ir", cfg.NobitexBaseURL)
	assert.True(t, cfg.TelegramEnabled)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("ASSETS", "btc, eth ,usdt")
	t.Setenv("POLL_INTERVAL", "30s")
	t.Setenv("TELEGRAM_ENABLED", "false")

	cfg := Load()

	assert.Equal(t, []string{"BTC", "ETH", "USDT"}, cfg.Assets)
	assert.Equal(t, 30*time.Second, cfg.PollInterval)
	assert.False(t, cfg.TelegramEnabled)
}

func TestSplitAssets(t *testing.T) {
	assert.Equal(t, []string{"BTC"}, splitAssets("BTC"))
	assert.Equal(t, []string{"BTC", "ETH"}, splitAssets("btc,,eth,"))
	assert.Empty(t, splitAssets(""))
}
