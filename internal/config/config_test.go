package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("TELEGRAM_BOT_TOKEN", "")

	cfg := Load()

	assert.Equal(t, "8080", cfg.ServerPort)
	assert.Equal(t, "tasks.db", cfg.DatabasePath)
	assert.Equal(t, "", cfg.TelegramBotToken)
	assert.Equal(t, 20, cfg.TelegramPollTimeout)
	assert.False(t, cfg.NATSEnabled)
	assert.Equal(t, time.Minute, cfg.RateLimitWindow)
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("TELEGRAM_BOT_TOKEN", "abc")
	t.Setenv("TELEGRAM_POLL_INTERVAL", "250ms")
	t.Setenv("NATS_ENABLED", "true")
	t.Setenv("RATE_LIMIT_REQUESTS", "not-a-number")

	cfg := Load()

	assert.Equal(t, "9000", cfg.ServerPort)
	assert.Equal(t, "abc", cfg.TelegramBotToken)
	assert.Equal(t, 250*time.Millisecond, cfg.TelegramPollInterval)
	assert.True(t, cfg.NATSEnabled)
	assert.Equal(t, 60, cfg.RateLimitRequests)
}
