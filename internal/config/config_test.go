package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "0.0.0.0", cfg.Server.Host)
	assert.Equal(t, 8080, cfg.Server.Port)
	assert.Equal(t, 24*time.Hour, cfg.Aggregator.Interval)
	assert.Equal(t, 4, cfg.Aggregator.Concurrency)
	assert.Equal(t, 7*24*time.Hour, cfg.Tips.TTL)
	assert.Equal(t, "gpt-4o-mini", cfg.Advisor.Model)
	assert.Equal(t, 30*time.Second, cfg.Advisor.Timeout)
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("SERVER_PORT", "9090")
	t.Setenv("AGGREGATOR_INTERVAL", "1h")
	t.Setenv("TIP_TTL", "48h")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.Server.Port)
	assert.Equal(t, time.Hour, cfg.Aggregator.Interval)
	assert.Equal(t, 48*time.Hour, cfg.Tips.TTL)
}

func TestLoadInvalidPort(t *testing.T) {
	t.Setenv("SERVER_PORT", "99999")

	_, err := Load()
	assert.Error(t, err)
}

func TestValidateConcurrency(t *testing.T) {
	t.Setenv("AGGREGATOR_CONCURRENCY", "0")

	_, err := Load()
	assert.Error(t, err)
}
