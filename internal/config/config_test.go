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

	assert.Equal(t, 0.80, cfg.Flow.Thresholds.Angry)
	assert.Equal(t, 2, cfg.Flow.SLA.P0)
	assert.Equal(t, 4320, cfg.Flow.SLA.P3)
	assert.Equal(t, "America/New_York", cfg.Flow.Timezone)
	assert.Equal(t, 20, cfg.RateLimit.MaxRequests)
	assert.Equal(t, time.Minute, cfg.RateLimit.Window())
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("THRESHOLD_ANGRY", "0.9")
	t.Setenv("RATE_LIMIT_MAX_REQUESTS", "5")
	t.Setenv("BUSINESS_START_HOUR", "8")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.9, cfg.Flow.Thresholds.Angry)
	assert.Equal(t, 5, cfg.RateLimit.MaxRequests)
	assert.Equal(t, 8, cfg.Flow.BusinessStartHour)
}

func TestLoadRejectsInvertedBusinessHours(t *testing.T) {
	t.Setenv("BUSINESS_START_HOUR", "18")
	t.Setenv("BUSINESS_END_HOUR", "9")

	_, err := Load()
	assert.Error(t, err)
}

func TestLoadIgnoresMalformedNumbers(t *testing.T) {
	t.Setenv("THRESHOLD_NEUTRAL", "high")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.60, cfg.Flow.Thresholds.Neutral)
}
