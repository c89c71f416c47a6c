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

	assert.Equal(t, "info", cfg.Log.Level)
	assert.Equal(t, 8080, cfg.API.Port)
	assert.Equal(t, 30*time.Minute, cfg.Cache.IndicatorTTL)
	assert.Equal(t, "14:29:00", cfg.Backtest.TrailingGuardTime)
	assert.Equal(t, "Asia/Ho_Chi_Minh", cfg.Backtest.Timezone)
	assert.Equal(t, 50, cfg.Optimizer.PopulationSize)
}

func TestLoadEnvOverride(t *testing.T) {
	t.Setenv("BACKTEST_FEE_PER_TRADE", "1.25")
	t.Setenv("OPTIMIZER_MAX_WORKERS", "3")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 1.25, cfg.Backtest.FeePerTrade)
	assert.Equal(t, 3, cfg.Optimizer.MaxWorkers)
}
