package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("PORT", "")
	t.Setenv("HISTORY_DAYS", "")
	t.Setenv("MODEL_DIR", "")
	t.Setenv("MODEL_ID", "")
	t.Setenv("HISTORY_CACHE_TTL", "")
	t.Setenv("GO_ENV", "")

	cfg, _ := Load()
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, 30, cfg.HistoryDays)
	assert.Equal(t, "models", cfg.ModelDir)
	assert.Equal(t, "speed_model", cfg.ModelID)
	assert.Equal(t, 5*time.Minute, cfg.HistoryCacheTTL)
	assert.False(t, cfg.IsProduction())
}

func TestLoad_Overrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("HISTORY_DAYS", "14")
	t.Setenv("HISTORY_CACHE_TTL", "90s")
	t.Setenv("FORECAST_MAX_HORIZON", "not-a-number")
	t.Setenv("GO_ENV", "Production")

	cfg, _ := Load()
	assert.Equal(t, "9090", cfg.Port)
	assert.Equal(t, 14, cfg.HistoryDays)
	assert.Equal(t, 90*time.Second, cfg.HistoryCacheTTL)
	assert.Equal(t, 24, cfg.MaxForecastHorizon)
	assert.True(t, cfg.IsProduction())
}
