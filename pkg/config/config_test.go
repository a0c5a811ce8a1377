package config

import (
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
)

func TestDefaults(t *testing.T) {
	v := viper.New()
	setDefaults(v)

	cfg := fromViper(v)

	assert.Equal(t, StoreMemory, cfg.Store.Driver)
	assert.Equal(t, "./assignments.db", cfg.Store.SQLitePath)
	assert.Equal(t, 6, cfg.Engine.CooldownWeeks)
	assert.InDelta(t, 500.0, cfg.Engine.CooldownPenalty, 0.001)
	assert.InDelta(t, 0.1, cfg.Engine.WeightHelper, 0.001)
	assert.True(t, cfg.Engine.PreferFamily)
	assert.Equal(t, 2*time.Second, cfg.Workflow.PromotionRetryDelay)
	assert.Equal(t, 10*time.Minute, cfg.Stats.CacheTTL)
	assert.Equal(t, ',', cfg.Export.CSVDelimiter)
}

func TestOverrides(t *testing.T) {
	v := viper.New()
	setDefaults(v)
	v.Set("STORE_DRIVER", " SQLite ")
	v.Set("ENGINE_COOLDOWN_WEEKS", 4)
	v.Set("WORKFLOW_PROMOTION_RETRY_DELAY", "not-a-duration")
	v.Set("ALLOWED_ORIGINS", "http://a.test, ,http://b.test")
	v.Set("EXPORT_CSV_DELIMITER", " ; ")

	cfg := fromViper(v)

	assert.Equal(t, StoreSQLite, cfg.Store.Driver)
	assert.Equal(t, 4, cfg.Engine.CooldownWeeks)
	assert.Equal(t, 2*time.Second, cfg.Workflow.PromotionRetryDelay)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.CORS.AllowedOrigins)
	assert.Equal(t, ';', cfg.Export.CSVDelimiter)
}
