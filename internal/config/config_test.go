package config_test

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/didac-crst/mockexchange-api/internal/config"
)

func TestDefaultIsValid(t *testing.T) {
	assert.NoError(t, config.Default().Validate())
}

func TestLoadWithoutFileUsesDefaults(t *testing.T) {
	cfg, err := config.Load("")
	require.NoError(t, err)
	assert.Equal(t, config.Default().RedisAddr, cfg.RedisAddr)
	assert.Equal(t, 30, cfg.TickLoopSec)
}

func TestLoadYAMLOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("redis_addr: redis.internal:6380\ntick_loop_sec: 5\n"), 0o644))

	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, "redis.internal:6380", cfg.RedisAddr)
	assert.Equal(t, 5, cfg.TickLoopSec)
}

func TestLoadEnvOverridesYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tick_loop_sec: 5\n"), 0o644))

	t.Setenv("TICK_LOOP_SEC", "7")
	cfg, err := config.Load(path)
	require.NoError(t, err)
	assert.Equal(t, 7, cfg.TickLoopSec)
}

func TestLoadMissingFileIsNotAnError(t *testing.T) {
	dir := t.TempDir()
	cfg, err := config.Load(filepath.Join(dir, "does-not-exist.yaml"))
	require.NoError(t, err)
	assert.Equal(t, config.Default().HTTPPort, cfg.HTTPPort)
}

func TestDurationHelpers(t *testing.T) {
	cfg := config.Default()
	cfg.TickLoopSec = 10
	cfg.PruneEveryMin = 2
	cfg.ExpireAfterH = 1
	cfg.StaleAfterH = 3

	assert.Equal(t, 10_000_000_000, int(cfg.TickInterval()))
	assert.Equal(t, 2*60_000_000_000, int(cfg.PruneInterval()))
	assert.Equal(t, 3_600_000_000_000, int(cfg.ExpireAfter()))
	assert.Equal(t, 3*3_600_000_000_000, int(cfg.StaleAfter()))
}

func TestValidateRejectsInvertedLatencyWindow(t *testing.T) {
	cfg := config.Default()
	cfg.MinTimeAnswerOrderMarketSec = 5
	cfg.MaxTimeAnswerOrderMarketSec = 3
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsNegativeCommissionRate(t *testing.T) {
	cfg := config.Default()
	cfg.CommissionRate = cfg.CommissionRate.Neg()
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsEmptyCashAsset(t *testing.T) {
	cfg := config.Default()
	cfg.CashAsset = ""
	assert.Error(t, cfg.Validate())
}
