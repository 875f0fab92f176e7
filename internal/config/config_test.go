package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("DATABASE_URL", "")
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "local", cfg.Env)
	assert.Equal(t, 20, cfg.Queue.SessionSize)
	assert.Equal(t, 5, cfg.Queue.MaxNewItems)
	assert.Equal(t, 5*time.Minute, cfg.Queue.CacheTTL)
	assert.Equal(t, 1, cfg.Scheduling.GraduatingInterval)
	assert.Equal(t, 365, cfg.Scheduling.MaxIntervalDays)
	assert.Equal(t, 8, cfg.Scheduling.LeechThreshold)
	assert.Equal(t, 5*time.Second, cfg.Sync.Timeout)
	assert.False(t, cfg.Sync.Premium, "mirroring is opt-in")
}

func TestMirrorEnabledRequiresPremiumAndDSN(t *testing.T) {
	cfg := &Config{}
	assert.False(t, cfg.MirrorEnabled())

	cfg.Sync.Premium = true
	assert.False(t, cfg.MirrorEnabled(), "premium without a connection string stays local-only")

	cfg.DB.URL = "postgres://localhost/review"
	assert.True(t, cfg.MirrorEnabled())

	cfg.Sync.Premium = false
	assert.False(t, cfg.MirrorEnabled(), "a connection string alone does not enable mirroring")
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SQLITE_PATH", "/tmp/review-test.db")
	t.Setenv("SYNC_PREMIUM", "true")
	t.Setenv("DATABASE_URL", "postgres://localhost/review")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "/tmp/review-test.db", cfg.SQLitePath)
	assert.True(t, cfg.Sync.Premium)
	assert.True(t, cfg.MirrorEnabled())
}
