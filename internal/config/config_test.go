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
	assert.Equal(t, "comms-audit-service", cfg.App.Name)
	assert.Equal(t, "0.0.0.0:8080", cfg.App.Addr())
	assert.Equal(t, 30*time.Second, cfg.App.RequestTimeout())
	assert.Equal(t, time.Minute, cfg.Redis.CacheTTL)
	assert.Equal(t, 2*time.Second, cfg.TicketService.Timeout())
	assert.Equal(t, 3, cfg.Alert.FailureThreshold)
	assert.Equal(t, 50, cfg.Backoff.InitialDelayMS)
	assert.Equal(t, 3, cfg.Backoff.MaxAttempts)
}

func TestLoadReadsEnvironmentOverrides(t *testing.T) {
	t.Setenv("APP_PORT", "9191")
	t.Setenv("TICKET_SERVICE_TIMEOUT_MS", "500")
	t.Setenv("ANALYTICS_CACHE_TTL_SECONDS", "5")
	t.Setenv("ALERT_FAILURE_THRESHOLD", "7")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, "9191", cfg.App.Port)
	assert.Equal(t, 500*time.Millisecond, cfg.TicketService.Timeout())
	assert.Equal(t, 5*time.Second, cfg.Redis.CacheTTL)
	assert.Equal(t, 7, cfg.Alert.FailureThreshold)
}

func TestLoadRejectsMalformedRedisDB(t *testing.T) {
	t.Setenv("REDIS_DB", "not-a-number")

	_, err := Load()

	require.Error(t, err)
}

func TestGetEnvAsIntFallsBackOnGarbage(t *testing.T) {
	t.Setenv("POSTGRES_MAX_CONNS", "many")

	cfg, err := Load()

	require.NoError(t, err)
	assert.Equal(t, int32(10), cfg.Postgres.MaxConns)
}
