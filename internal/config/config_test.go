package config

import (
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testConfig = `
api:
  environment: test
  port: "9090"
  jwt_signing_key: secret
log:
  level: debug
cache:
  backend: redis
  redis_addr: cache:6379
  not_found_ttl: 30s
admission:
  default_grace_window: 90m
  max_bulk_items: 50
occupancy:
  workers: 4
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o600))
	return path
}

func TestLoad(t *testing.T) {
	conf, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, "test", conf.API.Environment)
	assert.Equal(t, "9090", conf.API.Port)
	assert.Equal(t, 10*time.Second, conf.API.RequestTimeout)
	assert.Equal(t, CacheBackendRedis, conf.Cache.Backend)
	assert.Equal(t, "cache:6379", conf.Cache.RedisAddr)
	assert.Equal(t, 30*time.Second, conf.Cache.NotFoundTTL)
	assert.Zero(t, conf.Cache.ValueTTL)
	assert.Equal(t, 90*time.Minute, conf.Admission.DefaultGraceWindow)
	assert.Equal(t, 50, conf.Admission.MaxBulkItems)
	assert.Equal(t, 4, conf.Occupancy.Workers)
	assert.Equal(t, 1024, conf.Occupancy.QueueSize)
	assert.Equal(t, "disable", conf.Postgres.SSLMode)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("CACHE_BACKEND", "disabled")
	t.Setenv("POSTGRES_HOST", "db.internal")

	conf, err := Load(writeConfig(t, testConfig))
	require.NoError(t, err)

	assert.Equal(t, CacheBackendDisabled, conf.Cache.Backend)
	assert.Equal(t, "db.internal", conf.Postgres.Host)
	assert.Contains(t, conf.Postgres.DSN(), "host=db.internal")
}

func TestLoad_Errors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yml"))
	assert.Error(t, err)

	_, err = Load(writeConfig(t, "cache:\n  backend: memcached\n"))
	assert.ErrorContains(t, err, "cache.backend")
}

func TestWatch(t *testing.T) {
	path := writeConfig(t, testConfig)

	var level atomic.Value
	err := Watch(path, func(conf *AppConfig, _ fsnotify.Event) {
		level.Store(conf.Log.Level)
	})
	require.NoError(t, err)

	require.NoError(t, os.WriteFile(path, []byte("log:\n  level: warn\n"), 0o600))

	assert.Eventually(t, func() bool {
		v, _ := level.Load().(string)
		return v == "warn"
	}, 3*time.Second, 20*time.Millisecond)
}
