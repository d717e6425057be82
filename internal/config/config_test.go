package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const validYAML = `
log:
  level: debug
  format: console
storage:
  backend: fs
  fs:
    root: /var/lib/foldbank/pdb
predictor:
  base_url: http://esmfold:8080
  model: esmfold_v1
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad(t *testing.T) {
	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Log.Level)
	assert.Equal(t, "console", cfg.Log.Format)
	assert.Equal(t, BackendFS, cfg.Storage.Backend)
	assert.Equal(t, "/var/lib/foldbank/pdb", cfg.Storage.FS.Root)
	assert.Equal(t, "http://esmfold:8080", cfg.Predictor.BaseURL)

	// Defaults fill what the file omits.
	assert.Equal(t, 8, cfg.Predictor.MaxBatchSize)
	assert.Equal(t, 10*time.Minute, cfg.Predictor.Timeout)
	assert.Equal(t, 4, cfg.Pipeline.ParseConcurrency)
	assert.Equal(t, "foldbank", cfg.Metrics.Namespace)
	assert.Equal(t, "foldbank:", cfg.Redis.KeyPrefix)
}

func TestLoad_EnvOverride(t *testing.T) {
	t.Setenv("FOLDBANK_LOG_LEVEL", "warn")

	cfg, err := Load(writeConfig(t, validYAML))
	require.NoError(t, err)
	assert.Equal(t, "warn", cfg.Log.Level)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoad_InvalidBackend(t *testing.T) {
	_, err := Load(writeConfig(t, `
storage:
  backend: tape
predictor:
  base_url: http://esmfold:8080
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "storage backend")
}

func TestLoad_MinIOBackendRequiresEndpoint(t *testing.T) {
	_, err := Load(writeConfig(t, `
storage:
  backend: minio
predictor:
  base_url: http://esmfold:8080
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "minio.endpoint")
}

func TestLoad_RedisEnabledRequiresAddr(t *testing.T) {
	_, err := Load(writeConfig(t, validYAML+`
redis:
  enabled: true
`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "redis.addr")
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("FOLDBANK_PREDICTOR_BASE_URL", "http://esmfold:8080")
	t.Setenv("FOLDBANK_STORAGE_FS_ROOT", "/var/lib/foldbank/pdb")
	t.Setenv("FOLDBANK_REDIS_ENABLED", "true")
	t.Setenv("FOLDBANK_REDIS_ADDR", "redis:6379")
	t.Setenv("FOLDBANK_PREDICTOR_TIMEOUT", "5m")

	cfg, err := LoadFromEnv()
	require.NoError(t, err)
	assert.Equal(t, "http://esmfold:8080", cfg.Predictor.BaseURL)
	assert.Equal(t, "/var/lib/foldbank/pdb", cfg.Storage.FS.Root)
	assert.True(t, cfg.Redis.Enabled)
	assert.Equal(t, "redis:6379", cfg.Redis.Addr)
	assert.Equal(t, 5*time.Minute, cfg.Predictor.Timeout)

	// Defaults still fill what the environment omits.
	assert.Equal(t, "esmfold_v1", cfg.Predictor.Model)
	assert.Equal(t, BackendFS, cfg.Storage.Backend)
}

func TestLoadFromEnv_MissingPredictor(t *testing.T) {
	_, err := LoadFromEnv()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "predictor.base_url")
}

func TestValidate_Defaults(t *testing.T) {
	cfg := &Config{}
	ApplyDefaults(cfg)
	cfg.Predictor.BaseURL = "http://localhost:8080"

	require.NoError(t, cfg.Validate())
	assert.Equal(t, BackendFS, cfg.Storage.Backend)
	assert.Equal(t, "pdb", cfg.Storage.FS.Root)
	assert.Equal(t, 24*time.Hour, cfg.Redis.DefaultTTL)
	assert.Equal(t, 5432, cfg.Database.Port)
}
