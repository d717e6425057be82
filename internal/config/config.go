// Package config defines all configuration structures for foldbank.
// No I/O or parsing logic lives here, only plain data types and validation.
package config

import (
	"fmt"
	"time"

	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
)

// StorageBackend selects where structure artifacts are persisted.
type StorageBackend string

const (
	// BackendFS stores artifacts as files under a root directory, published
	// atomically via temp file + rename.
	BackendFS StorageBackend = "fs"
	// BackendMinIO stores artifacts in an S3-compatible object store.
	BackendMinIO StorageBackend = "minio"
)

// FSConfig holds local-filesystem artifact store parameters.
type FSConfig struct {
	Root string `mapstructure:"root"`
}

// MinIOConfig holds S3-compatible object-storage parameters.
type MinIOConfig struct {
	Endpoint  string `mapstructure:"endpoint"`
	AccessKey string `mapstructure:"access_key"`
	SecretKey string `mapstructure:"secret_key"`
	Bucket    string `mapstructure:"bucket"`
	UseSSL    bool   `mapstructure:"use_ssl"`
	Region    string `mapstructure:"region"`
}

// StorageConfig selects and configures the artifact store backend.
type StorageConfig struct {
	Backend StorageBackend `mapstructure:"backend"`
	FS      FSConfig       `mapstructure:"fs"`
	MinIO   MinIOConfig    `mapstructure:"minio"`
}

// RedisConfig holds descriptor-memoization cache parameters.  The cache is
// optional; when disabled descriptors are recomputed on every request.
type RedisConfig struct {
	Enabled      bool          `mapstructure:"enabled"`
	Addr         string        `mapstructure:"addr"`
	Password     string        `mapstructure:"password"`
	DB           int           `mapstructure:"db"`
	DialTimeout  time.Duration `mapstructure:"dial_timeout"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	DefaultTTL   time.Duration `mapstructure:"default_ttl"`
	KeyPrefix    string        `mapstructure:"key_prefix"`
}

// DatabaseConfig holds PostgreSQL parameters for the prediction-metadata
// registry.  Optional; when disabled no metadata rows are written.
type DatabaseConfig struct {
	Enabled         bool          `mapstructure:"enabled"`
	Host            string        `mapstructure:"host"`
	Port            int           `mapstructure:"port"`
	User            string        `mapstructure:"user"`
	Password        string        `mapstructure:"password"`
	DBName          string        `mapstructure:"db_name"`
	SSLMode         string        `mapstructure:"ssl_mode"`
	MaxOpenConns    int           `mapstructure:"max_open_conns"`
	MaxIdleConns    int           `mapstructure:"max_idle_conns"`
	ConnMaxLifetime time.Duration `mapstructure:"conn_max_lifetime"`
	MigrationsPath  string        `mapstructure:"migrations_path"`
}

// PredictorConfig holds structure-prediction model serving parameters.
type PredictorConfig struct {
	BaseURL      string        `mapstructure:"base_url"`
	Model        string        `mapstructure:"model"`
	Timeout      time.Duration `mapstructure:"timeout"`
	MaxBatchSize int           `mapstructure:"max_batch_size"`
}

// PipelineConfig holds fold/descriptor pipeline tunables.
type PipelineConfig struct {
	// ParseConcurrency bounds how many cached artifacts are parsed in
	// parallel during Ensure.
	ParseConcurrency int `mapstructure:"parse_concurrency"`
}

// MetricsConfig holds prometheus exposition parameters.
type MetricsConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	Namespace string `mapstructure:"namespace"`
	Addr      string `mapstructure:"addr"`
}

// Config is the root configuration for all foldbank processes.
type Config struct {
	Log       logging.Config  `mapstructure:"log"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Storage   StorageConfig   `mapstructure:"storage"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Predictor PredictorConfig `mapstructure:"predictor"`
	Pipeline  PipelineConfig  `mapstructure:"pipeline"`
}

// Validate checks cross-field consistency after defaults are applied.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case BackendFS:
		if c.Storage.FS.Root == "" {
			return fmt.Errorf("storage.fs.root is required for the fs backend")
		}
	case BackendMinIO:
		if c.Storage.MinIO.Endpoint == "" {
			return fmt.Errorf("storage.minio.endpoint is required for the minio backend")
		}
		if c.Storage.MinIO.Bucket == "" {
			return fmt.Errorf("storage.minio.bucket is required for the minio backend")
		}
	default:
		return fmt.Errorf("unknown storage backend %q", c.Storage.Backend)
	}

	if c.Predictor.BaseURL == "" {
		return fmt.Errorf("predictor.base_url is required")
	}
	if c.Predictor.MaxBatchSize <= 0 {
		return fmt.Errorf("predictor.max_batch_size must be positive")
	}
	if c.Pipeline.ParseConcurrency <= 0 {
		return fmt.Errorf("pipeline.parse_concurrency must be positive")
	}
	if c.Redis.Enabled && c.Redis.Addr == "" {
		return fmt.Errorf("redis.addr is required when redis is enabled")
	}
	if c.Database.Enabled && c.Database.Host == "" {
		return fmt.Errorf("database.host is required when the database is enabled")
	}
	return nil
}
