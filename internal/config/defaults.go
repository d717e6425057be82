package config

import "time"

// ApplyDefaults fills in platform defaults for any unset field.  It never
// overrides a value the operator supplied.
func ApplyDefaults(c *Config) {
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "json"
	}

	if c.Metrics.Namespace == "" {
		c.Metrics.Namespace = "foldbank"
	}
	if c.Metrics.Addr == "" {
		c.Metrics.Addr = ":9090"
	}

	if c.Storage.Backend == "" {
		c.Storage.Backend = BackendFS
	}
	if c.Storage.FS.Root == "" {
		c.Storage.FS.Root = "pdb"
	}
	if c.Storage.MinIO.Region == "" {
		c.Storage.MinIO.Region = "us-east-1"
	}
	if c.Storage.MinIO.Bucket == "" {
		c.Storage.MinIO.Bucket = "foldbank-structures"
	}

	if c.Redis.DialTimeout == 0 {
		c.Redis.DialTimeout = 5 * time.Second
	}
	if c.Redis.ReadTimeout == 0 {
		c.Redis.ReadTimeout = 3 * time.Second
	}
	if c.Redis.WriteTimeout == 0 {
		c.Redis.WriteTimeout = 3 * time.Second
	}
	if c.Redis.DefaultTTL == 0 {
		c.Redis.DefaultTTL = 24 * time.Hour
	}
	if c.Redis.KeyPrefix == "" {
		c.Redis.KeyPrefix = "foldbank:"
	}

	if c.Database.Port == 0 {
		c.Database.Port = 5432
	}
	if c.Database.SSLMode == "" {
		c.Database.SSLMode = "disable"
	}
	if c.Database.MaxOpenConns == 0 {
		c.Database.MaxOpenConns = 10
	}
	if c.Database.MaxIdleConns == 0 {
		c.Database.MaxIdleConns = 5
	}
	if c.Database.ConnMaxLifetime == 0 {
		c.Database.ConnMaxLifetime = 30 * time.Minute
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "file://migrations"
	}

	if c.Predictor.Model == "" {
		c.Predictor.Model = "esmfold_v1"
	}
	if c.Predictor.Timeout == 0 {
		c.Predictor.Timeout = 10 * time.Minute
	}
	if c.Predictor.MaxBatchSize == 0 {
		c.Predictor.MaxBatchSize = 8
	}

	if c.Pipeline.ParseConcurrency == 0 {
		c.Pipeline.ParseConcurrency = 4
	}
}
