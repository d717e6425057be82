package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"
)

// envPrefix is the environment variable prefix for all foldbank settings.
const envPrefix = "FOLDBANK"

// configKeys lists every leaf configuration key.  Viper only consults the
// environment for keys it already knows about, so without a config file
// each key must be bound explicitly for FOLDBANK_* variables to take
// effect.
var configKeys = []string{
	"log.level",
	"log.format",
	"log.output_paths",
	"metrics.enabled",
	"metrics.namespace",
	"metrics.addr",
	"storage.backend",
	"storage.fs.root",
	"storage.minio.endpoint",
	"storage.minio.access_key",
	"storage.minio.secret_key",
	"storage.minio.bucket",
	"storage.minio.use_ssl",
	"storage.minio.region",
	"redis.enabled",
	"redis.addr",
	"redis.password",
	"redis.db",
	"redis.dial_timeout",
	"redis.read_timeout",
	"redis.write_timeout",
	"redis.default_ttl",
	"redis.key_prefix",
	"database.enabled",
	"database.host",
	"database.port",
	"database.user",
	"database.password",
	"database.db_name",
	"database.ssl_mode",
	"database.max_open_conns",
	"database.max_idle_conns",
	"database.conn_max_lifetime",
	"database.migrations_path",
	"predictor.base_url",
	"predictor.model",
	"predictor.timeout",
	"predictor.max_batch_size",
	"pipeline.parse_concurrency",
}

// newViper builds a pre-configured viper instance: YAML file type,
// FOLDBANK_ env prefix, automatic env binding, and a key replacer mapping
// "." to "_" so "storage.fs.root" resolves to FOLDBANK_STORAGE_FS_ROOT.
func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(envPrefix)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, key := range configKeys {
		_ = v.BindEnv(key)
	}
	return v
}

// Load reads the YAML file at configPath, merges FOLDBANK_* environment
// overrides, applies defaults, and validates the result.
func Load(configPath string) (*Config, error) {
	v := newViper()
	v.SetConfigFile(configPath)

	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("config: failed to read config file %q: %w", configPath, err)
	}
	return unmarshalAndFinalize(v)
}

// LoadFromEnv builds a Config entirely from FOLDBANK_* environment variables
// and defaults, with no config file.  Preferred for containerised runs.
func LoadFromEnv() (*Config, error) {
	return unmarshalAndFinalize(newViper())
}

func unmarshalAndFinalize(v *viper.Viper) (*Config, error) {
	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("config: failed to unmarshal configuration: %w", err)
	}

	ApplyDefaults(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config: validation failed: %w", err)
	}
	return cfg, nil
}
