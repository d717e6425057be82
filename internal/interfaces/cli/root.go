// Package cli implements the foldbank command tree.
package cli

import (
	"context"
	"fmt"
	"net/http"
	"os"

	"github.com/spf13/cobra"

	"github.com/foldbank/foldbank/internal/application/descriptor"
	"github.com/foldbank/foldbank/internal/application/fold"
	"github.com/foldbank/foldbank/internal/config"
	"github.com/foldbank/foldbank/internal/infrastructure/database/postgres"
	"github.com/foldbank/foldbank/internal/infrastructure/database/redis"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/prometheus"
	"github.com/foldbank/foldbank/internal/infrastructure/storage"
	fsstore "github.com/foldbank/foldbank/internal/infrastructure/storage/fs"
	miniostore "github.com/foldbank/foldbank/internal/infrastructure/storage/minio"
	"github.com/foldbank/foldbank/internal/intelligence/esmfold"
	"github.com/foldbank/foldbank/pkg/errors"
)

// Build-time variables injected via ldflags.
var (
	Version   = "dev"
	GitCommit = "unknown"
	BuildDate = "unknown"
)

// RootOptions holds global CLI flags.
type RootOptions struct {
	ConfigPath string
	LogLevel   string
}

// App carries the wired services through the command tree.
type App struct {
	Config     *config.Config
	Logger     logging.Logger
	Fold       *fold.Service
	Descriptor *descriptor.Service

	closers []func() error
}

// Close releases every connection the wiring opened.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			a.Logger.Warn("close failed", logging.Err(err))
		}
	}
}

// NewRootCommand creates the root command with global flags and all
// subcommands attached.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "foldbank",
		Short: "Structure prediction cache and geometric descriptor pipeline",
		Long: "foldbank caches predicted protein structures by sequence digest and\n" +
			"derives geometric descriptors (pairwise distances, backbone rotation\n" +
			"quaternions) from the cached structures.",
		Version:       fmt.Sprintf("%s (commit: %s, built: %s)", Version, GitCommit, BuildDate),
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "config file path (default: environment only)")
	pf.StringVar(&opts.LogLevel, "log-level", "", "log level override (debug, info, warn, error)")

	cmd.AddCommand(
		newFoldCmd(opts),
		newDescribeCmd(opts),
		newMigrateCmd(opts),
		newCacheStatCmd(opts),
		newVersionCmd(),
	)
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "foldbank %s\ncommit: %s\nbuilt:  %s\n",
				Version, GitCommit, BuildDate)
		},
	}
}

// Execute runs the CLI.
func Execute() error {
	return NewRootCommand().Execute()
}

// loadConfig resolves the configuration from file or environment and
// applies flag overrides.
func loadConfig(opts *RootOptions) (*config.Config, error) {
	var cfg *config.Config
	var err error
	if opts.ConfigPath != "" {
		cfg, err = config.Load(opts.ConfigPath)
	} else {
		cfg, err = config.LoadFromEnv()
	}
	if err != nil {
		return nil, err
	}
	if opts.LogLevel != "" {
		cfg.Log.Level = opts.LogLevel
	}
	return cfg, nil
}

// buildApp wires services from configuration.  Only enabled backends are
// connected.
func buildApp(opts *RootOptions) (*App, error) {
	cfg, err := loadConfig(opts)
	if err != nil {
		return nil, err
	}

	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, err
	}

	app := &App{Config: cfg, Logger: logger}

	collector, err := prometheus.NewMetricsCollector(prometheus.CollectorConfig{
		Namespace: cfg.Metrics.Namespace,
	}, logger)
	if err != nil {
		return nil, err
	}
	metrics := prometheus.NewPipelineMetrics(collector)
	if cfg.Metrics.Enabled && cfg.Metrics.Addr != "" {
		serveMetrics(cfg.Metrics.Addr, collector, logger)
	}

	store, err := buildStore(cfg, logger)
	if err != nil {
		return nil, err
	}

	predictor, err := esmfold.NewHTTPPredictor(esmfold.Config{
		BaseURL:      cfg.Predictor.BaseURL,
		Model:        cfg.Predictor.Model,
		Timeout:      cfg.Predictor.Timeout,
		MaxBatchSize: cfg.Predictor.MaxBatchSize,
	}, logger)
	if err != nil {
		return nil, err
	}

	var recorder fold.PredictionRecorder
	if cfg.Database.Enabled {
		conn, err := postgres.NewConnection(cfg.Database, logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, conn.Close)
		recorder = postgres.NewPredictionRepository(conn)
	}

	app.Fold = fold.NewService(store, predictor, recorder, metrics, logger, fold.Config{
		Model:            cfg.Predictor.Model,
		Backend:          string(cfg.Storage.Backend),
		ParseConcurrency: cfg.Pipeline.ParseConcurrency,
	})

	var cache redis.Cache
	if cfg.Redis.Enabled {
		client, err := redis.NewClient(cfg.Redis, logger)
		if err != nil {
			return nil, err
		}
		app.closers = append(app.closers, client.Close)
		cache = redis.NewCache(client, logger,
			redis.WithPrefix(cfg.Redis.KeyPrefix),
			redis.WithDefaultTTL(cfg.Redis.DefaultTTL))
	}

	app.Descriptor = descriptor.NewService(
		foldLoader{app.Fold}, cache, cfg.Redis.DefaultTTL, metrics, logger)
	return app, nil
}

func buildStore(cfg *config.Config, logger logging.Logger) (storage.ArtifactStore, error) {
	switch cfg.Storage.Backend {
	case config.BackendFS:
		return fsstore.NewStore(fsstore.Config{Root: cfg.Storage.FS.Root}, logger)
	case config.BackendMinIO:
		return miniostore.NewStore(miniostore.Config{
			Endpoint:        cfg.Storage.MinIO.Endpoint,
			AccessKeyID:     cfg.Storage.MinIO.AccessKey,
			SecretAccessKey: cfg.Storage.MinIO.SecretKey,
			UseSSL:          cfg.Storage.MinIO.UseSSL,
			Region:          cfg.Storage.MinIO.Region,
			Bucket:          cfg.Storage.MinIO.Bucket,
		}, logger)
	default:
		return nil, errors.Newf(errors.ErrCodeValidation,
			"unknown storage backend %q", cfg.Storage.Backend)
	}
}

// serveMetrics exposes the prometheus endpoint in the background for
// long-running invocations.
func serveMetrics(addr string, collector prometheus.MetricsCollector, logger logging.Logger) {
	mux := http.NewServeMux()
	mux.Handle("/metrics", collector.Handler())
	go func() {
		if err := http.ListenAndServe(addr, mux); err != nil {
			logger.Warn("metrics endpoint stopped", logging.Err(err))
		}
	}()
}

// foldLoader adapts the fold service to the descriptor loader interface.
type foldLoader struct {
	svc *fold.Service
}

func (l foldLoader) Load(ctx context.Context, raw string) (*descriptor.LoadedStructure, error) {
	r, err := l.svc.Load(ctx, raw)
	if err != nil {
		return nil, err
	}
	return &descriptor.LoadedStructure{
		Sequence:  r.Sequence,
		Digest:    r.Digest,
		Structure: r.Structure,
	}, nil
}

// printErr writes a uniform error line for command failures.
func printErr(err error) {
	fmt.Fprintf(os.Stderr, "Error: %v\n", err)
}
