package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/foldbank/foldbank/internal/infrastructure/database/postgres"
	"github.com/foldbank/foldbank/internal/infrastructure/monitoring/logging"
	"github.com/foldbank/foldbank/pkg/errors"
)

// predictionLister is the slice of the prediction repository the command
// needs.
type predictionLister interface {
	Count(ctx context.Context) (int64, error)
	ListRecent(ctx context.Context, limit int) ([]*postgres.PredictionRecord, error)
}

func newCacheStatCmd(opts *RootOptions) *cobra.Command {
	var limit int
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "cache-stat",
		Short: "Show prediction-metadata statistics",
		Long: "cache-stat reports how many structures have been predicted and lists\n" +
			"the most recent entries from the metadata registry.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				printErr(err)
				return err
			}
			if !cfg.Database.Enabled {
				err := errors.New(errors.ErrCodeValidation,
					"cache-stat requires the metadata registry: set database.enabled")
				printErr(err)
				return err
			}

			logger, err := logging.NewLogger(cfg.Log)
			if err != nil {
				printErr(err)
				return err
			}
			conn, err := postgres.NewConnection(cfg.Database, logger)
			if err != nil {
				printErr(err)
				return err
			}
			defer conn.Close()

			repo := postgres.NewPredictionRepository(conn)
			return runCacheStat(cmd.Context(), repo, limit, cmd.OutOrStdout(), jsonOut)
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 20, "number of recent entries to list")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit JSON instead of text rows")
	return cmd
}

// cacheStat is the JSON output shape.
type cacheStat struct {
	Total  int64                        `json:"total"`
	Recent []*postgres.PredictionRecord `json:"recent"`
}

func runCacheStat(ctx context.Context, repo predictionLister, limit int, w io.Writer, jsonOut bool) error {
	total, err := repo.Count(ctx)
	if err != nil {
		return err
	}
	recent, err := repo.ListRecent(ctx, limit)
	if err != nil {
		return err
	}

	if jsonOut {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(cacheStat{Total: total, Recent: recent})
	}

	fmt.Fprintf(w, "predictions: %d\n", total)
	for _, r := range recent {
		fmt.Fprintf(w, "%s  %4d res  plddt %5.1f  %-10s  %s\n",
			r.SequenceDigest, r.ResidueCount, r.MeanPLDDT, r.Model,
			r.CreatedAt.Format("2006-01-02 15:04"))
	}
	return nil
}
