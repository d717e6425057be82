package cli

import (
	"github.com/spf13/cobra"

	"github.com/foldbank/foldbank/internal/infrastructure/database/postgres"
	"github.com/foldbank/foldbank/pkg/errors"
)

func newMigrateCmd(opts *RootOptions) *cobra.Command {
	var down int

	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply (or roll back) metadata registry schema migrations",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(opts)
			if err != nil {
				printErr(err)
				return err
			}
			if !cfg.Database.Enabled {
				return errors.New(errors.ErrCodeValidation,
					"metadata registry is disabled, nothing to migrate")
			}

			dsn := postgres.BuildDSN(cfg.Database)
			if down > 0 {
				return postgres.RollbackMigrations(dsn, cfg.Database.MigrationsPath, down)
			}
			return postgres.RunMigrations(dsn, cfg.Database.MigrationsPath)
		},
	}

	cmd.Flags().IntVar(&down, "down", 0, "roll back this many migration steps instead of applying")
	return cmd
}
