package main

import (
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/sandeepkv93/ritualcal/internal/config"
	"github.com/sandeepkv93/ritualcal/internal/docstore"
)

func newMigrateCmd(stdout io.Writer) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply the calendar schema to the configured database",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			down, _ := cmd.Flags().GetBool("down")
			switch cfg.Store {
			case config.StorePostgres:
				if down {
					return fmt.Errorf("down migrations are only supported for sqlite")
				}
				pool, err := docstore.NewPostgresPool(cmd.Context(), cfg.DatabaseURL)
				if err != nil {
					return err
				}
				defer pool.Close()
				if err := docstore.MigratePostgres(cmd.Context(), pool); err != nil {
					return err
				}
			case config.StoreSQLite:
				lite, err := docstore.OpenSQLite(cfg.SQLitePath)
				if err != nil {
					return err
				}
				defer lite.Close()
				migrate := docstore.MigrateUp
				if down {
					migrate = docstore.MigrateDown
				}
				if err := migrate(lite.DB()); err != nil {
					return err
				}
			default:
				return fmt.Errorf("store %q has no schema", cfg.Store)
			}
			_, err = fmt.Fprintf(stdout, "migrated %s store\n", cfg.Store)
			return err
		},
	}
	cmd.Flags().Bool("down", false, "revert every migration (sqlite only)")
	return cmd
}
