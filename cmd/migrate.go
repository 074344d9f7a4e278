package cmd

import (
	"context"

	"flickr-mirror/internal/repository"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply pending database migrations",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}

		db, err := repository.Connect(context.Background(), cfg.Database.DSN())
		if err != nil {
			return err
		}
		defer db.Close()

		if err := repository.MigrateUp(db); err != nil {
			return err
		}
		version, dirty, err := repository.MigrationVersion(db)
		if err != nil {
			return err
		}
		log.Info().Uint("version", version).Bool("dirty", dirty).Msg("Database migrated")
		return nil
	},
}
