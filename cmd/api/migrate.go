package main

import (
	"github.com/spf13/cobra"

	"Lee_Moderation/internal/config"
	"Lee_Moderation/internal/repository/db"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update database tables",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			conn, err := db.Open(cfg.Database.Driver, cfg.Database.DSN, cfg.Database.Debug)
			if err != nil {
				return err
			}
			defer db.Close(conn)
			return db.Migrate(conn)
		},
	}
}
