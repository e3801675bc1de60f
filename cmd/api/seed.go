package main

import (
	"log"

	"github.com/spf13/cobra"

	"Lee_Moderation/internal/config"
	"Lee_Moderation/internal/repository/db"
	"Lee_Moderation/internal/service"
)

func newSeedCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Insert the default communities (idempotent)",
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

			svc := service.NewCommunityService(&db.CommunityRepository{DB: conn})
			n, err := svc.Seed(cmd.Context())
			if err != nil {
				return err
			}
			log.Printf("seed: %d communities upserted", n)
			return nil
		},
	}
}
