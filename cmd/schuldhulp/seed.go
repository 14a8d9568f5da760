package main

import (
	"context"
	"fmt"

	"schuldhulp/internal/db"
	"schuldhulp/internal/seed"
	"schuldhulp/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var seedCommand = &cli.Command{
	Name:  "seed",
	Usage: "Seed the database with verified organisations",
	Action: func(c *cli.Context) error {
		cfg, err := loadConfig()
		if err != nil {
			return fmt.Errorf("failed to load config: %w", err)
		}

		ctx := context.Background()

		pool, err := db.Connect(ctx, cfg)
		if err != nil {
			return fmt.Errorf("failed to connect to database: %w", err)
		}
		defer pool.Close()

		logrus.Info("Connected to database")

		organisationRepo := store.NewOrganisationRepository(pool)

		logrus.Info("Seeding organisations...")
		seeded, err := seed.SeedOrganisations(ctx, organisationRepo)
		if err != nil {
			return fmt.Errorf("failed to seed organisations: %w", err)
		}

		logrus.WithField("seeded", seeded).Info("Organisations seeded successfully")

		return nil
	},
}
