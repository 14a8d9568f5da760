package main

import (
	"context"
	"fmt"

	"schuldhulp/internal/db"
	"schuldhulp/internal/match"
	"schuldhulp/internal/store"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

// sweepCommand expires pending matches past their 48-hour window and
// reverts help requests that ran out of options. Meant to be run from cron.
var sweepCommand = &cli.Command{
	Name:  "sweep",
	Usage: "Expire overdue matches",
	Action: func(c *cli.Context) error {
		logger := logrus.New()
		logger.SetFormatter(&logrus.JSONFormatter{})

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

		helpRequestsRepo := store.NewHelpRequestRepository(pool)
		matchesRepo := store.NewMatchRepository(pool)

		lifecycle := match.NewLifecycle(matchesRepo, helpRequestsRepo, logger)

		events, err := lifecycle.ExpireOverdue(ctx)
		if err != nil {
			return fmt.Errorf("sweep failed: %w", err)
		}

		expired, reverted := 0, 0
		for _, event := range events {
			switch event.(type) {
			case match.MatchesExpired:
				expired++
			case match.HelpRequestReverted:
				reverted++
			}
		}

		logger.WithFields(logrus.Fields{
			"help_requests_affected": expired,
			"reverted_to_pending":    reverted,
		}).Info("sweep finished")

		return nil
	},
}
