package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"schuldhulp/internal/db"
	"schuldhulp/internal/match"
	"schuldhulp/internal/notify"
	"schuldhulp/internal/server"
	"schuldhulp/internal/store"

	"github.com/aws/aws-sdk-go-v2/service/sesv2"
	"github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

var serveCommand = &cli.Command{
	Name:   "serve",
	Usage:  "Start the HTTP server",
	Action: serve,
}

func serve(cCtx *cli.Context) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})

	config, err := loadConfig()
	if err != nil {
		return err
	}

	pool, err := db.Connect(ctx, config)
	if err != nil {
		return err
	}
	defer pool.Close()

	organisationsRepo := store.NewOrganisationRepository(pool)
	helpRequestsRepo := store.NewHelpRequestRepository(pool)
	matchesRepo := store.NewMatchRepository(pool)
	notificationsRepo := store.NewNotificationRepository(pool)

	matcher := match.NewMatcher(organisationsRepo, logger)
	lifecycle := match.NewLifecycle(matchesRepo, helpRequestsRepo, logger)

	var sender notify.Sender
	if config.MailEnabled {
		awsConfig, err := loadAWSConfig(ctx)
		if err != nil {
			return err
		}
		sender = notify.NewSESSender(sesv2.NewFromConfig(awsConfig), config.MailFromAddress)
	} else {
		sender = notify.NewLogSender(logger)
	}

	dispatcher, err := notify.NewDispatcher(sender, notificationsRepo, logger)
	if err != nil {
		return err
	}

	srv, err := server.New(
		config,
		logger,
		organisationsRepo,
		helpRequestsRepo,
		matchesRepo,
		matcher,
		lifecycle,
		dispatcher,
	)
	if err != nil {
		return err
	}

	go func() {
		logger.WithField("port", config.ServerPort).Infof("server starting http://localhost:%d", config.ServerPort)
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("server failed")
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	return srv.Stop(shutdownCtx)
}
