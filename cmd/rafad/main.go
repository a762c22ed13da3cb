package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rafa-protocol/rafad/internal/config"
	"github.com/rafa-protocol/rafad/internal/core/application"
	"github.com/rafa-protocol/rafad/internal/interface/rest"
	"github.com/rafa-protocol/rafad/internal/metrics"
	log "github.com/sirupsen/logrus"
	"github.com/urfave/cli/v2"
)

//nolint:all
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	app := &cli.App{
		Name:    "rafad",
		Usage:   "no-loss raffle daemon",
		Version: version,
		Flags: []cli.Flag{
			urlFlag,
			identityFlag,
		},
		Commands: cli.Commands{
			adminCmd,
			crankCmd,
			snapshotCmd,
		},
		Action: daemonAction,
	}

	if err := app.Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func daemonAction(_ *cli.Context) error {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	log.SetLevel(log.Level(cfg.LogLevel))

	if cfg.EnableMetrics {
		metrics.InitializePrometheusMetrics()
	}

	if err := cfg.Validate(); err != nil {
		log.WithError(err).Fatal("invalid config")
	}

	appSvc, err := cfg.AppService()
	if err != nil {
		log.Fatal(err)
	}

	restSvc := rest.NewService(appSvc, cfg.AdminService(), rest.Options{
		Port:           cfg.Port,
		AllowedOrigins: cfg.AllowedOrigins,
		EnableMetrics:  cfg.EnableMetrics,
	})

	scheduler := cfg.SchedulerService()
	if err := scheduler.ScheduleTaskEvery(cfg.CrankInterval, crankTask(appSvc)); err != nil {
		log.Fatal(err)
	}

	log.RegisterExitHandler(func() {
		restSvc.Stop()
		scheduler.Stop()
		appSvc.Stop()
	})

	log.Info("starting service...")
	if err := appSvc.Start(); err != nil {
		log.Fatal(err)
	}
	if err := restSvc.Start(); err != nil {
		log.Fatal(err)
	}
	scheduler.Start()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGTERM, syscall.SIGINT, syscall.SIGQUIT, os.Interrupt)
	<-sigChan

	log.Info("shutting down service...")
	log.Exit(0)
	return nil
}

// crankTask drives the round state machine. When a draw needs more than one
// participant batch it follows the cursor until the winner is found.
func crankTask(svc application.Service) func() {
	return func() {
		ctx := context.Background()
		cursor := 0
		for {
			res, err := svc.Crank(ctx, cursor)
			if err != nil {
				log.WithError(err).Warn("crank failed")
				return
			}
			if !res.HasMore {
				return
			}
			cursor = res.NextCursor
		}
	}
}
