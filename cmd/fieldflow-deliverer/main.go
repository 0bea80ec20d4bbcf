// Package main provides the FieldFlow deliverer, which consumes notification
// created events and attempts outbound delivery.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/fieldflow/fieldflow/pkg/cmd"
	"github.com/fieldflow/fieldflow/pkg/delivery"
	"github.com/fieldflow/fieldflow/pkg/log"
	"github.com/fieldflow/fieldflow/pkg/models"
)

func main() {
	logger := log.WithModule("fieldflow-deliverer")

	command := &cli.Command{
		Name:                  "fieldflow-deliverer",
		Usage:                 "Deliver notifications created by workflow actions",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:     "event-bus",
				Usage:    "Event bus type (kafka, gochannel)",
				Required: true,
				Sources:  cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "log-level",
				Usage:   "Log level (debug, info, warn, error)",
				Value:   "info",
				Sources: cli.EnvVars("LOG_LEVEL"),
			},
		},
		Action: func(ctx context.Context, command *cli.Command) error {
			log.Setup(command.String("log-level"))

			logger.InfoContext(ctx, "Initializing FieldFlow Deliverer")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fieldflow-deliverer", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			deliverer := delivery.NewDeliverer(persistence, logger)

			// Email and SMS use the log sender until provider credentials
			// are wired in through flags.
			deliverer.RegisterSender(models.NotificationTypeEmail, delivery.NewLogSender(logger))
			deliverer.RegisterSender(models.NotificationTypeSMS, delivery.NewLogSender(logger))

			if err := deliverer.Run(ctx, eventBus); err != nil {
				logger.ErrorContext(ctx, "Failed to start deliverer", "error", err)

				return err
			}

			logger.InfoContext(ctx, "Deliverer started successfully")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			<-sigChan
			logger.InfoContext(ctx, "Shutting down deliverer...")

			return nil
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
