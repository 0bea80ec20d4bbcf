// Package main provides the FieldFlow scheduler, which sweeps due automated
// reminders and turns them into notifications.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	cli "github.com/urfave/cli/v3"

	"github.com/fieldflow/fieldflow/pkg/cmd"
	"github.com/fieldflow/fieldflow/pkg/log"
	"github.com/fieldflow/fieldflow/pkg/scheduler"
)

func main() {
	logger := log.WithModule("fieldflow-scheduler")

	command := &cli.Command{
		Name:                  "fieldflow-scheduler",
		Usage:                 "Process due automated reminders",
		EnableShellCompletion: true,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:     "database-url",
				Usage:    "Database connection URL for persistence",
				Required: true,
				Sources:  cli.EnvVars("DATABASE_URL"),
			},
			&cli.StringFlag{
				Name:    "event-bus",
				Usage:   "Event bus type (kafka, gochannel)",
				Value:   "gochannel",
				Sources: cli.EnvVars("EVENT_BUS_TYPE"),
			},
			&cli.StringFlag{
				Name:    "sweep-cron",
				Usage:   "Cron expression for the reminder sweep",
				Value:   "* * * * *",
				Sources: cli.EnvVars("SWEEP_CRON"),
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

			logger.InfoContext(ctx, "Initializing FieldFlow Scheduler")

			persistence := cmd.NewPersistence(ctx, logger, command.String("database-url"))
			defer func() {
				if err := persistence.Close(ctx); err != nil {
					logger.ErrorContext(ctx, "Failed to close persistence", "error", err)
				}
			}()

			eventBus := cmd.NewEventBus(command.String("event-bus"), "fieldflow-scheduler", logger)
			defer func() {
				if err := eventBus.Close(); err != nil {
					logger.ErrorContext(ctx, "Failed to close event bus", "error", err)
				}
			}()

			sched, err := scheduler.NewScheduler(persistence, eventBus, logger, command.String("sweep-cron"))
			if err != nil {
				logger.ErrorContext(ctx, "Failed to create scheduler", "error", err)

				return err
			}

			if err := sched.Start(ctx); err != nil {
				logger.ErrorContext(ctx, "Failed to start scheduler", "error", err)

				return err
			}

			logger.InfoContext(ctx, "Scheduler started successfully")

			sigChan := make(chan os.Signal, 1)
			signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

			<-sigChan
			logger.InfoContext(ctx, "Shutting down scheduler...")

			return sched.Stop(ctx)
		},
	}

	if err := command.Run(context.Background(), os.Args); err != nil {
		panic(err)
	}
}
