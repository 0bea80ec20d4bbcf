// Package main provides the FieldFlow worker, which consumes trigger
// messages from the queue and evaluates workflow rules against them.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"go.opentelemetry.io/otel/trace"

	"github.com/fieldflow/fieldflow/pkg/engine"
	"github.com/fieldflow/fieldflow/pkg/eventbus"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
	"github.com/fieldflow/fieldflow/pkg/queue"
)

type WorkerManager struct {
	id       string
	logger   *slog.Logger
	engine   *engine.Engine
	receiver *queue.Receiver
}

func NewWorkerManager(
	id string,
	p persistence.Persistence,
	eventBus eventbus.EventBus,
	tracer trace.Tracer,
	logger *slog.Logger,
	queueConfig queue.Config,
) (*WorkerManager, error) {
	receiver, err := queue.NewReceiver(queueConfig, logger)
	if err != nil {
		return nil, err
	}

	return &WorkerManager{
		id:       id,
		logger:   logger.With("module", "fieldflow-worker", "worker_id", id),
		engine:   engine.NewEngine(p, eventBus, tracer, logger),
		receiver: receiver,
	}, nil
}

func (w *WorkerManager) Start(ctx context.Context) error {
	w.logger.InfoContext(ctx, "Starting worker manager", "worker_id", w.id)

	err := w.receiver.Start(ctx, func(ctx context.Context, tctx models.TenantContext, req engine.TriggerRequest) ([]string, error) {
		return w.engine.Trigger(ctx, tctx, req)
	})
	if err != nil {
		w.logger.ErrorContext(ctx, "Failed to start queue receiver", "error", err)

		return err
	}

	w.logger.InfoContext(ctx, "Worker started successfully")

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	<-sigChan
	w.logger.InfoContext(ctx, "Shutting down worker...")

	return w.receiver.Stop(ctx)
}
