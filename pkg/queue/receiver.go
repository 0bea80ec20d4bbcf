// Package queue receives trigger messages from a Redis list and hands them
// to the trigger gateway. Domain services push a JSON payload per entity
// event; the worker drains the list.
package queue

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	redis "github.com/redis/go-redis/v9"

	"github.com/fieldflow/fieldflow/pkg/engine"
	"github.com/fieldflow/fieldflow/pkg/models"
)

// TriggerFunc is the gateway entry point the receiver feeds.
type TriggerFunc func(ctx context.Context, tctx models.TenantContext, req engine.TriggerRequest) ([]string, error)

// TriggerMessage is the wire format pushed onto the queue by domain
// services.
type TriggerMessage struct {
	TenantID     string              `json:"tenant_id"`
	UserID       string              `json:"user_id,omitempty"`
	EntityType   models.EntityType   `json:"entity_type"`
	EntityID     string              `json:"entity_id"`
	TriggerEvent models.TriggerEvent `json:"trigger_event"`
	TriggerData  map[string]any      `json:"trigger_data,omitempty"`
}

type Config struct {
	Addr     string
	Password string
	DB       int
	Queue    string
}

type Receiver struct {
	config  Config
	client  redis.UniversalClient
	handler TriggerFunc
	logger  *slog.Logger
	stopCh  chan struct{}
	wg      sync.WaitGroup
}

func NewReceiver(config Config, logger *slog.Logger) (*Receiver, error) {
	if config.Queue == "" {
		return nil, errors.New("queue name is required")
	}

	if config.Addr == "" {
		config.Addr = "localhost:6379"
	}

	return &Receiver{
		config: config,
		stopCh: make(chan struct{}),
		logger: logger.With("module", "queue_receiver", "queue", config.Queue),
	}, nil
}

func (r *Receiver) Start(ctx context.Context, handler TriggerFunc) error {
	r.logger.InfoContext(ctx, "Starting queue receiver")
	r.handler = handler

	r.client = redis.NewClient(&redis.Options{
		Addr:     r.config.Addr,
		Password: r.config.Password,
		DB:       r.config.DB,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := r.client.Ping(pingCtx).Err(); err != nil {
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	r.logger.InfoContext(ctx, "Connected to Redis", "addr", r.config.Addr, "db", r.config.DB)

	r.wg.Add(1)

	go r.consume(ctx)

	return nil
}

func (r *Receiver) consume(ctx context.Context) {
	defer r.wg.Done()

	for {
		select {
		case <-r.stopCh:
			r.logger.InfoContext(ctx, "Queue receiver stopped")

			return
		case <-ctx.Done():
			r.logger.InfoContext(ctx, "Context cancelled, stopping queue receiver")

			return
		default:
			err := r.processMessage(ctx)
			if err != nil {
				r.logger.ErrorContext(ctx, "Error processing message", "error", err)
				time.Sleep(1 * time.Second)
			}
		}
	}
}

func (r *Receiver) processMessage(ctx context.Context) error {
	result, err := r.client.BLPop(ctx, 1*time.Second, r.config.Queue).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil
		}

		return fmt.Errorf("failed to pop message from queue: %w", err)
	}

	if len(result) < 2 {
		return nil
	}

	tctx, req, err := DecodeTriggerMessage([]byte(result[1]))
	if err != nil {
		// Malformed messages are dropped, not requeued.
		r.logger.ErrorContext(ctx, "Discarding invalid trigger message", "error", err)

		return nil
	}

	executionIDs, err := r.handler(ctx, tctx, req)
	if err != nil {
		r.logger.ErrorContext(ctx, "Trigger failed",
			"tenant_id", tctx.TenantID, "entity_type", req.EntityType, "entity_id", req.EntityID, "error", err)

		return nil
	}

	r.logger.InfoContext(ctx, "Trigger processed",
		"tenant_id", tctx.TenantID, "entity_type", req.EntityType,
		"entity_id", req.EntityID, "executions", len(executionIDs))

	return nil
}

// DecodeTriggerMessage parses and validates one queue payload.
func DecodeTriggerMessage(payload []byte) (models.TenantContext, engine.TriggerRequest, error) {
	var message TriggerMessage

	if err := json.Unmarshal(payload, &message); err != nil {
		return models.TenantContext{}, engine.TriggerRequest{}, fmt.Errorf("invalid JSON payload: %w", err)
	}

	tctx := models.TenantContext{TenantID: message.TenantID, UserID: message.UserID}
	if err := tctx.Validate(); err != nil {
		return models.TenantContext{}, engine.TriggerRequest{}, err
	}

	req := engine.TriggerRequest{
		EntityType:   message.EntityType,
		EntityID:     message.EntityID,
		TriggerEvent: message.TriggerEvent,
		TriggerData:  message.TriggerData,
	}
	if err := req.Validate(); err != nil {
		return models.TenantContext{}, engine.TriggerRequest{}, err
	}

	return tctx, req, nil
}

func (r *Receiver) Stop(ctx context.Context) error {
	r.logger.InfoContext(ctx, "Stopping queue receiver")

	close(r.stopCh)
	r.wg.Wait()

	if r.client != nil {
		if err := r.client.Close(); err != nil {
			r.logger.ErrorContext(ctx, "Error closing Redis client", "error", err)
		}
	}

	return nil
}
