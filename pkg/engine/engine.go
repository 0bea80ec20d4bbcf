// Package engine is the event trigger gateway: it matches incoming entity
// events against active workflow rules, records an execution per matched
// rule, and dispatches the rule's actions.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"

	"github.com/fieldflow/fieldflow/pkg/eventbus"
	"github.com/fieldflow/fieldflow/pkg/events"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/otelhelper"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

const defaultActionTimeout = 30 * time.Second

// TriggerRequest describes one entity event entering the gateway.
type TriggerRequest struct {
	EntityType   models.EntityType   `json:"entity_type"`
	EntityID     string              `json:"entity_id"`
	TriggerEvent models.TriggerEvent `json:"trigger_event"`
	TriggerData  map[string]any      `json:"trigger_data,omitempty"`
}

func (r TriggerRequest) Validate() error {
	if !r.EntityType.IsValid() {
		return fmt.Errorf("unknown entity type: %q", r.EntityType)
	}

	if r.EntityID == "" {
		return fmt.Errorf("entity id is required")
	}

	if !r.TriggerEvent.IsValid() {
		return fmt.Errorf("unknown trigger event: %q", r.TriggerEvent)
	}

	return nil
}

type Engine struct {
	persistence   persistence.Persistence
	publisher     eventbus.EventPublisher
	tracer        trace.Tracer
	logger        *slog.Logger
	actionTimeout time.Duration
}

// NewEngine wires the gateway. A nil tracer disables span recording.
func NewEngine(p persistence.Persistence, publisher eventbus.EventPublisher, tracer trace.Tracer, logger *slog.Logger) *Engine {
	if tracer == nil {
		tracer = noop.NewTracerProvider().Tracer("engine")
	}

	return &Engine{
		persistence:   p,
		publisher:     publisher,
		tracer:        tracer,
		logger:        logger.With("module", "engine"),
		actionTimeout: defaultActionTimeout,
	}
}

// Trigger runs every active rule matching the request and returns the IDs of
// the execution records it created, one per matched rule. A failing rule
// never prevents the remaining rules from running; its execution records the
// failure. The returned error covers only pre-matching problems.
func (e *Engine) Trigger(ctx context.Context, tctx models.TenantContext, req TriggerRequest) ([]string, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	if err := req.Validate(); err != nil {
		return nil, err
	}

	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.trigger",
		attribute.String(otelhelper.TenantIDKey, tctx.TenantID),
		attribute.String(otelhelper.EntityTypeKey, string(req.EntityType)),
		attribute.String(otelhelper.EntityIDKey, req.EntityID),
		attribute.String(otelhelper.TriggerEventKey, string(req.TriggerEvent)),
	)
	defer span.End()

	logger := e.logger.With(
		"tenant_id", tctx.TenantID,
		"entity_type", req.EntityType,
		"entity_id", req.EntityID,
		"trigger_event", req.TriggerEvent,
	)

	rules, err := e.persistence.RuleRepository().ActiveRules(ctx, tctx.TenantID, req.EntityType, req.TriggerEvent)
	if err != nil {
		otelhelper.SetError(span, err)

		return nil, fmt.Errorf("failed to load active rules: %w", err)
	}

	if len(rules) == 0 {
		logger.DebugContext(ctx, "No active rules matched trigger")

		return []string{}, nil
	}

	logger.InfoContext(ctx, "Processing trigger", "matched_rules", len(rules))

	executionIDs := make([]string, 0, len(rules))

	for _, rule := range rules {
		executionID, err := e.executeRule(ctx, tctx, rule, req)
		if executionID != "" {
			executionIDs = append(executionIDs, executionID)
		}

		if err != nil {
			logger.ErrorContext(ctx, "Rule execution failed",
				"rule_id", rule.ID, "execution_id", executionID, "error", err)
		}
	}

	return executionIDs, nil
}

// executeRule records and runs one rule. The returned execution ID is empty
// only when the execution record itself could not be created.
func (e *Engine) executeRule(ctx context.Context, tctx models.TenantContext, rule *models.WorkflowRule, req TriggerRequest) (string, error) {
	ctx, span := otelhelper.StartSpan(ctx, e.tracer, "engine.execute_rule",
		attribute.String(otelhelper.RuleIDKey, rule.ID),
		attribute.String(otelhelper.RuleNameKey, rule.Name),
	)
	defer span.End()

	now := time.Now().UTC()
	executions := e.persistence.ExecutionRepository()

	execution := &models.WorkflowExecution{
		ID:             uuid.New().String(),
		TenantID:       tctx.TenantID,
		WorkflowRuleID: rule.ID,
		EntityID:       req.EntityID,
		EntityType:     req.EntityType,
		TriggerData:    req.TriggerData,
		Status:         models.ExecutionStatusPending,
		StartedAt:      now,
		CreatedAt:      now,
	}

	if err := executions.CreateExecution(ctx, execution); err != nil {
		otelhelper.SetError(span, err)

		return "", fmt.Errorf("failed to create execution: %w", err)
	}

	span.SetAttributes(attribute.String(otelhelper.ExecutionIDKey, execution.ID))

	e.publish(ctx, tctx.TenantID, events.ExecutionStarted{
		BaseEvent:    e.baseEvent(events.ExecutionStartedEvent, tctx.TenantID),
		ExecutionID:  execution.ID,
		RuleID:       rule.ID,
		EntityType:   req.EntityType,
		EntityID:     req.EntityID,
		TriggerEvent: req.TriggerEvent,
		TriggerData:  req.TriggerData,
	})

	if !ConditionsMatch(rule.TriggerConditions, req.TriggerData) {
		if err := executions.MarkSkipped(ctx, tctx.TenantID, execution.ID, time.Now().UTC()); err != nil {
			otelhelper.SetError(span, err)

			return execution.ID, fmt.Errorf("failed to mark execution skipped: %w", err)
		}

		e.publish(ctx, tctx.TenantID, events.ExecutionSkipped{
			BaseEvent:   e.baseEvent(events.ExecutionSkippedEvent, tctx.TenantID),
			ExecutionID: execution.ID,
			RuleID:      rule.ID,
			Reason:      "trigger conditions not met",
		})

		e.logger.InfoContext(ctx, "Execution skipped, conditions not met",
			"tenant_id", tctx.TenantID, "rule_id", rule.ID, "execution_id", execution.ID)

		return execution.ID, nil
	}

	if err := executions.MarkExecuting(ctx, tctx.TenantID, execution.ID); err != nil {
		otelhelper.SetError(span, err)

		return execution.ID, e.failExecution(ctx, tctx, rule, execution.ID, now, err)
	}

	actionsFailed := 0

	for _, action := range rule.Actions {
		result := e.runAction(ctx, tctx, execution, action)

		if err := executions.AppendActionResult(ctx, tctx.TenantID, execution.ID, result); err != nil {
			otelhelper.SetError(span, err)

			return execution.ID, e.failExecution(ctx, tctx, rule, execution.ID, now, err)
		}

		if result.Status == models.ActionOutcomeFailed {
			actionsFailed++
		}
	}

	completedAt := time.Now().UTC()

	if err := executions.MarkCompleted(ctx, tctx.TenantID, execution.ID, completedAt); err != nil {
		otelhelper.SetError(span, err)

		return execution.ID, fmt.Errorf("failed to mark execution completed: %w", err)
	}

	e.publish(ctx, tctx.TenantID, events.ExecutionCompleted{
		BaseEvent:     e.baseEvent(events.ExecutionCompletedEvent, tctx.TenantID),
		ExecutionID:   execution.ID,
		RuleID:        rule.ID,
		ActionsRun:    len(rule.Actions),
		ActionsFailed: actionsFailed,
		Duration:      completedAt.Sub(now),
	})

	e.logger.InfoContext(ctx, "Execution completed",
		"tenant_id", tctx.TenantID, "rule_id", rule.ID, "execution_id", execution.ID,
		"actions_run", len(rule.Actions), "actions_failed", actionsFailed)

	return execution.ID, nil
}

// failExecution moves the execution to failed and reports the original
// error. The failure event is best-effort.
func (e *Engine) failExecution(ctx context.Context, tctx models.TenantContext, rule *models.WorkflowRule, executionID string, startedAt time.Time, cause error) error {
	completedAt := time.Now().UTC()

	if err := e.persistence.ExecutionRepository().MarkFailed(ctx, tctx.TenantID, executionID, cause.Error(), completedAt); err != nil {
		e.logger.ErrorContext(ctx, "Failed to mark execution failed",
			"tenant_id", tctx.TenantID, "execution_id", executionID, "error", err)
	}

	e.publish(ctx, tctx.TenantID, events.ExecutionFailed{
		BaseEvent:   e.baseEvent(events.ExecutionFailedEvent, tctx.TenantID),
		ExecutionID: executionID,
		RuleID:      rule.ID,
		Error:       cause.Error(),
		Duration:    completedAt.Sub(startedAt),
	})

	return cause
}

func (e *Engine) baseEvent(eventType events.EventType, tenantID string) events.BaseEvent {
	return events.BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		TenantID:  tenantID,
	}
}

// publish sends a lifecycle event without failing the caller. The execution
// record is the source of truth; events exist for observers.
func (e *Engine) publish(ctx context.Context, tenantID string, event eventbus.Event) {
	if e.publisher == nil {
		return
	}

	if err := e.publisher.Publish(ctx, tenantID, event); err != nil {
		e.logger.ErrorContext(ctx, "Failed to publish event",
			"tenant_id", tenantID, "event_type", event.GetType(), "error", err)
	}
}
