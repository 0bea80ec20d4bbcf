package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

// ExecutionRepository handles workflow execution audit records. Transitions
// are guarded in SQL: a terminal row never matches the transition predicate,
// so terminal records are immutable at the database level.
type ExecutionRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

func (r *ExecutionRepository) CreateExecution(ctx context.Context, execution *models.WorkflowExecution) error {
	query := `
		INSERT INTO workflow_executions (
			id, tenant_id, workflow_rule_id, entity_id, entity_type,
			trigger_data, status, actions_executed, error_message,
			started_at, completed_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, '[]', $8, $9, $10, $11)
	`

	triggerDataJSON, err := json.Marshal(execution.TriggerData)
	if err != nil {
		return fmt.Errorf("failed to serialize trigger data: %w", err)
	}

	_, err = r.db.ExecContext(ctx, query,
		execution.ID,
		execution.TenantID,
		execution.WorkflowRuleID,
		execution.EntityID,
		string(execution.EntityType),
		string(triggerDataJSON),
		string(execution.Status),
		execution.ErrorMessage,
		execution.StartedAt,
		execution.CompletedAt,
		execution.CreatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to create workflow execution", "execution_id", execution.ID, "error", err)

		return persistence.NewExecutionError("CreateExecution", execution.TenantID, execution.ID, err)
	}

	return nil
}

func (r *ExecutionRepository) MarkExecuting(ctx context.Context, tenantID, id string) error {
	query := `
		UPDATE workflow_executions
		SET status = 'executing'
		WHERE id = $1 AND tenant_id = $2 AND status = 'pending'
	`

	return r.transition(ctx, "MarkExecuting", tenantID, id, query, id, tenantID)
}

func (r *ExecutionRepository) AppendActionResult(ctx context.Context, tenantID, id string, result models.ActionResult) error {
	resultJSON, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to serialize action result: %w", err)
	}

	query := `
		UPDATE workflow_executions
		SET actions_executed = actions_executed || $3::jsonb
		WHERE id = $1 AND tenant_id = $2 AND status NOT IN ('completed', 'failed', 'skipped')
	`

	return r.transition(ctx, "AppendActionResult", tenantID, id, query, id, tenantID, string(resultJSON))
}

func (r *ExecutionRepository) MarkCompleted(ctx context.Context, tenantID, id string, completedAt time.Time) error {
	query := `
		UPDATE workflow_executions
		SET status = 'completed', completed_at = $3
		WHERE id = $1 AND tenant_id = $2 AND status = 'executing'
	`

	return r.transition(ctx, "MarkCompleted", tenantID, id, query, id, tenantID, completedAt)
}

func (r *ExecutionRepository) MarkFailed(ctx context.Context, tenantID, id, errorMessage string, completedAt time.Time) error {
	query := `
		UPDATE workflow_executions
		SET status = 'failed', error_message = $3, completed_at = $4
		WHERE id = $1 AND tenant_id = $2 AND status IN ('pending', 'executing')
	`

	return r.transition(ctx, "MarkFailed", tenantID, id, query, id, tenantID, errorMessage, completedAt)
}

func (r *ExecutionRepository) MarkSkipped(ctx context.Context, tenantID, id string, completedAt time.Time) error {
	query := `
		UPDATE workflow_executions
		SET status = 'skipped', completed_at = $3
		WHERE id = $1 AND tenant_id = $2 AND status = 'pending'
	`

	return r.transition(ctx, "MarkSkipped", tenantID, id, query, id, tenantID, completedAt)
}

func (r *ExecutionRepository) ExecutionByID(ctx context.Context, tenantID, id string) (*models.WorkflowExecution, error) {
	query := `SELECT ` + executionColumns + ` FROM workflow_executions WHERE id = $1 AND tenant_id = $2`

	execution, err := scanExecution(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		r.logger.ErrorContext(ctx, "Failed to scan workflow execution", "execution_id", id, "error", err)

		return nil, persistence.NewExecutionError("ExecutionByID", tenantID, id, err)
	}

	return execution, nil
}

func (r *ExecutionRepository) ExecutionsByEntity(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) ([]*models.WorkflowExecution, error) {
	query := `
		SELECT ` + executionColumns + `
		FROM workflow_executions
		WHERE tenant_id = $1 AND entity_type = $2 AND entity_id = $3
		ORDER BY started_at DESC
	`

	rows, err := r.db.QueryContext(ctx, query, tenantID, string(entityType), entityID)
	if err != nil {
		return nil, fmt.Errorf("failed to query workflow executions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	executions := make([]*models.WorkflowExecution, 0)

	for rows.Next() {
		execution, err := scanExecution(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow execution row: %w", err)
		}

		executions = append(executions, execution)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflow execution rows: %w", err)
	}

	return executions, nil
}

// transition runs a guarded UPDATE; when no row matched it distinguishes a
// missing record, a terminal record, and an out-of-order transition.
func (r *ExecutionRepository) transition(ctx context.Context, op, tenantID, id, query string, args ...any) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update workflow execution", "op", op, "execution_id", id, "error", err)

		return persistence.NewExecutionError(op, tenantID, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewExecutionError(op, tenantID, id, err)
	}

	if affected > 0 {
		return nil
	}

	execution, err := r.ExecutionByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	switch {
	case execution == nil:
		return persistence.NewExecutionError(op, tenantID, id, persistence.ErrExecutionNotFound)
	case execution.Status.IsTerminal():
		return persistence.NewExecutionError(op, tenantID, id, persistence.ErrExecutionTerminal)
	default:
		return persistence.NewExecutionError(op, tenantID, id, persistence.ErrInvalidTransition)
	}
}

const executionColumns = `
	id, tenant_id, workflow_rule_id, entity_id, entity_type,
	trigger_data, status, actions_executed, error_message,
	started_at, completed_at, created_at
`

func scanExecution(row rowScanner) (*models.WorkflowExecution, error) {
	var (
		execution       models.WorkflowExecution
		entityType      string
		status          string
		triggerDataJSON string
		actionsJSON     string
		completedAt     sql.NullTime
	)

	err := row.Scan(
		&execution.ID,
		&execution.TenantID,
		&execution.WorkflowRuleID,
		&execution.EntityID,
		&entityType,
		&triggerDataJSON,
		&status,
		&actionsJSON,
		&execution.ErrorMessage,
		&execution.StartedAt,
		&completedAt,
		&execution.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	execution.EntityType = models.EntityType(entityType)
	execution.Status = models.ExecutionStatus(status)

	if completedAt.Valid {
		execution.CompletedAt = &completedAt.Time
	}

	err = json.Unmarshal([]byte(triggerDataJSON), &execution.TriggerData)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trigger data: %w", err)
	}

	err = json.Unmarshal([]byte(actionsJSON), &execution.ActionsExecuted)
	if err != nil {
		return nil, fmt.Errorf("failed to parse executed actions: %w", err)
	}

	return &execution, nil
}
