package file

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

const executionsCollection = "executions"

// ExecutionRepository handles workflow execution file operations. Transitions
// go through the state machine on models.ExecutionStatus; terminal records are
// immutable.
type ExecutionRepository struct {
	root string
	mu   *sync.Mutex
}

func (r *ExecutionRepository) CreateExecution(_ context.Context, execution *models.WorkflowExecution) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.root, executionsCollection, execution.ID, execution)
}

func (r *ExecutionRepository) MarkExecuting(ctx context.Context, tenantID, id string) error {
	return r.transition(ctx, "MarkExecuting", tenantID, id, models.ExecutionStatusExecuting, func(*models.WorkflowExecution) {})
}

func (r *ExecutionRepository) AppendActionResult(ctx context.Context, tenantID, id string, result models.ActionResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.load(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if execution.Status.IsTerminal() {
		return persistence.NewExecutionError("AppendActionResult", tenantID, id, persistence.ErrExecutionTerminal)
	}

	execution.ActionsExecuted = append(execution.ActionsExecuted, result)

	return writeDocument(r.root, executionsCollection, id, execution)
}

func (r *ExecutionRepository) MarkCompleted(ctx context.Context, tenantID, id string, completedAt time.Time) error {
	return r.transition(ctx, "MarkCompleted", tenantID, id, models.ExecutionStatusCompleted, func(e *models.WorkflowExecution) {
		e.CompletedAt = &completedAt
	})
}

func (r *ExecutionRepository) MarkFailed(ctx context.Context, tenantID, id, errorMessage string, completedAt time.Time) error {
	return r.transition(ctx, "MarkFailed", tenantID, id, models.ExecutionStatusFailed, func(e *models.WorkflowExecution) {
		e.ErrorMessage = errorMessage
		e.CompletedAt = &completedAt
	})
}

func (r *ExecutionRepository) MarkSkipped(ctx context.Context, tenantID, id string, completedAt time.Time) error {
	return r.transition(ctx, "MarkSkipped", tenantID, id, models.ExecutionStatusSkipped, func(e *models.WorkflowExecution) {
		e.CompletedAt = &completedAt
	})
}

func (r *ExecutionRepository) ExecutionByID(ctx context.Context, tenantID, id string) (*models.WorkflowExecution, error) {
	execution := &models.WorkflowExecution{}

	found, err := readDocument(r.root, executionsCollection, id, execution)
	if err != nil {
		return nil, err
	}

	if !found || execution.TenantID != tenantID {
		return nil, nil
	}

	return execution, nil
}

func (r *ExecutionRepository) ExecutionsByEntity(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) ([]*models.WorkflowExecution, error) {
	ids, err := listDocumentIDs(r.root, executionsCollection)
	if err != nil {
		return nil, err
	}

	executions := make([]*models.WorkflowExecution, 0)

	for _, id := range ids {
		execution := &models.WorkflowExecution{}

		found, err := readDocument(r.root, executionsCollection, id, execution)
		if err != nil {
			return nil, fmt.Errorf("failed to load execution %s: %w", id, err)
		}

		if found && execution.TenantID == tenantID && execution.EntityType == entityType && execution.EntityID == entityID {
			executions = append(executions, execution)
		}
	}

	sort.Slice(executions, func(i, j int) bool {
		return executions[i].StartedAt.After(executions[j].StartedAt)
	})

	return executions, nil
}

func (r *ExecutionRepository) transition(ctx context.Context, op, tenantID, id string, next models.ExecutionStatus, apply func(*models.WorkflowExecution)) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	execution, err := r.load(ctx, tenantID, id)
	if err != nil {
		return persistence.NewExecutionError(op, tenantID, id, err)
	}

	if execution.Status.IsTerminal() {
		return persistence.NewExecutionError(op, tenantID, id, persistence.ErrExecutionTerminal)
	}

	if !execution.Status.CanTransitionTo(next) {
		return persistence.NewExecutionError(op, tenantID, id, persistence.ErrInvalidTransition)
	}

	execution.Status = next
	apply(execution)

	return writeDocument(r.root, executionsCollection, id, execution)
}

func (r *ExecutionRepository) load(ctx context.Context, tenantID, id string) (*models.WorkflowExecution, error) {
	execution, err := r.ExecutionByID(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if execution == nil {
		return nil, persistence.ErrExecutionNotFound
	}

	return execution, nil
}
