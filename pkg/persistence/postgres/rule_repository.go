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

// RuleRepository handles workflow rule queries.
type RuleRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// SaveRule inserts or updates a rule. Updates are last-writer-wins.
func (r *RuleRepository) SaveRule(ctx context.Context, rule *models.WorkflowRule) error {
	query := `
		INSERT INTO workflow_rules (
			id, tenant_id, name, description, entity_type, trigger_event,
			trigger_conditions, actions, active, created_by, created_at, updated_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		ON CONFLICT (id)
		DO UPDATE SET
			name = EXCLUDED.name,
			description = EXCLUDED.description,
			entity_type = EXCLUDED.entity_type,
			trigger_event = EXCLUDED.trigger_event,
			trigger_conditions = EXCLUDED.trigger_conditions,
			actions = EXCLUDED.actions,
			active = EXCLUDED.active,
			updated_at = EXCLUDED.updated_at
		WHERE workflow_rules.tenant_id = EXCLUDED.tenant_id
	`

	conditionsJSON, err := json.Marshal(rule.TriggerConditions)
	if err != nil {
		return fmt.Errorf("failed to serialize trigger conditions: %w", err)
	}

	actionsJSON, err := json.Marshal(rule.Actions)
	if err != nil {
		return fmt.Errorf("failed to serialize actions: %w", err)
	}

	now := time.Now().UTC()
	if rule.CreatedAt.IsZero() {
		rule.CreatedAt = now
	}

	rule.UpdatedAt = now

	result, err := r.db.ExecContext(ctx, query,
		rule.ID,
		rule.TenantID,
		rule.Name,
		rule.Description,
		string(rule.EntityType),
		string(rule.TriggerEvent),
		string(conditionsJSON),
		string(actionsJSON),
		rule.Active,
		rule.CreatedBy,
		rule.CreatedAt,
		rule.UpdatedAt,
	)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to save workflow rule", "rule_id", rule.ID, "error", err)

		return persistence.NewRuleError("SaveRule", rule.TenantID, rule.ID, err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRuleError("SaveRule", rule.TenantID, rule.ID, err)
	}

	// Zero rows means the ID exists under another tenant, so the conflict
	// guard suppressed the update.
	if rows == 0 {
		return persistence.NewRuleError("SaveRule", rule.TenantID, rule.ID, persistence.ErrRuleNotFound)
	}

	return nil
}

const ruleColumns = `
	id, tenant_id, name, description, entity_type, trigger_event,
	trigger_conditions, actions, active, created_by, created_at, updated_at
`

func (r *RuleRepository) RuleByID(ctx context.Context, tenantID, id string) (*models.WorkflowRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM workflow_rules WHERE id = $1 AND tenant_id = $2`

	rule, err := scanRule(r.db.QueryRowContext(ctx, query, id, tenantID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}

		r.logger.ErrorContext(ctx, "Failed to scan workflow rule", "rule_id", id, "error", err)

		return nil, persistence.NewRuleError("RuleByID", tenantID, id, err)
	}

	return rule, nil
}

func (r *RuleRepository) RulesByTenant(ctx context.Context, tenantID string) ([]*models.WorkflowRule, error) {
	query := `SELECT ` + ruleColumns + ` FROM workflow_rules WHERE tenant_id = $1 ORDER BY created_at DESC`

	return r.queryRules(ctx, query, tenantID)
}

func (r *RuleRepository) ActiveRules(ctx context.Context, tenantID string, entityType models.EntityType, triggerEvent models.TriggerEvent) ([]*models.WorkflowRule, error) {
	query := `
		SELECT ` + ruleColumns + `
		FROM workflow_rules
		WHERE tenant_id = $1 AND entity_type = $2 AND trigger_event = $3 AND active
		ORDER BY created_at
	`

	return r.queryRules(ctx, query, tenantID, string(entityType), string(triggerEvent))
}

func (r *RuleRepository) DeleteRule(ctx context.Context, tenantID, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM workflow_rules WHERE id = $1 AND tenant_id = $2`, id, tenantID)
	if err != nil {
		return persistence.NewRuleError("DeleteRule", tenantID, id, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return persistence.NewRuleError("DeleteRule", tenantID, id, err)
	}

	if affected == 0 {
		return persistence.NewRuleError("DeleteRule", tenantID, id, persistence.ErrRuleNotFound)
	}

	return nil
}

func (r *RuleRepository) queryRules(ctx context.Context, query string, args ...any) ([]*models.WorkflowRule, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to query workflow rules", "error", err)

		return nil, fmt.Errorf("failed to query workflow rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	rules := make([]*models.WorkflowRule, 0)

	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan workflow rule row: %w", err)
		}

		rules = append(rules, rule)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate workflow rule rows: %w", err)
	}

	return rules, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanRule(row rowScanner) (*models.WorkflowRule, error) {
	var (
		rule           models.WorkflowRule
		entityType     string
		triggerEvent   string
		conditionsJSON string
		actionsJSON    string
	)

	err := row.Scan(
		&rule.ID,
		&rule.TenantID,
		&rule.Name,
		&rule.Description,
		&entityType,
		&triggerEvent,
		&conditionsJSON,
		&actionsJSON,
		&rule.Active,
		&rule.CreatedBy,
		&rule.CreatedAt,
		&rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	rule.EntityType = models.EntityType(entityType)
	rule.TriggerEvent = models.TriggerEvent(triggerEvent)

	err = json.Unmarshal([]byte(conditionsJSON), &rule.TriggerConditions)
	if err != nil {
		return nil, fmt.Errorf("failed to parse trigger conditions: %w", err)
	}

	err = json.Unmarshal([]byte(actionsJSON), &rule.Actions)
	if err != nil {
		return nil, fmt.Errorf("failed to parse actions: %w", err)
	}

	return &rule, nil
}
