// Package services holds the tenant-facing application services over the
// persistence layer: rule management and the notification mailbox.
package services

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/fieldflow/fieldflow/pkg/catalog"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

// RuleService manages workflow rules for a tenant. Writes are
// last-writer-wins; there is no optimistic locking.
type RuleService struct {
	persistence persistence.Persistence
	validator   *validator.Validate
	logger      *slog.Logger
}

func NewRuleService(persistence persistence.Persistence, logger *slog.Logger) *RuleService {
	return &RuleService{
		persistence: persistence,
		validator:   validator.New(validator.WithRequiredStructEnabled()),
		logger:      logger.With("module", "rule_service"),
	}
}

func (s *RuleService) Create(ctx context.Context, tctx models.TenantContext, rule *models.WorkflowRule) (*models.WorkflowRule, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	if rule.ID == "" {
		rule.ID = uuid.New().String()
	}

	rule.TenantID = tctx.TenantID
	rule.CreatedBy = tctx.UserID

	now := time.Now().UTC()
	rule.CreatedAt = now
	rule.UpdatedAt = now

	if err := s.validateRule(rule); err != nil {
		return nil, err
	}

	if err := s.persistence.RuleRepository().SaveRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to create rule: %w", err)
	}

	s.logger.InfoContext(ctx, "Workflow rule created",
		"tenant_id", rule.TenantID, "rule_id", rule.ID, "entity_type", rule.EntityType, "trigger_event", rule.TriggerEvent)

	return rule, nil
}

func (s *RuleService) Update(ctx context.Context, tctx models.TenantContext, id string, rule *models.WorkflowRule) (*models.WorkflowRule, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	existing, err := s.persistence.RuleRepository().RuleByID(ctx, tctx.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule: %w", err)
	}

	if existing == nil {
		return nil, persistence.ErrRuleNotFound
	}

	rule.ID = id
	rule.TenantID = tctx.TenantID
	rule.CreatedBy = existing.CreatedBy
	rule.CreatedAt = existing.CreatedAt
	rule.UpdatedAt = time.Now().UTC()

	if err := s.validateRule(rule); err != nil {
		return nil, err
	}

	if err := s.persistence.RuleRepository().SaveRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to update rule: %w", err)
	}

	s.logger.InfoContext(ctx, "Workflow rule updated", "tenant_id", rule.TenantID, "rule_id", rule.ID)

	return rule, nil
}

func (s *RuleService) Delete(ctx context.Context, tctx models.TenantContext, id string) error {
	if err := tctx.Validate(); err != nil {
		return err
	}

	err := s.persistence.RuleRepository().DeleteRule(ctx, tctx.TenantID, id)
	if err != nil {
		return err
	}

	s.logger.InfoContext(ctx, "Workflow rule deleted", "tenant_id", tctx.TenantID, "rule_id", id)

	return nil
}

func (s *RuleService) Get(ctx context.Context, tctx models.TenantContext, id string) (*models.WorkflowRule, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	rule, err := s.persistence.RuleRepository().RuleByID(ctx, tctx.TenantID, id)
	if err != nil {
		return nil, fmt.Errorf("failed to load rule: %w", err)
	}

	if rule == nil {
		return nil, persistence.ErrRuleNotFound
	}

	return rule, nil
}

// List returns the tenant's rules, newest first.
func (s *RuleService) List(ctx context.Context, tctx models.TenantContext) ([]*models.WorkflowRule, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	return s.persistence.RuleRepository().RulesByTenant(ctx, tctx.TenantID)
}

// Templates lists the predefined rule templates.
func (s *RuleService) Templates() []models.RuleTemplate {
	return catalog.Templates()
}

// InstantiateTemplate persists an active copy of the named template for the
// tenant.
func (s *RuleService) InstantiateTemplate(ctx context.Context, tctx models.TenantContext, name string) (*models.WorkflowRule, error) {
	if err := tctx.Validate(); err != nil {
		return nil, err
	}

	tpl, ok := catalog.TemplateByName(name)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrTemplateNotFound, name)
	}

	rule := catalog.Instantiate(tpl, tctx.TenantID, tctx.UserID)

	if err := s.persistence.RuleRepository().SaveRule(ctx, rule); err != nil {
		return nil, fmt.Errorf("failed to instantiate template: %w", err)
	}

	s.logger.InfoContext(ctx, "Rule template instantiated",
		"tenant_id", tctx.TenantID, "template", name, "rule_id", rule.ID)

	return rule, nil
}

func (s *RuleService) validateRule(rule *models.WorkflowRule) error {
	issues := make([]string, 0)

	if err := s.validator.Struct(rule); err != nil {
		issues = append(issues, err.Error())
	}

	if !rule.EntityType.IsValid() {
		issues = append(issues, fmt.Sprintf("unknown entity type: %s", rule.EntityType))
	}

	if !rule.TriggerEvent.IsValid() {
		issues = append(issues, fmt.Sprintf("unknown trigger event: %s", rule.TriggerEvent))
	}

	for i, action := range rule.Actions {
		if !action.Type.IsValid() {
			issues = append(issues, fmt.Sprintf("action %d: unknown action type: %s", i, action.Type))

			continue
		}

		if err := validateActionParameters(action); err != nil {
			issues = append(issues, fmt.Sprintf("action %d: %s", i, err.Error()))
		}
	}

	if len(issues) > 0 {
		return NewValidationError(issues...)
	}

	return nil
}
