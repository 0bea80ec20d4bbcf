package file

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

const rulesCollection = "rules"

// RuleRepository handles workflow rule file operations.
type RuleRepository struct {
	root string
	mu   *sync.Mutex
}

func (r *RuleRepository) SaveRule(_ context.Context, rule *models.WorkflowRule) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.root, rulesCollection, rule.ID, rule)
}

func (r *RuleRepository) RuleByID(_ context.Context, tenantID, id string) (*models.WorkflowRule, error) {
	rule := &models.WorkflowRule{}

	found, err := readDocument(r.root, rulesCollection, id, rule)
	if err != nil {
		return nil, err
	}

	if !found || rule.TenantID != tenantID {
		return nil, nil
	}

	return rule, nil
}

func (r *RuleRepository) RulesByTenant(ctx context.Context, tenantID string) ([]*models.WorkflowRule, error) {
	all, err := r.loadAll()
	if err != nil {
		return nil, err
	}

	rules := make([]*models.WorkflowRule, 0)

	for _, rule := range all {
		if rule.TenantID == tenantID {
			rules = append(rules, rule)
		}
	}

	sort.Slice(rules, func(i, j int) bool {
		return rules[i].CreatedAt.After(rules[j].CreatedAt)
	})

	return rules, nil
}

func (r *RuleRepository) ActiveRules(ctx context.Context, tenantID string, entityType models.EntityType, triggerEvent models.TriggerEvent) ([]*models.WorkflowRule, error) {
	tenantRules, err := r.RulesByTenant(ctx, tenantID)
	if err != nil {
		return nil, err
	}

	rules := make([]*models.WorkflowRule, 0)

	for _, rule := range tenantRules {
		if rule.Active && rule.EntityType == entityType && rule.TriggerEvent == triggerEvent {
			rules = append(rules, rule)
		}
	}

	return rules, nil
}

func (r *RuleRepository) DeleteRule(ctx context.Context, tenantID, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	existing, err := r.RuleByID(ctx, tenantID, id)
	if err != nil {
		return err
	}

	if existing == nil {
		return persistence.NewRuleError("DeleteRule", tenantID, id, persistence.ErrRuleNotFound)
	}

	_, err = removeDocument(r.root, rulesCollection, id)

	return err
}

func (r *RuleRepository) loadAll() ([]*models.WorkflowRule, error) {
	ids, err := listDocumentIDs(r.root, rulesCollection)
	if err != nil {
		return nil, err
	}

	rules := make([]*models.WorkflowRule, 0, len(ids))

	for _, id := range ids {
		rule := &models.WorkflowRule{}

		found, err := readDocument(r.root, rulesCollection, id, rule)
		if err != nil {
			return nil, fmt.Errorf("failed to load rule %s: %w", id, err)
		}

		if found {
			rules = append(rules, rule)
		}
	}

	return rules, nil
}
