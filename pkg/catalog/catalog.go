// Package catalog holds the predefined workflow rule templates a tenant can
// instantiate instead of authoring a rule from scratch.
package catalog

import (
	"time"

	"github.com/google/uuid"

	"github.com/fieldflow/fieldflow/pkg/models"
)

// Templates returns the built-in rule templates. The slice is rebuilt on each
// call so callers may mutate their copy freely.
func Templates() []models.RuleTemplate {
	return []models.RuleTemplate{
		{
			Name:              "Job Status Change Notification",
			Description:       "Notify customer when job status changes",
			EntityType:        models.EntityTypeJob,
			TriggerEvent:      models.TriggerEventStatusChange,
			TriggerConditions: map[string]any{},
			Actions: []models.Action{
				{
					Type:   models.ActionTypeSendNotification,
					Target: "customer",
					Parameters: map[string]any{
						"recipient_type": "contact",
						"category":       "job_status",
						"title":          "Job Status Update",
						"message":        "Your job status has been updated to {{new_status}}",
					},
				},
			},
		},
		{
			Name:              "Payment Milestone Due Reminder",
			Description:       "Send reminder when payment milestone is due",
			EntityType:        models.EntityTypeMilestone,
			TriggerEvent:      models.TriggerEventDateReached,
			TriggerConditions: map[string]any{"milestone_type": "payment"},
			Actions: []models.Action{
				{
					Type:   models.ActionTypeSendEmail,
					Target: "customer",
					Parameters: map[string]any{
						"category": "payment",
						"subject":  "Payment Due Reminder",
						"message":  "A payment milestone is now due for your project",
					},
				},
			},
		},
		{
			Name:              "Team Assignment Notification",
			Description:       "Notify team member when assigned to job",
			EntityType:        models.EntityTypeTeamAssignment,
			TriggerEvent:      models.TriggerEventCreated,
			TriggerConditions: map[string]any{},
			Actions: []models.Action{
				{
					Type:   models.ActionTypeSendNotification,
					Target: "team_member",
					Parameters: map[string]any{
						"recipient_type": "user",
						"category":       "assignment",
						"title":          "New Job Assignment",
						"message":        "You have been assigned to job: {{job_title}}",
					},
				},
			},
		},
		{
			Name:              "Inspection Overdue Alert",
			Description:       "Alert when inspection is overdue",
			EntityType:        models.EntityTypeInspection,
			TriggerEvent:      models.TriggerEventOverdue,
			TriggerConditions: map[string]any{},
			Actions: []models.Action{
				{
					Type:   models.ActionTypeSendNotification,
					Target: "project_manager",
					Parameters: map[string]any{
						"recipient_type": "user",
						"category":       "alert",
						"title":          "Overdue Inspection",
						"message":        "Inspection {{inspection_type}} is overdue for job {{job_title}}",
					},
				},
				{
					Type:   models.ActionTypeCreateReminder,
					Target: "system",
					Parameters: map[string]any{
						"reminder_type": "inspection",
						"title":         "Follow up on overdue inspection",
						"message":       "Please follow up on the overdue inspection",
						"days_from_now": 1,
						"frequency":     "daily",
						"max_reminders": 3,
					},
				},
			},
		},
		{
			Name:              "Lead Site Visit Reminder",
			Description:       "Remind team about upcoming site visits",
			EntityType:        models.EntityTypeLead,
			TriggerEvent:      models.TriggerEventDateReached,
			TriggerConditions: map[string]any{"status": "site_visit_scheduled"},
			Actions: []models.Action{
				{
					Type:   models.ActionTypeSendNotification,
					Target: "assigned_rep",
					Parameters: map[string]any{
						"recipient_type": "user",
						"category":       "reminder",
						"title":          "Site Visit Reminder",
						"message":        "You have a site visit scheduled for {{site_visit_date}}",
					},
				},
			},
		},
		{
			Name:              "Material Order Delivery Reminder",
			Description:       "Remind when material delivery is expected",
			EntityType:        models.EntityTypeMaterialOrder,
			TriggerEvent:      models.TriggerEventDateReached,
			TriggerConditions: map[string]any{"status": "ordered"},
			Actions: []models.Action{
				{
					Type:   models.ActionTypeSendNotification,
					Target: "project_manager",
					Parameters: map[string]any{
						"recipient_type": "user",
						"category":       "reminder",
						"title":          "Material Delivery Expected",
						"message":        "Material delivery expected today for order {{order_number}}",
					},
				},
			},
		},
		{
			Name:              "Quote Request Follow-up",
			Description:       "Follow up on pending quote requests",
			EntityType:        models.EntityTypeQuoteRequest,
			TriggerEvent:      models.TriggerEventOverdue,
			TriggerConditions: map[string]any{"status": "sent"},
			Actions: []models.Action{
				{
					Type:   models.ActionTypeSendNotification,
					Target: "procurement_manager",
					Parameters: map[string]any{
						"recipient_type": "user",
						"category":       "alert",
						"title":          "Quote Request Overdue",
						"message":        "Quote request {{request_title}} response deadline has passed",
					},
				},
				{
					Type:   models.ActionTypeSendEmail,
					Target: "vendors",
					Parameters: map[string]any{
						"category": "reminder",
						"subject":  "Quote Request Follow-up",
						"message":  "We are still awaiting your quote for our recent request",
					},
				},
			},
		},
	}
}

// TemplateByName finds a template by its exact name.
func TemplateByName(name string) (models.RuleTemplate, bool) {
	for _, tpl := range Templates() {
		if tpl.Name == name {
			return tpl, true
		}
	}

	return models.RuleTemplate{}, false
}

// Instantiate builds a persistable rule from a template for the given tenant.
// The rule starts active and owned by createdBy.
func Instantiate(tpl models.RuleTemplate, tenantID, createdBy string) *models.WorkflowRule {
	now := time.Now().UTC()

	actions := make([]models.Action, len(tpl.Actions))
	copy(actions, tpl.Actions)

	conditions := make(map[string]any, len(tpl.TriggerConditions))
	for key, value := range tpl.TriggerConditions {
		conditions[key] = value
	}

	return &models.WorkflowRule{
		ID:                uuid.New().String(),
		TenantID:          tenantID,
		Name:              tpl.Name,
		Description:       tpl.Description,
		EntityType:        tpl.EntityType,
		TriggerEvent:      tpl.TriggerEvent,
		TriggerConditions: conditions,
		Actions:           actions,
		Active:            true,
		CreatedBy:         createdBy,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}
