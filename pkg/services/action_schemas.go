package services

import (
	"fmt"
	"strings"

	"github.com/xeipuuv/gojsonschema"

	"github.com/fieldflow/fieldflow/pkg/models"
)

// actionParameterSchemas defines per-action JSON schemas for the parameters
// map. Missing optional keys fall back to defaults at dispatch time, so most
// schemas only constrain types; update_status is the exception and requires
// new_status up front.
var actionParameterSchemas = map[models.ActionType]map[string]any{
	models.ActionTypeSendNotification: {
		"type": "object",
		"properties": map[string]any{
			"recipient_type": map[string]any{"type": "string", "enum": []any{"user", "contact", "vendor", "subcontractor", "external"}},
			"recipient_id":   map[string]any{"type": "string"},
			"category":       map[string]any{"type": "string"},
			"title":          map[string]any{"type": "string"},
			"message":        map[string]any{"type": "string"},
		},
	},
	models.ActionTypeSendEmail: {
		"type": "object",
		"properties": map[string]any{
			"recipient_email": map[string]any{"type": "string"},
			"category":        map[string]any{"type": "string"},
			"subject":         map[string]any{"type": "string"},
			"message":         map[string]any{"type": "string"},
		},
	},
	models.ActionTypeCreateReminder: {
		"type": "object",
		"properties": map[string]any{
			"reminder_type": map[string]any{"type": "string"},
			"title":         map[string]any{"type": "string"},
			"message":       map[string]any{"type": "string"},
			"days_from_now": map[string]any{"type": "integer", "minimum": 0},
			"frequency":     map[string]any{"type": "string", "enum": []any{"once", "daily", "weekly", "monthly"}},
			"max_reminders": map[string]any{"type": "integer", "minimum": 1},
		},
	},
	models.ActionTypeUpdateStatus: {
		"type": "object",
		"properties": map[string]any{
			"new_status": map[string]any{"type": "string", "minLength": 1},
		},
		"required": []any{"new_status"},
	},
	models.ActionTypeAssignTeam: {
		"type": "object",
		"properties": map[string]any{
			"team_id": map[string]any{"type": "string"},
		},
	},
	models.ActionTypeCreateInvoice: {
		"type": "object",
		"properties": map[string]any{
			"invoice_type": map[string]any{"type": "string"},
		},
	},
	models.ActionTypeWebhook: {
		"type": "object",
		"properties": map[string]any{
			"url":    map[string]any{"type": "string"},
			"method": map[string]any{"type": "string"},
		},
	},
}

// validateActionParameters checks an action's parameters against the schema
// for its type.
func validateActionParameters(action models.Action) error {
	schema, ok := actionParameterSchemas[action.Type]
	if !ok {
		return fmt.Errorf("unknown action type: %s", action.Type)
	}

	parameters := action.Parameters
	if parameters == nil {
		parameters = map[string]any{}
	}

	schemaLoader := gojsonschema.NewGoLoader(schema)
	dataLoader := gojsonschema.NewGoLoader(parameters)

	result, err := gojsonschema.Validate(schemaLoader, dataLoader)
	if err != nil {
		return fmt.Errorf("failed to validate %s parameters: %w", action.Type, err)
	}

	if !result.Valid() {
		issues := make([]string, 0, len(result.Errors()))
		for _, issue := range result.Errors() {
			issues = append(issues, issue.String())
		}

		return fmt.Errorf("%s parameters invalid: %s", action.Type, strings.Join(issues, "; "))
	}

	return nil
}
