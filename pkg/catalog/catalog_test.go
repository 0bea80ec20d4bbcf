package catalog_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldflow/fieldflow/pkg/catalog"
	"github.com/fieldflow/fieldflow/pkg/models"
)

func TestTemplates(t *testing.T) {
	templates := catalog.Templates()
	require.Len(t, templates, 7)

	names := make(map[string]bool)

	for _, tpl := range templates {
		assert.NotEmpty(t, tpl.Name)
		assert.True(t, tpl.EntityType.IsValid(), "template %q entity type", tpl.Name)
		assert.True(t, tpl.TriggerEvent.IsValid(), "template %q trigger event", tpl.Name)
		assert.NotEmpty(t, tpl.Actions, "template %q actions", tpl.Name)
		assert.False(t, names[tpl.Name], "duplicate template name %q", tpl.Name)
		names[tpl.Name] = true

		for _, action := range tpl.Actions {
			assert.True(t, action.Type.IsValid(), "template %q action type %q", tpl.Name, action.Type)
		}
	}
}

func TestTemplates_CallerMutationIsIsolated(t *testing.T) {
	first := catalog.Templates()
	first[0].Actions[0].Parameters["message"] = "mutated"
	first[0].TriggerConditions["injected"] = true

	second := catalog.Templates()
	assert.Equal(t, "Your job status has been updated to {{new_status}}",
		second[0].Actions[0].Parameters["message"])
	assert.NotContains(t, second[0].TriggerConditions, "injected")
}

func TestTemplateByName(t *testing.T) {
	tpl, ok := catalog.TemplateByName("Inspection Overdue Alert")
	require.True(t, ok)
	assert.Equal(t, models.EntityTypeInspection, tpl.EntityType)
	assert.Len(t, tpl.Actions, 2)
	assert.Equal(t, models.ActionTypeCreateReminder, tpl.Actions[1].Type)

	_, ok = catalog.TemplateByName("No Such Template")
	assert.False(t, ok)
}

func TestInstantiate(t *testing.T) {
	tpl, ok := catalog.TemplateByName("Payment Milestone Due Reminder")
	require.True(t, ok)

	rule := catalog.Instantiate(tpl, "tenant-1", "user-1")

	assert.NotEmpty(t, rule.ID)
	assert.Equal(t, "tenant-1", rule.TenantID)
	assert.Equal(t, "user-1", rule.CreatedBy)
	assert.True(t, rule.Active)
	assert.Equal(t, tpl.Name, rule.Name)
	assert.Equal(t, models.TriggerEventDateReached, rule.TriggerEvent)
	assert.Equal(t, "payment", rule.TriggerConditions["milestone_type"])
	require.Len(t, rule.Actions, 1)
	assert.Equal(t, models.ActionTypeSendEmail, rule.Actions[0].Type)
	assert.False(t, rule.CreatedAt.IsZero())

	// Two instantiations get distinct IDs.
	other := catalog.Instantiate(tpl, "tenant-1", "user-1")
	assert.NotEqual(t, rule.ID, other.ID)
}
