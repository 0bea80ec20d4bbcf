package models

// EntityType identifies the kind of domain object a rule or execution is about.
type EntityType string

const (
	EntityTypeLead           EntityType = "lead"
	EntityTypeJob            EntityType = "job"
	EntityTypeInspection     EntityType = "inspection"
	EntityTypeMilestone      EntityType = "milestone"
	EntityTypeTeamAssignment EntityType = "team_assignment"
	EntityTypeMaterialOrder  EntityType = "material_order"
	EntityTypeQuoteRequest   EntityType = "quote_request"
)

// EntityTypes lists every supported entity type.
func EntityTypes() []EntityType {
	return []EntityType{
		EntityTypeLead,
		EntityTypeJob,
		EntityTypeInspection,
		EntityTypeMilestone,
		EntityTypeTeamAssignment,
		EntityTypeMaterialOrder,
		EntityTypeQuoteRequest,
	}
}

// IsValid reports whether the entity type belongs to the closed set.
func (e EntityType) IsValid() bool {
	for _, known := range EntityTypes() {
		if e == known {
			return true
		}
	}

	return false
}

// entityStatusVocabulary maps each entity type to the status values the
// update_status action is allowed to write. The status field of an entity is
// never mutated to a value outside this set.
var entityStatusVocabulary = map[EntityType][]string{
	EntityTypeLead:           {"new", "contacted", "site_visit_scheduled", "quoted", "won", "lost"},
	EntityTypeJob:            {"pending", "scheduled", "in_progress", "on_hold", "completed", "cancelled"},
	EntityTypeInspection:     {"scheduled", "in_progress", "passed", "failed", "cancelled"},
	EntityTypeMilestone:      {"pending", "in_progress", "completed", "overdue", "cancelled"},
	EntityTypeTeamAssignment: {"assigned", "accepted", "declined", "completed"},
	EntityTypeMaterialOrder:  {"draft", "ordered", "shipped", "delivered", "cancelled"},
	EntityTypeQuoteRequest:   {"draft", "sent", "responded", "accepted", "expired"},
}

// ValidStatus reports whether status is part of the entity type's vocabulary.
func (e EntityType) ValidStatus(status string) bool {
	for _, known := range entityStatusVocabulary[e] {
		if status == known {
			return true
		}
	}

	return false
}

// TriggerEvent is the category of state change that can cause rule matching.
type TriggerEvent string

const (
	TriggerEventStatusChange TriggerEvent = "status_change"
	TriggerEventDateReached  TriggerEvent = "date_reached"
	TriggerEventFieldUpdated TriggerEvent = "field_updated"
	TriggerEventCreated      TriggerEvent = "created"
	TriggerEventOverdue      TriggerEvent = "overdue"
	TriggerEventCompleted    TriggerEvent = "completed"
)

// TriggerEvents lists every supported trigger event.
func TriggerEvents() []TriggerEvent {
	return []TriggerEvent{
		TriggerEventStatusChange,
		TriggerEventDateReached,
		TriggerEventFieldUpdated,
		TriggerEventCreated,
		TriggerEventOverdue,
		TriggerEventCompleted,
	}
}

// IsValid reports whether the trigger event belongs to the closed set.
func (e TriggerEvent) IsValid() bool {
	for _, known := range TriggerEvents() {
		if e == known {
			return true
		}
	}

	return false
}
