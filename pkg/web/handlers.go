package web

import (
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"

	"github.com/fieldflow/fieldflow/pkg/engine"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
	"github.com/fieldflow/fieldflow/pkg/services"
)

type APIHandlers struct {
	ruleService         *services.RuleService
	notificationService *services.NotificationService
	engine              *engine.Engine
	persistence         persistence.Persistence
	validator           *validator.Validate
}

func NewAPIHandlers(
	ruleService *services.RuleService,
	notificationService *services.NotificationService,
	eng *engine.Engine,
	p persistence.Persistence,
	validator *validator.Validate,
) *APIHandlers {
	return &APIHandlers{
		ruleService:         ruleService,
		notificationService: notificationService,
		engine:              eng,
		persistence:         p,
		validator:           validator,
	}
}

func (h *APIHandlers) GetRules(c fiber.Ctx) error {
	rules, err := h.ruleService.List(c.Context(), tenantFromCtx(c))
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"rules":       rules,
		"total_count": len(rules),
	})
}

func (h *APIHandlers) GetRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	rule, err := h.ruleService.Get(c.Context(), tenantFromCtx(c), id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(rule)
}

func (h *APIHandlers) CreateRule(c fiber.Ctx) error {
	var req CreateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.ruleService.Create(c.Context(), tenantFromCtx(c), req.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) UpdateRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	var req UpdateRuleRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	tctx := tenantFromCtx(c)

	existing, err := h.ruleService.Get(c.Context(), tctx, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	// entity_type and trigger_event are fixed at creation; a rule that should
	// watch a different event is a new rule.
	if req.Name != nil {
		existing.Name = *req.Name
	}

	if req.Description != nil {
		existing.Description = *req.Description
	}

	if req.TriggerConditions != nil {
		existing.TriggerConditions = req.TriggerConditions
	}

	if req.Actions != nil {
		existing.Actions = toModelActions(req.Actions)
	}

	if req.Active != nil {
		existing.Active = *req.Active
	}

	updated, err := h.ruleService.Update(c.Context(), tctx, id, existing)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(updated)
}

func (h *APIHandlers) DeleteRule(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Rule ID is required")
	}

	if err := h.ruleService.Delete(c.Context(), tenantFromCtx(c), id); err != nil {
		return handleServiceError(c, err)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

func (h *APIHandlers) GetTemplates(c fiber.Ctx) error {
	templates := h.ruleService.Templates()

	return c.JSON(fiber.Map{
		"templates":   templates,
		"total_count": len(templates),
	})
}

func (h *APIHandlers) InstantiateTemplate(c fiber.Ctx) error {
	name, err := url.PathUnescape(c.Params("name"))
	if err != nil || name == "" {
		return badRequest(c, "Template name is required")
	}

	rule, err := h.ruleService.InstantiateTemplate(c.Context(), tenantFromCtx(c), name)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(rule)
}

func (h *APIHandlers) Trigger(c fiber.Ctx) error {
	var req TriggerRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	executionIDs, err := h.engine.Trigger(c.Context(), tenantFromCtx(c), engine.TriggerRequest{
		EntityType:   models.EntityType(req.EntityType),
		EntityID:     req.EntityID,
		TriggerEvent: models.TriggerEvent(req.TriggerEvent),
		TriggerData:  req.TriggerData,
	})
	if err != nil {
		return handleServiceError(c, err)
	}

	if executionIDs == nil {
		executionIDs = []string{}
	}

	return c.Status(fiber.StatusAccepted).JSON(TriggerResponse{ExecutionIDs: executionIDs})
}

func (h *APIHandlers) GetExecution(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Execution ID is required")
	}

	execution, err := h.persistence.ExecutionRepository().ExecutionByID(c.Context(), tenantFromCtx(c).TenantID, id)
	if err != nil {
		return internalError(c, err)
	}

	if execution == nil {
		return notFound(c, "Workflow execution not found")
	}

	return c.JSON(execution)
}

func (h *APIHandlers) GetExecutions(c fiber.Ctx) error {
	entityType := models.EntityType(c.Query("entity_type"))
	entityID := c.Query("entity_id")

	if !entityType.IsValid() {
		return badRequest(c, "Unknown entity_type")
	}

	if entityID == "" {
		return badRequest(c, "entity_id is required")
	}

	executions, err := h.persistence.ExecutionRepository().ExecutionsByEntity(c.Context(), tenantFromCtx(c).TenantID, entityType, entityID)
	if err != nil {
		return internalError(c, err)
	}

	return c.JSON(fiber.Map{
		"executions":  executions,
		"total_count": len(executions),
	})
}

func (h *APIHandlers) GetNotifications(c fiber.Ctx) error {
	limit, err := parseLimit(c)
	if err != nil {
		return badRequest(c, "Invalid limit parameter")
	}

	tctx := tenantFromCtx(c)

	var notifications []*models.Notification
	if recipientID := c.Query("recipient_id"); recipientID != "" {
		notifications, err = h.notificationService.ListForRecipient(c.Context(), tctx, recipientID, limit)
	} else {
		notifications, err = h.notificationService.ListForTenant(c.Context(), tctx, limit)
	}

	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{
		"notifications": notifications,
		"total_count":   len(notifications),
	})
}

func (h *APIHandlers) SendNotification(c fiber.Ctx) error {
	var req SendNotificationRequest
	if err := c.Bind().JSON(&req); err != nil {
		return badRequest(c, "Invalid JSON format")
	}

	if err := h.validator.Struct(req); err != nil {
		return badRequest(c, err.Error())
	}

	created, err := h.notificationService.Send(c.Context(), tenantFromCtx(c), req.toModel())
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.Status(fiber.StatusCreated).JSON(created)
}

func (h *APIHandlers) MarkNotificationRead(c fiber.Ctx) error {
	id := c.Params("id")
	if id == "" {
		return badRequest(c, "Notification ID is required")
	}

	tctx := tenantFromCtx(c)

	if err := h.notificationService.MarkRead(c.Context(), tctx, id); err != nil {
		return handleServiceError(c, err)
	}

	notification, err := h.notificationService.Get(c.Context(), tctx, id)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(notification)
}

func (h *APIHandlers) GetUnreadCount(c fiber.Ctx) error {
	recipientID := c.Query("recipient_id")
	if recipientID == "" {
		return badRequest(c, "recipient_id is required")
	}

	count, err := h.notificationService.UnreadCount(c.Context(), tenantFromCtx(c), recipientID)
	if err != nil {
		return handleServiceError(c, err)
	}

	return c.JSON(fiber.Map{"unread_count": count})
}

func (h *APIHandlers) HealthCheck(c fiber.Ctx) error {
	status := "healthy"
	message := "FieldFlow API is healthy"
	httpStatus := http.StatusOK

	repositoryErr := h.persistence.HealthCheck(c.Context())
	if repositoryErr != nil {
		status = "unhealthy"
		message = "FieldFlow API is unhealthy"
		httpStatus = http.StatusInternalServerError
	}

	repositoryCheck := "ok"
	if repositoryErr != nil {
		repositoryCheck = repositoryErr.Error()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status":  status,
		"message": message,
		"checkers": fiber.Map{
			"repository": repositoryCheck,
		},
		"timestamp": time.Now().UTC(),
	})
}

func parseLimit(c fiber.Ctx) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return 0, nil
	}

	return strconv.Atoi(limitStr)
}
