package web_test

import (
	"bytes"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"os"
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldflow/fieldflow/pkg/engine"
	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence/file"
	"github.com/fieldflow/fieldflow/pkg/services"
	"github.com/fieldflow/fieldflow/pkg/web"
)

func setupTestApp(t *testing.T) *fiber.App {
	t.Helper()

	persistence := file.NewPersistence(t.TempDir())
	logger := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))

	ruleService := services.NewRuleService(persistence, logger)
	notificationService := services.NewNotificationService(persistence, nil, logger)
	eng := engine.NewEngine(persistence, nil, nil, logger)

	handlers := web.NewAPIHandlers(
		ruleService,
		notificationService,
		eng,
		persistence,
		validator.New(validator.WithRequiredStructEnabled()),
	)

	app := fiber.New()
	web.RegisterRoutes(app, handlers)

	return app
}

func doJSON(t *testing.T, app *fiber.App, method, path string, payload any) (*http.Response, []byte) {
	t.Helper()

	var body []byte

	switch v := payload.(type) {
	case nil:
	case string:
		body = []byte(v)
	default:
		var err error
		body, err = json.Marshal(v)
		require.NoError(t, err)
	}

	req := httptest.NewRequest(method, path, bytes.NewBuffer(body))
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set(web.TenantHeader, "tenant-1")
	req.Header.Set(web.UserHeader, "user-1")

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	respBody, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, respBody
}

func validRuleRequest(name string) web.CreateRuleRequest {
	return web.CreateRuleRequest{
		Name:         name,
		Description:  "Notify on job completion",
		EntityType:   "job",
		TriggerEvent: "status_change",
		TriggerConditions: map[string]any{
			"new_status": "completed",
		},
		Actions: []web.RuleActionRequest{
			{
				Type: "send_notification",
				Parameters: map[string]any{
					"title":   "Job done",
					"message": "Job {{job_number}} is complete",
				},
			},
		},
	}
}

func TestRoutes_RequireTenantHeader(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/rules", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
}

func TestAPIHandlers_CreateRule(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name           string
		requestBody    any
		expectedStatus int
	}{
		{
			name:           "successful creation",
			requestBody:    validRuleRequest("Job Completion Notification"),
			expectedStatus: http.StatusCreated,
		},
		{
			name: "validation error - name too short",
			requestBody: func() web.CreateRuleRequest {
				r := validRuleRequest("ab")

				return r
			}(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - no actions",
			requestBody: func() web.CreateRuleRequest {
				r := validRuleRequest("No Actions Rule")
				r.Actions = nil

				return r
			}(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name: "validation error - unknown entity type",
			requestBody: func() web.CreateRuleRequest {
				r := validRuleRequest("Bad Entity Rule")
				r.EntityType = "spaceship"

				return r
			}(),
			expectedStatus: http.StatusBadRequest,
		},
		{
			name:           "invalid JSON",
			requestBody:    "not-json",
			expectedStatus: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			app := setupTestApp(t)

			resp, body := doJSON(t, app, http.MethodPost, "/rules", tt.requestBody)
			assert.Equal(t, tt.expectedStatus, resp.StatusCode)

			if tt.expectedStatus == http.StatusCreated {
				var rule models.WorkflowRule
				require.NoError(t, json.Unmarshal(body, &rule))
				assert.NotEmpty(t, rule.ID)
				assert.Equal(t, "tenant-1", rule.TenantID)
				assert.Equal(t, "user-1", rule.CreatedBy)
				assert.True(t, rule.Active)
			}
		})
	}
}

func TestAPIHandlers_RuleLifecycle(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/rules", validRuleRequest("Lifecycle Rule"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.WorkflowRule
	require.NoError(t, json.Unmarshal(body, &created))

	resp, body = doJSON(t, app, http.MethodGet, "/rules/"+created.ID, nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var fetched models.WorkflowRule
	require.NoError(t, json.Unmarshal(body, &fetched))
	assert.Equal(t, created.Name, fetched.Name)

	resp, body = doJSON(t, app, http.MethodGet, "/rules", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Rules      []*models.WorkflowRule `json:"rules"`
		TotalCount int                    `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Equal(t, 1, list.TotalCount)

	resp, body = doJSON(t, app, http.MethodPatch, "/rules/"+created.ID, map[string]any{"active": false})
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.WorkflowRule
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.False(t, updated.Active)
	assert.Equal(t, created.Name, updated.Name)

	resp, _ = doJSON(t, app, http.MethodDelete, "/rules/"+created.ID, nil)
	require.Equal(t, http.StatusNoContent, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/rules/"+created.ID, nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_Templates(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodGet, "/rule-templates", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Templates  []models.RuleTemplate `json:"templates"`
		TotalCount int                   `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	assert.Len(t, list.Templates, 7)

	name := url.PathEscape("Quote Request Follow-up")

	resp, body = doJSON(t, app, http.MethodPost, "/rule-templates/"+name+"/instantiate", nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var rule models.WorkflowRule
	require.NoError(t, json.Unmarshal(body, &rule))
	assert.Equal(t, "Quote Request Follow-up", rule.Name)
	assert.Equal(t, "tenant-1", rule.TenantID)

	resp, _ = doJSON(t, app, http.MethodPost, "/rule-templates/"+url.PathEscape("No Such Template")+"/instantiate", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}

func TestAPIHandlers_TriggerAndExecutions(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, _ := doJSON(t, app, http.MethodPost, "/rules", validRuleRequest("Trigger Rule"))
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	resp, body := doJSON(t, app, http.MethodPost, "/triggers", web.TriggerRequest{
		EntityType:   "job",
		EntityID:     "job-42",
		TriggerEvent: "status_change",
		TriggerData:  map[string]any{"new_status": "completed", "job_number": "J-42"},
	})
	require.Equal(t, http.StatusAccepted, resp.StatusCode)

	var triggered web.TriggerResponse
	require.NoError(t, json.Unmarshal(body, &triggered))
	require.Len(t, triggered.ExecutionIDs, 1)

	resp, body = doJSON(t, app, http.MethodGet, "/executions?entity_type=job&entity_id=job-42", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Executions []*models.WorkflowExecution `json:"executions"`
		TotalCount int                         `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.TotalCount)
	assert.Equal(t, models.ExecutionStatusCompleted, list.Executions[0].Status)

	resp, body = doJSON(t, app, http.MethodGet, "/executions/"+triggered.ExecutionIDs[0], nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var execution models.WorkflowExecution
	require.NoError(t, json.Unmarshal(body, &execution))
	assert.Equal(t, "job-42", execution.EntityID)

	resp, _ = doJSON(t, app, http.MethodGet, "/executions/missing-id", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/executions?entity_type=spaceship&entity_id=x", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodPost, "/triggers", web.TriggerRequest{
		EntityType:   "job",
		TriggerEvent: "status_change",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_Notifications(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	resp, body := doJSON(t, app, http.MethodPost, "/notifications", web.SendNotificationRequest{
		RecipientID: "user-2",
		Title:       "Manual heads-up",
		Message:     "The inspection was rescheduled",
	})
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var created models.Notification
	require.NoError(t, json.Unmarshal(body, &created))
	assert.Equal(t, models.NotificationTypeInApp, created.NotificationType)
	assert.Equal(t, models.RecipientTypeUser, created.RecipientType)
	assert.Equal(t, models.NotificationStatusPending, created.Status)

	resp, _ = doJSON(t, app, http.MethodPost, "/notifications", web.SendNotificationRequest{
		RecipientID: "user-2",
		Message:     "missing title",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	resp, body = doJSON(t, app, http.MethodGet, "/notifications?recipient_id=user-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var list struct {
		Notifications []*models.Notification `json:"notifications"`
		TotalCount    int                    `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(body, &list))
	require.Equal(t, 1, list.TotalCount)

	resp, body = doJSON(t, app, http.MethodGet, "/notifications/unread-count?recipient_id=user-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var count struct {
		UnreadCount int `json:"unread_count"`
	}
	require.NoError(t, json.Unmarshal(body, &count))
	assert.Equal(t, 1, count.UnreadCount)

	resp, body = doJSON(t, app, http.MethodPost, "/notifications/"+created.ID+"/read", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	var read models.Notification
	require.NoError(t, json.Unmarshal(body, &read))
	require.NotNil(t, read.ReadAt)

	resp, body = doJSON(t, app, http.MethodGet, "/notifications/unread-count?recipient_id=user-2", nil)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NoError(t, json.Unmarshal(body, &count))
	assert.Equal(t, 0, count.UnreadCount)

	resp, _ = doJSON(t, app, http.MethodPost, "/notifications/missing-id/read", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	resp, _ = doJSON(t, app, http.MethodGet, "/notifications/unread-count", nil)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestAPIHandlers_HealthCheck(t *testing.T) {
	t.Parallel()

	app := setupTestApp(t)

	req := httptest.NewRequest(http.MethodGet, "/health", nil)

	resp, err := app.Test(req)
	require.NoError(t, err)

	defer func() { _ = resp.Body.Close() }()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
}
