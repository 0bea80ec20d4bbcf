package queue

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/fieldflow/fieldflow/pkg/models"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func TestNewReceiver(t *testing.T) {
	receiver, err := NewReceiver(Config{Queue: "fieldflow:triggers"}, testLogger())
	require.NoError(t, err)
	assert.Equal(t, "localhost:6379", receiver.config.Addr)

	_, err = NewReceiver(Config{}, testLogger())
	assert.ErrorContains(t, err, "queue name is required")
}

func TestDecodeTriggerMessage(t *testing.T) {
	payload := []byte(`{
		"tenant_id": "tenant-1",
		"user_id": "user-1",
		"entity_type": "job",
		"entity_id": "job-9",
		"trigger_event": "status_change",
		"trigger_data": {"new_status": "completed"}
	}`)

	tctx, req, err := DecodeTriggerMessage(payload)
	require.NoError(t, err)
	assert.Equal(t, "tenant-1", tctx.TenantID)
	assert.Equal(t, "user-1", tctx.UserID)
	assert.Equal(t, models.EntityTypeJob, req.EntityType)
	assert.Equal(t, "job-9", req.EntityID)
	assert.Equal(t, models.TriggerEventStatusChange, req.TriggerEvent)
	assert.Equal(t, "completed", req.TriggerData["new_status"])
}

func TestDecodeTriggerMessage_Invalid(t *testing.T) {
	tests := []struct {
		name    string
		payload string
		errMsg  string
	}{
		{
			name:    "not json",
			payload: `status changed`,
			errMsg:  "invalid JSON payload",
		},
		{
			name:    "missing tenant",
			payload: `{"entity_type": "job", "entity_id": "job-1", "trigger_event": "created"}`,
			errMsg:  "tenant is required",
		},
		{
			name:    "unknown entity type",
			payload: `{"tenant_id": "t", "entity_type": "project", "entity_id": "p-1", "trigger_event": "created"}`,
			errMsg:  "unknown entity type",
		},
		{
			name:    "missing entity id",
			payload: `{"tenant_id": "t", "entity_type": "job", "trigger_event": "created"}`,
			errMsg:  "entity id is required",
		},
		{
			name:    "unknown trigger event",
			payload: `{"tenant_id": "t", "entity_type": "job", "entity_id": "job-1", "trigger_event": "archived"}`,
			errMsg:  "unknown trigger event",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := DecodeTriggerMessage([]byte(tt.payload))
			assert.ErrorContains(t, err, tt.errMsg)
		})
	}
}
