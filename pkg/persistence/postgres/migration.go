package postgres

// migrations returns the versioned schema for the engine's own tables. The
// domain entity tables (jobs, milestones, ...) belong to their owning
// services and are not created here.
func migrations() map[int]string {
	return map[int]string{
		1: `
			CREATE TABLE IF NOT EXISTS workflow_rules (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				name TEXT NOT NULL,
				description TEXT NOT NULL DEFAULT '',
				entity_type TEXT NOT NULL,
				trigger_event TEXT NOT NULL,
				trigger_conditions JSONB NOT NULL DEFAULT '{}',
				actions JSONB NOT NULL DEFAULT '[]',
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_by TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_rules_trigger
				ON workflow_rules (tenant_id, entity_type, trigger_event)
				WHERE active;

			CREATE TABLE IF NOT EXISTS workflow_executions (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				workflow_rule_id TEXT NOT NULL,
				entity_id TEXT NOT NULL,
				entity_type TEXT NOT NULL,
				trigger_data JSONB NOT NULL DEFAULT '{}',
				status TEXT NOT NULL DEFAULT 'pending',
				actions_executed JSONB NOT NULL DEFAULT '[]',
				error_message TEXT NOT NULL DEFAULT '',
				started_at TIMESTAMP WITH TIME ZONE NOT NULL,
				completed_at TIMESTAMP WITH TIME ZONE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_workflow_executions_entity
				ON workflow_executions (tenant_id, entity_type, entity_id);

			CREATE TABLE IF NOT EXISTS notifications (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				recipient_type TEXT NOT NULL,
				recipient_id TEXT NOT NULL DEFAULT '',
				recipient_email TEXT NOT NULL DEFAULT '',
				recipient_phone TEXT NOT NULL DEFAULT '',
				notification_type TEXT NOT NULL,
				category TEXT NOT NULL DEFAULT '',
				title TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL DEFAULT '',
				data JSONB NOT NULL DEFAULT '{}',
				status TEXT NOT NULL DEFAULT 'pending',
				delivery_attempts INTEGER NOT NULL DEFAULT 0,
				last_attempt_at TIMESTAMP WITH TIME ZONE,
				delivered_at TIMESTAMP WITH TIME ZONE,
				read_at TIMESTAMP WITH TIME ZONE,
				error_message TEXT NOT NULL DEFAULT '',
				workflow_execution_id TEXT NOT NULL DEFAULT '',
				entity_id TEXT NOT NULL DEFAULT '',
				entity_type TEXT NOT NULL DEFAULT '',
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_notifications_recipient
				ON notifications (tenant_id, recipient_id, created_at DESC);

			CREATE INDEX IF NOT EXISTS idx_notifications_unread
				ON notifications (tenant_id, recipient_id)
				WHERE read_at IS NULL;

			CREATE TABLE IF NOT EXISTS automated_reminders (
				id TEXT PRIMARY KEY,
				tenant_id TEXT NOT NULL,
				entity_type TEXT NOT NULL DEFAULT '',
				entity_id TEXT NOT NULL DEFAULT '',
				reminder_type TEXT NOT NULL DEFAULT 'follow_up',
				title TEXT NOT NULL DEFAULT '',
				message TEXT NOT NULL DEFAULT '',
				remind_at TIMESTAMP WITH TIME ZONE NOT NULL,
				reminder_frequency TEXT NOT NULL DEFAULT 'once',
				max_reminders INTEGER NOT NULL DEFAULT 1,
				reminders_sent INTEGER NOT NULL DEFAULT 0,
				active BOOLEAN NOT NULL DEFAULT TRUE,
				created_at TIMESTAMP WITH TIME ZONE NOT NULL,
				updated_at TIMESTAMP WITH TIME ZONE NOT NULL
			);

			CREATE INDEX IF NOT EXISTS idx_automated_reminders_due
				ON automated_reminders (remind_at)
				WHERE active;
		`,
	}
}
