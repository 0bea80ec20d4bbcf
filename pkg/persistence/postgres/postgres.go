// Package postgres provides PostgreSQL persistence for rules, executions,
// notifications, and reminders.
package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/fieldflow/fieldflow/pkg/persistence"
	"github.com/fieldflow/fieldflow/pkg/persistence/sqlbase"

	_ "github.com/lib/pq"
)

// Persistence implements persistence.Persistence using a PostgreSQL database.
type Persistence struct {
	db               *sql.DB
	logger           *slog.Logger
	ruleRepo         *RuleRepository
	executionRepo    *ExecutionRepository
	notificationRepo *NotificationRepository
	reminderRepo     *ReminderRepository
	entityRepo       *EntityRepository
}

// NewPersistence connects to PostgreSQL and runs pending migrations.
func NewPersistence(ctx context.Context, logger *slog.Logger, databaseURL string) (*Persistence, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	err = database.PingContext(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	migrationManager := sqlbase.NewMigrationManager(logger, database, migrations())

	err = migrationManager.RunMigrations(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	repoLogger := logger.With("component", "postgres_persistence")

	logger.InfoContext(ctx, "PostgreSQL persistence initialized successfully")

	return &Persistence{
		db:               database,
		logger:           repoLogger,
		ruleRepo:         &RuleRepository{db: database, logger: repoLogger},
		executionRepo:    &ExecutionRepository{db: database, logger: repoLogger},
		notificationRepo: &NotificationRepository{db: database, logger: repoLogger},
		reminderRepo:     &ReminderRepository{db: database, logger: repoLogger},
		entityRepo:       &EntityRepository{db: database, logger: repoLogger},
	}, nil
}

func (p *Persistence) RuleRepository() persistence.RuleRepository {
	return p.ruleRepo
}

func (p *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return p.executionRepo
}

func (p *Persistence) NotificationRepository() persistence.NotificationRepository {
	return p.notificationRepo
}

func (p *Persistence) ReminderRepository() persistence.ReminderRepository {
	return p.reminderRepo
}

func (p *Persistence) EntityRepository() persistence.EntityRepository {
	return p.entityRepo
}

func (p *Persistence) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

func (p *Persistence) Close(_ context.Context) error {
	return p.db.Close()
}
