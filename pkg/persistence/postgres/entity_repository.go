package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

// EntityRepository writes entity status for the update_status action. The
// entity tables are owned by the upstream services; this repository touches
// only their status and updated_at columns.
type EntityRepository struct {
	db     *sql.DB
	logger *slog.Logger
}

// entityTables is the closed mapping from entity type to table. Table names
// never come from request input.
var entityTables = map[models.EntityType]string{
	models.EntityTypeLead:           "leads",
	models.EntityTypeJob:            "jobs",
	models.EntityTypeInspection:     "inspections",
	models.EntityTypeMilestone:      "milestones",
	models.EntityTypeTeamAssignment: "team_assignments",
	models.EntityTypeMaterialOrder:  "material_orders",
	models.EntityTypeQuoteRequest:   "quote_requests",
}

func (r *EntityRepository) UpdateEntityStatus(ctx context.Context, tenantID string, entityType models.EntityType, entityID, newStatus string) error {
	table, ok := entityTables[entityType]
	if !ok {
		return fmt.Errorf("%w: %s", persistence.ErrUnknownEntityType, entityType)
	}

	query := fmt.Sprintf(
		`UPDATE %s SET status = $1, updated_at = $2 WHERE id = $3 AND tenant_id = $4`,
		table,
	)

	result, err := r.db.ExecContext(ctx, query, newStatus, time.Now().UTC(), entityID, tenantID)
	if err != nil {
		r.logger.ErrorContext(ctx, "Failed to update entity status",
			"entity_type", entityType, "entity_id", entityID, "error", err)

		return fmt.Errorf("failed to update %s status: %w", entityType, err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to update %s status: %w", entityType, err)
	}

	if affected == 0 {
		return fmt.Errorf("%w: %s %s", persistence.ErrEntityNotFound, entityType, entityID)
	}

	return nil
}

func (r *EntityRepository) EntityStatus(ctx context.Context, tenantID string, entityType models.EntityType, entityID string) (string, error) {
	table, ok := entityTables[entityType]
	if !ok {
		return "", fmt.Errorf("%w: %s", persistence.ErrUnknownEntityType, entityType)
	}

	query := fmt.Sprintf(`SELECT status FROM %s WHERE id = $1 AND tenant_id = $2`, table)

	var status string

	err := r.db.QueryRowContext(ctx, query, entityID, tenantID).Scan(&status)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", fmt.Errorf("%w: %s %s", persistence.ErrEntityNotFound, entityType, entityID)
		}

		return "", fmt.Errorf("failed to read %s status: %w", entityType, err)
	}

	return status, nil
}
