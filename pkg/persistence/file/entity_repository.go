package file

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/fieldflow/fieldflow/pkg/models"
	"github.com/fieldflow/fieldflow/pkg/persistence"
)

// entityDocument is the minimal projection of a domain entity this engine
// reads and writes. The full entity lives with its owning service.
type entityDocument struct {
	ID        string    `json:"id"`
	TenantID  string    `json:"tenant_id"`
	Status    string    `json:"status"`
	UpdatedAt time.Time `json:"updated_at"`
}

// EntityRepository is the file-backed privileged write path for the
// update_status action.
type EntityRepository struct {
	root string
	mu   *sync.Mutex
}

func (r *EntityRepository) UpdateEntityStatus(_ context.Context, tenantID string, entityType models.EntityType, entityID, newStatus string) error {
	if !entityType.IsValid() {
		return fmt.Errorf("%w: %s", persistence.ErrUnknownEntityType, entityType)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	collection := entityCollection(entityType)
	doc := &entityDocument{}

	found, err := readDocument(r.root, collection, entityID, doc)
	if err != nil {
		return err
	}

	if !found || doc.TenantID != tenantID {
		return fmt.Errorf("%w: %s/%s", persistence.ErrEntityNotFound, entityType, entityID)
	}

	doc.Status = newStatus
	doc.UpdatedAt = time.Now().UTC()

	return writeDocument(r.root, collection, entityID, doc)
}

func (r *EntityRepository) EntityStatus(_ context.Context, tenantID string, entityType models.EntityType, entityID string) (string, error) {
	if !entityType.IsValid() {
		return "", fmt.Errorf("%w: %s", persistence.ErrUnknownEntityType, entityType)
	}

	doc := &entityDocument{}

	found, err := readDocument(r.root, entityCollection(entityType), entityID, doc)
	if err != nil {
		return "", err
	}

	if !found || doc.TenantID != tenantID {
		return "", fmt.Errorf("%w: %s/%s", persistence.ErrEntityNotFound, entityType, entityID)
	}

	return doc.Status, nil
}

// SeedEntity writes an entity projection directly. Tests and local
// development use it to stand in for the owning domain service.
func (r *EntityRepository) SeedEntity(_ context.Context, tenantID string, entityType models.EntityType, entityID, status string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return writeDocument(r.root, entityCollection(entityType), entityID, &entityDocument{
		ID:        entityID,
		TenantID:  tenantID,
		Status:    status,
		UpdatedAt: time.Now().UTC(),
	})
}

func entityCollection(entityType models.EntityType) string {
	return "entities/" + string(entityType)
}
