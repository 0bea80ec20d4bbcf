// Package file provides file-based persistence for rules, executions,
// notifications, and reminders. Each record is one JSON document under the
// root directory. Intended for development and tests; production deployments
// use the postgres implementation.
package file

import (
	"context"
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/fieldflow/fieldflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on the local file system.
type Persistence struct {
	root             string
	ruleRepo         *RuleRepository
	executionRepo    *ExecutionRepository
	notificationRepo *NotificationRepository
	reminderRepo     *ReminderRepository
	entityRepo       *EntityRepository
}

// NewPersistence creates a new file persistence rooted at the given directory.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)
	mu := &sync.Mutex{}

	return &Persistence{
		root:             cleanRoot,
		ruleRepo:         &RuleRepository{root: cleanRoot, mu: mu},
		executionRepo:    &ExecutionRepository{root: cleanRoot, mu: mu},
		notificationRepo: &NotificationRepository{root: cleanRoot, mu: mu},
		reminderRepo:     &ReminderRepository{root: cleanRoot, mu: mu},
		entityRepo:       &EntityRepository{root: cleanRoot, mu: mu},
	}
}

func (fp *Persistence) RuleRepository() persistence.RuleRepository {
	return fp.ruleRepo
}

func (fp *Persistence) ExecutionRepository() persistence.ExecutionRepository {
	return fp.executionRepo
}

func (fp *Persistence) NotificationRepository() persistence.NotificationRepository {
	return fp.notificationRepo
}

func (fp *Persistence) ReminderRepository() persistence.ReminderRepository {
	return fp.reminderRepo
}

func (fp *Persistence) EntityRepository() persistence.EntityRepository {
	return fp.entityRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. For file persistence there is none.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}

// writeDocument marshals v into <root>/<collection>/<id>.json.
func writeDocument(root, collection, id string, v any) error {
	dir := filepath.Join(root, collection)

	err := os.MkdirAll(dir, 0o755)
	if err != nil {
		return fmt.Errorf("failed to create %s directory: %w", collection, err)
	}

	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to serialize %s document: %w", collection, err)
	}

	err = os.WriteFile(filepath.Join(dir, id+".json"), data, 0o600)
	if err != nil {
		return fmt.Errorf("failed to write %s document: %w", collection, err)
	}

	return nil
}

// readDocument unmarshals <root>/<collection>/<id>.json into v. It reports
// found=false when the document does not exist.
func readDocument(root, collection, id string, v any) (bool, error) {
	data, err := os.ReadFile(filepath.Join(root, collection, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to read %s document: %w", collection, err)
	}

	err = json.Unmarshal(data, v)
	if err != nil {
		return false, fmt.Errorf("failed to parse %s document: %w", collection, err)
	}

	return true, nil
}

// listDocumentIDs returns the IDs of every document in a collection.
func listDocumentIDs(root, collection string) ([]string, error) {
	dir := filepath.Join(root, collection)
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil, nil
	}

	jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
	if err != nil {
		return nil, fmt.Errorf("failed to list %s documents: %w", collection, err)
	}

	ids := make([]string, 0, len(jsonFiles))
	for _, name := range jsonFiles {
		ids = append(ids, strings.TrimSuffix(name, ".json"))
	}

	return ids, nil
}

// removeDocument deletes a document; missing documents are not an error here,
// callers decide whether absence matters.
func removeDocument(root, collection, id string) (bool, error) {
	err := os.Remove(filepath.Join(root, collection, id+".json"))
	if err != nil {
		if os.IsNotExist(err) {
			return false, nil
		}

		return false, fmt.Errorf("failed to delete %s document: %w", collection, err)
	}

	return true, nil
}
