package file

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// WorkflowRepository stores workflow documents as JSON files. The latest
// document lives at workflows/<id>.json; every save also snapshots
// workflows/<id>.v<version>.json so runs can bind to an immutable version.
type WorkflowRepository struct {
	store *Persistence
}

func (r *WorkflowRepository) List(_ context.Context) ([]*models.Workflow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	entries, err := os.ReadDir(r.store.path("workflows"))
	if err != nil {
		return nil, err
	}

	var workflows []*models.Workflow

	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasSuffix(name, ".json") || strings.Contains(name, ".v") {
			continue
		}

		workflow := &models.Workflow{}
		if err := readJSON(r.store.path("workflows", name), workflow, persistence.ErrWorkflowNotFound); err != nil {
			return nil, err
		}

		workflows = append(workflows, workflow)
	}

	sort.Slice(workflows, func(i, j int) bool {
		return workflows[i].ID < workflows[j].ID
	})

	return workflows, nil
}

func (r *WorkflowRepository) GetByID(_ context.Context, id string) (*models.Workflow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	workflow := &models.Workflow{}
	if err := readJSON(r.store.path("workflows", id+".json"), workflow, persistence.ErrWorkflowNotFound); err != nil {
		return nil, persistence.NewWorkflowError("GetByID", id, err)
	}

	return workflow, nil
}

func (r *WorkflowRepository) GetVersion(_ context.Context, id string, version int) (*models.Workflow, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	workflow := &models.Workflow{}

	path := r.store.path("workflows", fmt.Sprintf("%s.v%d.json", id, version))
	if err := readJSON(path, workflow, persistence.ErrWorkflowVersionNotFound); err != nil {
		return nil, &persistence.WorkflowError{Op: "GetVersion", WorkflowID: id, Version: version, Err: err}
	}

	return workflow, nil
}

func (r *WorkflowRepository) Save(_ context.Context, workflow *models.Workflow) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	if err := writeJSON(r.store.path("workflows", workflow.ID+".json"), workflow); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	snapshot := r.store.path("workflows", fmt.Sprintf("%s.v%d.json", workflow.ID, workflow.Version))
	if err := writeJSON(snapshot, workflow); err != nil {
		return persistence.NewWorkflowError("Save", workflow.ID, err)
	}

	return nil
}

func (r *WorkflowRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	matches, err := filepath.Glob(r.store.path("workflows", id+".v*.json"))
	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	for _, match := range matches {
		if err := os.Remove(match); err != nil {
			return persistence.NewWorkflowError("Delete", id, err)
		}
	}

	err = os.Remove(r.store.path("workflows", id+".json"))
	if os.IsNotExist(err) {
		return persistence.NewWorkflowError("Delete", id, persistence.ErrWorkflowNotFound)
	}

	if err != nil {
		return persistence.NewWorkflowError("Delete", id, err)
	}

	return nil
}
