// Package file provides file-based persistence for local development and tests.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"

	"github.com/arcflow/arcflow/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory tree:
// workflows/, runs/, executions/, confirmations/, events/ and schedules/.
type Persistence struct {
	root string

	// One lock for the whole store. File persistence targets development and
	// tests, not throughput.
	mu sync.Mutex

	workflows     *WorkflowRepository
	runs          *RunRepository
	executions    *NodeExecutionRepository
	confirmations *ConfirmationRepository
	events        *EventRepository
	schedules     *ScheduleRepository
}

// NewPersistence creates a file-backed store rooted at the given directory.
func NewPersistence(root string) (*Persistence, error) {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	for _, dir := range []string{"workflows", "runs", "executions", "confirmations", "events", "schedules"} {
		if err := os.MkdirAll(filepath.Join(cleanRoot, dir), 0o755); err != nil {
			return nil, fmt.Errorf("failed to create %s directory: %w", dir, err)
		}
	}

	p := &Persistence{root: cleanRoot}
	p.workflows = &WorkflowRepository{store: p}
	p.runs = &RunRepository{store: p}
	p.executions = &NodeExecutionRepository{store: p}
	p.confirmations = &ConfirmationRepository{store: p}
	p.events = &EventRepository{store: p}
	p.schedules = &ScheduleRepository{store: p}

	return p, nil
}

func (p *Persistence) Workflows() persistence.WorkflowRepository {
	return p.workflows
}

func (p *Persistence) Runs() persistence.RunRepository {
	return p.runs
}

func (p *Persistence) NodeExecutions() persistence.NodeExecutionRepository {
	return p.executions
}

func (p *Persistence) Confirmations() persistence.ConfirmationRepository {
	return p.confirmations
}

func (p *Persistence) Events() persistence.EventRepository {
	return p.events
}

func (p *Persistence) Schedules() persistence.ScheduleRepository {
	return p.schedules
}

// HealthCheck verifies the root directory exists.
func (p *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(p.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. There is nothing to clean up for files.
func (p *Persistence) Close(_ context.Context) error {
	return nil
}

func (p *Persistence) path(parts ...string) string {
	return filepath.Join(append([]string{p.root}, parts...)...)
}

// readJSON loads one JSON document; notFound is returned when the file is missing.
func readJSON(path string, target any, notFound error) error {
	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return notFound
		}

		return err
	}

	return json.Unmarshal(data, target)
}

// writeJSON writes one JSON document atomically via a rename.
func writeJSON(path string, value any) error {
	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return err
	}

	return os.Rename(tmp, path)
}
