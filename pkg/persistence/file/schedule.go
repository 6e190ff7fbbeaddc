package file

import (
	"context"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// ScheduleRepository stores schedules as schedules/<id>.json.
type ScheduleRepository struct {
	store *Persistence
}

func (r *ScheduleRepository) Save(_ context.Context, schedule *models.Schedule) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return writeJSON(r.store.path("schedules", schedule.ID+".json"), schedule)
}

func (r *ScheduleRepository) GetByID(_ context.Context, id string) (*models.Schedule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	schedule := &models.Schedule{}
	if err := readJSON(r.store.path("schedules", id+".json"), schedule, persistence.ErrScheduleNotFound); err != nil {
		return nil, err
	}

	return schedule, nil
}

func (r *ScheduleRepository) List(_ context.Context) ([]*models.Schedule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	return r.listLocked()
}

func (r *ScheduleRepository) ListDue(_ context.Context) ([]*models.Schedule, error) {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	schedules, err := r.listLocked()
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	var due []*models.Schedule

	for _, schedule := range schedules {
		if schedule.Due(now) {
			due = append(due, schedule)
		}
	}

	return due, nil
}

func (r *ScheduleRepository) Delete(_ context.Context, id string) error {
	r.store.mu.Lock()
	defer r.store.mu.Unlock()

	err := os.Remove(r.store.path("schedules", id+".json"))
	if os.IsNotExist(err) {
		return persistence.ErrScheduleNotFound
	}

	return err
}

func (r *ScheduleRepository) listLocked() ([]*models.Schedule, error) {
	entries, err := os.ReadDir(r.store.path("schedules"))
	if err != nil {
		return nil, err
	}

	var schedules []*models.Schedule

	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".json") {
			continue
		}

		schedule := &models.Schedule{}
		if err := readJSON(r.store.path("schedules", entry.Name()), schedule, persistence.ErrScheduleNotFound); err != nil {
			return nil, err
		}

		schedules = append(schedules, schedule)
	}

	sort.Slice(schedules, func(i, j int) bool {
		return schedules[i].NextDueAt.Before(schedules[j].NextDueAt)
	})

	return schedules, nil
}
