package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/arcflow/arcflow/pkg/models"
	"github.com/arcflow/arcflow/pkg/persistence"
)

// ErrScheduleNotFound is returned when a schedule is not found.
var ErrScheduleNotFound = persistence.ErrScheduleNotFound

// Schedule handles cron schedule CRUD for the poller.
type Schedule struct {
	persistence persistence.Persistence
}

// NewSchedule creates a new schedule service.
func NewSchedule(store persistence.Persistence) *Schedule {
	return &Schedule{persistence: store}
}

// Create registers a cron schedule for a workflow.
func (s *Schedule) Create(ctx context.Context, workflowID, cronExpression string, input map[string]any) (*models.Schedule, error) {
	if _, err := s.persistence.Workflows().GetByID(ctx, workflowID); err != nil {
		return nil, err
	}

	schedule, err := models.NewSchedule(uuid.NewString(), workflowID, cronExpression, input)
	if err != nil {
		return nil, &ServiceError{Op: "Create", Message: err.Error(), Err: ErrInvalidCron}
	}

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Update changes a schedule's cron expression, input or active flag.
func (s *Schedule) Update(ctx context.Context, id, cronExpression string, input map[string]any, active bool) (*models.Schedule, error) {
	schedule, err := s.persistence.Schedules().GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	schedule.CronExpression = cronExpression
	schedule.Input = input
	schedule.Active = active

	if err := schedule.Refresh(time.Now().UTC()); err != nil {
		return nil, &ServiceError{Op: "Update", Message: err.Error(), Err: ErrInvalidCron}
	}

	if err := s.persistence.Schedules().Save(ctx, schedule); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Get retrieves a schedule by its ID.
func (s *Schedule) Get(ctx context.Context, id string) (*models.Schedule, error) {
	return s.persistence.Schedules().GetByID(ctx, id)
}

// List retrieves every schedule.
func (s *Schedule) List(ctx context.Context) ([]*models.Schedule, error) {
	return s.persistence.Schedules().List(ctx)
}

// Delete removes a schedule by its ID.
func (s *Schedule) Delete(ctx context.Context, id string) error {
	return s.persistence.Schedules().Delete(ctx, id)
}
