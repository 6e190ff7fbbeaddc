package models

import (
	"errors"
	"time"

	"github.com/robfig/cron/v3"
)

// Schedule periodically starts runs of a workflow. The next execution time is
// precomputed so the poller can query due schedules without per-entry timers.
type Schedule struct {
	ID string `json:"id" validate:"required"`

	// WorkflowID identifies the workflow this schedule starts runs for.
	WorkflowID string `json:"workflow_id" validate:"required"`

	// CronExpression uses standard 5-field cron format (minute hour day month weekday).
	CronExpression string `json:"cron_expression" validate:"required"`

	// Input is passed as the initial input of every run this schedule starts.
	Input map[string]any `json:"input,omitempty"`

	// NextDueAt is the precomputed next execution time.
	NextDueAt time.Time `json:"next_due_at" validate:"required"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`

	// Active schedules are the only ones the poller processes.
	Active bool `json:"active"`
}

// NewSchedule creates a schedule with the next execution time calculated.
func NewSchedule(id, workflowID, cronExpression string, input map[string]any) (*Schedule, error) {
	now := time.Now().UTC()
	schedule := &Schedule{
		ID:             id,
		WorkflowID:     workflowID,
		CronExpression: cronExpression,
		Input:          input,
		CreatedAt:      now,
		UpdatedAt:      now,
		Active:         true,
	}

	if err := schedule.Refresh(now); err != nil {
		return nil, err
	}

	return schedule, nil
}

// Refresh recomputes NextDueAt from the cron expression, relative to after.
func (s *Schedule) Refresh(after time.Time) error {
	if s.CronExpression == "" {
		return errors.New("cron expression is required")
	}

	parser := cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow)

	spec, err := parser.Parse(s.CronExpression)
	if err != nil {
		return err
	}

	s.NextDueAt = spec.Next(after.UTC())
	s.UpdatedAt = time.Now().UTC()

	return nil
}

// Due reports whether this schedule should fire at the given instant.
func (s *Schedule) Due(now time.Time) bool {
	return s.Active && !s.NextDueAt.After(now)
}
