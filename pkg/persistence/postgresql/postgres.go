// Package postgresql provides PostgreSQL persistence for workflows, runs and events.
package postgresql

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/arcflow/arcflow/pkg/persistence"
	"github.com/arcflow/arcflow/pkg/persistence/sqlbase"
	_ "github.com/lib/pq" // postgres driver
)

// Persistence implements the persistence layer for PostgreSQL.
type Persistence struct {
	db     *sql.DB
	logger *slog.Logger

	workflows     *WorkflowRepository
	runs          *RunRepository
	executions    *NodeExecutionRepository
	confirmations *ConfirmationRepository
	events        *EventRepository
	schedules     *ScheduleRepository
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

	return &Persistence{
		db:            database,
		logger:        logger,
		workflows:     &WorkflowRepository{db: database},
		runs:          &RunRepository{db: database},
		executions:    &NodeExecutionRepository{db: database},
		confirmations: &ConfirmationRepository{db: database},
		events:        &EventRepository{db: database},
		schedules:     &ScheduleRepository{db: database},
	}, nil
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

// HealthCheck verifies the database connection is healthy.
func (p *Persistence) HealthCheck(ctx context.Context) error {
	err := p.db.PingContext(ctx)
	if err != nil {
		return fmt.Errorf("failed to ping database: %w", err)
	}

	return nil
}

// Close closes the database connection.
func (p *Persistence) Close(_ context.Context) error {
	if p.db != nil {
		err := p.db.Close()
		if err != nil {
			return fmt.Errorf("failed to close database connection: %w", err)
		}
	}

	return nil
}
