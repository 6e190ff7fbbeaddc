// Package web provides HTTP request and response types for the workflow API.
package web

import "github.com/arcflow/arcflow/pkg/models"

// CreateWorkflowRequest represents the request body for creating a new
// workflow. Nodes and edges are optional; a draft may start empty and grow
// through the mutation endpoint.
type CreateWorkflowRequest struct {
	Name        string         `json:"name"        validate:"required,min=3"`
	Description string         `json:"description"`
	Nodes       []*models.Node `json:"nodes,omitempty"`
	Edges       []*models.Edge `json:"edges,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// UpdateWorkflowRequest represents the request body for updating an existing
// workflow. All fields are optional to support partial updates; graph content
// is replaced wholesale when nodes or edges are present.
type UpdateWorkflowRequest struct {
	Name        *string        `json:"name,omitempty"        validate:"omitempty,min=3"`
	Description *string        `json:"description,omitempty"`
	Nodes       []*models.Node `json:"nodes,omitempty"`
	Edges       []*models.Edge `json:"edges,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// CreateRunRequest represents the request body for creating a run of a
// published workflow.
type CreateRunRequest struct {
	WorkflowID string         `json:"workflow_id" validate:"required"`
	Input      map[string]any `json:"input,omitempty"`
}

// ConfirmRunRequest resolves a pending side-effect confirmation. Only the
// explicit decisions are accepted; timeouts are recorded by the engine.
type ConfirmRunRequest struct {
	ConfirmID string `json:"confirm_id" validate:"required"`
	Decision  string `json:"decision"   validate:"required,oneof=allow deny"`
}

// CreateScheduleRequest represents the request body for creating a cron
// schedule.
type CreateScheduleRequest struct {
	WorkflowID     string         `json:"workflow_id"     validate:"required"`
	CronExpression string         `json:"cron_expression" validate:"required"`
	Input          map[string]any `json:"input,omitempty"`
}

// UpdateScheduleRequest represents the request body for updating an existing
// schedule.
type UpdateScheduleRequest struct {
	CronExpression string         `json:"cron_expression" validate:"required"`
	Input          map[string]any `json:"input,omitempty"`
	Active         bool           `json:"active"`
}
