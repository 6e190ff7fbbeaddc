package models

// ExecutionContext carries the read-only view of a run that node executors
// and templates see. NodeOutputs only ever contains outputs that flowed
// through a satisfied edge verdict.
type ExecutionContext struct {
	RunID           string                    `json:"run_id"`
	WorkflowID      string                    `json:"workflow_id"`
	WorkflowVersion int                       `json:"workflow_version"`
	Input           map[string]any            `json:"input,omitempty"`
	NodeOutputs     map[string]map[string]any `json:"node_outputs,omitempty"`
	Variables       map[string]any            `json:"variables,omitempty"`
	Metadata        map[string]any            `json:"metadata,omitempty"`
}
