package models

import "time"

// ConfirmationDecision is the resolution of a side-effect gate.
type ConfirmationDecision string

const (
	ConfirmationPending ConfirmationDecision = "pending"
	ConfirmationAllow   ConfirmationDecision = "allow"
	ConfirmationDeny    ConfirmationDecision = "deny"
	ConfirmationTimeout ConfirmationDecision = "timeout"
)

// Permits reports whether the decision lets the node execute. Everything
// except an explicit allow is fail-closed.
func (d ConfirmationDecision) Permits() bool {
	return d == ConfirmationAllow
}

// ConfirmationRequest is created by the side-effect gate immediately before a
// flagged node would execute. It is resolved exactly once; a resolved request
// is immutable. Each flagged node gets a fresh confirm id so stale UI state
// cannot resolve the wrong request.
type ConfirmationRequest struct {
	ConfirmID  string               `json:"confirm_id"`
	RunID      string               `json:"run_id"`
	NodeID     string               `json:"node_id"`
	Decision   ConfirmationDecision `json:"decision"`
	CreatedAt  time.Time            `json:"created_at"`
	ResolvedAt *time.Time           `json:"resolved_at,omitempty"`
}

// Resolved reports whether a decision has been recorded.
func (c *ConfirmationRequest) Resolved() bool {
	return c.Decision != ConfirmationPending
}
