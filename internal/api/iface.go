package api

import "context"

// StudioAPI defines the interface for the Agent Studio client.
// *Client satisfies this interface. TUI and tests can use mock implementations.
type StudioAPI interface {
	ListWorkflows(limit int) ([]Workflow, error)
	GetWorkflow(workflowID string) (*Workflow, error)
	StreamWorkflow(ctx context.Context, workflowID string, req StreamRequest, cb FrameCallback) error
}
