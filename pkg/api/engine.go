package api

import "context"

// Deployment is the outcome of Deploy. Version is only meaningful when the
// diagnostics contain no errors.
type Deployment struct {
	WorkflowID  string
	Version     int
	Diagnostics Diagnostics
}

// Engine is the workflow engine API. Operations on a single instance are
// serialized through optimistic persistence revisions; operations on
// different instances are independent and may run fully in parallel.
type Engine interface {
	// Deploy validates a workflow definition and, if it has no
	// error-level diagnostics, persists it under a new version.
	// Validation always evaluates the entire graph; the returned
	// deployment carries every diagnostic found. When errors are present
	// the returned error is a *ValidationError and nothing is stored.
	Deploy(ctx context.Context, wf Workflow) (*Deployment, error)

	// Start creates an instance of a deployed workflow version and runs
	// it until every open activity instance is suspended or the instance
	// has completed. The instance is persisted once, after quiescence;
	// engine invariant failures persist nothing.
	Start(ctx context.Context, ref WorkflowRef, variables map[string]any) (*WorkflowInstance, error)

	// Signal resumes one suspended activity instance with an optional
	// payload and continues execution from there. It fails with
	// ErrNotFound (unknown or already-ended), ErrNotSuspended, or
	// ErrConflict (retryable optimistic clash).
	Signal(ctx context.Context, instanceID, activityInstanceID string, payload map[string]any) (*WorkflowInstance, error)

	// Cancel ends a suspended activity instance through its cancellation
	// transition, if its type declares one; otherwise it fails with
	// ErrCancelNotSupported.
	Cancel(ctx context.Context, instanceID, activityInstanceID string) (*WorkflowInstance, error)

	// GetInstance looks up a workflow instance by ID.
	GetInstance(ctx context.Context, id string) (*WorkflowInstance, error)

	// ListInstances returns instances matching the query.
	ListInstances(ctx context.Context, q InstanceQuery) ([]*WorkflowInstance, error)

	// ListWorkflows returns deployed workflow definitions matching the
	// query.
	ListWorkflows(ctx context.Context, q WorkflowQuery) ([]Workflow, error)

	// DeleteInstances removes matching instances and returns how many
	// were deleted.
	DeleteInstances(ctx context.Context, q InstanceQuery) (int, error)

	// DeleteWorkflows removes matching definitions and returns how many
	// were deleted. Running instances of deleted definitions are not
	// touched.
	DeleteWorkflows(ctx context.Context, q WorkflowQuery) (int, error)
}
