// Package persistence is the engine's persistence gateway: durable storage
// of workflow definitions and instance trees. Stores treat the instance
// tree as opaque state; all interpretation happens in the engine.
package persistence

import (
	"context"
	"errors"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

var (
	// ErrWorkflowNotFound is returned when a workflow definition is not found.
	ErrWorkflowNotFound = errors.New("workflow not found")

	// ErrInstanceNotFound is returned when a workflow instance is not found.
	ErrInstanceNotFound = errors.New("instance not found")

	// ErrInstanceExists is returned when creating an instance whose ID is taken.
	ErrInstanceExists = errors.New("instance already exists")

	// ErrRevConflict is returned by UpdateInstance when the stored revision
	// no longer matches the revision the caller loaded.
	ErrRevConflict = errors.New("instance revision conflict")
)

// WorkflowStore handles storage of workflow definitions. Definitions are
// immutable per (ID, Version); saving assigns the next version.
type WorkflowStore interface {
	// SaveWorkflow stores the definition and returns the version it was
	// assigned (one above the highest stored version of the same ID).
	SaveWorkflow(ctx context.Context, wf api.Workflow) (int, error)

	// GetWorkflow returns one definition. Version 0 means the latest.
	GetWorkflow(ctx context.Context, id string, version int) (api.Workflow, error)

	ListWorkflows(ctx context.Context, q api.WorkflowQuery) ([]api.Workflow, error)
	DeleteWorkflows(ctx context.Context, q api.WorkflowQuery) (int, error)
}

// InstanceStore handles storage of workflow instance trees with optimistic
// concurrency. UpdateInstance only succeeds when expectedRev matches the
// stored revision; on success the stored and in-memory revisions advance.
type InstanceStore interface {
	CreateInstance(ctx context.Context, inst *api.WorkflowInstance) error
	UpdateInstance(ctx context.Context, inst *api.WorkflowInstance, expectedRev int64) error
	GetInstance(ctx context.Context, id string) (*api.WorkflowInstance, error)
	ListInstances(ctx context.Context, q api.InstanceQuery) ([]*api.WorkflowInstance, error)
	DeleteInstances(ctx context.Context, q api.InstanceQuery) (int, error)
}

// Persistence bundles the two store interfaces so the engine can depend on
// a single abstraction.
type Persistence struct {
	Workflows WorkflowStore
	Instances InstanceStore
}
