package effektif

import (
	"context"
	"database/sql"

	"github.com/denchik37/Copy-of-Effektif/internal/engine"
	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// Re-export key types so users don't need to dig into pkg/api.

type (
	Engine           = api.Engine
	Workflow         = api.Workflow
	Scope            = api.Scope
	Activity         = api.Activity
	Transition       = api.Transition
	Binding          = api.Binding
	WorkflowRef      = api.WorkflowRef
	WorkflowQuery    = api.WorkflowQuery
	InstanceQuery    = api.InstanceQuery
	WorkflowInstance = api.WorkflowInstance
	ActivityInstance = api.ActivityInstance
	Deployment       = api.Deployment
	Diagnostic       = api.Diagnostic
	Diagnostics      = api.Diagnostics
	ValidationError  = api.ValidationError
	Status           = api.Status
	ActivityState    = api.ActivityState
	ActivityType     = api.ActivityType
	Registry         = api.Registry
	Function         = api.Function
	ScriptService    = api.ScriptService
	Observer         = api.Observer

	LoggingObserver      = api.LoggingObserver
	BasicMetrics         = api.BasicMetrics
	BasicMetricsSnapshot = api.BasicMetricsSnapshot
	CompositeObserver    = api.CompositeObserver
	NoopObserver         = api.NoopObserver
)

// Re-export common helpers.

var (
	NewRegistry          = api.NewRegistry
	NewLoggingObserver   = api.NewLoggingObserver
	NewCompositeObserver = api.NewCompositeObserver
)

// Re-export status values for convenience.

const (
	StatusRunning   = api.StatusRunning
	StatusWaiting   = api.StatusWaiting
	StatusCompleted = api.StatusCompleted
	StatusFailed    = api.StatusFailed
)

// Re-export activity instance states.

const (
	StateActive    = api.StateActive
	StateSuspended = api.StateSuspended
	StateEnded     = api.StateEnded
	StateFailed    = api.StateFailed
)

// Config configures an engine beyond its persistence: activity registry,
// script service, native function table, observer, and the synchronous step
// ceiling. The zero value selects the builtin kinds, the yaegi script
// service, no functions, and no observer.
type Config = engine.Config

// Engine constructors
// These wrap the internal/engine package so external callers
// never need to import internal packages.

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() Engine {
	return engine.NewInMemoryEngine()
}

// NewInMemoryEngineWithConfig returns an in-memory Engine with the given
// configuration.
func NewInMemoryEngineWithConfig(cfg Config) Engine {
	return engine.NewInMemoryEngineWithConfig(cfg)
}

// NewSQLiteEngine returns an Engine that persists workflow instances
// in a SQLite database. Workflow definitions are kept in-memory.
func NewSQLiteEngine(db *sql.DB) (Engine, error) {
	return engine.NewSQLiteEngine(db)
}

// NewSQLiteEngineWithConfig returns a SQLite-backed Engine with the given
// configuration.
func NewSQLiteEngineWithConfig(db *sql.DB, cfg Config) (Engine, error) {
	return engine.NewSQLiteEngineWithConfig(db, cfg)
}

// Convenience helpers that just forward to the underlying Engine.

// Deploy validates and stores a workflow definition.
func Deploy(ctx context.Context, eng Engine, wf Workflow) (*Deployment, error) {
	return eng.Deploy(ctx, wf)
}

// Start creates and runs an instance of a deployed workflow.
func Start(ctx context.Context, eng Engine, ref WorkflowRef, variables map[string]any) (*WorkflowInstance, error) {
	return eng.Start(ctx, ref, variables)
}

// Signal resumes a suspended activity instance.
func Signal(ctx context.Context, eng Engine, instanceID, activityInstanceID string, payload map[string]any) (*WorkflowInstance, error) {
	return eng.Signal(ctx, instanceID, activityInstanceID, payload)
}

// GetInstance fetches an instance by ID.
func GetInstance(ctx context.Context, eng Engine, id string) (*WorkflowInstance, error) {
	return eng.GetInstance(ctx, id)
}

// ListInstances lists workflow instances according to the given query.
func ListInstances(ctx context.Context, eng Engine, q InstanceQuery) ([]*WorkflowInstance, error) {
	return eng.ListInstances(ctx, q)
}
