package engine

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"github.com/denchik37/Copy-of-Effektif/internal/persistence"
	"github.com/denchik37/Copy-of-Effektif/internal/script"
	"github.com/denchik37/Copy-of-Effektif/pkg/activities"
	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// defaultMaxSteps bounds synchronous progress per engine operation. A cycle
// of unconditional transitions with no suspension point hits the ceiling
// and fails instead of looping forever.
const defaultMaxSteps = 10000

// maxCallDepth bounds synchronous sub-workflow nesting. A call activity
// launching its own workflow, directly or through a cycle of definitions,
// fails with ErrExecutionLimit instead of recursing without bound.
const maxCallDepth = 64

// engineImpl is a synchronous, in-process engine implementation. All
// mutation of a given instance tree happens in memory between one
// load-with-revision and one save-with-revision-check, so concurrent
// callers on the same instance are serialized by optimistic concurrency
// while different instances proceed fully in parallel.
type engineImpl struct {
	workflows persistence.WorkflowStore
	instances persistence.InstanceStore

	registry *api.Registry
	scripts  api.ScriptService
	funcs    map[string]api.Function
	observer api.Observer
	maxSteps int

	// compiled caches executable graphs per deployed (id, version).
	// Compiled workflows are read-only and shared across executions.
	mu       sync.RWMutex
	compiled map[string]*compiledWorkflow
}

// Config describes how to construct an Engine. Zero-valued fields fall back
// to defaults. The root package aliases it for embedders.
type Config struct {
	Persistence persistence.Persistence

	// Registry maps activity kinds to their types. Defaults to the
	// builtin kinds.
	Registry *api.Registry

	// Scripts compiles condition and expression text. Defaults to the
	// yaegi-backed service.
	Scripts api.ScriptService

	// Functions is the native function table for service tasks.
	Functions map[string]api.Function

	Observer api.Observer

	// MaxSteps overrides the synchronous step ceiling. Zero keeps the
	// default.
	MaxSteps int
}

// NewEngineWithConfig creates a new Engine using the given configuration.
func NewEngineWithConfig(cfg Config) api.Engine {
	obs := cfg.Observer
	if obs == nil {
		obs = api.NoopObserver{}
	}
	reg := cfg.Registry
	if reg == nil {
		reg = activities.DefaultRegistry()
	}
	scripts := cfg.Scripts
	if scripts == nil {
		scripts = script.NewService()
	}
	maxSteps := cfg.MaxSteps
	if maxSteps <= 0 {
		maxSteps = defaultMaxSteps
	}
	return &engineImpl{
		workflows: cfg.Persistence.Workflows,
		instances: cfg.Persistence.Instances,
		registry:  reg,
		scripts:   scripts,
		funcs:     cfg.Functions,
		observer:  obs,
		maxSteps:  maxSteps,
		compiled:  make(map[string]*compiledWorkflow),
	}
}

// NewEngine returns an Engine backed by the given persistence with default
// registry, scripts, and observer.
func NewEngine(p persistence.Persistence) api.Engine {
	return NewEngineWithConfig(Config{Persistence: p})
}

// NewInMemoryEngine returns an Engine backed entirely by in-memory stores.
func NewInMemoryEngine() api.Engine {
	mem := persistence.NewInMemoryStore()
	return NewEngine(persistence.Persistence{
		Workflows: mem,
		Instances: mem,
	})
}

// NewInMemoryEngineWithConfig is NewInMemoryEngine with everything but the
// persistence taken from cfg.
func NewInMemoryEngineWithConfig(cfg Config) api.Engine {
	mem := persistence.NewInMemoryStore()
	cfg.Persistence = persistence.Persistence{
		Workflows: mem,
		Instances: mem,
	}
	return NewEngineWithConfig(cfg)
}

// NewSQLiteEngine returns an Engine that persists workflow instances in a
// SQLite database. Workflow definitions are kept in-memory.
func NewSQLiteEngine(db *sql.DB) (api.Engine, error) {
	return NewSQLiteEngineWithConfig(db, Config{})
}

// NewSQLiteEngineWithConfig is NewSQLiteEngine with everything but the
// persistence taken from cfg.
func NewSQLiteEngineWithConfig(db *sql.DB, cfg Config) (api.Engine, error) {
	inst, err := persistence.NewSQLiteInstanceStore(db)
	if err != nil {
		return nil, err
	}
	cfg.Persistence = persistence.Persistence{
		Workflows: persistence.NewInMemoryStore(),
		Instances: inst,
	}
	return NewEngineWithConfig(cfg), nil
}

func (e *engineImpl) Deploy(ctx context.Context, wf api.Workflow) (*api.Deployment, error) {
	if wf.ID == "" {
		wf.ID = uuid.NewString()
	}

	compiled, diags := parseWorkflow(&wf, e.registry, e.scripts, e.funcs)
	if diags.HasErrors() {
		return &api.Deployment{WorkflowID: wf.ID, Diagnostics: diags},
			&api.ValidationError{Diagnostics: diags}
	}

	version, err := e.workflows.SaveWorkflow(ctx, wf)
	if err != nil {
		return nil, fmt.Errorf("saving workflow %s: %w", wf.ID, err)
	}
	compiled.version = version

	e.mu.Lock()
	e.compiled[compiledKey(wf.ID, version)] = compiled
	e.mu.Unlock()

	return &api.Deployment{WorkflowID: wf.ID, Version: version, Diagnostics: diags}, nil
}

func (e *engineImpl) Start(ctx context.Context, ref api.WorkflowRef, variables map[string]any) (*api.WorkflowInstance, error) {
	return e.startInstance(ctx, ref, variables, "", "", 0)
}

// startInstance creates an instance, runs it to quiescence, and persists it
// once. Caller linkage is set when a call activity launches the instance;
// depth counts the synchronous call chain down from the outermost operation.
func (e *engineImpl) startInstance(ctx context.Context, ref api.WorkflowRef, variables map[string]any, callerInstanceID, callerActivityInstanceID string, depth int) (*api.WorkflowInstance, error) {
	if depth > maxCallDepth {
		return nil, fmt.Errorf("workflow %s exceeded call depth %d: %w", ref.ID, maxCallDepth, api.ErrExecutionLimit)
	}

	wf, err := e.compiledWorkflow(ctx, ref.ID, ref.Version)
	if err != nil {
		return nil, err
	}

	inst := &api.WorkflowInstance{
		ID:                       uuid.NewString(),
		WorkflowID:               wf.id,
		WorkflowVersion:          wf.version,
		Status:                   api.StatusRunning,
		Variables:                copyVariables(variables),
		CallerInstanceID:         callerInstanceID,
		CallerActivityInstanceID: callerActivityInstanceID,
	}
	e.observer.OnInstanceStart(ctx, inst)

	x := newExecution(e, wf, inst)
	x.depth = depth
	if err := x.openScope(ctx, wf.root, ""); err != nil {
		// Engine invariant failure: discard the attempt, persist nothing.
		return nil, err
	}
	x.finalize()

	if err := e.instances.CreateInstance(ctx, inst); err != nil {
		return nil, fmt.Errorf("saving instance %s: %w", inst.ID, err)
	}
	if inst.Status != api.StatusWaiting {
		e.observer.OnInstanceEnd(ctx, inst)
	}
	return inst, nil
}

func (e *engineImpl) Signal(ctx context.Context, instanceID, activityInstanceID string, payload map[string]any) (*api.WorkflowInstance, error) {
	inst, wf, err := e.loadInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	loadedRev := inst.Rev

	ai := inst.Find(activityInstanceID)
	if ai == nil {
		return nil, fmt.Errorf("activity instance %s in instance %s: %w", activityInstanceID, instanceID, api.ErrNotFound)
	}
	if ai.State == api.StateEnded || ai.State == api.StateFailed {
		return nil, fmt.Errorf("activity instance %s already %s: %w", activityInstanceID, ai.State, api.ErrNotFound)
	}
	if ai.State != api.StateSuspended {
		return nil, fmt.Errorf("activity instance %s: %w", activityInstanceID, api.ErrNotSuspended)
	}

	x := newExecution(e, wf, inst)
	act, err := x.activityFor(ai)
	if err != nil {
		return nil, err
	}

	ac := &activityContext{x: x, ai: ai, act: act}
	if err := applySignal(ctx, act, ac, payload); err != nil {
		// A failing signal callback fails the activity, not the caller.
		x.failActivity(ctx, ai, err, 0)
	} else if err := x.endActivity(ctx, ai, act, 0); err != nil {
		return nil, err
	}
	x.finalize()

	if err := e.saveInstance(ctx, inst, loadedRev); err != nil {
		return nil, err
	}
	return inst, e.notifyCaller(ctx, inst)
}

// applySignal runs the type's OnSignal, or merges the payload into the
// instance variables for suspending types that don't implement it.
func applySignal(ctx context.Context, act *compiledActivity, ac *activityContext, payload map[string]any) error {
	if sh, ok := act.typ.(api.SignalHandler); ok {
		return sh.OnSignal(ctx, ac, payload)
	}
	for k, v := range payload {
		ac.SetVariable(k, v)
	}
	return nil
}

func (e *engineImpl) Cancel(ctx context.Context, instanceID, activityInstanceID string) (*api.WorkflowInstance, error) {
	inst, wf, err := e.loadInstance(ctx, instanceID)
	if err != nil {
		return nil, err
	}
	loadedRev := inst.Rev

	ai := inst.Find(activityInstanceID)
	if ai == nil {
		return nil, fmt.Errorf("activity instance %s in instance %s: %w", activityInstanceID, instanceID, api.ErrNotFound)
	}
	if ai.State != api.StateSuspended {
		return nil, fmt.Errorf("activity instance %s: %w", activityInstanceID, api.ErrNotSuspended)
	}

	x := newExecution(e, wf, inst)
	act, err := x.activityFor(ai)
	if err != nil {
		return nil, err
	}

	ch, ok := act.typ.(api.CancelHandler)
	if !ok {
		return nil, fmt.Errorf("activity %q: %w", act.id, api.ErrCancelNotSupported)
	}
	transitionID, ok := ch.CancelTransition(&activityContext{x: x, ai: ai, act: act})
	if !ok {
		return nil, fmt.Errorf("activity %q: %w", act.id, api.ErrCancelNotSupported)
	}
	t := act.findTransition(transitionID)
	if t == nil {
		return nil, fmt.Errorf("activity %q declares cancellation transition %q which is not an outgoing transition: %w",
			act.id, transitionID, api.ErrCancelNotSupported)
	}

	if err := x.endActivityVia(ctx, ai, t); err != nil {
		return nil, err
	}
	x.finalize()

	if err := e.saveInstance(ctx, inst, loadedRev); err != nil {
		return nil, err
	}
	return inst, e.notifyCaller(ctx, inst)
}

func (e *engineImpl) GetInstance(ctx context.Context, id string) (*api.WorkflowInstance, error) {
	inst, err := e.instances.GetInstance(ctx, id)
	if err != nil {
		if errors.Is(err, persistence.ErrInstanceNotFound) {
			return nil, fmt.Errorf("instance %s: %w", id, api.ErrNotFound)
		}
		return nil, err
	}
	return inst, nil
}

func (e *engineImpl) ListInstances(ctx context.Context, q api.InstanceQuery) ([]*api.WorkflowInstance, error) {
	return e.instances.ListInstances(ctx, q)
}

func (e *engineImpl) ListWorkflows(ctx context.Context, q api.WorkflowQuery) ([]api.Workflow, error) {
	return e.workflows.ListWorkflows(ctx, q)
}

func (e *engineImpl) DeleteInstances(ctx context.Context, q api.InstanceQuery) (int, error) {
	return e.instances.DeleteInstances(ctx, q)
}

func (e *engineImpl) DeleteWorkflows(ctx context.Context, q api.WorkflowQuery) (int, error) {
	n, err := e.workflows.DeleteWorkflows(ctx, q)
	if err != nil || n == 0 {
		return n, err
	}

	// Evict the compiled forms so a pinned Start cannot resurrect a
	// deleted definition from the cache.
	e.mu.Lock()
	for key, wf := range e.compiled {
		if q.ID == "" || wf.id == q.ID {
			delete(e.compiled, key)
		}
	}
	e.mu.Unlock()
	return n, nil
}

// loadInstance fetches an instance plus the compiled form of its pinned
// definition version.
func (e *engineImpl) loadInstance(ctx context.Context, instanceID string) (*api.WorkflowInstance, *compiledWorkflow, error) {
	inst, err := e.instances.GetInstance(ctx, instanceID)
	if err != nil {
		if errors.Is(err, persistence.ErrInstanceNotFound) {
			return nil, nil, fmt.Errorf("instance %s: %w", instanceID, api.ErrNotFound)
		}
		return nil, nil, err
	}
	wf, err := e.compiledWorkflow(ctx, inst.WorkflowID, inst.WorkflowVersion)
	if err != nil {
		return nil, nil, err
	}
	return inst, wf, nil
}

func (e *engineImpl) saveInstance(ctx context.Context, inst *api.WorkflowInstance, expectedRev int64) error {
	if err := e.instances.UpdateInstance(ctx, inst, expectedRev); err != nil {
		if errors.Is(err, persistence.ErrRevConflict) {
			return fmt.Errorf("instance %s: %w", inst.ID, api.ErrConflict)
		}
		return fmt.Errorf("saving instance %s: %w", inst.ID, err)
	}
	if inst.Status != api.StatusWaiting {
		e.observer.OnInstanceEnd(ctx, inst)
	}
	return nil
}

// notifyCaller signals the call activity that launched this instance, once
// the instance has completed. The sub-instance's final variables are the
// signal payload. If the parent signal fails (for example with a conflict)
// the sub-instance is already saved; the caller may re-deliver by signaling
// the parent activity instance directly.
func (e *engineImpl) notifyCaller(ctx context.Context, inst *api.WorkflowInstance) error {
	if inst.Status != api.StatusCompleted || inst.CallerInstanceID == "" {
		return nil
	}
	_, err := e.Signal(ctx, inst.CallerInstanceID, inst.CallerActivityInstanceID, inst.Variables)
	if err != nil {
		return fmt.Errorf("notifying caller instance %s: %w", inst.CallerInstanceID, err)
	}
	return nil
}

// compiledWorkflow returns the executable graph for a deployed version,
// parsing and caching on first use. Version 0 resolves to the latest.
func (e *engineImpl) compiledWorkflow(ctx context.Context, id string, version int) (*compiledWorkflow, error) {
	if version != 0 {
		e.mu.RLock()
		cached := e.compiled[compiledKey(id, version)]
		e.mu.RUnlock()
		if cached != nil {
			return cached, nil
		}
	}

	wf, err := e.workflows.GetWorkflow(ctx, id, version)
	if err != nil {
		if errors.Is(err, persistence.ErrWorkflowNotFound) {
			return nil, fmt.Errorf("workflow %s version %d: %w", id, version, api.ErrNotFound)
		}
		return nil, err
	}

	e.mu.RLock()
	cached := e.compiled[compiledKey(wf.ID, wf.Version)]
	e.mu.RUnlock()
	if cached != nil {
		return cached, nil
	}

	compiled, diags := parseWorkflow(&wf, e.registry, e.scripts, e.funcs)
	if diags.HasErrors() {
		// A stored definition that no longer parses means the registry or
		// function table changed underneath it.
		return nil, fmt.Errorf("workflow %s version %d no longer parses: %w",
			wf.ID, wf.Version, &api.ValidationError{Diagnostics: diags})
	}

	e.mu.Lock()
	e.compiled[compiledKey(wf.ID, wf.Version)] = compiled
	e.mu.Unlock()
	return compiled, nil
}

func compiledKey(id string, version int) string {
	return fmt.Sprintf("%s#%d", id, version)
}

func copyVariables(vars map[string]any) map[string]any {
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		out[k] = v
	}
	return out
}
