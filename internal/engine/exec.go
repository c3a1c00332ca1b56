package engine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// execution drives one engine operation (start, signal, cancel) over a
// single instance tree until quiescence: every open activity instance is
// suspended or the instance has completed.
//
// Nothing is persisted while an execution runs; the caller saves the tree
// once afterwards. An engine invariant failure (dead end, step ceiling)
// therefore discards the in-memory attempt without any partial write.
type execution struct {
	eng   *engineImpl
	wf    *compiledWorkflow
	inst  *api.WorkflowInstance
	steps int

	// depth is this execution's position in the synchronous call chain;
	// sub-workflow launches run at depth+1.
	depth int
}

func newExecution(eng *engineImpl, wf *compiledWorkflow, inst *api.WorkflowInstance) *execution {
	return &execution{eng: eng, wf: wf, inst: inst}
}

// scopeOf returns the compiled scope owning the children of the given
// parent activity instance ID ("" for the root scope).
func (x *execution) scopeOf(parentID string) (*compiledScope, error) {
	if parentID == "" {
		return x.wf.root, nil
	}
	parent := x.inst.Find(parentID)
	if parent == nil {
		return nil, fmt.Errorf("instance %s: unknown parent activity instance %s", x.inst.ID, parentID)
	}
	pact, err := x.activityFor(parent)
	if err != nil {
		return nil, err
	}
	if pact.scope == nil {
		return nil, fmt.Errorf("instance %s: activity %q has no child scope", x.inst.ID, pact.id)
	}
	return pact.scope, nil
}

// activityFor resolves an activity instance back to its compiled activity.
// Activity ids are only unique per scope, so resolution walks the parent
// chain.
func (x *execution) activityFor(ai *api.ActivityInstance) (*compiledActivity, error) {
	scope, err := x.scopeOf(ai.ParentID)
	if err != nil {
		return nil, err
	}
	act := scope.byID[ai.ActivityID]
	if act == nil {
		return nil, fmt.Errorf("instance %s: activity %q not in definition %s/%d",
			x.inst.ID, ai.ActivityID, x.wf.id, x.wf.version)
	}
	return act, nil
}

// openScope instantiates every start activity of the given scope under the
// given parent. A scope with no start activities drains immediately.
func (x *execution) openScope(ctx context.Context, scope *compiledScope, parentID string) error {
	for _, act := range scope.start {
		if err := x.startActivity(ctx, parentID, act); err != nil {
			return err
		}
	}
	return nil
}

// startActivity creates an activity instance and runs it through the state
// machine. Each start counts against the step ceiling so unconditional
// transition cycles fail instead of looping forever.
func (x *execution) startActivity(ctx context.Context, parentID string, act *compiledActivity) error {
	x.steps++
	if x.steps > x.eng.maxSteps {
		return fmt.Errorf("instance %s exceeded %d steps at activity %q: %w",
			x.inst.ID, x.eng.maxSteps, act.id, api.ErrExecutionLimit)
	}

	ai := &api.ActivityInstance{
		ID:         uuid.NewString(),
		ActivityID: act.id,
		ParentID:   parentID,
		State:      api.StateActive,
	}
	x.inst.Activities = append(x.inst.Activities, ai)
	x.eng.observer.OnActivityStart(ctx, x.inst, ai)

	started := time.Now()
	result, err := act.typ.Execute(ctx, &activityContext{x: x, ai: ai, act: act})
	if err != nil {
		// A limit breach in a nested launch is an engine invariant failure,
		// not an activity failure; it aborts the whole operation.
		if errors.Is(err, api.ErrExecutionLimit) {
			return err
		}
		x.failActivity(ctx, ai, err, time.Since(started))
		return nil
	}

	switch result {
	case api.ResultSuspended:
		ai.State = api.StateSuspended
		x.eng.observer.OnActivityEnd(ctx, x.inst, ai, nil, time.Since(started))
		return nil
	case api.ResultOpenScope:
		if act.scope == nil || len(act.scope.activities) == 0 {
			return x.endActivity(ctx, ai, act, time.Since(started))
		}
		return x.openScope(ctx, act.scope, ai.ID)
	default:
		return x.endActivity(ctx, ai, act, time.Since(started))
	}
}

// failActivity records a runtime execution failure on the instance. The
// failure does not propagate: sibling instances keep running and the tree
// stays in place for inspection and operator-driven retry.
func (x *execution) failActivity(ctx context.Context, ai *api.ActivityInstance, err error, d time.Duration) {
	ai.State = api.StateFailed
	ai.Failure = err.Error()
	x.eng.observer.OnActivityEnd(ctx, x.inst, ai, err, d)
}

// endActivity completes an activity instance and follows its outgoing
// transitions.
func (x *execution) endActivity(ctx context.Context, ai *api.ActivityInstance, act *compiledActivity, d time.Duration) error {
	ai.State = api.StateEnded
	x.eng.observer.OnActivityEnd(ctx, x.inst, ai, nil, d)
	return x.onwards(ctx, ai, act)
}

// endActivityVia completes an activity instance through one designated
// transition, bypassing the normal routing policy. Used for cancellation
// edges.
func (x *execution) endActivityVia(ctx context.Context, ai *api.ActivityInstance, t *compiledTransition) error {
	ai.State = api.StateEnded
	x.eng.observer.OnActivityEnd(ctx, x.inst, ai, nil, 0)
	if t.to == nil {
		return x.scopeCheck(ctx, ai.ParentID)
	}
	return x.startActivity(ctx, ai.ParentID, t.to)
}

// onwards applies the activity type's routing policy to the just-ended
// instance. Transitions are considered in declaration order.
func (x *execution) onwards(ctx context.Context, ai *api.ActivityInstance, act *compiledActivity) error {
	if len(act.outgoing) == 0 {
		return x.scopeCheck(ctx, ai.ParentID)
	}

	switch act.typ.Routing() {
	case api.RouteExclusive:
		for _, t := range act.outgoing {
			if t == act.defaultTransition {
				continue
			}
			taken, err := x.conditionHolds(t)
			if err != nil {
				return err
			}
			if taken {
				return x.take(ctx, ai, t)
			}
		}
		if act.defaultTransition != nil {
			return x.take(ctx, ai, act.defaultTransition)
		}
		return fmt.Errorf("activity %q in instance %s: %w", act.id, x.inst.ID, api.ErrDeadEnd)

	default: // api.RouteAll
		followed := false
		for _, t := range act.outgoing {
			taken, err := x.conditionHolds(t)
			if err != nil {
				return err
			}
			if !taken {
				continue
			}
			followed = true
			if err := x.take(ctx, ai, t); err != nil {
				return err
			}
		}
		if !followed {
			return x.scopeCheck(ctx, ai.ParentID)
		}
		return nil
	}
}

// conditionHolds evaluates a transition's condition against the current
// instance variables. A transition without a condition always holds.
func (x *execution) conditionHolds(t *compiledTransition) (bool, error) {
	if t.condition == nil {
		return true, nil
	}
	v, err := t.condition.Eval(x.inst.Variables)
	if err != nil {
		return false, fmt.Errorf("condition on transition to %q: %w", transitionTarget(t), err)
	}
	b, ok := v.(bool)
	if !ok {
		return false, fmt.Errorf("condition on transition to %q evaluated to %T, want bool", transitionTarget(t), v)
	}
	return b, nil
}

func transitionTarget(t *compiledTransition) string {
	if t.to == nil {
		return ""
	}
	return t.to.id
}

// take follows one transition, spawning a sibling activity instance for its
// target. A transition with an absent 'to' (deploy warning) ends the flow
// at this branch.
func (x *execution) take(ctx context.Context, ai *api.ActivityInstance, t *compiledTransition) error {
	if t.to == nil {
		return x.scopeCheck(ctx, ai.ParentID)
	}
	return x.startActivity(ctx, ai.ParentID, t.to)
}

// scopeCheck ends the enclosing composite once its scope has drained:
// no open children, and no failed children pinning the scope open for
// inspection. The check recurses upward through the composite chain.
func (x *execution) scopeCheck(ctx context.Context, parentID string) error {
	for _, child := range x.inst.Children(parentID) {
		if child.Open() || child.State == api.StateFailed {
			return nil
		}
	}
	if parentID == "" {
		// Root scope drained; finalize handles the status.
		return nil
	}
	parent := x.inst.Find(parentID)
	pact, err := x.activityFor(parent)
	if err != nil {
		return err
	}
	return x.endActivity(ctx, parent, pact, 0)
}

// finalize derives the instance status after quiescence.
func (x *execution) finalize() {
	anyOpen := false
	anyFailed := false
	for _, ai := range x.inst.Activities {
		if ai.Open() {
			anyOpen = true
		}
		if ai.State == api.StateFailed {
			anyFailed = true
		}
	}
	switch {
	case anyOpen:
		x.inst.Status = api.StatusWaiting
	case anyFailed:
		x.inst.Status = api.StatusFailed
	default:
		x.inst.Status = api.StatusCompleted
	}
}

// activityContext is the api.ActivityContext handed to activity type
// callbacks. Valid only while its execution runs.
type activityContext struct {
	x   *execution
	ai  *api.ActivityInstance
	act *compiledActivity
}

var _ api.ActivityContext = (*activityContext)(nil)

func (c *activityContext) InstanceID() string         { return c.x.inst.ID }
func (c *activityContext) ActivityInstanceID() string { return c.ai.ID }
func (c *activityContext) ActivityID() string         { return c.ai.ActivityID }
func (c *activityContext) Config() any                { return c.act.config }

func (c *activityContext) Variables() map[string]any {
	if c.x.inst.Variables == nil {
		c.x.inst.Variables = map[string]any{}
	}
	return c.x.inst.Variables
}

func (c *activityContext) SetVariable(name string, value any) {
	c.Variables()[name] = value
}

func (c *activityContext) LaunchWorkflow(ctx context.Context, ref api.WorkflowRef, variables map[string]any) (*api.SubWorkflow, error) {
	sub, err := c.x.eng.startInstance(ctx, ref, variables, c.x.inst.ID, c.ai.ID, c.x.depth+1)
	if err != nil {
		return nil, err
	}
	c.ai.SubInstanceID = sub.ID
	if sub.Status == api.StatusFailed {
		return nil, fmt.Errorf("sub-workflow instance %s failed", sub.ID)
	}
	return &api.SubWorkflow{
		InstanceID: sub.ID,
		Ended:      sub.Status == api.StatusCompleted,
		Variables:  sub.Variables,
	}, nil
}
