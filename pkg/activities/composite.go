package activities

import (
	"context"
	"fmt"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// subprocessType backs embedded subprocesses: activities that own a child
// scope. The instance stays active while its child scope runs and ends once
// the scope drains. Scopes nest to arbitrary depth.
type subprocessType struct{}

func (subprocessType) Kind() string         { return KindSubprocess }
func (subprocessType) Routing() api.Routing { return api.RouteAll }

func (subprocessType) Parse(a *api.Activity, pc *api.ParseContext) any {
	if a.Scope == nil {
		pc.Errorf("subprocess requires a child scope")
	}
	return nil
}

func (subprocessType) Execute(ctx context.Context, ac api.ActivityContext) (api.Result, error) {
	return api.ResultOpenScope, nil
}

// CallActivity launches another deployed workflow as a sub-instance. The
// call activity suspends until the sub-workflow ends, unless it completes
// synchronously. On completion the sub-workflow's variables are merged into
// the calling instance.
type CallActivity struct {
	// WorkflowID references the deployed workflow to launch.
	WorkflowID string

	// Version pins a definition version; 0 means latest at start time.
	Version int

	// Inputs maps sub-workflow variable names to bindings resolved
	// against the calling instance.
	Inputs map[string]api.Binding
}

type compiledCallActivity struct {
	ref    api.WorkflowRef
	inputs map[string]*api.CompiledBinding
}

type callActivityType struct{}

func (callActivityType) Kind() string         { return KindCallActivity }
func (callActivityType) Routing() api.Routing { return api.RouteAll }

func (callActivityType) Parse(a *api.Activity, pc *api.ParseContext) any {
	cfg, ok := a.Config.(CallActivity)
	if !ok || cfg.WorkflowID == "" {
		pc.Errorf("call activity requires a workflow id")
		return nil
	}
	c := &compiledCallActivity{
		ref:    api.WorkflowRef{ID: cfg.WorkflowID, Version: cfg.Version},
		inputs: make(map[string]*api.CompiledBinding, len(cfg.Inputs)),
	}
	for name, b := range cfg.Inputs {
		c.inputs[name] = pc.At("inputs."+name).ParseBinding(b)
	}
	return c
}

func (callActivityType) Execute(ctx context.Context, ac api.ActivityContext) (api.Result, error) {
	c := ac.Config().(*compiledCallActivity)

	vars := make(map[string]any, len(c.inputs))
	for name, cb := range c.inputs {
		v, err := cb.Resolve(ac.Variables())
		if err != nil {
			return 0, fmt.Errorf("resolving input %q: %w", name, err)
		}
		vars[name] = v
	}

	sub, err := ac.LaunchWorkflow(ctx, c.ref, vars)
	if err != nil {
		return 0, err
	}
	if sub.Ended {
		for k, v := range sub.Variables {
			ac.SetVariable(k, v)
		}
		return api.ResultEnded, nil
	}
	return api.ResultSuspended, nil
}

// OnSignal receives the sub-workflow's final variables when it ends.
func (callActivityType) OnSignal(ctx context.Context, ac api.ActivityContext, payload map[string]any) error {
	for k, v := range payload {
		ac.SetVariable(k, v)
	}
	return nil
}
