package activities

import (
	"context"
	"fmt"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// UserTask configures a human task. The instance suspends until a signal
// arrives; the signal payload is merged into the instance variables.
type UserTask struct {
	// Name is an optional binding for the task's display name, resolved
	// when the task is created.
	Name api.Binding

	// OnCancel names the outgoing transition a cancel signal follows.
	// Empty means the task cannot be cancelled.
	OnCancel string
}

type compiledUserTask struct {
	name     *api.CompiledBinding
	onCancel string
}

type userTaskType struct{}

func (userTaskType) Kind() string         { return KindUserTask }
func (userTaskType) Routing() api.Routing { return api.RouteAll }

func (userTaskType) Parse(a *api.Activity, pc *api.ParseContext) any {
	cfg, _ := a.Config.(UserTask)
	c := &compiledUserTask{onCancel: cfg.OnCancel}
	if cfg.Name != (api.Binding{}) {
		c.name = pc.ParseBinding(cfg.Name)
	}
	return c
}

func (userTaskType) Execute(ctx context.Context, ac api.ActivityContext) (api.Result, error) {
	c := ac.Config().(*compiledUserTask)
	if c.name != nil {
		name, err := c.name.Resolve(ac.Variables())
		if err != nil {
			return 0, fmt.Errorf("resolving task name: %w", err)
		}
		ac.SetVariable(ac.ActivityID()+".name", name)
	}
	return api.ResultSuspended, nil
}

func (userTaskType) OnSignal(ctx context.Context, ac api.ActivityContext, payload map[string]any) error {
	for k, v := range payload {
		ac.SetVariable(k, v)
	}
	return nil
}

func (userTaskType) CancelTransition(ac api.ActivityContext) (string, bool) {
	c := ac.Config().(*compiledUserTask)
	if c.onCancel == "" {
		return "", false
	}
	return c.onCancel, true
}

// ReceiveTask waits for an external message. Like a user task it suspends,
// but it declares no cancellation edge.
type ReceiveTask struct{}

type receiveTaskType struct{}

func (receiveTaskType) Kind() string         { return KindReceiveTask }
func (receiveTaskType) Routing() api.Routing { return api.RouteAll }

func (receiveTaskType) Parse(a *api.Activity, pc *api.ParseContext) any {
	return nil
}

func (receiveTaskType) Execute(ctx context.Context, ac api.ActivityContext) (api.Result, error) {
	return api.ResultSuspended, nil
}

func (receiveTaskType) OnSignal(ctx context.Context, ac api.ActivityContext, payload map[string]any) error {
	for k, v := range payload {
		ac.SetVariable(k, v)
	}
	return nil
}

// ScriptTask evaluates an expression against the instance variables and
// optionally stores the result.
type ScriptTask struct {
	// Script is the expression text, compiled at deploy time.
	Script string

	// Result names the instance variable that receives the evaluated
	// value. Empty discards the value.
	Result string
}

type compiledScriptTask struct {
	program api.Program
	result  string
}

type scriptTaskType struct{}

func (scriptTaskType) Kind() string         { return KindScriptTask }
func (scriptTaskType) Routing() api.Routing { return api.RouteAll }

func (scriptTaskType) Parse(a *api.Activity, pc *api.ParseContext) any {
	cfg, ok := a.Config.(ScriptTask)
	if !ok || cfg.Script == "" {
		pc.Errorf("script task requires a non-empty script")
		return nil
	}
	return &compiledScriptTask{
		program: pc.CompileExpression(cfg.Script),
		result:  cfg.Result,
	}
}

func (scriptTaskType) Execute(ctx context.Context, ac api.ActivityContext) (api.Result, error) {
	c := ac.Config().(*compiledScriptTask)
	value, err := c.program.Eval(ac.Variables())
	if err != nil {
		return 0, fmt.Errorf("script failed: %w", err)
	}
	if c.result != "" {
		ac.SetVariable(c.result, value)
	}
	return api.ResultEnded, nil
}

// ServiceTask invokes a statically registered native function with bound
// arguments. The function name is resolved at deploy time; returned values
// are merged into the instance variables.
type ServiceTask struct {
	Function string
	Args     []api.Binding
}

type compiledServiceTask struct {
	fn   api.Function
	args []*api.CompiledBinding
}

type serviceTaskType struct{}

func (serviceTaskType) Kind() string         { return KindServiceTask }
func (serviceTaskType) Routing() api.Routing { return api.RouteAll }

func (serviceTaskType) Parse(a *api.Activity, pc *api.ParseContext) any {
	cfg, ok := a.Config.(ServiceTask)
	if !ok || cfg.Function == "" {
		pc.Errorf("service task requires a function name")
		return nil
	}
	c := &compiledServiceTask{fn: pc.Function(cfg.Function)}
	for i, b := range cfg.Args {
		cb := pc.At(fmt.Sprintf("args[%d]", i)).ParseBinding(b)
		c.args = append(c.args, cb)
	}
	return c
}

func (serviceTaskType) Execute(ctx context.Context, ac api.ActivityContext) (api.Result, error) {
	c := ac.Config().(*compiledServiceTask)
	args := make([]any, len(c.args))
	for i, cb := range c.args {
		v, err := cb.Resolve(ac.Variables())
		if err != nil {
			return 0, fmt.Errorf("resolving argument %d: %w", i, err)
		}
		args[i] = v
	}
	out, err := c.fn(ctx, args)
	if err != nil {
		return 0, err
	}
	for k, v := range out {
		ac.SetVariable(k, v)
	}
	return api.ResultEnded, nil
}
