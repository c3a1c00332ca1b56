package effektif

import (
	"fmt"

	"github.com/denchik37/Copy-of-Effektif/pkg/activities"
	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// WorkflowBuilder provides a fluent API for defining workflows:
//
//	wf := effektif.NewWorkflow("approval").
//	    StartEvent("start").
//	    UserTask("approve").
//	    ExclusiveGateway("decide").
//	    EndEvent("accepted").
//	    EndEvent("rejected").
//	    Transition("start", "approve").
//	    Transition("approve", "decide").
//	    ConditionalTransition("yes", "decide", "accepted", `v["approved"] == true`).
//	    DefaultTransition("no", "decide", "rejected").
//	    Workflow()
//
//	dep, err := eng.Deploy(ctx, wf)
type WorkflowBuilder struct {
	wf    api.Workflow
	scope *api.Scope
}

// NewWorkflow creates a builder for a workflow with the given ID.
func NewWorkflow(id string) *WorkflowBuilder {
	b := &WorkflowBuilder{wf: api.Workflow{ID: id}}
	b.scope = &b.wf.Scope
	return b
}

// Workflow returns the built definition.
func (b *WorkflowBuilder) Workflow() Workflow {
	return b.wf
}

// Activity appends an activity with an explicit kind and configuration.
func (b *WorkflowBuilder) Activity(id, kind string, config any) *WorkflowBuilder {
	if id == "" {
		panic("effektif: activity id must not be empty")
	}
	b.scope.Activities = append(b.scope.Activities, api.Activity{
		ID:     id,
		Kind:   kind,
		Config: config,
	})
	return b
}

// StartEvent appends a start event.
func (b *WorkflowBuilder) StartEvent(id string) *WorkflowBuilder {
	return b.Activity(id, activities.KindStartEvent, nil)
}

// EndEvent appends an end event.
func (b *WorkflowBuilder) EndEvent(id string) *WorkflowBuilder {
	return b.Activity(id, activities.KindEndEvent, nil)
}

// NoneTask appends a task with no behavior.
func (b *WorkflowBuilder) NoneTask(id string) *WorkflowBuilder {
	return b.Activity(id, activities.KindNoneTask, nil)
}

// UserTask appends a human task that suspends until signaled.
func (b *WorkflowBuilder) UserTask(id string) *WorkflowBuilder {
	return b.Activity(id, activities.KindUserTask, activities.UserTask{})
}

// UserTaskWith appends a human task with explicit configuration.
func (b *WorkflowBuilder) UserTaskWith(id string, cfg activities.UserTask) *WorkflowBuilder {
	return b.Activity(id, activities.KindUserTask, cfg)
}

// ReceiveTask appends a task that waits for an external message.
func (b *WorkflowBuilder) ReceiveTask(id string) *WorkflowBuilder {
	return b.Activity(id, activities.KindReceiveTask, activities.ReceiveTask{})
}

// ScriptTask appends a task that evaluates script and stores the value in
// the result variable.
func (b *WorkflowBuilder) ScriptTask(id, script, result string) *WorkflowBuilder {
	return b.Activity(id, activities.KindScriptTask, activities.ScriptTask{Script: script, Result: result})
}

// ServiceTask appends a task that invokes a registered native function.
func (b *WorkflowBuilder) ServiceTask(id, function string, args ...Binding) *WorkflowBuilder {
	return b.Activity(id, activities.KindServiceTask, activities.ServiceTask{Function: function, Args: args})
}

// CallActivity appends an activity that launches another workflow.
func (b *WorkflowBuilder) CallActivity(id, workflowID string, inputs map[string]Binding) *WorkflowBuilder {
	return b.Activity(id, activities.KindCallActivity, activities.CallActivity{WorkflowID: workflowID, Inputs: inputs})
}

// ExclusiveGateway appends a first-match-wins branching gateway.
func (b *WorkflowBuilder) ExclusiveGateway(id string) *WorkflowBuilder {
	return b.Activity(id, activities.KindExclusiveGateway, nil)
}

// ParallelGateway appends a fan-out gateway.
func (b *WorkflowBuilder) ParallelGateway(id string) *WorkflowBuilder {
	return b.Activity(id, activities.KindParallelGateway, nil)
}

// Subprocess appends a composite activity whose child scope is defined by
// the given function:
//
//	b.Subprocess("review", func(s *effektif.WorkflowBuilder) {
//	    s.UserTask("first").UserTask("second").Transition("first", "second")
//	})
func (b *WorkflowBuilder) Subprocess(id string, define func(s *WorkflowBuilder)) *WorkflowBuilder {
	child := &api.Scope{}
	nested := &WorkflowBuilder{scope: child}
	define(nested)
	b.scope.Activities = append(b.scope.Activities, api.Activity{
		ID:    id,
		Kind:  activities.KindSubprocess,
		Scope: child,
	})
	return b
}

// Transition appends an unconditional transition between two activities.
func (b *WorkflowBuilder) Transition(from, to string) *WorkflowBuilder {
	b.scope.Transitions = append(b.scope.Transitions, api.Transition{From: from, To: to})
	return b
}

// ConditionalTransition appends a transition guarded by a condition
// expression.
func (b *WorkflowBuilder) ConditionalTransition(id, from, to, condition string) *WorkflowBuilder {
	b.scope.Transitions = append(b.scope.Transitions, api.Transition{
		ID:        id,
		From:      from,
		To:        to,
		Condition: condition,
	})
	return b
}

// DefaultTransition appends a transition and designates it as the default
// of its source activity. The source must already be declared.
func (b *WorkflowBuilder) DefaultTransition(id, from, to string) *WorkflowBuilder {
	if id == "" {
		panic("effektif: default transition needs an id")
	}
	b.scope.Transitions = append(b.scope.Transitions, api.Transition{ID: id, From: from, To: to})
	for i := range b.scope.Activities {
		if b.scope.Activities[i].ID == from {
			b.scope.Activities[i].DefaultTransition = id
			return b
		}
	}
	panic(fmt.Sprintf("effektif: default transition %q references undeclared activity %q", id, from))
}
