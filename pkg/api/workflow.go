package api

import "encoding/gob"

func init() {
	gob.Register(map[string]any{})
	gob.Register([]any{})
}

// Workflow describes a deployable workflow definition. A workflow is itself
// the root Scope of its activity tree. Once deployed, a (ID, Version) pair is
// immutable; new deployments of the same ID get a new version.
type Workflow struct {
	// ID identifies the workflow. If empty, Deploy assigns one.
	ID string

	// Version is assigned by the engine on Deploy. Versions are never
	// mutated, only superseded.
	Version int

	// Name is an optional human-readable label.
	Name string

	Scope
}

// Scope is a container of activities and the transitions between them.
// Transitions may only connect activities in the same scope.
type Scope struct {
	Activities  []Activity
	Transitions []Transition
}

// Activity is one node in a workflow graph. Kind selects its behavior from
// the activity type registry; Config carries the kind-specific configuration
// (for example a activities.ScriptTask or activities.UserTask value).
type Activity struct {
	// ID must be unique within the directly enclosing scope.
	ID string

	// Kind is the registry discriminator, e.g. "userTask".
	Kind string

	// Config is the kind-specific configuration, handed to the activity
	// type's Parse. May be nil for kinds that need none.
	Config any

	// Scope is the nested child scope for composite activities
	// (embedded subprocesses). Nil for plain activities.
	Scope *Scope

	// DefaultTransition names the outgoing transition an exclusive
	// gateway falls back to when no condition matches.
	DefaultTransition string
}

// Transition is a directed edge between two activities in the same scope.
type Transition struct {
	// ID is optional; it is only needed to designate a default or
	// cancellation transition.
	ID string

	// From and To reference sibling activity IDs. A transition with an
	// absent endpoint yields a deploy warning; a non-empty endpoint that
	// does not resolve yields a deploy error.
	From string
	To   string

	// Condition is an optional expression compiled through the script
	// service at deploy time. An empty condition always holds.
	Condition string
}

// Binding references a value source for an activity argument: exactly one of
// a literal value, a variable name, or an expression.
type Binding struct {
	// Value is a literal.
	Value any

	// Variable names an instance variable. Dots descend into nested
	// map[string]any values ("order.total").
	Variable string

	// Expression is compiled through the script service at deploy time
	// and evaluated against the instance variables at execution time.
	Expression string
}

// WorkflowRef addresses a deployed workflow version.
// Version 0 means the latest deployed version.
type WorkflowRef struct {
	ID      string
	Version int
}

// WorkflowQuery selects deployed workflows. Zero values mean "no filter".
type WorkflowQuery struct {
	ID string
}
