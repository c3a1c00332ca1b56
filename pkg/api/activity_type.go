package api

import (
	"context"
	"fmt"
	"sort"
	"strings"
)

// Routing selects the transition-following policy applied when an activity
// instance ends.
type Routing int

const (
	// RouteAll follows every outgoing transition whose condition is absent
	// or evaluates true, each spawning a sibling activity instance.
	RouteAll Routing = iota

	// RouteExclusive follows the first outgoing transition, in declaration
	// order, whose condition evaluates true or is absent; falls back to
	// the designated default transition; dead-ends otherwise.
	RouteExclusive
)

// Result is what an activity type's Execute decided for its instance.
type Result int

const (
	// ResultEnded completes the instance immediately; outgoing transitions
	// are followed.
	ResultEnded Result = iota

	// ResultSuspended parks the instance until an external signal.
	ResultSuspended

	// ResultOpenScope keeps the instance active and opens its child scope.
	// The instance ends once the child scope drains.
	ResultOpenScope
)

// ActivityType is the pluggable capability behind an activity kind.
// Registered types are read-only after registration and shared across all
// concurrent instance executions.
type ActivityType interface {
	// Kind returns the registry discriminator.
	Kind() string

	// Routing returns the transition policy for instances of this kind.
	Routing() Routing

	// Parse validates the kind-specific configuration and returns its
	// compiled form, reporting problems through the parse context. The
	// compiled value is handed back through ActivityContext.Config at
	// execution time.
	Parse(a *Activity, pc *ParseContext) any

	// Execute runs one activity instance. It must run to completion or
	// suspension without blocking on other instances. A returned error
	// marks the instance failed without corrupting its siblings.
	Execute(ctx context.Context, ac ActivityContext) (Result, error)
}

// SignalHandler is implemented by activity types that suspend. OnSignal is
// invoked when an external caller resumes the instance; the default when a
// suspending type does not implement it is to merge the payload into the
// instance variables.
type SignalHandler interface {
	OnSignal(ctx context.Context, ac ActivityContext, payload map[string]any) error
}

// CancelHandler is implemented by activity types that define a cancellation
// edge. CancelTransition returns the ID of the outgoing transition a cancel
// signal should follow instead of the normal completion edges.
type CancelHandler interface {
	CancelTransition(ac ActivityContext) (string, bool)
}

// ActivityContext is the handle an activity type receives for the instance
// it is executing. It is valid only for the duration of the callback.
type ActivityContext interface {
	InstanceID() string
	ActivityInstanceID() string
	ActivityID() string

	// Config returns the compiled configuration produced by Parse.
	Config() any

	// Variables returns the live instance variable store.
	Variables() map[string]any

	// SetVariable writes one instance variable.
	SetVariable(name string, value any)

	// LaunchWorkflow starts a sub-workflow instance on the same engine,
	// linked back to this activity instance. If the sub-workflow runs to
	// completion synchronously, Ended is true and Variables holds its
	// final variable state; otherwise the caller should suspend and will
	// be signaled when the sub-workflow ends.
	LaunchWorkflow(ctx context.Context, ref WorkflowRef, variables map[string]any) (*SubWorkflow, error)
}

// SubWorkflow reports the immediate outcome of LaunchWorkflow.
type SubWorkflow struct {
	InstanceID string
	Ended      bool
	Variables  map[string]any
}

// Function is a statically registered native callable for service tasks.
// Names are resolved at parse time, so an unresolvable name is a deploy
// error rather than a runtime invocation failure. Returned values are merged
// into the instance variables.
type Function func(ctx context.Context, args []any) (map[string]any, error)

// ScriptService compiles condition and expression text into programs.
// Treated as an external collaborator; the engine only relies on this
// contract.
type ScriptService interface {
	Compile(expression string) (Program, error)
}

// Program is a compiled expression. Eval must be safe for concurrent use
// and must not retain the variable snapshot.
type Program interface {
	Eval(variables map[string]any) (any, error)
}

// ParseContext collects diagnostics and offers compilation services while a
// definition is parsed. Activity types use it from their Parse callback.
type ParseContext struct {
	scripts ScriptService
	funcs   map[string]Function

	path  []string
	diags *Diagnostics
}

// NewParseContext creates a root parse context. The function table may be
// nil when no service tasks are used.
func NewParseContext(scripts ScriptService, funcs map[string]Function) *ParseContext {
	return &ParseContext{
		scripts: scripts,
		funcs:   funcs,
		diags:   &Diagnostics{},
	}
}

// At returns a context whose diagnostics are attributed to the given child
// element. The diagnostic list is shared with the receiver.
func (pc *ParseContext) At(elem string) *ParseContext {
	child := *pc
	child.path = append(append([]string(nil), pc.path...), elem)
	return &child
}

// Errorf records an error-level diagnostic at the current path.
func (pc *ParseContext) Errorf(format string, args ...any) {
	*pc.diags = append(*pc.diags, Diagnostic{
		Level:   LevelError,
		Path:    strings.Join(pc.path, "/"),
		Message: fmt.Sprintf(format, args...),
	})
}

// Warnf records a warning-level diagnostic at the current path.
func (pc *ParseContext) Warnf(format string, args ...any) {
	*pc.diags = append(*pc.diags, Diagnostic{
		Level:   LevelWarning,
		Path:    strings.Join(pc.path, "/"),
		Message: fmt.Sprintf(format, args...),
	})
}

// Diagnostics returns everything recorded so far.
func (pc *ParseContext) Diagnostics() Diagnostics {
	return *pc.diags
}

// Compile compiles expression text through the script service without
// recording a diagnostic, so callers can attach their own message.
// Empty input compiles to a nil program.
func (pc *ParseContext) Compile(expression string) (Program, error) {
	if expression == "" {
		return nil, nil
	}
	return pc.scripts.Compile(expression)
}

// CompileExpression compiles expression text through the script service,
// recording a diagnostic on failure. Returns nil for empty input or when
// compilation fails.
func (pc *ParseContext) CompileExpression(expression string) Program {
	prog, err := pc.Compile(expression)
	if err != nil {
		pc.Errorf("invalid expression '%s' : %v", expression, err)
		return nil
	}
	return prog
}

// Function resolves a registered native function by name, recording an
// error when the name is unknown.
func (pc *ParseContext) Function(name string) Function {
	fn, ok := pc.funcs[name]
	if !ok {
		names := make([]string, 0, len(pc.funcs))
		for n := range pc.funcs {
			names = append(names, n)
		}
		sort.Strings(names)
		pc.Errorf("unknown function %q, registered functions: %v", name, names)
		return nil
	}
	return fn
}

// ParseBinding compiles a binding, verifying it declares exactly one value
// source. Returns nil when the binding is invalid.
func (pc *ParseContext) ParseBinding(b Binding) *CompiledBinding {
	sources := 0
	if b.Value != nil {
		sources++
	}
	if b.Variable != "" {
		sources++
	}
	if b.Expression != "" {
		sources++
	}
	if sources != 1 {
		pc.Errorf("binding must have exactly one of value, variable, expression")
		return nil
	}
	cb := &CompiledBinding{Value: b.Value, HasValue: b.Value != nil, Variable: b.Variable}
	if b.Expression != "" {
		cb.Program = pc.CompileExpression(b.Expression)
		if cb.Program == nil {
			return nil
		}
	}
	return cb
}
