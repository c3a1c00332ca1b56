package engine

import (
	"sort"
	"strings"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// compiledWorkflow is the runtime-executable form of a validated
// definition. It is read-only after parsing and shared across all
// concurrent instance executions.
type compiledWorkflow struct {
	id      string
	version int
	root    *compiledScope
}

type compiledScope struct {
	activities []*compiledActivity
	byID       map[string]*compiledActivity

	// start holds the activities with no incoming transitions, in
	// declaration order. They are instantiated when the scope opens.
	start []*compiledActivity
}

type compiledActivity struct {
	id   string
	kind string
	typ  api.ActivityType

	// config is the compiled configuration returned by the type's Parse.
	config any

	// scope is the child scope of composite activities, nil otherwise.
	scope *compiledScope

	outgoing []*compiledTransition
	incoming []*compiledTransition

	// defaultTransition is the exclusive-gateway fallback, nil if none.
	defaultTransition *compiledTransition
}

type compiledTransition struct {
	id        string
	from, to  *compiledActivity
	condition api.Program
}

// findTransition returns the outgoing transition with the given ID, or nil.
func (a *compiledActivity) findTransition(id string) *compiledTransition {
	if id == "" {
		return nil
	}
	for _, t := range a.outgoing {
		if t.id == id {
			return t
		}
	}
	return nil
}

// parser walks a raw workflow definition and produces its executable graph,
// collecting every diagnostic instead of stopping at the first.
type parser struct {
	registry *api.Registry
	pc       *api.ParseContext
}

// parseWorkflow validates wf against the registry and compiles conditions
// and bindings through the script service. The compiled workflow is only
// usable when the diagnostics contain no errors.
func parseWorkflow(wf *api.Workflow, registry *api.Registry, scripts api.ScriptService, funcs map[string]api.Function) (*compiledWorkflow, api.Diagnostics) {
	p := &parser{
		registry: registry,
		pc:       api.NewParseContext(scripts, funcs),
	}
	root := p.parseScope(&wf.Scope, p.pc)
	return &compiledWorkflow{
		id:      wf.ID,
		version: wf.Version,
		root:    root,
	}, p.pc.Diagnostics()
}

func (p *parser) parseScope(s *api.Scope, pc *api.ParseContext) *compiledScope {
	scope := &compiledScope{byID: make(map[string]*compiledActivity, len(s.Activities))}

	for i := range s.Activities {
		a := &s.Activities[i]
		apc := pc.At(a.ID)

		if a.ID == "" {
			apc.Errorf("activity has no id")
			continue
		}
		if _, exists := scope.byID[a.ID]; exists {
			apc.Errorf("duplicate activity id %q in scope", a.ID)
			continue
		}

		ca := &compiledActivity{id: a.ID, kind: a.Kind}
		scope.activities = append(scope.activities, ca)
		scope.byID[a.ID] = ca

		typ, ok := p.registry.Lookup(a.Kind)
		if !ok {
			kinds := p.registry.Kinds()
			sort.Strings(kinds)
			apc.Errorf("unknown activity kind %q, registered kinds: [%s]", a.Kind, strings.Join(kinds, ", "))
			continue
		}
		ca.typ = typ

		// Children must be valid independent of parent wiring, so the
		// child scope is parsed before the activity's own config.
		if a.Scope != nil {
			ca.scope = p.parseScope(a.Scope, apc)
		}
		ca.config = typ.Parse(a, apc)
	}

	for i := range s.Transitions {
		p.parseTransition(&s.Transitions[i], scope, pc)
	}

	// Default transitions can only be resolved once all edges are wired.
	for i := range s.Activities {
		a := &s.Activities[i]
		ca := scope.byID[a.ID]
		if ca == nil || a.DefaultTransition == "" {
			continue
		}
		ca.defaultTransition = ca.findTransition(a.DefaultTransition)
		if ca.defaultTransition == nil {
			pc.At(a.ID).Errorf("default transition %q is not an outgoing transition", a.DefaultTransition)
		}
	}

	for _, ca := range scope.activities {
		if len(ca.incoming) == 0 {
			scope.start = append(scope.start, ca)
		}
	}
	if len(scope.activities) > 0 && len(scope.start) == 0 {
		pc.Warnf("scope has no start activities; no activity is without incoming transitions")
	}

	return scope
}

func (p *parser) parseTransition(t *api.Transition, scope *compiledScope, pc *api.ParseContext) {
	tpc := pc.At(transitionLabel(t))
	ct := &compiledTransition{id: t.ID}

	if t.From == "" {
		tpc.Warnf("transition has no 'from' specified")
	} else {
		ct.from = scope.byID[t.From]
		if ct.from != nil {
			ct.from.outgoing = append(ct.from.outgoing, ct)
		} else {
			tpc.Errorf("transition has an invalid value for 'from' (%s) : existing activity ids are %s",
				t.From, existingActivityIDs(scope))
		}
	}

	if t.To == "" {
		tpc.Warnf("transition has no 'to' specified")
	} else {
		ct.to = scope.byID[t.To]
		if ct.to != nil {
			ct.to.incoming = append(ct.to.incoming, ct)
		} else {
			tpc.Errorf("transition has an invalid value for 'to' (%s) : existing activity ids are %s",
				t.To, existingActivityIDs(scope))
		}
	}

	if t.Condition != "" {
		prog, err := pc.Compile(t.Condition)
		if err != nil {
			tpc.Errorf("transition has an invalid condition expression '%s' : %v", t.Condition, err)
		} else {
			ct.condition = prog
		}
	}
}

// transitionLabel identifies a transition in diagnostics: (from)--id-->(to).
func transitionLabel(t *api.Transition) string {
	var b strings.Builder
	b.WriteString("(")
	b.WriteString(t.From)
	b.WriteString(")--")
	if t.ID != "" {
		b.WriteString(t.ID)
		b.WriteString("--")
	}
	b.WriteString(">(")
	b.WriteString(t.To)
	b.WriteString(")")
	return b.String()
}

// existingActivityIDs renders the scope's activity ids sorted, so invalid
// references produce a deterministic, debuggable message.
func existingActivityIDs(scope *compiledScope) string {
	ids := make([]string, 0, len(scope.byID))
	for id := range scope.byID {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return "[" + strings.Join(ids, ", ") + "]"
}
