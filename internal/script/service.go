// Package script implements the engine's script service on top of the
// yaegi Go interpreter. An expression is any Go expression over a single
// predeclared parameter v of type map[string]interface{} holding the
// instance variables, for example:
//
//	v["amount"].(int) > 100
//	v["approved"] == true
package script

import (
	"fmt"
	"sync"

	"github.com/traefik/yaegi/interp"
	"github.com/traefik/yaegi/stdlib"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// Service compiles expressions into programs. Each compile gets its own
// interpreter so compiled programs stay independent.
type Service struct{}

// Ensure Service implements the engine contract.
var _ api.ScriptService = (*Service)(nil)

// NewService creates a script service.
func NewService() *Service {
	return &Service{}
}

// Compile wraps the expression into a function literal and evaluates it
// once, so syntax errors and unresolved identifiers surface at deploy time
// rather than mid-execution.
func (s *Service) Compile(expression string) (api.Program, error) {
	i := interp.New(interp.Options{})
	if err := i.Use(stdlib.Symbols); err != nil {
		return nil, err
	}

	// Evaluating a bare func literal yields a pointer to the result slot,
	// not the func value. Bind it to a name and read the name back.
	src := "prog := func(v map[string]interface{}) interface{} { return " + expression + " }"
	if _, err := i.Eval(src); err != nil {
		return nil, err
	}
	val, err := i.Eval("prog")
	if err != nil {
		return nil, err
	}
	fn, ok := val.Interface().(func(map[string]interface{}) interface{})
	if !ok {
		return nil, fmt.Errorf("expression did not compile to a callable: %s", expression)
	}

	return &program{expression: expression, fn: fn}, nil
}

// program guards its interpreter closure with a mutex; yaegi closures are
// not safe for concurrent invocation.
type program struct {
	mu         sync.Mutex
	expression string
	fn         func(map[string]interface{}) interface{}
}

func (p *program) Eval(variables map[string]any) (result any, err error) {
	defer func() {
		// Interpreted type assertions and map operations can panic;
		// report them as evaluation errors instead.
		if r := recover(); r != nil {
			result = nil
			err = fmt.Errorf("evaluating '%s': %v", p.expression, r)
		}
	}()

	if variables == nil {
		variables = map[string]any{}
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	return p.fn(variables), nil
}
