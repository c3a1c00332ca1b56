package api

import (
	"fmt"
	"strings"
)

// CompiledBinding is the deploy-time form of a Binding: literals are kept
// as-is, variable paths are split, expressions are compiled programs.
type CompiledBinding struct {
	Value    any
	HasValue bool
	Variable string
	Program  Program
}

// Resolve evaluates the binding against an instance variable snapshot.
func (b *CompiledBinding) Resolve(variables map[string]any) (any, error) {
	switch {
	case b.HasValue:
		return b.Value, nil
	case b.Variable != "":
		return lookupVariable(variables, b.Variable)
	case b.Program != nil:
		return b.Program.Eval(variables)
	}
	return nil, nil
}

// lookupVariable walks a dotted path through nested map[string]any values.
// A missing leaf resolves to nil; a non-map intermediate is an error.
func lookupVariable(variables map[string]any, path string) (any, error) {
	parts := strings.Split(path, ".")
	var current any = variables
	for i, part := range parts {
		m, ok := current.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("variable path %q: %q is not a map", path, strings.Join(parts[:i], "."))
		}
		current = m[part]
	}
	return current, nil
}
