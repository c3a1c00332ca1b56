package api

import (
	"fmt"
	"sync"
)

// Registry maps activity kind discriminators to their types. Every kind has
// exactly one handler; duplicate registrations fail loudly at registration
// time, not at parse or execution time.
//
// A registry is safe for concurrent lookups once populated. Registration
// normally happens during program initialization.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]ActivityType
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{kinds: make(map[string]ActivityType)}
}

// Register adds an activity type under its kind.
func (r *Registry) Register(t ActivityType) error {
	if t == nil {
		return fmt.Errorf("activity type must not be nil")
	}
	kind := t.Kind()
	if kind == "" {
		return fmt.Errorf("activity type has empty kind")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.kinds[kind]; exists {
		return fmt.Errorf("activity kind %q already registered", kind)
	}
	r.kinds[kind] = t
	return nil
}

// MustRegister is like Register but panics on error. Useful in init paths.
func (r *Registry) MustRegister(t ActivityType) {
	if err := r.Register(t); err != nil {
		panic(err)
	}
}

// Lookup returns the type registered for kind.
func (r *Registry) Lookup(kind string) (ActivityType, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	t, ok := r.kinds[kind]
	return t, ok
}

// Kinds returns all registered kind discriminators.
func (r *Registry) Kinds() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]string, 0, len(r.kinds))
	for k := range r.kinds {
		out = append(out, k)
	}
	return out
}
