package persistence

import (
	"context"
	"sync"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

// InMemoryStore is a goroutine-safe implementation of WorkflowStore and
// InstanceStore backed by maps. Instance trees are deep-copied on every
// read and write so two engine operations never share a tree.
type InMemoryStore struct {
	mu        sync.RWMutex
	workflows map[string][]api.Workflow // by ID, index i holds version i+1
	instances map[string]*api.WorkflowInstance
}

// NewInMemoryStore creates a new InMemoryStore.
func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{
		workflows: make(map[string][]api.Workflow),
		instances: make(map[string]*api.WorkflowInstance),
	}
}

// Ensure InMemoryStore implements the interfaces.
var _ WorkflowStore = (*InMemoryStore)(nil)

var _ InstanceStore = (*InMemoryStore)(nil)

func (s *InMemoryStore) SaveWorkflow(ctx context.Context, wf api.Workflow) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	versions := s.workflows[wf.ID]
	wf.Version = len(versions) + 1
	s.workflows[wf.ID] = append(versions, wf)
	return wf.Version, nil
}

func (s *InMemoryStore) GetWorkflow(ctx context.Context, id string, version int) (api.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	versions := s.workflows[id]
	if len(versions) == 0 {
		return api.Workflow{}, ErrWorkflowNotFound
	}
	if version == 0 {
		return versions[len(versions)-1], nil
	}
	if version < 1 || version > len(versions) {
		return api.Workflow{}, ErrWorkflowNotFound
	}
	return versions[version-1], nil
}

func (s *InMemoryStore) ListWorkflows(ctx context.Context, q api.WorkflowQuery) ([]api.Workflow, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []api.Workflow
	for id, versions := range s.workflows {
		if q.ID != "" && id != q.ID {
			continue
		}
		out = append(out, versions...)
	}
	return out, nil
}

func (s *InMemoryStore) DeleteWorkflows(ctx context.Context, q api.WorkflowQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, versions := range s.workflows {
		if q.ID != "" && id != q.ID {
			continue
		}
		deleted += len(versions)
		delete(s.workflows, id)
	}
	return deleted, nil
}

func (s *InMemoryStore) CreateInstance(ctx context.Context, inst *api.WorkflowInstance) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.instances[inst.ID]; ok {
		return ErrInstanceExists
	}
	inst.Rev = 1
	s.instances[inst.ID] = inst.Clone()
	return nil
}

func (s *InMemoryStore) UpdateInstance(ctx context.Context, inst *api.WorkflowInstance, expectedRev int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stored, ok := s.instances[inst.ID]
	if !ok {
		return ErrInstanceNotFound
	}
	if stored.Rev != expectedRev {
		return ErrRevConflict
	}
	inst.Rev = expectedRev + 1
	s.instances[inst.ID] = inst.Clone()
	return nil
}

func (s *InMemoryStore) GetInstance(ctx context.Context, id string) (*api.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	inst, ok := s.instances[id]
	if !ok {
		return nil, ErrInstanceNotFound
	}
	return inst.Clone(), nil
}

func (s *InMemoryStore) ListInstances(ctx context.Context, q api.InstanceQuery) ([]*api.WorkflowInstance, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []*api.WorkflowInstance
	for _, inst := range s.instances {
		if q.WorkflowID != "" && inst.WorkflowID != q.WorkflowID {
			continue
		}
		if q.Status != "" && inst.Status != q.Status {
			continue
		}
		out = append(out, inst.Clone())
	}
	return out, nil
}

func (s *InMemoryStore) DeleteInstances(ctx context.Context, q api.InstanceQuery) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	deleted := 0
	for id, inst := range s.instances {
		if q.WorkflowID != "" && inst.WorkflowID != q.WorkflowID {
			continue
		}
		if q.Status != "" && inst.Status != q.Status {
			continue
		}
		delete(s.instances, id)
		deleted++
	}
	return deleted, nil
}
