package api

// Status represents the lifecycle state of a workflow instance.
type Status string

const (
	StatusRunning   Status = "RUNNING"
	StatusWaiting   Status = "WAITING"
	StatusCompleted Status = "COMPLETED"
	StatusFailed    Status = "FAILED"
)

// ActivityState is the lifecycle state of one activity instance.
//
// The transient "created" state is never observable: an activity instance is
// executed in the same engine operation that creates it, so by the time an
// instance tree is persisted every activity instance is in one of the states
// below.
type ActivityState string

const (
	// StateActive means the activity is open: it is executing, or it is a
	// composite whose child scope has not drained yet.
	StateActive ActivityState = "active"

	// StateSuspended means the activity declared it must wait for an
	// external signal before it may end.
	StateSuspended ActivityState = "suspended"

	StateEnded  ActivityState = "ended"
	StateFailed ActivityState = "failed"
)

// WorkflowInstance is one running execution of a workflow version: a tree of
// activity instances plus a variable store.
//
// The tree is stored as a flat arena of activity instance records linked by
// ParentID so the whole instance serializes without pointer cycles. An empty
// ParentID means the root scope; a non-empty ParentID names the composite
// activity instance whose child scope contains the record.
type WorkflowInstance struct {
	ID              string
	WorkflowID      string
	WorkflowVersion int

	Status Status

	// Variables is the instance-local variable store. Activity outputs and
	// signal payloads are merged into it.
	Variables map[string]any

	// Activities is the flat instance arena. Ended and failed records are
	// retained for history until the instance is deleted.
	Activities []*ActivityInstance

	// CallerInstanceID / CallerActivityInstanceID link a sub-workflow
	// instance back to the call activity that launched it. When this
	// instance completes, the engine signals that activity instance.
	CallerInstanceID         string
	CallerActivityInstanceID string

	// Rev is the optimistic concurrency revision managed by the
	// persistence gateway. Writers pass the revision they loaded; a
	// mismatch fails the save with a retryable conflict.
	Rev int64
}

// ActivityInstance is the instantiation of one activity within a scope.
type ActivityInstance struct {
	ID         string
	ActivityID string

	// ParentID is the ID of the owning composite activity instance, or
	// empty for the root scope.
	ParentID string

	State ActivityState

	// Failure holds the reason when State is StateFailed.
	Failure string

	// SubInstanceID is set on call activities: the ID of the launched
	// sub-workflow instance.
	SubInstanceID string
}

// Open reports whether the activity instance still occupies its scope.
func (ai *ActivityInstance) Open() bool {
	return ai.State == StateActive || ai.State == StateSuspended
}

// Find returns the activity instance with the given ID, or nil.
func (w *WorkflowInstance) Find(activityInstanceID string) *ActivityInstance {
	for _, ai := range w.Activities {
		if ai.ID == activityInstanceID {
			return ai
		}
	}
	return nil
}

// FindOpenActivityInstance returns the first open instance of the given
// activity ID, or nil. Useful for addressing signals in tests and callers
// that know the definition.
func (w *WorkflowInstance) FindOpenActivityInstance(activityID string) *ActivityInstance {
	for _, ai := range w.Activities {
		if ai.ActivityID == activityID && ai.Open() {
			return ai
		}
	}
	return nil
}

// OpenActivityIDs returns the activity IDs of all open activity instances,
// in creation order. An activity that is open more than once appears once
// per open instance.
func (w *WorkflowInstance) OpenActivityIDs() []string {
	var ids []string
	for _, ai := range w.Activities {
		if ai.Open() {
			ids = append(ids, ai.ActivityID)
		}
	}
	return ids
}

// ActivityCounts returns how many instances exist per activity ID,
// regardless of state. For a completed linear workflow start -> a -> end
// this is {start:1, a:1, end:1}.
func (w *WorkflowInstance) ActivityCounts() map[string]int {
	counts := make(map[string]int, len(w.Activities))
	for _, ai := range w.Activities {
		counts[ai.ActivityID]++
	}
	return counts
}

// Children returns the activity instances directly owned by the scope of the
// given parent activity instance ID ("" for the root scope).
func (w *WorkflowInstance) Children(parentID string) []*ActivityInstance {
	var out []*ActivityInstance
	for _, ai := range w.Activities {
		if ai.ParentID == parentID {
			out = append(out, ai)
		}
	}
	return out
}

// Clone returns a deep copy of the instance tree. Variable values are copied
// one map level deep; activity records are copied fully.
func (w *WorkflowInstance) Clone() *WorkflowInstance {
	c := *w
	c.Variables = cloneVariables(w.Variables)
	c.Activities = make([]*ActivityInstance, len(w.Activities))
	for i, ai := range w.Activities {
		copied := *ai
		c.Activities[i] = &copied
	}
	return &c
}

func cloneVariables(vars map[string]any) map[string]any {
	if vars == nil {
		return nil
	}
	out := make(map[string]any, len(vars))
	for k, v := range vars {
		if m, ok := v.(map[string]any); ok {
			out[k] = cloneVariables(m)
			continue
		}
		out[k] = v
	}
	return out
}

// InstanceQuery selects workflow instances. Zero values mean "no filter".
type InstanceQuery struct {
	WorkflowID string
	Status     Status
}
