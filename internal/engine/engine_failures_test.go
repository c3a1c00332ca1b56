package engine

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/denchik37/Copy-of-Effektif/internal/persistence"
	"github.com/denchik37/Copy-of-Effektif/pkg/activities"
	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

func TestScriptFailure_FailsActivityNotEngine(t *testing.T) {
	for name, factory := range engineFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			eng := factory(t)

			wf := api.Workflow{
				ID: "crashy",
				Scope: api.Scope{
					Activities: []api.Activity{
						{ID: "start", Kind: activities.KindStartEvent},
						// The assertion panics at runtime when the variable is absent.
						{ID: "calc", Kind: activities.KindScriptTask, Config: activities.ScriptTask{
							Script: `v["missing"].(int) + 1`,
							Result: "out",
						}},
						{ID: "done", Kind: activities.KindEndEvent},
					},
					Transitions: []api.Transition{
						{From: "start", To: "calc"},
						{From: "calc", To: "done"},
					},
				},
			}
			mustDeploy(t, eng, wf)

			inst, err := eng.Start(ctx, api.WorkflowRef{ID: "crashy"}, nil)
			if err != nil {
				t.Fatalf("Start must not fail on an activity failure: %v", err)
			}
			if inst.Status != api.StatusFailed {
				t.Fatalf("expected FAILED, got %q", inst.Status)
			}

			calc := inst.FindOpenActivityInstance("calc")
			if calc != nil {
				t.Fatalf("failed activity must not be open, got %+v", calc)
			}
			var failed *api.ActivityInstance
			for _, ai := range inst.Activities {
				if ai.ActivityID == "calc" {
					failed = ai
				}
			}
			if failed == nil || failed.State != api.StateFailed || failed.Failure == "" {
				t.Fatalf("expected failed calc with a recorded reason, got %+v", failed)
			}

			// The failure must not propagate past the activity.
			if inst.ActivityCounts()["done"] != 0 {
				t.Fatalf("expected the flow stopped at the failure, counts: %v", inst.ActivityCounts())
			}

			// And it is persisted for inspection.
			got, err := eng.GetInstance(ctx, inst.ID)
			if err != nil {
				t.Fatalf("GetInstance failed: %v", err)
			}
			if got.Status != api.StatusFailed {
				t.Fatalf("expected stored FAILED, got %q", got.Status)
			}
		})
	}
}

func TestFailedSibling_DoesNotStopOtherBranches(t *testing.T) {
	ctx := context.Background()
	eng := inMemoryEngine(t)

	wf := api.Workflow{
		ID: "half-broken",
		Scope: api.Scope{
			Activities: []api.Activity{
				{ID: "start", Kind: activities.KindStartEvent},
				{ID: "fork", Kind: activities.KindParallelGateway},
				{ID: "bad", Kind: activities.KindScriptTask, Config: activities.ScriptTask{
					Script: `v["absent"].(int)`,
				}},
				{ID: "good", Kind: activities.KindUserTask, Config: activities.UserTask{}},
			},
			Transitions: []api.Transition{
				{From: "start", To: "fork"},
				{From: "fork", To: "bad"},
				{From: "fork", To: "good"},
			},
		},
	}
	mustDeploy(t, eng, wf)

	inst, err := eng.Start(ctx, api.WorkflowRef{ID: "half-broken"}, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	// The healthy branch keeps waiting; the instance is not failed while
	// work remains open.
	if inst.Status != api.StatusWaiting {
		t.Fatalf("expected WAITING with the good branch open, got %q", inst.Status)
	}
	good := inst.FindOpenActivityInstance("good")
	if good == nil {
		t.Fatalf("expected the good branch open")
	}

	inst, err = eng.Signal(ctx, inst.ID, good.ID, nil)
	if err != nil {
		t.Fatalf("Signal failed: %v", err)
	}
	if inst.Status != api.StatusFailed {
		t.Fatalf("expected FAILED once only the failed branch remains, got %q", inst.Status)
	}
}

func TestServiceTask_InvokesRegisteredFunction(t *testing.T) {
	ctx := context.Background()

	eng := NewInMemoryEngineWithConfig(Config{
		Functions: map[string]api.Function{
			"charge": func(ctx context.Context, args []any) (map[string]any, error) {
				amount, _ := args[0].(int)
				if amount <= 0 {
					return nil, fmt.Errorf("invalid amount %v", args[0])
				}
				return map[string]any{"charged": amount}, nil
			},
		},
	})

	wf := api.Workflow{
		ID: "payment",
		Scope: api.Scope{
			Activities: []api.Activity{
				{ID: "charge", Kind: activities.KindServiceTask, Config: activities.ServiceTask{
					Function: "charge",
					Args:     []api.Binding{{Variable: "amount"}},
				}},
			},
		},
	}
	mustDeploy(t, eng, wf)

	inst, err := eng.Start(ctx, api.WorkflowRef{ID: "payment"}, map[string]any{"amount": 30})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if inst.Status != api.StatusCompleted {
		t.Fatalf("expected COMPLETED, got %q", inst.Status)
	}
	if inst.Variables["charged"] != 30 {
		t.Fatalf("expected function output merged, got %v", inst.Variables)
	}

	// A function error fails the activity.
	inst, err = eng.Start(ctx, api.WorkflowRef{ID: "payment"}, map[string]any{"amount": -1})
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	if inst.Status != api.StatusFailed {
		t.Fatalf("expected FAILED on function error, got %q", inst.Status)
	}
}

func TestServiceTask_UnknownFunctionIsDeployError(t *testing.T) {
	eng := inMemoryEngine(t)

	wf := api.Workflow{
		ID: "no-fn",
		Scope: api.Scope{
			Activities: []api.Activity{
				{ID: "call", Kind: activities.KindServiceTask, Config: activities.ServiceTask{
					Function: "nope",
				}},
			},
		},
	}

	_, err := eng.Deploy(context.Background(), wf)
	var verr *api.ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
}

func TestExecutionLimit_BreaksTransitionCycles(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngineWithConfig(Config{MaxSteps: 10})

	wf := api.Workflow{
		ID: "cycle",
		Scope: api.Scope{
			Activities: []api.Activity{
				{ID: "start", Kind: activities.KindStartEvent},
				{ID: "a", Kind: activities.KindNoneTask},
				{ID: "b", Kind: activities.KindNoneTask},
			},
			Transitions: []api.Transition{
				{From: "start", To: "a"},
				{From: "a", To: "b"},
				{From: "b", To: "a"},
			},
		},
	}
	mustDeploy(t, eng, wf)

	_, err := eng.Start(ctx, api.WorkflowRef{ID: "cycle"}, nil)
	if !errors.Is(err, api.ErrExecutionLimit) {
		t.Fatalf("expected ErrExecutionLimit, got %v", err)
	}

	instances, err := eng.ListInstances(ctx, api.InstanceQuery{WorkflowID: "cycle"})
	if err != nil {
		t.Fatalf("ListInstances failed: %v", err)
	}
	if len(instances) != 0 {
		t.Fatalf("expected nothing persisted after a limit breach, got %d", len(instances))
	}
}

func TestCallDepthLimit_BreaksDefinitionCycles(t *testing.T) {
	for name, factory := range engineFactories() {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			eng := factory(t)

			// The workflow launches itself through a call activity.
			wf := api.Workflow{
				ID: "recursive",
				Scope: api.Scope{
					Activities: []api.Activity{
						{ID: "start", Kind: activities.KindStartEvent},
						{ID: "again", Kind: activities.KindCallActivity, Config: activities.CallActivity{
							WorkflowID: "recursive",
						}},
					},
					Transitions: []api.Transition{
						{From: "start", To: "again"},
					},
				},
			}
			mustDeploy(t, eng, wf)

			_, err := eng.Start(ctx, api.WorkflowRef{ID: "recursive"}, nil)
			if !errors.Is(err, api.ErrExecutionLimit) {
				t.Fatalf("expected ErrExecutionLimit, got %v", err)
			}

			instances, err := eng.ListInstances(ctx, api.InstanceQuery{WorkflowID: "recursive"})
			if err != nil {
				t.Fatalf("ListInstances failed: %v", err)
			}
			if len(instances) != 0 {
				t.Fatalf("expected nothing persisted after a depth breach, got %d", len(instances))
			}
		})
	}
}

// interferingStore simulates a concurrent writer: after the first load it
// bumps the stored revision, so the caller's save runs into a conflict.
type interferingStore struct {
	persistence.InstanceStore
	once sync.Once
}

func (s *interferingStore) GetInstance(ctx context.Context, id string) (*api.WorkflowInstance, error) {
	inst, err := s.InstanceStore.GetInstance(ctx, id)
	if err != nil {
		return nil, err
	}
	s.once.Do(func() {
		clone := inst.Clone()
		_ = s.InstanceStore.UpdateInstance(ctx, clone, clone.Rev)
	})
	return inst, nil
}

func TestSignal_RevisionConflict(t *testing.T) {
	ctx := context.Background()

	mem := persistence.NewInMemoryStore()
	eng := NewEngineWithConfig(Config{
		Persistence: persistence.Persistence{
			Workflows: mem,
			Instances: &interferingStore{InstanceStore: mem},
		},
	})

	mustDeploy(t, eng, approvalWorkflow("approval"))

	inst, err := eng.Start(ctx, api.WorkflowRef{ID: "approval"}, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}
	task := inst.FindOpenActivityInstance("approve")

	_, err = eng.Signal(ctx, inst.ID, task.ID, map[string]any{"approved": true})
	if !errors.Is(err, api.ErrConflict) {
		t.Fatalf("expected ErrConflict, got %v", err)
	}

	// After the conflicting writer, a retry succeeds.
	resumed, err := eng.Signal(ctx, inst.ID, task.ID, map[string]any{"approved": true})
	if err != nil {
		t.Fatalf("retry Signal failed: %v", err)
	}
	if resumed.Status != api.StatusCompleted {
		t.Fatalf("expected COMPLETED after retry, got %q", resumed.Status)
	}
}

func TestObserver_BasicMetrics(t *testing.T) {
	ctx := context.Background()

	metrics := &api.BasicMetrics{}
	eng := NewInMemoryEngineWithConfig(Config{Observer: metrics})

	mustDeploy(t, eng, linearWorkflow("observed"))
	mustDeploy(t, eng, approvalWorkflow("observed-approval"))

	if _, err := eng.Start(ctx, api.WorkflowRef{ID: "observed"}, nil); err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	inst, err := eng.Start(ctx, api.WorkflowRef{ID: "observed-approval"}, nil)
	if err != nil {
		t.Fatalf("Start failed: %v", err)
	}

	snap := metrics.Snapshot()
	if snap.InstancesStarted != 2 {
		t.Fatalf("expected 2 started, got %d", snap.InstancesStarted)
	}
	if snap.InstancesCompleted != 1 {
		t.Fatalf("expected 1 completed, got %d", snap.InstancesCompleted)
	}
	if snap.OpenInstances != 1 {
		t.Fatalf("expected 1 open, got %d", snap.OpenInstances)
	}
	// start, work, done from the linear flow plus the approval's start event.
	if snap.ActivitiesEnded != 4 {
		t.Fatalf("expected 4 ended activities, got %d", snap.ActivitiesEnded)
	}

	task := inst.FindOpenActivityInstance("approve")
	if _, err := eng.Signal(ctx, inst.ID, task.ID, nil); err != nil {
		t.Fatalf("Signal failed: %v", err)
	}

	snap = metrics.Snapshot()
	if snap.InstancesCompleted != 2 || snap.OpenInstances != 0 {
		t.Fatalf("expected both instances completed, got %+v", snap)
	}
	if snap.ActivitiesEnded != 6 {
		t.Fatalf("expected 6 ended activities after the signal, got %d", snap.ActivitiesEnded)
	}
}

func TestConcurrentInstances_DoNotInterfere(t *testing.T) {
	ctx := context.Background()
	eng := inMemoryEngine(t)

	mustDeploy(t, eng, approvalWorkflow("concurrent"))

	const n = 20
	ids := make([]string, n)
	var wg sync.WaitGroup
	errs := make([]error, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			inst, err := eng.Start(ctx, api.WorkflowRef{ID: "concurrent"}, map[string]any{"n": i})
			if err != nil {
				errs[i] = err
				return
			}
			ids[i] = inst.ID
			task := inst.FindOpenActivityInstance("approve")
			_, errs[i] = eng.Signal(ctx, inst.ID, task.ID, map[string]any{"approved": true})
		}(i)
	}
	wg.Wait()

	for i, err := range errs {
		if err != nil {
			t.Fatalf("worker %d failed: %v", i, err)
		}
	}

	for i, id := range ids {
		inst, err := eng.GetInstance(ctx, id)
		if err != nil {
			t.Fatalf("GetInstance(%d) failed: %v", i, err)
		}
		if inst.Status != api.StatusCompleted {
			t.Fatalf("instance %d: expected COMPLETED, got %q", i, inst.Status)
		}
		if inst.Variables["n"] != i {
			t.Fatalf("instance %d: variables crossed between instances: %v", i, inst.Variables)
		}
	}
}
