package effektif

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func approvalDefinition(id string) Workflow {
	return NewWorkflow(id).
		StartEvent("start").
		UserTask("approve").
		EndEvent("done").
		Transition("start", "approve").
		Transition("approve", "done").
		Workflow()
}

func TestWrappers_RoundTrip(t *testing.T) {
	ctx := context.Background()
	eng := NewInMemoryEngine()

	dep, err := Deploy(ctx, eng, approvalDefinition("approval"))
	require.NoError(t, err)
	require.Equal(t, 1, dep.Version)

	inst, err := Start(ctx, eng, WorkflowRef{ID: "approval"}, map[string]any{"requester": "alice"})
	require.NoError(t, err)
	require.Equal(t, StatusWaiting, inst.Status)

	task := inst.FindOpenActivityInstance("approve")
	require.NotNil(t, task)

	resumed, err := Signal(ctx, eng, inst.ID, task.ID, map[string]any{"approved": true})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, resumed.Status)
	require.Equal(t, true, resumed.Variables["approved"])

	got, err := GetInstance(ctx, eng, inst.ID)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, got.Status)

	all, err := ListInstances(ctx, eng, InstanceQuery{WorkflowID: "approval"})
	require.NoError(t, err)
	require.Len(t, all, 1)
}

func TestSQLiteEngine_SurvivesBuilderWorkflows(t *testing.T) {
	ctx := context.Background()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })

	eng, err := NewSQLiteEngine(db)
	require.NoError(t, err)

	_, err = Deploy(ctx, eng, approvalDefinition("approval"))
	require.NoError(t, err)

	inst, err := Start(ctx, eng, WorkflowRef{ID: "approval"}, nil)
	require.NoError(t, err)

	task := inst.FindOpenActivityInstance("approve")
	resumed, err := Signal(ctx, eng, inst.ID, task.ID, nil)
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, resumed.Status)
}

func TestEngineWithConfig_ObserverAndFunctions(t *testing.T) {
	ctx := context.Background()

	metrics := &BasicMetrics{}
	eng := NewInMemoryEngineWithConfig(Config{
		Observer: NewCompositeObserver(metrics),
		Functions: map[string]Function{
			"greet": func(ctx context.Context, args []any) (map[string]any, error) {
				name, _ := args[0].(string)
				return map[string]any{"greeting": "hello " + name}, nil
			},
		},
	})

	wf := NewWorkflow("greeter").
		ServiceTask("greet", "greet", Binding{Variable: "name"}).
		Workflow()

	_, err := Deploy(ctx, eng, wf)
	require.NoError(t, err)

	inst, err := Start(ctx, eng, WorkflowRef{ID: "greeter"}, map[string]any{"name": "gopher"})
	require.NoError(t, err)
	require.Equal(t, StatusCompleted, inst.Status)
	require.Equal(t, "hello gopher", inst.Variables["greeting"])

	snap := metrics.Snapshot()
	require.EqualValues(t, 1, snap.InstancesStarted)
	require.EqualValues(t, 1, snap.InstancesCompleted)
}
