package persistence

import (
	"testing"

	"github.com/denchik37/Copy-of-Effektif/pkg/api"
)

func TestCodec_InstanceRoundTrip(t *testing.T) {
	inst := sampleInstance("i-1")
	inst.Variables["nested"] = map[string]any{"who": "alice"}
	inst.Variables["tags"] = []any{"a", "b"}

	data, err := EncodeValue(inst)
	if err != nil {
		t.Fatalf("EncodeValue failed: %v", err)
	}
	if len(data) == 0 {
		t.Fatalf("expected non-empty encoding")
	}

	got, err := DecodeValue[*api.WorkflowInstance](data)
	if err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	if got.ID != inst.ID || got.WorkflowID != inst.WorkflowID {
		t.Fatalf("unexpected decode result: %+v", got)
	}
	if got.Variables["amount"] != 100 {
		t.Fatalf("expected int variable preserved, got %v", got.Variables["amount"])
	}
	nested, ok := got.Variables["nested"].(map[string]any)
	if !ok || nested["who"] != "alice" {
		t.Fatalf("expected nested map preserved, got %v", got.Variables["nested"])
	}
	tags, ok := got.Variables["tags"].([]any)
	if !ok || len(tags) != 2 {
		t.Fatalf("expected slice preserved, got %v", got.Variables["tags"])
	}
	if len(got.Activities) != len(inst.Activities) {
		t.Fatalf("expected %d activities, got %d", len(inst.Activities), len(got.Activities))
	}
}

func TestCodec_NilAndEmpty(t *testing.T) {
	data, err := EncodeValue(nil)
	if err != nil {
		t.Fatalf("EncodeValue(nil) failed: %v", err)
	}
	if data != nil {
		t.Fatalf("expected nil encoding for nil value, got %v", data)
	}

	got, err := DecodeValue[*api.WorkflowInstance](nil)
	if err != nil {
		t.Fatalf("DecodeValue(nil) failed: %v", err)
	}
	if got != nil {
		t.Fatalf("expected zero value for empty data, got %+v", got)
	}
}

func TestCodec_WorkflowDefinitionRoundTrip(t *testing.T) {
	wf := api.Workflow{
		ID:      "wf",
		Version: 3,
		Scope: api.Scope{
			Activities: []api.Activity{
				{ID: "a", Kind: "noneTask"},
				{ID: "sub", Kind: "subprocess", Scope: &api.Scope{
					Activities: []api.Activity{{ID: "inner", Kind: "noneTask"}},
				}},
			},
			Transitions: []api.Transition{
				{ID: "t", From: "a", To: "sub", Condition: `v["x"] == true`},
			},
		},
	}

	data, err := EncodeValue(wf)
	if err != nil {
		t.Fatalf("EncodeValue failed: %v", err)
	}
	got, err := DecodeValue[api.Workflow](data)
	if err != nil {
		t.Fatalf("DecodeValue failed: %v", err)
	}
	if got.Version != 3 || len(got.Activities) != 2 {
		t.Fatalf("unexpected decode result: %+v", got)
	}
	if got.Activities[1].Scope == nil || len(got.Activities[1].Scope.Activities) != 1 {
		t.Fatalf("expected nested scope preserved, got %+v", got.Activities[1])
	}
	if got.Transitions[0].Condition != `v["x"] == true` {
		t.Fatalf("expected condition text preserved, got %q", got.Transitions[0].Condition)
	}
}
