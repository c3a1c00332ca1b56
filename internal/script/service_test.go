package script

import (
	"strings"
	"sync"
	"testing"
)

func TestCompileAndEval(t *testing.T) {
	svc := NewService()

	prog, err := svc.Compile(`v["amount"].(int) * 2`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	got, err := prog.Eval(map[string]any{"amount": 21})
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if got != 42 {
		t.Fatalf("expected 42, got %v", got)
	}
}

func TestCompile_ReturnsCallableProgram(t *testing.T) {
	svc := NewService()

	// The simplest possible expression must compile to something callable.
	prog, err := svc.Compile(`v["a"]`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	got, err := prog.Eval(map[string]any{"a": 7})
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if got != 7 {
		t.Fatalf("expected 7, got %v", got)
	}
}

func TestEval_BooleanConditions(t *testing.T) {
	svc := NewService()

	cases := []struct {
		expr string
		vars map[string]any
		want bool
	}{
		{`v["approved"] == true`, map[string]any{"approved": true}, true},
		{`v["approved"] == true`, map[string]any{"approved": false}, false},
		{`v["approved"] == true`, nil, false},
		{`v["amount"].(int) > 100`, map[string]any{"amount": 500}, true},
		{`v["amount"].(int) > 100`, map[string]any{"amount": 5}, false},
	}

	for _, tc := range cases {
		prog, err := svc.Compile(tc.expr)
		if err != nil {
			t.Fatalf("Compile(%q) failed: %v", tc.expr, err)
		}
		got, err := prog.Eval(tc.vars)
		if err != nil {
			t.Fatalf("Eval(%q, %v) failed: %v", tc.expr, tc.vars, err)
		}
		if got != tc.want {
			t.Fatalf("Eval(%q, %v) = %v, want %v", tc.expr, tc.vars, got, tc.want)
		}
	}
}

func TestCompile_SyntaxErrorsSurfaceAtCompileTime(t *testing.T) {
	svc := NewService()

	for _, expr := range []string{`v[`, `+++`, `1 +`} {
		if _, err := svc.Compile(expr); err == nil {
			t.Fatalf("expected Compile(%q) to fail", expr)
		}
	}
}

func TestEval_RuntimePanicsBecomeErrors(t *testing.T) {
	svc := NewService()

	// The type assertion panics when the variable is absent.
	prog, err := svc.Compile(`v["missing"].(int) + 1`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	_, err = prog.Eval(map[string]any{})
	if err == nil {
		t.Fatalf("expected an evaluation error")
	}
	if !strings.Contains(err.Error(), "evaluating") {
		t.Fatalf("expected the expression named in the error, got: %v", err)
	}
}

func TestEval_ConcurrentUse(t *testing.T) {
	svc := NewService()

	prog, err := svc.Compile(`v["n"].(int) + 1`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			got, err := prog.Eval(map[string]any{"n": i})
			if err != nil {
				t.Errorf("Eval(%d) failed: %v", i, err)
				return
			}
			if got != i+1 {
				t.Errorf("Eval(%d) = %v, want %d", i, got, i+1)
			}
		}(i)
	}
	wg.Wait()
}

func TestCompile_IndependentPrograms(t *testing.T) {
	svc := NewService()

	double, err := svc.Compile(`v["n"].(int) * 2`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}
	triple, err := svc.Compile(`v["n"].(int) * 3`)
	if err != nil {
		t.Fatalf("Compile failed: %v", err)
	}

	d, err := double.Eval(map[string]any{"n": 5})
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	tr, err := triple.Eval(map[string]any{"n": 5})
	if err != nil {
		t.Fatalf("Eval failed: %v", err)
	}
	if d != 10 || tr != 15 {
		t.Fatalf("expected 10 and 15, got %v and %v", d, tr)
	}
}
