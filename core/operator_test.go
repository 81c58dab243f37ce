package core_test

import (
	"errors"
	"testing"

	"github.com/petal-labs/termgraph/core"
)

func TestFuncOperator_Arity(t *testing.T) {
	var called bool
	op := core.NewFuncOperator("-", 2, func(args []core.Result, _ core.EvalContext) (core.Result, error) {
		called = true
		return args[0], nil
	}, core.WithDescription("difference"))

	_, err := op.Apply([]core.Result{names("a")}, nil)
	if !errors.Is(err, core.ErrArity) {
		t.Fatalf("error = %v, want ErrArity", err)
	}
	if called {
		t.Fatal("combination function called despite arity mismatch")
	}

	if _, err := op.Apply([]core.Result{names("a"), names("b")}, nil); err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if op.Description() != "difference" || op.Structural() || op.String() != "-" {
		t.Fatalf("operator metadata = %q %v %q", op.Description(), op.Structural(), op)
	}
}

func TestFuncOperator_Variadic(t *testing.T) {
	op := core.NewFuncOperator("+", -1, func(args []core.Result, _ core.EvalContext) (core.Result, error) {
		return core.NewTuple(), nil
	}, core.Structural())

	for n := 0; n < 4; n++ {
		if _, err := op.Apply(make([]core.Result, n), nil); err != nil {
			t.Fatalf("Apply(%d args) error = %v", n, err)
		}
	}
	if !op.Structural() {
		t.Fatal("Structural() = false, want true")
	}
}

func TestFuncOperator_NilFunc(t *testing.T) {
	if _, err := core.NewFuncOperator("?", 0, nil).Apply(nil, nil); err == nil {
		t.Fatal("Apply() with nil function should fail")
	}
}

func TestTermSetArgs(t *testing.T) {
	if _, err := core.TermSetArgs("+", []core.Result{names("a"), names("b")}); err != nil {
		t.Fatalf("TermSetArgs() error = %v", err)
	}
	_, err := core.TermSetArgs("+", []core.Result{names("a"), core.NewTuple()})
	if !errors.Is(err, core.ErrArgumentType) {
		t.Fatalf("error = %v, want ErrArgumentType", err)
	}
}

func TestEvalContext(t *testing.T) {
	ctx := core.EvalContext{"ordering": "sort", "n": 3}

	if got := ctx.String("ordering", "none"); got != "sort" {
		t.Fatalf("String(ordering) = %q, want %q", got, "sort")
	}
	if got := ctx.String("n", "def"); got != "def" {
		t.Fatalf("String(n) = %q, want %q", got, "def")
	}
	if v, ok := ctx.Get("n"); !ok || v != 3 {
		t.Fatalf("Get(n) = %v, %v", v, ok)
	}

	clone := ctx.Clone()
	clone["ordering"] = "none"
	if ctx["ordering"] != "sort" {
		t.Fatal("Clone() shares storage with the original")
	}

	var nilCtx core.EvalContext
	if got := nilCtx.String("ordering", "degree"); got != "degree" {
		t.Fatalf("nil String() = %q, want %q", got, "degree")
	}
	if nilCtx.Clone() == nil {
		t.Fatal("nil Clone() = nil, want empty context")
	}
}
