package termgraph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/petal-labs/termgraph"
	"github.com/petal-labs/termgraph/core"
	"github.com/petal-labs/termgraph/expr"
	"github.com/petal-labs/termgraph/graph"
	"github.com/petal-labs/termgraph/runtime"
	"github.com/petal-labs/termgraph/terms"
)

func TestToTerms(t *testing.T) {
	// y ~ a*b
	root := termgraph.New(terms.Formula,
		terms.Factor("y"),
		termgraph.New(terms.Crossing, terms.Factor("a"), terms.Factor("b")),
	)

	got, err := termgraph.ToTerms(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("ToTerms() error = %v", err)
	}
	if got.String() != "{lhs: [y], rhs: [a, b, a:b]}" {
		t.Fatalf("ToTerms() = %s, want {lhs: [y], rhs: [a, b, a:b]}", got)
	}
}

func TestToTerms_NodeError(t *testing.T) {
	root := termgraph.New(terms.Remove, terms.Factor("a"))

	_, err := termgraph.ToTerms(context.Background(), root, nil)
	var nodeErr *termgraph.NodeError
	if !errors.As(err, &nodeErr) {
		t.Fatalf("error = %v, want *NodeError", err)
	}
	if !errors.Is(err, core.ErrArity) {
		t.Fatalf("error = %v, want ErrArity", err)
	}
}

func TestSubexpression(t *testing.T) {
	inner := termgraph.New(terms.Interaction, terms.Factor("a"), terms.Factor("b"))
	root := termgraph.New(terms.Sum, terms.Factor("c"), termgraph.Subexpression{Root: inner})

	opts := termgraph.EvalOptions{EvalID: "outer"}
	got, err := termgraph.ToTermsWithOptions(context.Background(), root, nil, opts)
	if err != nil {
		t.Fatalf("ToTermsWithOptions() error = %v", err)
	}
	if got.String() != "[c, a:b]" {
		t.Fatalf("result = %s, want [c, a:b]", got)
	}
	if s := root.String(); s != "<Node +: [c, <Node :: [a, b]>]>" {
		t.Fatalf("String() = %q", s)
	}
	// The wrapped tree is a leaf, not a child node.
	if n := len(root.Children()); n != 0 {
		t.Fatalf("Children() = %d, want 0", n)
	}
	if d := expr.Depth(root); d != 1 {
		t.Fatalf("Depth() = %d, want 1", d)
	}
}

func TestSubexpression_CarriesContextAndOptions(t *testing.T) {
	inner := termgraph.New(terms.Sum,
		termgraph.New(terms.Interaction, terms.Factor("a"), terms.Factor("b")),
		terms.Factor("c"),
	)

	canceled, cancel := context.WithCancel(context.Background())
	cancel()
	root := termgraph.New(terms.Sum, terms.Factor("d"), termgraph.Subexpression{Root: inner, Ctx: canceled})
	_, err := termgraph.ToTerms(context.Background(), root, nil)
	if !errors.Is(err, runtime.ErrEvaluationCanceled) {
		t.Fatalf("error = %v, want ErrEvaluationCanceled", err)
	}

	limited := &termgraph.EvalOptions{MaxNodes: 1}
	root = termgraph.New(terms.Sum, terms.Factor("d"), termgraph.Subexpression{Root: inner, Options: limited})
	_, err = termgraph.ToTerms(context.Background(), root, nil)
	if !errors.Is(err, graph.ErrMalformedTree) {
		t.Fatalf("error = %v, want ErrMalformedTree", err)
	}

	var kinds []runtime.EventKind
	observed := &termgraph.EvalOptions{
		EvalID:       "inner",
		EventHandler: func(e runtime.Event) { kinds = append(kinds, e.Kind) },
	}
	root = termgraph.New(terms.Sum, terms.Factor("d"), termgraph.Subexpression{Root: inner, Options: observed})
	got, err := termgraph.ToTerms(context.Background(), root, nil)
	if err != nil {
		t.Fatalf("ToTerms() error = %v", err)
	}
	if got.String() != "[d, a:b, c]" {
		t.Fatalf("result = %s, want [d, a:b, c]", got)
	}
	if len(kinds) == 0 || kinds[0] != runtime.EventEvalStarted || kinds[len(kinds)-1] != runtime.EventEvalFinished {
		t.Fatalf("inner events = %v, want eval.started ... eval.finished", kinds)
	}
}
