package terms_test

import (
	"errors"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/petal-labs/termgraph/core"
	"github.com/petal-labs/termgraph/terms"
)

func set(keys ...string) *core.TermSet {
	s := core.NewTermSet()
	for _, k := range keys {
		if k == terms.InterceptKey {
			s.Add(terms.NewTerm())
			continue
		}
		s.Add(terms.NewTerm(k))
	}
	return s
}

func keysOf(t *testing.T, r core.Result) []string {
	t.Helper()
	s, ok := r.(*core.TermSet)
	if !ok {
		t.Fatalf("result is %s, want %s", core.Describe(r), core.VariantTerms)
	}
	return s.Keys()
}

func TestNewTerm_SortsAndDedupes(t *testing.T) {
	term := terms.NewTerm("b", "a", "b", "")
	if got := term.Key(); got != "a:b" {
		t.Fatalf("Key() = %q, want %q", got, "a:b")
	}
	if got := term.Degree(); got != 2 {
		t.Fatalf("Degree() = %d, want 2", got)
	}
	if got := terms.NewTerm().Key(); got != terms.InterceptKey {
		t.Fatalf("intercept Key() = %q, want %q", got, terms.InterceptKey)
	}
}

func TestTerm_Interact(t *testing.T) {
	got := terms.NewTerm("c", "a").Interact(terms.NewTerm("b", "a"))
	if diff := cmp.Diff([]string{"a", "b", "c"}, got.Factors()); diff != "" {
		t.Fatalf("Factors() mismatch (-want +got):\n%s", diff)
	}
	if got := terms.NewTerm().Interact(terms.NewTerm("x")).Key(); got != "x" {
		t.Fatalf("1:x = %q, want %q", got, "x")
	}
}

func TestLeaves(t *testing.T) {
	tests := []struct {
		name string
		leaf core.Leaf
		want []string
	}{
		{"factor", terms.Factor("x"), []string{"x"}},
		{"intercept", terms.Intercept{}, []string{"1"}},
		{"zero", terms.Zero{}, []string{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.leaf.ToTerms(nil)
			if err != nil {
				t.Fatalf("ToTerms() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, keysOf(t, r)); diff != "" {
				t.Fatalf("keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestFactor_EmptyName(t *testing.T) {
	_, err := terms.Factor("").ToTerms(nil)
	if !errors.Is(err, terms.ErrEmptyFactor) {
		t.Fatalf("error = %v, want ErrEmptyFactor", err)
	}
}

func TestOperators(t *testing.T) {
	tests := []struct {
		name string
		op   core.Operator
		args []core.Result
		want []string
	}{
		{"sum keeps first occurrence", terms.Sum, []core.Result{set("a", "b"), set("c", "a")}, []string{"a", "b", "c"}},
		{"sum variadic", terms.Sum, []core.Result{set("a"), set("b"), set("c")}, []string{"a", "b", "c"}},
		{"remove", terms.Remove, []core.Result{set("1", "a", "b"), set("1")}, []string{"a", "b"}},
		{"interaction", terms.Interaction, []core.Result{set("a", "b"), set("c", "d")}, []string{"a:c", "a:d", "b:c", "b:d"}},
		{"interaction with intercept", terms.Interaction, []core.Result{set("1"), set("a")}, []string{"a"}},
		{"interaction merges repeated factors", terms.Interaction, []core.Result{set("a"), set("a")}, []string{"a"}},
		{"crossing", terms.Crossing, []core.Result{set("a"), set("b")}, []string{"a", "b", "a:b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r, err := tt.op.Apply(tt.args, nil)
			if err != nil {
				t.Fatalf("Apply() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, keysOf(t, r)); diff != "" {
				t.Fatalf("keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestOperators_RejectTuples(t *testing.T) {
	tuple := core.NewTuple(set("a"), set("b"))
	for _, op := range []core.Operator{terms.Sum, terms.Remove, terms.Interaction, terms.Crossing} {
		_, err := op.Apply([]core.Result{tuple, set("c")}, nil)
		if !errors.Is(err, core.ErrArgumentType) {
			t.Fatalf("%s: error = %v, want ErrArgumentType", op.Name(), err)
		}
	}
}

func TestFormula_Sides(t *testing.T) {
	r, err := terms.Formula.Apply([]core.Result{set("y"), set("a:b", "1", "a")}, core.EvalContext{})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	s, ok := r.(*core.Structured)
	if !ok {
		t.Fatalf("result is %s, want %s", core.Describe(r), core.VariantStructured)
	}
	if diff := cmp.Diff([]string{terms.SideLHS, terms.SideRHS}, s.Keys()); diff != "" {
		t.Fatalf("Keys() mismatch (-want +got):\n%s", diff)
	}
	rhs, _ := s.Get(terms.SideRHS)
	// "a:b" was built as a single factor named "a:b" above, so it has degree 1.
	if diff := cmp.Diff([]string{"1", "a:b", "a"}, keysOf(t, rhs)); diff != "" {
		t.Fatalf("rhs mismatch (-want +got):\n%s", diff)
	}
}

func TestOrder(t *testing.T) {
	ab := terms.NewTerm("a", "b")
	in := core.NewTermSet(ab, terms.NewTerm("c"), terms.NewTerm(), terms.NewTerm("b"))

	tests := []struct {
		ordering string
		want     []string
	}{
		{terms.OrderNone, []string{"a:b", "c", "1", "b"}},
		{terms.OrderDegree, []string{"1", "c", "b", "a:b"}},
		{terms.OrderSort, []string{"1", "b", "c", "a:b"}},
	}
	for _, tt := range tests {
		t.Run(tt.ordering, func(t *testing.T) {
			got, err := terms.Order(in, tt.ordering)
			if err != nil {
				t.Fatalf("Order() error = %v", err)
			}
			if diff := cmp.Diff(tt.want, got.Keys()); diff != "" {
				t.Fatalf("keys mismatch (-want +got):\n%s", diff)
			}
		})
	}

	if _, err := terms.Order(in, "random"); !errors.Is(err, terms.ErrUnknownOrdering) {
		t.Fatalf("error = %v, want ErrUnknownOrdering", err)
	}
}

func TestFormula_OrderingFromContext(t *testing.T) {
	rhs := core.NewTermSet(terms.NewTerm("b", "a"), terms.NewTerm("a"))
	r, err := terms.Formula.Apply([]core.Result{set("y"), rhs}, core.EvalContext{terms.OrderingKey: terms.OrderNone})
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	got, _ := r.(*core.Structured).Get(terms.SideRHS)
	if diff := cmp.Diff([]string{"a:b", "a"}, keysOf(t, got)); diff != "" {
		t.Fatalf("rhs mismatch (-want +got):\n%s", diff)
	}

	_, err = terms.Formula.Apply([]core.Result{set("y"), rhs}, core.EvalContext{terms.OrderingKey: "bogus"})
	if !errors.Is(err, terms.ErrUnknownOrdering) {
		t.Fatalf("error = %v, want ErrUnknownOrdering", err)
	}
}

func TestParts(t *testing.T) {
	r, err := terms.Parts.Apply([]core.Result{set("a"), set("b")}, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	r, err = terms.Parts.Apply([]core.Result{r, set("c")}, nil)
	if err != nil {
		t.Fatalf("Apply() error = %v", err)
	}
	if got, want := r.String(), "([a], [b], [c])"; got != want {
		t.Fatalf("String() = %q, want %q", got, want)
	}

	_, err = terms.Parts.Apply([]core.Result{set("a"), r}, nil)
	if !errors.Is(err, core.ErrArgumentType) {
		t.Fatalf("error = %v, want ErrArgumentType", err)
	}
}

func TestOperators_Listing(t *testing.T) {
	var names []string
	for _, op := range terms.Operators() {
		names = append(names, op.Name())
	}
	if diff := cmp.Diff([]string{"+", "-", ":", "*", "~", "|"}, names); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
	if !terms.Formula.Structural() {
		t.Fatal("Formula.Structural() = false, want true")
	}
}
