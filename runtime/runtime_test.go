package runtime_test

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/petal-labs/termgraph/core"
	"github.com/petal-labs/termgraph/expr"
	"github.com/petal-labs/termgraph/graph"
	"github.com/petal-labs/termgraph/runtime"
	"github.com/petal-labs/termgraph/terms"
)

func factors(n int) []expr.Arg {
	args := make([]expr.Arg, n)
	for i := range args {
		args[i] = terms.Factor(fmt.Sprintf("x%d", i))
	}
	return args
}

func factorKeys(n int) []string {
	keys := make([]string, n)
	for i := range keys {
		keys[i] = fmt.Sprintf("x%d", i)
	}
	return keys
}

func mustBuild(t *testing.T, shape expr.Shape, op core.Operator, args []expr.Arg) *expr.Node {
	t.Helper()
	n, err := expr.Build(shape, op, args)
	if err != nil {
		t.Fatalf("Build(%s) error = %v", shape, err)
	}
	return n
}

func evaluate(t *testing.T, root *expr.Node, evalCtx core.EvalContext) core.Result {
	t.Helper()
	r, err := runtime.Evaluate(context.Background(), root, evalCtx)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	return r
}

func keysOf(t *testing.T, r core.Result) []string {
	t.Helper()
	s, ok := r.(*core.TermSet)
	if !ok {
		t.Fatalf("result is %s, want %s", core.Describe(r), core.VariantTerms)
	}
	return s.Keys()
}

// counting wraps op and counts its applications.
func counting(op core.Operator, calls *atomic.Int64) core.Operator {
	var opts []core.OperatorOption
	if op.Structural() {
		opts = append(opts, core.Structural())
	}
	return core.NewFuncOperator(op.Name(), op.Arity(), func(args []core.Result, ctx core.EvalContext) (core.Result, error) {
		calls.Add(1)
		return op.Apply(args, ctx)
	}, opts...)
}

// tally is a term holding a count, used to fold very large trees cheaply.
type tally int

func (c tally) Key() string    { return strconv.Itoa(int(c)) }
func (c tally) String() string { return c.Key() }

// one is a leaf evaluating to a tally of 1.
type one struct{}

func (one) String() string { return "1" }
func (one) ToTerms(core.EvalContext) (core.Result, error) {
	return core.NewTermSet(tally(1)), nil
}

var addTallies = core.NewFuncOperator("add", 2, func(args []core.Result, _ core.EvalContext) (core.Result, error) {
	sets, err := core.TermSetArgs("add", args)
	if err != nil {
		return nil, err
	}
	total := 0
	for _, s := range sets {
		for _, term := range s.Terms() {
			total += int(term.(tally))
		}
	}
	return core.NewTermSet(tally(total)), nil
})

func TestEvaluate_PreservesOrder(t *testing.T) {
	const n = 200
	for _, shape := range expr.Shapes() {
		t.Run(string(shape), func(t *testing.T) {
			root := mustBuild(t, shape, terms.Sum, factors(n))
			if diff := cmp.Diff(factorKeys(n), keysOf(t, evaluate(t, root, nil))); diff != "" {
				t.Fatalf("keys mismatch (-want +got):\n%s", diff)
			}
		})
	}
}

func TestEvaluate_SharedSubtreeEvaluatedOnce(t *testing.T) {
	var calls atomic.Int64
	op := counting(terms.Sum, &calls)

	// Tree-walking this chain would apply the operator about 2^58 times.
	root := mustBuild(t, expr.ShapeShared, op, factors(60))
	r := evaluate(t, root, nil)

	if want := int64(1 + 2*58); calls.Load() != want {
		t.Fatalf("operator applied %d times, want %d", calls.Load(), want)
	}
	if diff := cmp.Diff(factorKeys(60), keysOf(t, r)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_SharedLeafOperandNode(t *testing.T) {
	var calls atomic.Int64
	shared := expr.New(counting(terms.Crossing, &calls), terms.Factor("a"), terms.Factor("b"))
	root := expr.New(terms.Sum, shared, expr.New(terms.Interaction, shared, terms.Factor("c")), shared)

	r := evaluate(t, root, nil)
	if calls.Load() != 1 {
		t.Fatalf("shared node applied %d times, want 1", calls.Load())
	}
	want := []string{"a", "b", "a:b", "a:c", "b:c", "a:b:c"}
	if diff := cmp.Diff(want, keysOf(t, r)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_DeepTreesDoNotExhaustStack(t *testing.T) {
	const n = 10000
	leaves := make([]expr.Arg, n)
	for i := range leaves {
		leaves[i] = one{}
	}

	balanced := evaluate(t, mustBuild(t, expr.ShapeBalanced, addTallies, leaves), nil)
	for _, shape := range []expr.Shape{expr.ShapeLeft, expr.ShapeRight} {
		t.Run(string(shape), func(t *testing.T) {
			root := mustBuild(t, shape, addTallies, leaves)
			if d := expr.Depth(root); d != n-1 {
				t.Fatalf("Depth() = %d, want %d", d, n-1)
			}
			got := evaluate(t, root, nil)
			if !core.Equal(got, balanced) {
				t.Fatalf("result = %s, want %s", got, balanced)
			}
		})
	}
	if diff := cmp.Diff([]string{strconv.Itoa(n)}, keysOf(t, balanced)); diff != "" {
		t.Fatalf("keys mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_DeepFormula(t *testing.T) {
	const n = 2000
	rhs := mustBuild(t, expr.ShapeLeft, terms.Sum, factors(n))
	root := expr.New(terms.Formula, terms.Factor("y"), rhs)

	r := evaluate(t, root, core.EvalContext{terms.OrderingKey: terms.OrderNone})
	s, ok := r.(*core.Structured)
	if !ok {
		t.Fatalf("result is %s, want %s", core.Describe(r), core.VariantStructured)
	}
	got, _ := s.Get(terms.SideRHS)
	if diff := cmp.Diff(factorKeys(n), keysOf(t, got)); diff != "" {
		t.Fatalf("rhs mismatch (-want +got):\n%s", diff)
	}
}

func TestEvaluate_Formula(t *testing.T) {
	// y ~ a*b + c
	root := expr.New(terms.Formula,
		terms.Factor("y"),
		expr.New(terms.Sum,
			expr.New(terms.Crossing, terms.Factor("a"), terms.Factor("b")),
			terms.Factor("c"),
		),
	)

	tests := []struct {
		ordering string
		want     string
	}{
		{terms.OrderNone, "{lhs: [y], rhs: [a, b, a:b, c]}"},
		{terms.OrderDegree, "{lhs: [y], rhs: [a, b, c, a:b]}"},
		{terms.OrderSort, "{lhs: [y], rhs: [a, b, c, a:b]}"},
	}
	for _, tt := range tests {
		t.Run(tt.ordering, func(t *testing.T) {
			r := evaluate(t, root, core.EvalContext{terms.OrderingKey: tt.ordering})
			if got := r.String(); got != tt.want {
				t.Fatalf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluate_StructuredBroadcast(t *testing.T) {
	tests := []struct {
		name string
		root *expr.Node
		want string
	}{
		{
			name: "structured with structured",
			root: expr.New(terms.Sum,
				expr.New(terms.Formula, terms.Factor("y"), terms.Factor("a")),
				expr.New(terms.Formula, terms.Factor("z"), terms.Factor("b")),
			),
			want: "{lhs: [y, z], rhs: [a, b]}",
		},
		{
			name: "scalar broadcast",
			root: expr.New(terms.Sum,
				expr.New(terms.Formula, terms.Factor("y"), terms.Factor("a")),
				terms.Factor("c"),
			),
			want: "{lhs: [y, c], rhs: [a, c]}",
		},
		{
			name: "scalar first",
			root: expr.New(terms.Interaction,
				terms.Factor("c"),
				expr.New(terms.Formula, terms.Factor("y"), terms.Factor("a")),
			),
			want: "{lhs: [c:y], rhs: [a:c]}",
		},
		{
			name: "structural operator over structured argument",
			root: expr.New(terms.Formula,
				expr.New(terms.Formula, terms.Factor("y"), terms.Factor("a")),
				terms.Factor("b"),
			),
			want: "{lhs: {lhs: [y], rhs: [b]}, rhs: {lhs: [a], rhs: [b]}}",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := evaluate(t, tt.root, nil).String(); got != tt.want {
				t.Fatalf("result = %s, want %s", got, tt.want)
			}
		})
	}
}

func TestEvaluate_Tuple(t *testing.T) {
	root := expr.New(terms.Parts,
		expr.New(terms.Parts, terms.Factor("a"), terms.Factor("b")),
		expr.New(terms.Sum, terms.Factor("c"), terms.Factor("d")),
	)
	if got, want := evaluate(t, root, nil).String(), "([a], [b], [c, d])"; got != want {
		t.Fatalf("result = %s, want %s", got, want)
	}
}

func TestEvaluate_ShapeMismatch(t *testing.T) {
	only := core.NewFuncOperator("only", 1, func(args []core.Result, _ core.EvalContext) (core.Result, error) {
		return core.NewStructured(core.Field{Key: "only", Value: args[0]}), nil
	}, core.Structural())

	root := expr.New(terms.Sum,
		expr.New(terms.Formula, terms.Factor("y"), terms.Factor("a")),
		expr.New(only, terms.Factor("b")),
	)
	_, err := runtime.Evaluate(context.Background(), root, nil)
	if !errors.Is(err, core.ErrShapeMismatch) {
		t.Fatalf("error = %v, want ErrShapeMismatch", err)
	}
	var nodeErr *runtime.NodeError
	if !errors.As(err, &nodeErr) || nodeErr.Operator != "+" || nodeErr.Expr != root {
		t.Fatalf("error = %v, want NodeError at the root", err)
	}
}

func TestEvaluate_FailureIsAtomic(t *testing.T) {
	var calls atomic.Int64
	op := counting(terms.Sum, &calls)

	args := factors(50)
	args[20] = terms.Factor("")
	root := mustBuild(t, expr.ShapeLeft, op, args)

	r, err := runtime.Evaluate(context.Background(), root, nil)
	if r != nil {
		t.Fatalf("result = %v, want nil", r)
	}
	if !errors.Is(err, runtime.ErrNodeEvaluation) {
		t.Fatalf("error = %v, want ErrNodeEvaluation", err)
	}
	if !errors.Is(err, terms.ErrEmptyFactor) {
		t.Fatalf("error = %v, want ErrEmptyFactor", err)
	}

	var nodeErr *runtime.NodeError
	if !errors.As(err, &nodeErr) {
		t.Fatalf("error %T is not a *NodeError", err)
	}
	// The leaf is the right operand of the 20th fold.
	if got := nodeErr.Expr.Arg(1).String(); got != "" {
		t.Fatalf("failing node's leaf = %q, want the empty factor", got)
	}
	if calls.Load() != 19 {
		t.Fatalf("operator applied %d times, want 19", calls.Load())
	}
}

func TestEvaluate_OperatorErrors(t *testing.T) {
	label := stringArg("not a leaf")
	tests := []struct {
		name string
		root *expr.Node
		want error
	}{
		{"arity", expr.New(terms.Remove, terms.Factor("a"), terms.Factor("b"), terms.Factor("c")), core.ErrArity},
		{"argument type", expr.New(terms.Sum, expr.New(terms.Parts, terms.Factor("a"), terms.Factor("b")), terms.Factor("c")), core.ErrArgumentType},
		{"unsupported argument", expr.New(terms.Sum, terms.Factor("a"), label), runtime.ErrUnsupportedArg},
		{"nil operator", expr.New(nil, terms.Factor("a")), runtime.ErrNilOperator},
		{"nil result", expr.New(core.NewFuncOperator("void", -1, func([]core.Result, core.EvalContext) (core.Result, error) {
			return nil, nil
		}), terms.Factor("a")), runtime.ErrNilResult},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runtime.Evaluate(context.Background(), tt.root, nil)
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
			if !errors.Is(err, runtime.ErrNodeEvaluation) {
				t.Fatalf("error = %v, want ErrNodeEvaluation", err)
			}
		})
	}
}

type stringArg string

func (s stringArg) String() string { return string(s) }

func TestEvaluate_MalformedTree(t *testing.T) {
	_, err := runtime.Evaluate(context.Background(), nil, nil)
	if !errors.Is(err, graph.ErrMalformedTree) {
		t.Fatalf("error = %v, want ErrMalformedTree", err)
	}

	root := mustBuild(t, expr.ShapeLeft, terms.Sum, factors(10))
	opts := runtime.DefaultEvalOptions()
	opts.MaxNodes = 5
	_, err = runtime.NewEvaluator().Evaluate(context.Background(), root, nil, opts)
	if !errors.Is(err, graph.ErrNodeLimit) {
		t.Fatalf("error = %v, want ErrNodeLimit", err)
	}
}

func TestEvaluate_Canceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var calls atomic.Int64
	op := core.NewFuncOperator("+", 2, func(args []core.Result, ec core.EvalContext) (core.Result, error) {
		if calls.Add(1) == 3 {
			cancel()
		}
		return terms.Sum.Apply(args, ec)
	})
	root := mustBuild(t, expr.ShapeLeft, op, factors(10))

	_, err := runtime.Evaluate(ctx, root, nil)
	if !errors.Is(err, runtime.ErrEvaluationCanceled) {
		t.Fatalf("error = %v, want ErrEvaluationCanceled", err)
	}
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if calls.Load() != 3 {
		t.Fatalf("operator applied %d times, want 3", calls.Load())
	}
}

func TestEvaluate_ContextReachesEveryOperator(t *testing.T) {
	var seen atomic.Int64
	op := core.NewFuncOperator("+", 2, func(args []core.Result, ec core.EvalContext) (core.Result, error) {
		if ec.String("tag", "") == "t1" {
			seen.Add(1)
		}
		return terms.Sum.Apply(args, ec)
	})
	root := mustBuild(t, expr.ShapeBalanced, op, factors(16))

	evaluate(t, root, core.EvalContext{"tag": "t1"})
	if seen.Load() != 15 {
		t.Fatalf("context seen by %d applications, want 15", seen.Load())
	}
}

func TestEvaluate_Concurrent(t *testing.T) {
	root := expr.New(terms.Formula,
		terms.Factor("y"),
		mustBuild(t, expr.ShapeShared, terms.Crossing, factors(6)),
	)
	want := evaluate(t, root, nil)

	ev := runtime.NewEvaluator()
	var wg sync.WaitGroup
	errs := make(chan error, 16)
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			got, err := ev.Evaluate(context.Background(), root, nil, runtime.DefaultEvalOptions())
			if err != nil {
				errs <- err
				return
			}
			if !core.Equal(got, want) {
				errs <- fmt.Errorf("result = %s, want %s", got, want)
			}
		}()
	}
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatal(err)
	}
}

func TestEvaluate_RenderRoundTrip(t *testing.T) {
	root := expr.New(terms.Formula,
		terms.Factor("y"),
		expr.New(terms.Remove,
			expr.New(terms.Crossing, terms.Factor("a"), terms.Factor("b")),
			terms.Intercept{},
		),
	)

	byName := make(map[string]core.Operator)
	for _, op := range terms.Operators() {
		byName[op.Name()] = op
	}
	var rebuild func(r []any) *expr.Node
	rebuild = func(r []any) *expr.Node {
		var args []expr.Arg
		for _, a := range r[1:] {
			if sub, ok := a.([]any); ok {
				args = append(args, rebuild(sub))
				continue
			}
			args = append(args, a.(expr.Arg))
		}
		return expr.New(byName[r[0].(core.Operator).Name()], args...)
	}

	again := rebuild(root.Render(false))
	if !core.Equal(evaluate(t, root, nil), evaluate(t, again, nil)) {
		t.Fatal("re-rendered tree evaluates differently")
	}
}
