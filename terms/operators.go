package terms

import (
	"errors"
	"fmt"
	"slices"
	"strings"

	"github.com/petal-labs/termgraph/core"
)

// Errors
var (
	ErrEmptyFactor     = errors.New("factor name is empty")
	ErrUnknownOrdering = errors.New("unknown term ordering")
	ErrForeignTerm     = errors.New("term was not created by this package")
)

// OrderingKey is the EvalContext key read by the formula operator.
const OrderingKey = "ordering"

// Term orderings applied to each side of a formula.
const (
	// OrderNone keeps insertion order.
	OrderNone = "none"
	// OrderDegree stably groups terms by degree, intercept first.
	OrderDegree = "degree"
	// OrderSort groups by degree and sorts each group by key.
	OrderSort = "sort"
)

// Formula sides produced by the "~" operator.
const (
	SideLHS = "lhs"
	SideRHS = "rhs"
)

// Reference operators.
var (
	// Sum is "+": the ordered union of its arguments.
	Sum = core.NewFuncOperator("+", -1, sum,
		core.WithDescription("union of term collections in argument order"))

	// Remove is "-": the terms of the first argument not in the second.
	Remove = core.NewFuncOperator("-", 2, remove,
		core.WithDescription("terms of the left collection missing from the right"))

	// Interaction is ":": every pairwise product of terms, left-major.
	Interaction = core.NewFuncOperator(":", -1, interaction,
		core.WithDescription("pairwise interactions of term collections"))

	// Crossing is "*": a + b + a:b.
	Crossing = core.NewFuncOperator("*", 2, crossing,
		core.WithDescription("both collections followed by their interactions"))

	// Formula is "~": splits into a Structured value with lhs and rhs sides.
	Formula = core.NewFuncOperator("~", 2, formula,
		core.Structural(),
		core.WithDescription("formula with response (lhs) and predictor (rhs) sides"))

	// Parts is "|": groups collections into a tuple.
	Parts = core.NewFuncOperator("|", 2, parts,
		core.WithDescription("tuple of parallel term collections"))
)

// Operators returns the reference operators in symbol order.
func Operators() []*core.FuncOperator {
	return []*core.FuncOperator{Sum, Remove, Interaction, Crossing, Formula, Parts}
}

func sum(args []core.Result, _ core.EvalContext) (core.Result, error) {
	sets, err := core.TermSetArgs("+", args)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return core.NewTermSet(), nil
	}
	return sets[0].Union(sets[1:]...), nil
}

func remove(args []core.Result, _ core.EvalContext) (core.Result, error) {
	sets, err := core.TermSetArgs("-", args)
	if err != nil {
		return nil, err
	}
	return sets[0].Difference(sets[1]), nil
}

func interaction(args []core.Result, _ core.EvalContext) (core.Result, error) {
	sets, err := core.TermSetArgs(":", args)
	if err != nil {
		return nil, err
	}
	if len(sets) == 0 {
		return core.NewTermSet(), nil
	}
	acc := sets[0]
	for _, s := range sets[1:] {
		if acc, err = interact(acc, s); err != nil {
			return nil, err
		}
	}
	return acc, nil
}

func crossing(args []core.Result, _ core.EvalContext) (core.Result, error) {
	sets, err := core.TermSetArgs("*", args)
	if err != nil {
		return nil, err
	}
	both, err := interact(sets[0], sets[1])
	if err != nil {
		return nil, err
	}
	return sets[0].Union(sets[1], both), nil
}

func formula(args []core.Result, ctx core.EvalContext) (core.Result, error) {
	sets, err := core.TermSetArgs("~", args)
	if err != nil {
		return nil, err
	}
	ordering := ctx.String(OrderingKey, OrderDegree)
	lhs, err := Order(sets[0], ordering)
	if err != nil {
		return nil, err
	}
	rhs, err := Order(sets[1], ordering)
	if err != nil {
		return nil, err
	}
	return core.NewStructured(
		core.Field{Key: SideLHS, Value: lhs},
		core.Field{Key: SideRHS, Value: rhs},
	), nil
}

// parts extends a tuple on the left, so (a | b) | c yields (a, b, c).
func parts(args []core.Result, _ core.EvalContext) (core.Result, error) {
	var out core.Tuple
	switch left := args[0].(type) {
	case core.Tuple:
		out = core.NewTuple(left...)
	case *core.TermSet:
		out = core.NewTuple(left)
	default:
		return nil, fmt.Errorf("%w: operator %q argument 0 is %s", core.ErrArgumentType, "|", core.Describe(args[0]))
	}
	right, ok := args[1].(*core.TermSet)
	if !ok {
		return nil, fmt.Errorf("%w: operator %q argument 1 is %s, want %s",
			core.ErrArgumentType, "|", core.Describe(args[1]), core.VariantTerms)
	}
	return append(out, right), nil
}

func interact(a, b *core.TermSet) (*core.TermSet, error) {
	out := core.NewTermSet()
	for _, x := range a.Terms() {
		tx, ok := x.(Term)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrForeignTerm, x)
		}
		for _, y := range b.Terms() {
			ty, ok := y.(Term)
			if !ok {
				return nil, fmt.Errorf("%w: %s", ErrForeignTerm, y)
			}
			out.Add(tx.Interact(ty))
		}
	}
	return out, nil
}

// Order returns s rearranged according to ordering. Terms not created by this
// package are treated as degree 1.
func Order(s *core.TermSet, ordering string) (*core.TermSet, error) {
	ts := s.Terms()
	switch ordering {
	case OrderNone:
		return core.NewTermSet(ts...), nil
	case OrderDegree:
		slices.SortStableFunc(ts, func(a, b core.Term) int {
			return degree(a) - degree(b)
		})
	case OrderSort:
		slices.SortStableFunc(ts, func(a, b core.Term) int {
			if d := degree(a) - degree(b); d != 0 {
				return d
			}
			return strings.Compare(a.Key(), b.Key())
		})
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownOrdering, ordering)
	}
	return core.NewTermSet(ts...), nil
}

func degree(t core.Term) int {
	if tt, ok := t.(Term); ok {
		return tt.Degree()
	}
	return 1
}
