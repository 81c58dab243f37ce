package core

import (
	"errors"
	"fmt"
)

// Operator errors
var (
	// ErrArity is returned when an operator receives the wrong number of arguments.
	ErrArity = errors.New("arity mismatch")

	// ErrArgumentType is returned when an argument has a variant the operator
	// cannot combine.
	ErrArgumentType = errors.New("incompatible argument")
)

// Operator combines evaluated arguments into a Result.
// Implementations must be safe for concurrent use and must not mutate args.
type Operator interface {
	// Name returns the operator's symbol or identifier (e.g. "+", ":").
	Name() string

	// Arity returns the expected argument count. Negative means variadic.
	Arity() int

	// Structural reports whether the operator must always be applied through
	// Merge, even when none of its arguments are Structured.
	Structural() bool

	// Apply combines one position's argument results.
	Apply(args []Result, ctx EvalContext) (Result, error)
}

// Leaf is a non-node argument that evaluates on its own.
type Leaf interface {
	String() string

	// ToTerms evaluates the leaf. It is called inline by the evaluator.
	ToTerms(ctx EvalContext) (Result, error)
}

// ApplyFunc is the combination function wrapped by FuncOperator.
type ApplyFunc func(args []Result, ctx EvalContext) (Result, error)

// FuncOperator wraps a combination function as an Operator.
type FuncOperator struct {
	name        string
	description string
	arity       int
	structural  bool
	fn          ApplyFunc
}

// OperatorOption configures a FuncOperator.
type OperatorOption func(*FuncOperator)

// Structural marks the operator as structural.
func Structural() OperatorOption {
	return func(o *FuncOperator) {
		o.structural = true
	}
}

// WithDescription sets a human-readable description.
func WithDescription(desc string) OperatorOption {
	return func(o *FuncOperator) {
		o.description = desc
	}
}

// NewFuncOperator creates an operator that checks arity and then calls fn.
func NewFuncOperator(name string, arity int, fn ApplyFunc, opts ...OperatorOption) *FuncOperator {
	o := &FuncOperator{
		name:  name,
		arity: arity,
		fn:    fn,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Name returns the operator name.
func (o *FuncOperator) Name() string { return o.name }

// Description returns the operator description.
func (o *FuncOperator) Description() string { return o.description }

// Arity returns the expected argument count.
func (o *FuncOperator) Arity() int { return o.arity }

// Structural reports whether the operator is structural.
func (o *FuncOperator) Structural() bool { return o.structural }

// String returns the operator name.
func (o *FuncOperator) String() string { return o.name }

// Apply validates the argument count and calls the wrapped function.
func (o *FuncOperator) Apply(args []Result, ctx EvalContext) (Result, error) {
	if o.arity >= 0 && len(args) != o.arity {
		return nil, fmt.Errorf("%w: operator %q takes %d arguments, got %d", ErrArity, o.name, o.arity, len(args))
	}
	if o.fn == nil {
		return nil, fmt.Errorf("operator %q has no combination function", o.name)
	}
	return o.fn(args, ctx)
}

// TermSetArgs asserts every argument is a *TermSet. Combination functions that
// only accept flat collections use it to report ErrArgumentType.
func TermSetArgs(op string, args []Result) ([]*TermSet, error) {
	sets := make([]*TermSet, len(args))
	for i, a := range args {
		s, ok := a.(*TermSet)
		if !ok {
			return nil, fmt.Errorf("%w: operator %q argument %d is %s, want %s",
				ErrArgumentType, op, i, Describe(a), VariantTerms)
		}
		sets[i] = s
	}
	return sets, nil
}

// EvalContext is an opaque option mapping passed unchanged to every operator
// invocation of one evaluation.
type EvalContext map[string]any

// Get returns the value for key.
func (c EvalContext) Get(key string) (any, bool) {
	v, ok := c[key]
	return v, ok
}

// String returns the value for key as a string, or def when it is missing or
// not a string.
func (c EvalContext) String(key, def string) string {
	if s, ok := c[key].(string); ok {
		return s
	}
	return def
}

// Clone returns a shallow copy. A nil context clones to an empty one.
func (c EvalContext) Clone() EvalContext {
	out := make(EvalContext, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Ensure interface compliance at compile time.
var _ Operator = (*FuncOperator)(nil)
