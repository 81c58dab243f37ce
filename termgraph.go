// Package termgraph evaluates symbolic expression trees into ordered term
// collections.
//
// This file re-exports the most used types and constructors from the core,
// expr, and runtime subpackages so simple callers need a single import.
// Larger programs should import the subpackages directly:
//
//	import "github.com/petal-labs/termgraph/core"
//	import "github.com/petal-labs/termgraph/expr"
//	import "github.com/petal-labs/termgraph/runtime"
package termgraph

import (
	"context"

	"github.com/petal-labs/termgraph/core"
	"github.com/petal-labs/termgraph/expr"
	"github.com/petal-labs/termgraph/runtime"
)

type (
	// Node is an immutable expression tree node.
	Node = expr.Node

	// Arg is a node argument: a *Node or an opaque leaf.
	Arg = expr.Arg

	// Operator combines evaluated arguments.
	Operator = core.Operator

	// Leaf is a non-node argument that evaluates on its own.
	Leaf = core.Leaf

	// Result is a term set, a tuple of term sets, or a structured value.
	Result = core.Result

	// TermSet is the ordered unique collection of terms.
	TermSet = core.TermSet

	// Structured is a labeled composite of results.
	Structured = core.Structured

	// EvalContext is passed unchanged to every operator invocation.
	EvalContext = core.EvalContext

	// EvalOptions configures a single evaluation.
	EvalOptions = runtime.EvalOptions

	// NodeError identifies the node whose operator failed.
	NodeError = runtime.NodeError
)

// New constructs an expression node. No arity validation is performed.
func New(op Operator, args ...Arg) *Node {
	return expr.New(op, args...)
}

// ToTerms evaluates root with default options.
func ToTerms(ctx context.Context, root *Node, evalCtx EvalContext) (Result, error) {
	return runtime.Evaluate(ctx, root, evalCtx)
}

// ToTermsWithOptions evaluates root with the given options.
func ToTermsWithOptions(ctx context.Context, root *Node, evalCtx EvalContext, opts EvalOptions) (Result, error) {
	return runtime.NewEvaluator().Evaluate(ctx, root, evalCtx, opts)
}

// Subexpression wraps a tree so it can be used as a leaf of another tree.
// The wrapped tree is evaluated inline, with its own cache, each time the
// leaf is resolved.
//
// Leaves receive only the EvalContext, so the enclosing evaluation's
// context.Context and EvalOptions do not reach the wrapped tree. Set Ctx and
// Options to bound and observe it; by default it runs under
// context.Background with default options.
type Subexpression struct {
	Root    *Node
	Ctx     context.Context
	Options *EvalOptions
}

// String returns the wrapped tree's summary.
func (s Subexpression) String() string { return s.Root.String() }

// ToTerms evaluates the wrapped tree with ctx.
func (s Subexpression) ToTerms(ctx EvalContext) (Result, error) {
	c := s.Ctx
	if c == nil {
		c = context.Background()
	}
	opts := runtime.DefaultEvalOptions()
	if s.Options != nil {
		opts = *s.Options
	}
	return runtime.NewEvaluator().Evaluate(c, s.Root, ctx, opts)
}

var _ Leaf = Subexpression{}
