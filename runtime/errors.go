package runtime

import (
	"errors"
	"fmt"

	"github.com/petal-labs/termgraph/expr"
)

// Evaluation errors
var (
	// ErrNodeEvaluation matches every *NodeError.
	ErrNodeEvaluation = errors.New("node evaluation failed")

	// ErrEvaluationCanceled is returned when the context ends mid-evaluation.
	ErrEvaluationCanceled = errors.New("evaluation was canceled")

	// ErrUnsupportedArg is the cause of a NodeError whose argument is neither
	// a node nor a leaf.
	ErrUnsupportedArg = errors.New("argument is neither a node nor a leaf")

	// ErrNilOperator is the cause of a NodeError whose node has no operator.
	ErrNilOperator = errors.New("node has no operator")
)

// NodeError identifies the node whose evaluation aborted an evaluation.
// It matches ErrNodeEvaluation and unwraps to the underlying cause, such as
// core.ErrArity or core.ErrArgumentType.
type NodeError struct {
	// Index is the node's arena index (0 is the root).
	Index int

	// Operator is the operator name.
	Operator string

	// Expr is the failing node.
	Expr *expr.Node

	// Err is the underlying cause.
	Err error
}

func (e *NodeError) Error() string {
	return fmt.Sprintf("%s: node n%d (operator %q): %v", ErrNodeEvaluation, e.Index, e.Operator, e.Err)
}

// Unwrap returns ErrNodeEvaluation and the cause.
func (e *NodeError) Unwrap() []error {
	return []error{ErrNodeEvaluation, e.Err}
}
