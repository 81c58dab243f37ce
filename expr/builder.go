package expr

import (
	"errors"
	"fmt"

	"github.com/petal-labs/termgraph/core"
)

// Builder errors
var (
	ErrNoArgs       = errors.New("at least two arguments are required")
	ErrUnknownShape = errors.New("unknown tree shape")
)

// Shape names a synthetic tree layout.
type Shape string

const (
	// ShapeLeft folds arguments left-associatively: ((a op b) op c) op d.
	ShapeLeft Shape = "left"
	// ShapeRight folds arguments right-associatively: a op (b op (c op d)).
	ShapeRight Shape = "right"
	// ShapeBalanced pairs arguments into a tree of logarithmic depth.
	ShapeBalanced Shape = "balanced"
	// ShapeShared chains nodes that each reference the previous node twice.
	ShapeShared Shape = "shared"
)

// Shapes lists every supported shape.
func Shapes() []Shape {
	return []Shape{ShapeLeft, ShapeRight, ShapeBalanced, ShapeShared}
}

// Build folds args with the binary operator op into the given shape.
// A single *Node argument is returned unchanged; otherwise at least two
// arguments are required.
func Build(shape Shape, op core.Operator, args []Arg) (*Node, error) {
	switch shape {
	case ShapeLeft:
		return FoldLeft(op, args)
	case ShapeRight:
		return FoldRight(op, args)
	case ShapeBalanced:
		return Balanced(op, args)
	case ShapeShared:
		return SharedChain(op, args)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownShape, shape)
	}
}

// FoldLeft returns op(op(op(a0, a1), a2), ...). The result nests one level per
// argument, which is the shape long additive formulas parse into.
func FoldLeft(op core.Operator, args []Arg) (*Node, error) {
	if len(args) < 2 {
		return single(args)
	}
	n := New(op, args[0], args[1])
	for _, a := range args[2:] {
		n = New(op, n, a)
	}
	return n, nil
}

// FoldRight returns op(a0, op(a1, op(a2, ...))).
func FoldRight(op core.Operator, args []Arg) (*Node, error) {
	if len(args) < 2 {
		return single(args)
	}
	last := len(args) - 1
	n := New(op, args[last-1], args[last])
	for i := last - 2; i >= 0; i-- {
		n = New(op, args[i], n)
	}
	return n, nil
}

// Balanced pairs neighbouring arguments level by level until one node is
// left. Argument order is preserved left to right.
func Balanced(op core.Operator, args []Arg) (*Node, error) {
	if len(args) < 2 {
		return single(args)
	}
	level := make([]Arg, len(args))
	copy(level, args)
	for len(level) > 1 {
		next := make([]Arg, 0, (len(level)+1)/2)
		for i := 0; i+1 < len(level); i += 2 {
			next = append(next, New(op, level[i], level[i+1]))
		}
		if len(level)%2 == 1 {
			next = append(next, level[len(level)-1])
		}
		level = next
	}
	return level[0].(*Node), nil
}

// SharedChain builds s0 = op(a0, a1) and s(i) = op(op(s(i-1), a(i+1)), s(i-1)),
// so each level reuses the previous node object twice. Naive tree-walking
// evaluation of the result is exponential; identity-aware evaluation is linear.
func SharedChain(op core.Operator, args []Arg) (*Node, error) {
	if len(args) < 2 {
		return single(args)
	}
	prev := New(op, args[0], args[1])
	for _, a := range args[2:] {
		prev = New(op, New(op, prev, a), prev)
	}
	return prev, nil
}

func single(args []Arg) (*Node, error) {
	if len(args) == 1 {
		if n, ok := args[0].(*Node); ok {
			return n, nil
		}
	}
	return nil, fmt.Errorf("%w: got %d", ErrNoArgs, len(args))
}
