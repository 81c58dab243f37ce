// Package expr defines expression nodes: an operator paired with ordered
// arguments that are either other nodes or leaves.
package expr

import (
	"fmt"
	"strings"

	"github.com/petal-labs/termgraph/core"
)

// Trees past either limit are summarized by String as "<Node op: ...>".
const (
	// MaxRenderDepth is the deepest tree String renders in full.
	MaxRenderDepth = 256

	// MaxRenderNodes bounds the number of nodes written out in full. A shared
	// node is written once per path that reaches it.
	MaxRenderNodes = 4096
)

// Arg is a single argument of a Node: a *Node or a core.Leaf.
type Arg interface {
	String() string
}

// Node is an operator applied to ordered arguments. Nodes are immutable after
// construction and may be shared by several parents.
type Node struct {
	operator core.Operator
	args     []Arg
}

// New creates a node. Arity and argument types are not checked here; a
// mismatch surfaces when the operator is applied.
func New(op core.Operator, args ...Arg) *Node {
	a := make([]Arg, len(args))
	copy(a, args)
	return &Node{operator: op, args: a}
}

// Operator returns the node's operator.
func (n *Node) Operator() core.Operator { return n.operator }

// Args returns a copy of the node's arguments.
func (n *Node) Args() []Arg {
	out := make([]Arg, len(n.args))
	copy(out, n.args)
	return out
}

// NumArgs returns the number of arguments.
func (n *Node) NumArgs() int { return len(n.args) }

// Arg returns the i-th argument.
func (n *Node) Arg(i int) Arg { return n.args[i] }

// Children returns the node-typed arguments in declared order. A node passed
// twice appears twice.
func (n *Node) Children() []*Node {
	var out []*Node
	for _, a := range n.args {
		if c, ok := a.(*Node); ok {
			out = append(out, c)
		}
	}
	return out
}

// Render flattens the tree into [operator, args...] in pre-order, with each
// node argument rendered as a nested []any. With asStrings the operator and
// leaves are replaced by their textual forms.
//
// Render recurses once per level of nesting and is meant for diagnostics.
// Check Renderable first when the tree may be large or heavily shared.
func (n *Node) Render(asStrings bool) []any {
	out := make([]any, 0, len(n.args)+1)
	if asStrings {
		out = append(out, operatorName(n.operator))
	} else {
		out = append(out, n.operator)
	}
	for _, a := range n.args {
		switch v := a.(type) {
		case *Node:
			if v == nil {
				out = append(out, nil)
				continue
			}
			out = append(out, v.Render(asStrings))
		default:
			if asStrings {
				out = append(out, argString(a))
			} else {
				out = append(out, a)
			}
		}
	}
	return out
}

// String returns "<Node op: [args...]>". If the tree is not Renderable, it
// returns "<Node op: ...>" instead.
func (n *Node) String() string {
	if n == nil {
		return "<Node nil>"
	}
	if !n.Renderable() {
		return fmt.Sprintf("<Node %s: ...>", operatorName(n.operator))
	}
	var b strings.Builder
	n.format(&b)
	return b.String()
}

func (n *Node) format(b *strings.Builder) {
	b.WriteString("<Node ")
	b.WriteString(operatorName(n.operator))
	b.WriteString(": [")
	for i, a := range n.args {
		if i > 0 {
			b.WriteString(", ")
		}
		if c, ok := a.(*Node); ok && c != nil {
			c.format(b)
			continue
		}
		b.WriteString(argString(a))
	}
	b.WriteString("]>")
}

// Renderable reports whether the expanded tree stays within MaxRenderDepth
// levels and MaxRenderNodes nodes.
func (n *Node) Renderable() bool {
	if n == nil {
		return true
	}
	depth, size := measure(n)
	return depth <= MaxRenderDepth && size <= MaxRenderNodes
}

// Depth returns the number of node levels below and including n, computed
// without recursion. Shared sub-trees are measured once.
func Depth(n *Node) int {
	if n == nil {
		return 0
	}
	depth, _ := measure(n)
	return depth
}

// measure returns the depth of n and the number of nodes in its expansion,
// where a shared node counts once per path. The size saturates just above
// MaxRenderNodes.
func measure(n *Node) (depth, size int) {
	type frame struct {
		node *Node
		next int
	}
	type extent struct{ depth, size int }
	seen := make(map[*Node]extent)
	onStack := make(map[*Node]bool)
	stack := []frame{{node: n}}
	onStack[n] = true
	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next < len(top.node.args) {
			c, ok := top.node.args[top.next].(*Node)
			top.next++
			if !ok || c == nil {
				continue
			}
			if _, done := seen[c]; done || onStack[c] {
				continue
			}
			onStack[c] = true
			stack = append(stack, frame{node: c})
			continue
		}
		e := extent{depth: 1, size: 1}
		for _, a := range top.node.args {
			c, ok := a.(*Node)
			if !ok || c == nil {
				continue
			}
			ce := seen[c]
			if ce.depth+1 > e.depth {
				e.depth = ce.depth + 1
			}
			e.size += ce.size
			if e.size > MaxRenderNodes {
				e.size = MaxRenderNodes + 1
			}
		}
		seen[top.node] = e
		onStack[top.node] = false
		stack = stack[:len(stack)-1]
	}
	e := seen[n]
	return e.depth, e.size
}

func operatorName(op core.Operator) string {
	if op == nil {
		return "<nil>"
	}
	return op.Name()
}

func argString(a Arg) string {
	if a == nil {
		return "<nil>"
	}
	return a.String()
}
