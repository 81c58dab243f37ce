// Package graph builds the dependency graph of an expression tree and
// schedules its nodes in topological order.
package graph

import (
	"fmt"

	"github.com/petal-labs/termgraph/expr"
)

// Dependencies maps every node reachable from a root (the root included) to
// its node-typed children. Nodes are stored in an arena and addressed by
// stable integer indices assigned in discovery order; the root is index 0.
// Identity is by *expr.Node pointer, so two equal-looking nodes are distinct
// while a node shared by several parents has one index.
//
// A Dependencies is built per evaluation and is safe for concurrent reads.
type Dependencies struct {
	nodes    []*expr.Node
	index    map[*expr.Node]int
	children [][]int // by index, declared order, repeats kept
	parents  [][]int // by index, one entry per referencing argument
}

// Option configures Build.
type Option func(*buildConfig)

type buildConfig struct {
	maxNodes int
}

// WithMaxNodes bounds the number of distinct reachable nodes. Zero or a
// negative value disables the bound.
func WithMaxNodes(n int) Option {
	return func(c *buildConfig) {
		c.maxNodes = n
	}
}

// Build walks the tree under root with an explicit work-list, recording each
// node's children. Each node is expanded once however many paths reach it.
// The result is checked for cycles.
func Build(root *expr.Node, opts ...Option) (*Dependencies, error) {
	var cfg buildConfig
	for _, opt := range opts {
		opt(&cfg)
	}
	if root == nil {
		return nil, malformedf("nil root")
	}

	d := &Dependencies{
		index: make(map[*expr.Node]int),
	}
	d.add(root)

	expanded := make([]bool, 0, 16)
	work := []*expr.Node{root}
	for len(work) > 0 {
		n := work[len(work)-1]
		work = work[:len(work)-1]

		idx := d.index[n]
		for len(expanded) <= idx {
			expanded = append(expanded, false)
		}
		if expanded[idx] {
			continue
		}
		expanded[idx] = true

		for argPos := 0; argPos < n.NumArgs(); argPos++ {
			c, ok := n.Arg(argPos).(*expr.Node)
			if !ok {
				continue
			}
			if c == nil {
				return nil, malformedf("node %d argument %d is a nil node", idx, argPos)
			}
			cidx, seen := d.index[c]
			if !seen {
				if cfg.maxNodes > 0 && len(d.nodes) >= cfg.maxNodes {
					return nil, &GraphError{Kind: ErrNodeLimit, Msg: fmt.Sprintf("more than %d nodes", cfg.maxNodes)}
				}
				cidx = d.add(c)
				work = append(work, c)
			}
			d.children[idx] = append(d.children[idx], cidx)
			d.parents[cidx] = append(d.parents[cidx], idx)
		}
	}

	if err := d.validateAcyclic(); err != nil {
		return nil, err
	}
	return d, nil
}

func (d *Dependencies) add(n *expr.Node) int {
	idx := len(d.nodes)
	d.nodes = append(d.nodes, n)
	d.index[n] = idx
	d.children = append(d.children, nil)
	d.parents = append(d.parents, nil)
	return idx
}

// Len returns the number of distinct reachable nodes.
func (d *Dependencies) Len() int { return len(d.nodes) }

// Root returns the root node.
func (d *Dependencies) Root() *expr.Node { return d.nodes[0] }

// Node returns the node at index i.
func (d *Dependencies) Node(i int) *expr.Node { return d.nodes[i] }

// Index returns the arena index of n.
func (d *Dependencies) Index(n *expr.Node) (int, bool) {
	i, ok := d.index[n]
	return i, ok
}

// Children returns the child indices of node i in declared order.
func (d *Dependencies) Children(i int) []int {
	out := make([]int, len(d.children[i]))
	copy(out, d.children[i])
	return out
}

// Parents returns the indices of nodes that reference node i, once per
// referencing argument.
func (d *Dependencies) Parents(i int) []int {
	out := make([]int, len(d.parents[i]))
	copy(out, d.parents[i])
	return out
}

// Map returns the dependency mapping keyed by node identity. Nodes without
// node-typed children map to an empty slice.
func (d *Dependencies) Map() map[*expr.Node][]*expr.Node {
	m := make(map[*expr.Node][]*expr.Node, len(d.nodes))
	for i, n := range d.nodes {
		cs := make([]*expr.Node, 0, len(d.children[i]))
		for _, c := range d.children[i] {
			cs = append(cs, d.nodes[c])
		}
		m[n] = cs
	}
	return m
}

// Label returns a short identifier for node i, e.g. "n3(+)".
func (d *Dependencies) Label(i int) string {
	name := "<nil>"
	if op := d.nodes[i].Operator(); op != nil {
		name = op.Name()
	}
	return fmt.Sprintf("n%d(%s)", i, name)
}
