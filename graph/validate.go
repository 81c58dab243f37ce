package graph

// validateAcyclic proves the graph has no cycles using Kahn's algorithm over
// child counts. If a cycle exists, one witness path is extracted for the error.
func (d *Dependencies) validateAcyclic() error {
	if len(d.topoOrder()) == len(d.nodes) {
		return nil
	}
	return cycleError(d.findCycle())
}

// topoOrder returns node indices children-first. Nodes on or above a cycle
// never become ready and are left out.
func (d *Dependencies) topoOrder() []int {
	pending := make([]int, len(d.nodes))
	var queue []int
	for i := range d.nodes {
		pending[i] = len(d.children[i])
		if pending[i] == 0 {
			queue = append(queue, i)
		}
	}

	out := make([]int, 0, len(d.nodes))
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		out = append(out, n)
		for _, p := range d.parents[n] {
			pending[p]--
			if pending[p] == 0 {
				queue = append(queue, p)
			}
		}
	}
	return out
}

// findCycle runs an iterative depth-first search from the root and returns
// the labels of one cycle, first node repeated at the end.
func (d *Dependencies) findCycle() []string {
	const (
		white = 0
		gray  = 1
		black = 2
	)

	type frame struct {
		node int
		next int
	}

	color := make([]int, len(d.nodes))
	stack := []frame{{node: 0}}
	color[0] = gray

	for len(stack) > 0 {
		top := &stack[len(stack)-1]
		if top.next >= len(d.children[top.node]) {
			color[top.node] = black
			stack = stack[:len(stack)-1]
			continue
		}
		c := d.children[top.node][top.next]
		top.next++

		switch color[c] {
		case white:
			color[c] = gray
			stack = append(stack, frame{node: c})
		case gray:
			// Back edge: the cycle is the stack suffix starting at c.
			start := len(stack) - 1
			for start > 0 && stack[start].node != c {
				start--
			}
			path := make([]string, 0, len(stack)-start+1)
			for _, f := range stack[start:] {
				path = append(path, d.Label(f.node))
			}
			return append(path, d.Label(c))
		}
	}
	return nil
}
