package graph

import "fmt"

// Scheduler hands out node indices once all of their children are done.
// Readiness is tracked by a remaining-children count per node, so a node that
// references the same child twice waits for both references.
//
// A Scheduler is not safe for concurrent use.
type Scheduler struct {
	deps        *Dependencies
	pending     []int
	queue       []int
	handedOut   []bool
	done        []bool
	outstanding int
	finished    int
}

// NewScheduler prepares a scheduler for deps. Nodes without node-typed
// children are ready immediately, in index order.
func NewScheduler(deps *Dependencies) *Scheduler {
	n := deps.Len()
	s := &Scheduler{
		deps:      deps,
		pending:   make([]int, n),
		handedOut: make([]bool, n),
		done:      make([]bool, n),
	}
	for i := 0; i < n; i++ {
		s.pending[i] = len(deps.children[i])
		if s.pending[i] == 0 {
			s.queue = append(s.queue, i)
		}
	}
	return s
}

// Ready returns every node that became ready since the last call. The
// returned nodes must each be passed to Done once evaluated.
func (s *Scheduler) Ready() []int {
	if len(s.queue) == 0 {
		return nil
	}
	out := s.queue
	s.queue = nil
	for _, i := range out {
		s.handedOut[i] = true
	}
	s.outstanding += len(out)
	return out
}

// Done marks node i as evaluated, which may make its parents ready.
func (s *Scheduler) Done(i int) error {
	if i < 0 || i >= len(s.done) || !s.handedOut[i] || s.done[i] {
		return fmt.Errorf("%w: %d", ErrNotReady, i)
	}
	s.done[i] = true
	s.outstanding--
	s.finished++
	for _, p := range s.deps.parents[i] {
		s.pending[p]--
		if s.pending[p] == 0 {
			s.queue = append(s.queue, p)
		}
	}
	return nil
}

// Active reports whether progress is still possible: some node is ready or
// handed out and not yet done.
func (s *Scheduler) Active() bool {
	return len(s.queue) > 0 || s.outstanding > 0
}

// Finished reports whether every node has been marked done.
func (s *Scheduler) Finished() bool {
	return s.finished == len(s.done)
}
