package runtime

import "sync/atomic"

// seqGen numbers the events of one evaluation, starting at 1.
type seqGen struct {
	counter atomic.Uint64
}

func (s *seqGen) next() uint64 {
	return s.counter.Add(1)
}
