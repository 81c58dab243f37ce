package bus

import (
	"sync"

	"github.com/petal-labs/termgraph/runtime"
)

// DefaultBufferSize is the per-subscriber channel capacity used when
// MemBusConfig.SubscriberBufferSize is not positive.
const DefaultBufferSize = 256

// MemBusConfig configures an in-memory event bus.
type MemBusConfig struct {
	// SubscriberBufferSize is the channel buffer size per subscriber.
	SubscriberBufferSize int
}

// MemBus is an in-memory EventBus. Publishing never blocks: a subscriber
// whose buffer is full misses the event and its drop counter is increased.
type MemBus struct {
	mu      sync.RWMutex
	byEval  map[string][]*memSub
	global  []*memSub
	bufSize int
	closed  bool
}

// NewMemBus creates an in-memory event bus.
func NewMemBus(config MemBusConfig) *MemBus {
	bufSize := config.SubscriberBufferSize
	if bufSize <= 0 {
		bufSize = DefaultBufferSize
	}
	return &MemBus{
		byEval:  make(map[string][]*memSub),
		bufSize: bufSize,
	}
}

// Publish delivers event to the subscribers of its evaluation and to every
// global subscriber. Events published after Close are dropped.
func (b *MemBus) Publish(event runtime.Event) {
	b.mu.RLock()
	defer b.mu.RUnlock()

	if b.closed {
		return
	}
	for _, sub := range b.byEval[event.EvalID] {
		sub.send(event)
	}
	for _, sub := range b.global {
		sub.send(event)
	}
}

// Subscribe registers a subscriber for the evaluation evalID.
func (b *MemBus) Subscribe(evalID string) Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := b.newSub(evalID)
	b.byEval[evalID] = append(b.byEval[evalID], sub)
	return sub
}

// SubscribeAll registers a subscriber for every evaluation.
func (b *MemBus) SubscribeAll() Subscription {
	b.mu.Lock()
	defer b.mu.Unlock()

	sub := b.newSub("")
	sub.all = true
	b.global = append(b.global, sub)
	return sub
}

// Close shuts down the bus and closes every open subscription.
func (b *MemBus) Close() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.closed = true
	for _, subs := range b.byEval {
		for _, sub := range subs {
			sub.close()
		}
	}
	for _, sub := range b.global {
		sub.close()
	}
	b.byEval = make(map[string][]*memSub)
	b.global = nil
	return nil
}

// Subscribers reports how many subscriptions are open for evalID, not
// counting global subscribers.
func (b *MemBus) Subscribers(evalID string) int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.byEval[evalID])
}

func (b *MemBus) newSub(evalID string) *memSub {
	sub := &memSub{
		bus:    b,
		evalID: evalID,
		ch:     make(chan runtime.Event, b.bufSize),
	}
	if b.closed {
		sub.close()
	}
	return sub
}

// remove detaches sub from the bus. It is called from memSub.Close.
func (b *MemBus) remove(sub *memSub) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if sub.all {
		b.global = without(b.global, sub)
		return
	}
	rest := without(b.byEval[sub.evalID], sub)
	if len(rest) == 0 {
		delete(b.byEval, sub.evalID)
		return
	}
	b.byEval[sub.evalID] = rest
}

func without(subs []*memSub, sub *memSub) []*memSub {
	out := subs[:0]
	for _, s := range subs {
		if s != sub {
			out = append(out, s)
		}
	}
	return out
}

type memSub struct {
	bus    *MemBus
	evalID string
	all    bool

	mu      sync.Mutex
	ch      chan runtime.Event
	closed  bool
	dropped uint64
}

func (s *memSub) Events() <-chan runtime.Event {
	return s.ch
}

func (s *memSub) Close() error {
	s.bus.remove(s)
	s.close()
	return nil
}

// Dropped reports how many events were discarded because the buffer was full.
func (s *memSub) Dropped() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.dropped
}

func (s *memSub) close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

func (s *memSub) send(event runtime.Event) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.closed {
		return
	}
	select {
	case s.ch <- event:
	default:
		s.dropped++
	}
}

var (
	_ EventBus     = (*MemBus)(nil)
	_ Subscription = (*memSub)(nil)
)
