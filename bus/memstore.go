package bus

import (
	"context"
	"slices"
	"sync"

	"github.com/petal-labs/termgraph/runtime"
)

// MemEventStore is a thread-safe in-memory EventStore.
type MemEventStore struct {
	mu     sync.RWMutex
	events map[string][]runtime.Event
}

// NewMemEventStore creates an empty in-memory event store.
func NewMemEventStore() *MemEventStore {
	return &MemEventStore{
		events: make(map[string][]runtime.Event),
	}
}

func (s *MemEventStore) Append(_ context.Context, event runtime.Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events[event.EvalID] = append(s.events[event.EvalID], event)
	return nil
}

func (s *MemEventStore) List(_ context.Context, evalID string, afterSeq uint64, limit int) ([]runtime.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []runtime.Event
	for _, e := range s.events[evalID] {
		if e.Seq <= afterSeq {
			continue
		}
		out = append(out, e)
	}
	slices.SortStableFunc(out, func(a, b runtime.Event) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *MemEventStore) LatestSeq(_ context.Context, evalID string) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var latest uint64
	for _, e := range s.events[evalID] {
		latest = max(latest, e.Seq)
	}
	return latest, nil
}

func (s *MemEventStore) EvalIDs(_ context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	ids := make([]string, 0, len(s.events))
	for id := range s.events {
		ids = append(ids, id)
	}
	slices.Sort(ids)
	return ids, nil
}

var _ EventStore = (*MemEventStore)(nil)
