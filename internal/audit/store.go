package audit

import (
	"context"
	"sort"
	"sync"
)

// Store persists audit events for history lookups.
type Store interface {
	Append(ctx context.Context, event Event) error
	ListByRecord(ctx context.Context, table, recordID string) ([]Event, error)
	// Last returns the most recent event for (table, recordID, action), or
	// ok == false when there is none.
	Last(ctx context.Context, table, recordID string, action Action) (Event, bool, error)
}

type recordKey struct {
	table    string
	recordID string
}

// InMemoryStore keeps events per record in append order.
type InMemoryStore struct {
	mu     sync.RWMutex
	events map[recordKey][]Event
}

func NewInMemoryStore() *InMemoryStore {
	return &InMemoryStore{events: make(map[recordKey][]Event)}
}

func (s *InMemoryStore) Append(_ context.Context, event Event) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	k := recordKey{event.Table, event.RecordID}
	s.events[k] = append(s.events[k], event)
	return nil
}

// ListByRecord returns the record's events, most recent first.
func (s *InMemoryStore) ListByRecord(_ context.Context, table, recordID string) ([]Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stored := s.events[recordKey{table, recordID}]
	events := make([]Event, 0, len(stored))
	for i := len(stored) - 1; i >= 0; i-- {
		events = append(events, stored[i])
	}
	// equal timestamps keep reverse append order
	sort.SliceStable(events, func(i, j int) bool {
		return events[i].Timestamp.After(events[j].Timestamp)
	})
	return events, nil
}

func (s *InMemoryStore) Last(_ context.Context, table, recordID string, action Action) (Event, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	events := s.events[recordKey{table, recordID}]
	for i := len(events) - 1; i >= 0; i-- {
		if events[i].Action == action {
			return events[i], true, nil
		}
	}
	return Event{}, false, nil
}
