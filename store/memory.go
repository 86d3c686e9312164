package store

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore is an in-memory implementation of Store. It backs tests and
// the memory-only run mode, and fans counter changes out to subscribers the
// way the Firestore listen stream does.
type MemoryStore struct {
	mu      sync.Mutex
	counter *Counter
	entries []Entry
	subs    map[*Subscription]struct{}
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{subs: make(map[*Subscription]struct{})}
}

func (s *MemoryStore) GetCounter(_ context.Context) (*Counter, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counter == nil {
		return nil, ErrNotFound
	}
	c := *s.counter
	return &c, nil
}

func (s *MemoryStore) CreateCounter(_ context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counter != nil {
		return ErrAlreadyExists
	}
	now := time.Now()
	s.counter = &Counter{Count: 1, CreatedAt: now, LastVisitAt: now}
	s.notifyLocked()
	return nil
}

func (s *MemoryStore) IncrementCounter(_ context.Context, delta int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.counter == nil {
		return ErrNotFound
	}
	s.counter.Count += delta
	s.counter.LastVisitAt = time.Now()
	s.notifyLocked()
	return nil
}

// SubscribeCounter registers a subscriber and delivers the current state
// immediately, zero counter if none exists yet. Release with Stop.
func (s *MemoryStore) SubscribeCounter(_ context.Context) (*Subscription, error) {
	var sub *Subscription
	sub = newSubscription(func() {
		s.mu.Lock()
		defer s.mu.Unlock()
		delete(s.subs, sub)
		sub.finish(nil)
	})

	s.mu.Lock()
	defer s.mu.Unlock()
	s.subs[sub] = struct{}{}
	var initial Counter
	if s.counter != nil {
		initial = *s.counter
	}
	sub.deliver(initial)
	return sub, nil
}

// notifyLocked pushes the current counter to every subscriber. Caller holds mu.
func (s *MemoryStore) notifyLocked() {
	for sub := range s.subs {
		sub.deliver(*s.counter)
	}
}

func (s *MemoryStore) AppendEntry(_ context.Context, e Entry) (*Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e.ID = uuid.NewString()
	e.CreatedAt = time.Now()
	s.entries = append(s.entries, e)
	return &e, nil
}

func (s *MemoryStore) ListEntries(_ context.Context, limit int) ([]Entry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	result := make([]Entry, 0, len(s.entries))
	for i := len(s.entries) - 1; i >= 0; i-- {
		if limit > 0 && len(result) >= limit {
			break
		}
		result = append(result, s.entries[i])
	}
	return result, nil
}
