package store

import (
	"context"
	"errors"
	"sync"
	"time"
)

var (
	// ErrNotFound is returned when the counter document does not exist yet.
	ErrNotFound = errors.New("document not found")
	// ErrAlreadyExists is returned by CreateCounter when another client won
	// the first-visitor race.
	ErrAlreadyExists = errors.New("document already exists")
)

// Counter is the shared visitor counter document. Count only ever grows;
// CreatedAt is written once on creation and LastVisitAt is refreshed on
// every increment.
type Counter struct {
	Count       int64
	CreatedAt   time.Time
	LastVisitAt time.Time
}

// Entry is one guestbook record. Entries are immutable once written; there
// is no update or delete path.
type Entry struct {
	ID            string    `json:"id"`
	Name          string    `json:"name"`
	Message       string    `json:"message"`
	CreatedAt     time.Time `json:"createdAt"`
	ClientContext string    `json:"clientContext"`
}

// Store abstracts the remote document store backing the visitor counter and
// the guestbook.
// Implementations: MemoryStore (tests, local mode), FirestoreStore.
type Store interface {
	// GetCounter returns the counter document, or ErrNotFound.
	GetCounter(ctx context.Context) (*Counter, error)
	// CreateCounter conditionally creates the counter with count=1. It
	// returns ErrAlreadyExists if the document is already there, so two
	// racing first visitors cannot overwrite each other.
	CreateCounter(ctx context.Context) error
	// IncrementCounter atomically adds delta to the count and refreshes
	// lastVisitAt. Returns ErrNotFound if the counter was never created.
	IncrementCounter(ctx context.Context, delta int64) error
	// SubscribeCounter opens a live stream of counter snapshots. The caller
	// must release the subscription with Stop when done.
	SubscribeCounter(ctx context.Context) (*Subscription, error)
	// AppendEntry appends one immutable guestbook entry and returns it with
	// its server-assigned ID and timestamp. Either exactly one complete
	// entry is written or none.
	AppendEntry(ctx context.Context, e Entry) (*Entry, error)
	// ListEntries returns the newest entries, most recent first. A limit of
	// zero or less means no limit.
	ListEntries(ctx context.Context, limit int) ([]Entry, error)
}

// Subscription is a live feed of counter snapshots. Updates is closed when
// the stream ends; Err reports why, nil meaning a clean stop. Snapshots may
// arrive in any order relative to this client's own writes — the most
// recently delivered one is authoritative.
type Subscription struct {
	updates chan Counter
	stopped chan struct{}
	cancel  func()

	stopOnce   sync.Once
	finishOnce sync.Once

	mu  sync.Mutex
	err error
}

func newSubscription(cancel func()) *Subscription {
	return &Subscription{
		updates: make(chan Counter, 16),
		stopped: make(chan struct{}),
		cancel:  cancel,
	}
}

// Updates returns the snapshot channel.
func (s *Subscription) Updates() <-chan Counter {
	return s.updates
}

// Err returns the error that ended the stream, if any. Only meaningful
// after Updates is closed.
func (s *Subscription) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

// Stop releases the subscription. Safe to call more than once.
func (s *Subscription) Stop() {
	s.stopOnce.Do(func() {
		close(s.stopped)
		if s.cancel != nil {
			s.cancel()
		}
	})
}

// deliver hands a snapshot to the consumer without blocking. A slow
// consumer keeps only the freshest snapshot.
func (s *Subscription) deliver(c Counter) {
	select {
	case <-s.stopped:
		return
	default:
	}
	select {
	case s.updates <- c:
	default:
		select {
		case <-s.updates:
		default:
		}
		select {
		case s.updates <- c:
		default:
		}
	}
}

// finish ends the stream. Must not race deliver; producers call both from
// the same goroutine or under the same lock.
func (s *Subscription) finish(err error) {
	s.finishOnce.Do(func() {
		s.mu.Lock()
		s.err = err
		s.mu.Unlock()
		close(s.updates)
	})
}
