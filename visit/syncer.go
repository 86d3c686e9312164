package visit

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/letrongvang/go-profile-card/identity"
	"github.com/letrongvang/go-profile-card/store"
)

// State is the syncer's position in the counting flow.
type State int

const (
	StateUninitialized State = iota
	StateIdentifying
	StateDeciding
	StateCreating
	StateIncrementing
	StateSkipping
	StateSubscribed
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUninitialized:
		return "uninitialized"
	case StateIdentifying:
		return "identifying"
	case StateDeciding:
		return "deciding"
	case StateCreating:
		return "creating"
	case StateIncrementing:
		return "incrementing"
	case StateSkipping:
		return "skipping"
	case StateSubscribed:
		return "subscribed"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// Error strings surfaced to the display.
const (
	errInitFailed       = "Init failed"
	errConnectionFailed = "Connection failed"
)

// Snapshot is what the presentation layer sees: the most recently delivered
// count and any sticky error. Known is false until a first live snapshot
// arrives, which the display renders as a loading placeholder.
type Snapshot struct {
	Count int64
	Known bool
	State State
	Err   string
}

// Syncer runs the visitor-counting state machine: acquire an anonymous
// identity, decide via the throttle whether this visit counts, create or
// atomically increment the shared counter, then hold a live subscription
// that streams count updates. All store operations are best-effort;
// failures surface on the snapshot but never stop the subscription attempt.
type Syncer struct {
	store    store.Store
	provider identity.Provider
	recorder *Recorder
	log      *zap.Logger
	now      func() time.Time

	snapshots chan Snapshot
	stop      chan struct{}
	done      chan struct{}
	stopOnce  sync.Once

	mu   sync.Mutex
	last Snapshot
}

// NewSyncer creates a Syncer. A nil store means the backend was never
// configured; Run then reports "Init failed" and does nothing else. A nil
// provider skips identity acquisition.
func NewSyncer(st store.Store, provider identity.Provider, recorder *Recorder, log *zap.Logger) *Syncer {
	return &Syncer{
		store:     st,
		provider:  provider,
		recorder:  recorder,
		log:       log,
		now:       time.Now,
		snapshots: make(chan Snapshot, 16),
		stop:      make(chan struct{}),
		done:      make(chan struct{}),
	}
}

// Snapshots returns the stream of display snapshots. A slow consumer keeps
// only the freshest one.
func (s *Syncer) Snapshots() <-chan Snapshot {
	return s.snapshots
}

// Last returns the most recently published snapshot.
func (s *Syncer) Last() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.last
}

// Run drives the state machine and blocks until the subscription ends, the
// context is canceled, or Stop is called. Call it once.
func (s *Syncer) Run(ctx context.Context) {
	defer close(s.done)

	if s.store == nil {
		s.publishError(StateFailed, errInitFailed)
		return
	}

	s.setState(StateIdentifying)
	if s.provider != nil {
		// Anonymous sign-in failure is tolerated: it only matters for
		// writes the store actually requires auth for.
		if id, err := s.provider.SignInAnonymously(ctx); err != nil {
			s.log.Warn("anonymous sign-in failed, proceeding without attribution", zap.Error(err))
		} else {
			s.log.Debug("anonymous identity acquired", zap.String("uid", id.UID))
		}
	}

	s.setState(StateDeciding)
	now := s.now()
	if ShouldCountVisit(now, s.recorder.LastCountedAt()) {
		if state, err := s.countVisit(ctx, now); err != nil {
			s.log.Warn("counting visit failed", zap.Stringer("state", state), zap.Error(err))
			s.publishError(state, errConnectionFailed)
		}
	} else {
		s.setState(StateSkipping)
	}

	sub, err := s.store.SubscribeCounter(ctx)
	if err != nil {
		s.log.Warn("counter subscription failed", zap.Error(err))
		s.publishError(StateFailed, errConnectionFailed)
		return
	}
	s.setState(StateSubscribed)

	for {
		select {
		case c, ok := <-sub.Updates():
			if !ok {
				if err := sub.Err(); err != nil {
					// Keep the last known count on display.
					s.log.Warn("counter subscription dropped", zap.Error(err))
					s.publishError(StateFailed, errConnectionFailed)
				}
				return
			}
			s.publishCount(c.Count)
		case <-s.stop:
			sub.Stop()
			return
		case <-ctx.Done():
			sub.Stop()
			return
		}
	}
}

// Stop releases the live subscription and waits for Run to return. Must not
// be called before Run has started.
func (s *Syncer) Stop() {
	s.stopOnce.Do(func() { close(s.stop) })
	<-s.done
}

// countVisit performs the throttle-qualifying write: conditional create for
// a first-ever visit, atomic increment otherwise. Losing the first-visitor
// create race falls through to the increment path. The local record is only
// advanced after the write succeeded.
func (s *Syncer) countVisit(ctx context.Context, now time.Time) (State, error) {
	state := StateDeciding
	_, err := s.store.GetCounter(ctx)
	switch {
	case errors.Is(err, store.ErrNotFound):
		state = StateCreating
		s.setState(state)
		err = s.store.CreateCounter(ctx)
		if errors.Is(err, store.ErrAlreadyExists) {
			state = StateIncrementing
			s.setState(state)
			err = s.store.IncrementCounter(ctx, 1)
		}
	case err == nil:
		state = StateIncrementing
		s.setState(state)
		err = s.store.IncrementCounter(ctx, 1)
	}
	if err != nil {
		return state, err
	}
	if err := s.recorder.MarkCounted(now); err != nil {
		// Worst case the next load within the window counts again.
		s.log.Warn("persisting visit record failed", zap.Error(err))
	}
	return state, nil
}

func (s *Syncer) setState(state State) {
	s.mu.Lock()
	s.last.State = state
	s.mu.Unlock()
}

// publishCount pushes a fresh count, preserving any sticky error text.
func (s *Syncer) publishCount(count int64) {
	s.mu.Lock()
	s.last.Count = count
	s.last.Known = true
	s.last.State = StateSubscribed
	snap := s.last
	s.mu.Unlock()
	s.push(snap)
}

// publishError records an error without discarding the last known count.
func (s *Syncer) publishError(state State, msg string) {
	s.mu.Lock()
	s.last.State = state
	s.last.Err = msg
	snap := s.last
	s.mu.Unlock()
	s.push(snap)
}

func (s *Syncer) push(snap Snapshot) {
	select {
	case s.snapshots <- snap:
	default:
		select {
		case <-s.snapshots:
		default:
		}
		select {
		case s.snapshots <- snap:
		default:
		}
	}
}
