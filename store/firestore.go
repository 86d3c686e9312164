package store

import (
	"context"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

const (
	visitorDocPath     = "stats/visitors"
	messagesCollection = "messages"
)

// FirestoreStore is a Firestore-backed implementation of Store.
// The counter lives in a single well-known document; guestbook entries are
// an append-only collection.
type FirestoreStore struct {
	client   *firestore.Client
	counter  string
	messages string
}

// NewFirestoreStore creates a new FirestoreStore using the given Firestore client.
func NewFirestoreStore(client *firestore.Client) *FirestoreStore {
	return &FirestoreStore{
		client:   client,
		counter:  visitorDocPath,
		messages: messagesCollection,
	}
}

func (s *FirestoreStore) counterRef() *firestore.DocumentRef {
	return s.client.Doc(s.counter)
}

func (s *FirestoreStore) GetCounter(ctx context.Context) (*Counter, error) {
	snap, err := s.counterRef().Get(ctx)
	if status.Code(err) == codes.NotFound {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("get counter: %w", err)
	}
	return counterFromSnapshot(snap), nil
}

func (s *FirestoreStore) CreateCounter(ctx context.Context) error {
	_, err := s.counterRef().Create(ctx, map[string]interface{}{
		"count":       1,
		"createdAt":   firestore.ServerTimestamp,
		"lastVisitAt": firestore.ServerTimestamp,
	})
	if status.Code(err) == codes.AlreadyExists {
		return ErrAlreadyExists
	}
	if err != nil {
		return fmt.Errorf("create counter: %w", err)
	}
	return nil
}

func (s *FirestoreStore) IncrementCounter(ctx context.Context, delta int64) error {
	_, err := s.counterRef().Update(ctx, []firestore.Update{
		{Path: "count", Value: firestore.Increment(delta)},
		{Path: "lastVisitAt", Value: firestore.ServerTimestamp},
	})
	if status.Code(err) == codes.NotFound {
		return ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("increment counter: %w", err)
	}
	return nil
}

// SubscribeCounter streams counter snapshots off the Firestore listen
// stream. A snapshot for a not-yet-created document is delivered as a zero
// counter, matching what first visitors should see.
func (s *FirestoreStore) SubscribeCounter(ctx context.Context) (*Subscription, error) {
	ctx, cancel := context.WithCancel(ctx)
	sub := newSubscription(cancel)
	iter := s.counterRef().Snapshots(ctx)

	go func() {
		defer iter.Stop()
		for {
			snap, err := iter.Next()
			if err != nil {
				if ctx.Err() != nil || status.Code(err) == codes.Canceled {
					sub.finish(nil)
				} else {
					sub.finish(fmt.Errorf("counter snapshots: %w", err))
				}
				return
			}
			if !snap.Exists() {
				sub.deliver(Counter{})
				continue
			}
			sub.deliver(*counterFromSnapshot(snap))
		}
	}()
	return sub, nil
}

func counterFromSnapshot(snap *firestore.DocumentSnapshot) *Counter {
	data := snap.Data()
	count, _ := data["count"].(int64)
	createdAt, _ := data["createdAt"].(time.Time)
	lastVisitAt, _ := data["lastVisitAt"].(time.Time)
	return &Counter{
		Count:       count,
		CreatedAt:   createdAt,
		LastVisitAt: lastVisitAt,
	}
}

func (s *FirestoreStore) AppendEntry(ctx context.Context, e Entry) (*Entry, error) {
	ref, wr, err := s.client.Collection(s.messages).Add(ctx, map[string]interface{}{
		"name":          e.Name,
		"message":       e.Message,
		"createdAt":     firestore.ServerTimestamp,
		"clientContext": e.ClientContext,
	})
	if err != nil {
		return nil, fmt.Errorf("append entry: %w", err)
	}
	return &Entry{
		ID:            ref.ID,
		Name:          e.Name,
		Message:       e.Message,
		CreatedAt:     wr.UpdateTime,
		ClientContext: e.ClientContext,
	}, nil
}

func (s *FirestoreStore) ListEntries(ctx context.Context, limit int) ([]Entry, error) {
	q := s.client.Collection(s.messages).OrderBy("createdAt", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}
	iter := q.Documents(ctx)
	defer iter.Stop()

	var result []Entry
	for {
		snap, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("list entries: %w", err)
		}
		result = append(result, entryFromSnapshot(snap))
	}
	return result, nil
}

func entryFromSnapshot(snap *firestore.DocumentSnapshot) Entry {
	data := snap.Data()
	name, _ := data["name"].(string)
	message, _ := data["message"].(string)
	createdAt, _ := data["createdAt"].(time.Time)
	clientContext, _ := data["clientContext"].(string)
	return Entry{
		ID:            snap.Ref.ID,
		Name:          name,
		Message:       message,
		CreatedAt:     createdAt,
		ClientContext: clientContext,
	}
}
