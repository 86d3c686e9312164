package store

import (
	"context"
	"errors"
	"testing"
	"time"
)

func ctx() context.Context { return context.Background() }

func TestMemoryStore_GetCounterNotFound(t *testing.T) {
	s := NewMemoryStore()
	_, err := s.GetCounter(ctx())
	if !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
}

func TestMemoryStore_CreateAndGetCounter(t *testing.T) {
	s := NewMemoryStore()

	if err := s.CreateCounter(ctx()); err != nil {
		t.Fatal(err)
	}
	c, err := s.GetCounter(ctx())
	if err != nil {
		t.Fatal(err)
	}
	if c.Count != 1 {
		t.Errorf("count = %d, want 1", c.Count)
	}
	if c.CreatedAt.IsZero() || c.LastVisitAt.IsZero() {
		t.Errorf("timestamps not set: %+v", c)
	}
}

func TestMemoryStore_CreateCounterTwice(t *testing.T) {
	s := NewMemoryStore()

	s.CreateCounter(ctx())
	if err := s.CreateCounter(ctx()); !errors.Is(err, ErrAlreadyExists) {
		t.Errorf("err = %v, want ErrAlreadyExists", err)
	}
}

func TestMemoryStore_IncrementCounter(t *testing.T) {
	s := NewMemoryStore()

	if err := s.IncrementCounter(ctx(), 1); !errors.Is(err, ErrNotFound) {
		t.Fatalf("increment before create: err = %v, want ErrNotFound", err)
	}

	s.CreateCounter(ctx())
	created, _ := s.GetCounter(ctx())

	if err := s.IncrementCounter(ctx(), 1); err != nil {
		t.Fatal(err)
	}
	c, _ := s.GetCounter(ctx())
	if c.Count != 2 {
		t.Errorf("count = %d, want 2", c.Count)
	}
	if c.CreatedAt != created.CreatedAt {
		t.Error("createdAt changed on increment")
	}
	if c.LastVisitAt.Before(created.LastVisitAt) {
		t.Error("lastVisitAt not refreshed on increment")
	}
}

func TestMemoryStore_SubscribeDeliversUpdates(t *testing.T) {
	s := NewMemoryStore()

	sub, err := s.SubscribeCounter(ctx())
	if err != nil {
		t.Fatal(err)
	}
	defer sub.Stop()

	// Initial snapshot for a missing counter is zero.
	c := recvCounter(t, sub)
	if c.Count != 0 {
		t.Errorf("initial count = %d, want 0", c.Count)
	}

	s.CreateCounter(ctx())
	c = recvCounter(t, sub)
	if c.Count != 1 {
		t.Errorf("count after create = %d, want 1", c.Count)
	}

	s.IncrementCounter(ctx(), 1)
	c = recvCounter(t, sub)
	if c.Count != 2 {
		t.Errorf("count after increment = %d, want 2", c.Count)
	}
}

func TestMemoryStore_SubscribeFanOut(t *testing.T) {
	s := NewMemoryStore()
	s.CreateCounter(ctx())

	sub1, _ := s.SubscribeCounter(ctx())
	defer sub1.Stop()
	sub2, _ := s.SubscribeCounter(ctx())
	defer sub2.Stop()

	recvCounter(t, sub1)
	recvCounter(t, sub2)

	s.IncrementCounter(ctx(), 1)
	if c := recvCounter(t, sub1); c.Count != 2 {
		t.Errorf("sub1 count = %d, want 2", c.Count)
	}
	if c := recvCounter(t, sub2); c.Count != 2 {
		t.Errorf("sub2 count = %d, want 2", c.Count)
	}
}

func TestMemoryStore_SubscriptionStop(t *testing.T) {
	s := NewMemoryStore()
	s.CreateCounter(ctx())

	sub, _ := s.SubscribeCounter(ctx())
	recvCounter(t, sub)
	sub.Stop()

	// Updates channel closes with no error.
	select {
	case _, ok := <-sub.Updates():
		if ok {
			// drain the racing snapshot, channel must still close
			if _, ok := <-sub.Updates(); ok {
				t.Fatal("updates not closed after Stop")
			}
		}
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for close")
	}
	if err := sub.Err(); err != nil {
		t.Errorf("err = %v, want nil after clean stop", err)
	}

	// Further increments must not panic or deliver.
	if err := s.IncrementCounter(ctx(), 1); err != nil {
		t.Fatal(err)
	}
}

func TestMemoryStore_AppendAndListEntries(t *testing.T) {
	s := NewMemoryStore()
	before := time.Now()

	e, err := s.AppendEntry(ctx(), Entry{Name: "Al", Message: "hi", ClientContext: "test"})
	if err != nil {
		t.Fatal(err)
	}
	if e.ID == "" {
		t.Error("entry ID not assigned")
	}
	if e.CreatedAt.Before(before) {
		t.Error("createdAt not server-assigned")
	}

	entries, err := s.ListEntries(ctx(), 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 {
		t.Fatalf("got %d entries, want 1", len(entries))
	}
	if entries[0].Name != "Al" || entries[0].Message != "hi" {
		t.Errorf("unexpected entry: %+v", entries[0])
	}
}

func TestMemoryStore_ListEntriesNewestFirstWithLimit(t *testing.T) {
	s := NewMemoryStore()

	s.AppendEntry(ctx(), Entry{Name: "first"})
	s.AppendEntry(ctx(), Entry{Name: "second"})
	s.AppendEntry(ctx(), Entry{Name: "third"})

	entries, err := s.ListEntries(ctx(), 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(entries))
	}
	if entries[0].Name != "third" || entries[1].Name != "second" {
		t.Errorf("unexpected order: %+v", entries)
	}
}

func recvCounter(t *testing.T, sub *Subscription) Counter {
	t.Helper()
	select {
	case c, ok := <-sub.Updates():
		if !ok {
			t.Fatalf("updates closed: %v", sub.Err())
		}
		return c
	case <-time.After(2 * time.Second):
		t.Fatal("timeout waiting for snapshot")
		return Counter{}
	}
}
