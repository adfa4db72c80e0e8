package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"tickbot/internal/sched"
	logx "tickbot/pkg/logx"
)

func openTestDB(t *testing.T) *DB {
	t.Helper()
	dir := t.TempDir()
	db, err := Open(Config{Path: filepath.Join(dir, "events.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func mustInsert(t *testing.T, s *EventStore, ev sched.Event) int64 {
	t.Helper()
	id, err := s.Insert(context.Background(), ev)
	if err != nil {
		t.Fatalf("Insert: %v", err)
	}
	if id == 0 {
		t.Fatal("Insert returned id 0")
	}
	return id
}

func TestEarliestOrdersByDeadlineThenID(t *testing.T) {
	db := openTestDB(t)
	s := db.Events("reminder")
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	mustInsert(t, s, sched.Event{OwnerID: 1, Deadline: now.Add(2 * time.Hour)})
	soonA := mustInsert(t, s, sched.Event{OwnerID: 2, Deadline: now.Add(time.Hour)})
	mustInsert(t, s, sched.Event{OwnerID: 3, Deadline: now.Add(time.Hour)})

	got, err := s.Earliest(ctx)
	if err != nil {
		t.Fatalf("Earliest: %v", err)
	}
	if got == nil || got.ID != soonA {
		t.Fatalf("Earliest = %+v, want id %d (deadline tie broken by id)", got, soonA)
	}
}

func TestEarliestEmptyStore(t *testing.T) {
	db := openTestDB(t)
	s := db.Events("reminder")

	got, err := s.Earliest(context.Background())
	if err != nil {
		t.Fatalf("Earliest: %v", err)
	}
	if got != nil {
		t.Fatalf("Earliest on empty store = %+v, want nil", got)
	}
}

func TestKindsAreIsolated(t *testing.T) {
	db := openTestDB(t)
	reminders := db.Events("reminder")
	parties := db.Events("party")
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	mustInsert(t, reminders, sched.Event{OwnerID: 1, Deadline: now.Add(2 * time.Hour)})
	partyID := mustInsert(t, parties, sched.Event{OwnerID: 1, Deadline: now.Add(time.Hour)})

	got, err := reminders.Earliest(ctx)
	if err != nil {
		t.Fatalf("Earliest: %v", err)
	}
	if got == nil || got.ID == partyID {
		t.Fatalf("reminder view leaked party row: %+v", got)
	}

	list, err := parties.List(ctx, 1)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 || list[0].ID != partyID {
		t.Fatalf("party list = %+v, want only id %d", list, partyID)
	}
}

func TestRoundTripFields(t *testing.T) {
	db := openTestDB(t)
	s := db.Events("party")
	ctx := context.Background()

	created := time.Now().Truncate(time.Second)
	deadline := created.Add(26 * time.Hour)
	id := mustInsert(t, s, sched.Event{
		OwnerID:   42,
		TargetID:  -100123,
		CreatedAt: created,
		Deadline:  deadline,
		Payload:   `{"name":"movie night"}`,
		RecurDays: 7,
	})

	ev, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ev.OwnerID != 42 || ev.TargetID != -100123 || ev.RecurDays != 7 {
		t.Fatalf("fields lost: %+v", ev)
	}
	if !ev.CreatedAt.Equal(created) || !ev.Deadline.Equal(deadline) {
		t.Fatalf("timestamps lost: created %v deadline %v", ev.CreatedAt, ev.Deadline)
	}
	if ev.Payload != `{"name":"movie night"}` {
		t.Fatalf("payload lost: %q", ev.Payload)
	}
}

func TestDeleteIsIdempotent(t *testing.T) {
	db := openTestDB(t)
	s := db.Events("reminder")
	ctx := context.Background()

	id := mustInsert(t, s, sched.Event{OwnerID: 1, Deadline: time.Now().Add(time.Hour)})

	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("Delete: %v", err)
	}
	// Absent row is a no-op, not an error.
	if err := s.Delete(ctx, id); err != nil {
		t.Fatalf("second Delete: %v", err)
	}
}

func TestDeleteOwnedFiltersByOwner(t *testing.T) {
	db := openTestDB(t)
	s := db.Events("reminder")
	ctx := context.Background()

	id := mustInsert(t, s, sched.Event{OwnerID: 1, Deadline: time.Now().Add(time.Hour)})

	if ok, err := s.DeleteOwned(ctx, 2, id); err != nil || ok {
		t.Fatalf("DeleteOwned by stranger = (%v, %v), want (false, nil)", ok, err)
	}
	if ok, err := s.DeleteOwned(ctx, 1, id); err != nil || !ok {
		t.Fatalf("DeleteOwned by owner = (%v, %v), want (true, nil)", ok, err)
	}
	if ok, err := s.DeleteOwned(ctx, 1, id); err != nil || ok {
		t.Fatalf("repeat DeleteOwned = (%v, %v), want (false, nil)", ok, err)
	}
}

func TestDeleteAllReturnsRemovedIDs(t *testing.T) {
	db := openTestDB(t)
	s := db.Events("reminder")
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	a := mustInsert(t, s, sched.Event{OwnerID: 5, Deadline: now.Add(time.Hour)})
	b := mustInsert(t, s, sched.Event{OwnerID: 5, Deadline: now.Add(2 * time.Hour)})
	other := mustInsert(t, s, sched.Event{OwnerID: 6, Deadline: now.Add(time.Minute)})

	ids, err := s.DeleteAll(ctx, 5)
	if err != nil {
		t.Fatalf("DeleteAll: %v", err)
	}
	if len(ids) != 2 {
		t.Fatalf("DeleteAll removed %v, want ids %d and %d", ids, a, b)
	}
	seen := map[int64]bool{}
	for _, id := range ids {
		seen[id] = true
	}
	if !seen[a] || !seen[b] {
		t.Fatalf("DeleteAll removed %v, want ids %d and %d", ids, a, b)
	}

	// other owners untouched
	if got, err := s.Earliest(ctx); err != nil || got == nil || got.ID != other {
		t.Fatalf("Earliest after DeleteAll = (%+v, %v), want id %d", got, err, other)
	}

	// empty result on repeat
	ids, err = s.DeleteAll(ctx, 5)
	if err != nil {
		t.Fatalf("repeat DeleteAll: %v", err)
	}
	if len(ids) != 0 {
		t.Fatalf("repeat DeleteAll removed %v, want none", ids)
	}
}

func TestListIsOwnerScopedAndOrdered(t *testing.T) {
	db := openTestDB(t)
	s := db.Events("reminder")
	ctx := context.Background()

	now := time.Now().Truncate(time.Second)
	late := mustInsert(t, s, sched.Event{OwnerID: 9, Deadline: now.Add(3 * time.Hour)})
	soon := mustInsert(t, s, sched.Event{OwnerID: 9, Deadline: now.Add(time.Hour)})
	mustInsert(t, s, sched.Event{OwnerID: 8, Deadline: now.Add(time.Minute)})

	list, err := s.List(ctx, 9)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || list[0].ID != soon || list[1].ID != late {
		t.Fatalf("List = %+v, want [%d %d]", list, soon, late)
	}
}

func TestUpdatePayload(t *testing.T) {
	db := openTestDB(t)
	s := db.Events("party")
	ctx := context.Background()

	id := mustInsert(t, s, sched.Event{OwnerID: 1, Deadline: time.Now().Add(time.Hour), Payload: "old"})

	if err := s.UpdatePayload(ctx, id, "new"); err != nil {
		t.Fatalf("UpdatePayload: %v", err)
	}
	ev, err := s.Get(ctx, id)
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ev.Payload != "new" {
		t.Fatalf("payload = %q, want %q", ev.Payload, "new")
	}

	if err := s.UpdatePayload(ctx, id+999, "x"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("UpdatePayload on missing row = %v, want ErrNotFound", err)
	}
}

func TestGetMissing(t *testing.T) {
	db := openTestDB(t)
	s := db.Events("reminder")

	if _, err := s.Get(context.Background(), 12345); !errors.Is(err, ErrNotFound) {
		t.Fatalf("Get missing = %v, want ErrNotFound", err)
	}
}
