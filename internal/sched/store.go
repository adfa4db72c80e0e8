package sched

import "context"

// Store is the persistence contract the scheduler loop runs against.
//
// Implementations must make Insert atomic with respect to concurrent readers
// (no partially visible row) and keep Delete idempotent: deleting an absent
// row is a no-op, not an error. Deadline ordering across all pending rows is
// total; ties break by lowest id.
type Store interface {
	// Insert persists a new event and returns the assigned id.
	Insert(ctx context.Context, ev Event) (int64, error)

	// Delete removes one event by id. Absent rows are ignored.
	Delete(ctx context.Context, id int64) error

	// DeleteOwned removes one event iff it is owned by ownerID.
	// It reports whether a row was actually removed.
	DeleteOwned(ctx context.Context, ownerID, id int64) (bool, error)

	// DeleteAll removes every event owned by ownerID and returns the
	// removed ids, so callers can tell whether the armed event was among
	// them.
	DeleteAll(ctx context.Context, ownerID int64) ([]int64, error)

	// Earliest returns the event with the globally smallest deadline,
	// or nil if the store is empty.
	Earliest(ctx context.Context) (*Event, error)

	// List returns ownerID's pending events, ascending by deadline.
	List(ctx context.Context, ownerID int64) ([]Event, error)
}

// Sender delivers a fired event.
//
// Delivery failures are expected to be recovered inside Send (logged and
// abandoned); a returned error is still only logged by the loop and never
// aborts the cycle, because a failed notification must not block the next
// deadline.
type Sender interface {
	Send(ctx context.Context, ev Event) error
}
