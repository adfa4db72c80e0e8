package sched

import "time"

// Event is one scheduled notification.
//
// ID is assigned by the store on insert and is zero before first persistence.
// Payload is opaque to the scheduler; the Sender knows how to render it.
type Event struct {
	ID        int64
	OwnerID   int64
	TargetID  int64
	CreatedAt time.Time
	Deadline  time.Time
	Payload   string

	// RecurDays is the fixed day interval between occurrences.
	// Zero means one-shot.
	RecurDays int
}

// Same reports whether two events refer to the same persisted row.
// Identity is by ID only.
func (e Event) Same(other Event) bool { return e.ID != 0 && e.ID == other.ID }

func (e Event) Recurring() bool { return e.RecurDays > 0 }
