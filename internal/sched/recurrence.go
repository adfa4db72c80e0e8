package sched

import "time"

// NextDeadline computes the successor deadline for a fired event.
// It reports false for one-shot events.
//
// The successor is derived from the original deadline, not from "now", so a
// late fire shifts every later occurrence by the same amount instead of
// slowly drifting the schedule.
func NextDeadline(ev Event) (time.Time, bool) {
	if ev.RecurDays <= 0 {
		return time.Time{}, false
	}
	return ev.Deadline.AddDate(0, 0, ev.RecurDays), true
}
