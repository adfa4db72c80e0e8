// Package sched implements a persistent single-armed-timer scheduler.
//
// One Service instance owns one background loop. The loop keeps at most one
// event "armed" in memory, sleeps until its deadline, then deletes the row
// and delivers the notification. Every other pending event lives only in the
// store; the armed event is a cache of "what fires next", never authoritative.
//
// Mutations that can change the global minimum deadline (an insert that is
// earlier than the armed event, a cancel of the armed event) must preempt the
// sleep via Restart. The loop does not poll the store; a missed Restart is a
// correctness bug, which is why Schedule/CancelOne/CancelAll wire it in
// themselves.
package sched
