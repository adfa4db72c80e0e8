package sched

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tickbot/internal/runtime/supervisor"
	logx "tickbot/pkg/logx"
)

type Config struct {
	// Name tags the instance in logs ("reminder", "party").
	Name string

	// MaxStaleness skips delivery for events that are overdue by more than
	// this when the loop gets to them (e.g. the process was down past the
	// deadline). Zero means overdue events are always delivered.
	MaxStaleness time.Duration
}

// Service runs one scheduler loop over a Store, delivering through a Sender.
type Service struct {
	store Store
	send  Sender
	log   logx.Logger
	now   func() time.Time

	mu         sync.Mutex
	cfg        Config
	armed      *Event
	pending    *Event
	hasPending bool
	running    bool

	// gen counts restarts. A store lookup started before a restart landed
	// is stale and must be discarded, not armed.
	gen uint64

	// kick preempts the current sleep / idle wait. Capacity 1: restarts
	// coalesce, the pending slot always holds the latest request.
	kick chan struct{}

	sup *supervisor.Supervisor
}

func New(cfg Config, store Store, send Sender, log logx.Logger) *Service {
	if cfg.Name == "" {
		cfg.Name = "sched"
	}
	if log.IsZero() {
		log = logx.Nop()
	}
	return &Service{
		store: store,
		send:  send,
		log:   log.With(logx.String("sched", cfg.Name)),
		now:   time.Now,
		cfg:   cfg,
		kick:  make(chan struct{}, 1),
	}
}

func (s *Service) Apply(cfg Config) {
	s.mu.Lock()
	cfg.Name = s.cfg.Name
	s.cfg = cfg
	s.mu.Unlock()
}

// Start launches the loop under a supervisor. Persistence failures abort the
// current cycle and surface through the supervisor, which restarts the loop
// with backoff.
func (s *Service) Start(ctx context.Context) {
	s.mu.Lock()
	if s.running {
		s.mu.Unlock()
		return
	}
	s.running = true
	s.mu.Unlock()

	s.sup = supervisor.New(ctx, supervisor.WithLogger(s.log))
	s.sup.GoRestart(s.name()+".loop", s.run,
		supervisor.WithRestartBackoff(500*time.Millisecond, 15*time.Second),
	)
}

func (s *Service) Stop(ctx context.Context) {
	s.mu.Lock()
	sup := s.sup
	s.sup = nil
	s.running = false
	s.armed = nil
	s.pending = nil
	s.hasPending = false
	s.mu.Unlock()

	if sup != nil {
		_ = sup.Stop(ctx)
	}
}

// Supervisor exposes a goroutine spawner sharing the loop's lifetime.
// Used by callers for short-lived work tied to this scheduler (fast-path
// deliveries that are never persisted).
func (s *Service) Supervisor() *supervisor.Supervisor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sup
}

// Restart cancels the current sleep and re-evaluates.
//
// Restart(ev) arms ev directly without a store round-trip; callers use it
// when they already know ev is the new global minimum. Restart(nil) drops the
// armed event and forces a fresh Earliest lookup; callers use it after
// deletes whose relation to the armed event is unknown or known-fatal.
func (s *Service) Restart(ev *Event) {
	s.mu.Lock()
	s.installLocked(ev)
	s.mu.Unlock()
	s.wake()
}

// restartIfEarlier preempts only when ev precedes whatever the loop is
// currently considering. Comparing and installing happen under one lock:
// a snapshot-compare-then-Restart split would let two concurrent inserts
// land their preemptions in either order and arm the later event.
//
// Installing ev directly is only sound against a non-empty comparison
// point: the armed event is always the store minimum, so anything earlier
// is the new minimum. With nothing armed (loop idle or mid-lookup) ev
// carries no such guarantee and the loop is told to look the minimum up.
func (s *Service) restartIfEarlier(ev *Event) bool {
	s.mu.Lock()
	cur := s.armed
	if s.hasPending {
		cur = s.pending
	}
	switch {
	case cur == nil:
		s.installLocked(nil)
	case ev.Deadline.Before(cur.Deadline):
		s.installLocked(ev)
	default:
		s.mu.Unlock()
		return false
	}
	s.mu.Unlock()
	s.wake()
	return true
}

func (s *Service) installLocked(ev *Event) {
	s.pending = ev
	s.hasPending = ev != nil
	s.armed = nil
	s.gen++
}

func (s *Service) wake() {
	select {
	case s.kick <- struct{}{}:
	default:
	}
}

// ArmedID returns the id of the event the loop is currently sleeping on
// (or is about to arm after a Restart).
func (s *Service) ArmedID() (int64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.hasPending {
		if s.pending == nil {
			return 0, false
		}
		return s.pending.ID, true
	}
	if s.armed == nil {
		return 0, false
	}
	return s.armed.ID, true
}

// Schedule inserts ev and makes the loop reconsider only when needed:
// when nothing is armed, or when ev is earlier than the armed event.
// Inserts behind the armed deadline do not cause a wasted restart.
func (s *Service) Schedule(ctx context.Context, ev Event) (int64, error) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = s.now()
	}
	id, err := s.store.Insert(ctx, ev)
	if err != nil {
		return 0, err
	}
	ev.ID = id

	s.restartIfEarlier(&ev)
	s.log.Debug("event registered",
		logx.Int64("id", id), logx.Time("deadline", ev.Deadline), logx.Int64("owner", ev.OwnerID))
	return id, nil
}

func (s *Service) run(ctx context.Context) error {
	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		// Consume a pending restart, if any.
		s.mu.Lock()
		if s.hasPending {
			s.armed = s.pending
			s.pending = nil
			s.hasPending = false
		}
		ev := s.armed
		s.mu.Unlock()

		if ev == nil {
			s.mu.Lock()
			startGen := s.gen
			s.mu.Unlock()

			got, err := s.store.Earliest(ctx)
			if err != nil {
				s.log.Error("earliest lookup failed", logx.Err(err))
				return fmt.Errorf("earliest: %w", err)
			}

			s.mu.Lock()
			if s.gen != startGen {
				// A restart landed mid-lookup. The result may predate a
				// delete or miss an insert; throw it away and re-evaluate
				// from the restart's state.
				s.mu.Unlock()
				continue
			}
			if got != nil {
				s.armed = got
				ev = got
			}
			s.mu.Unlock()
		}

		if ev == nil {
			// IDLE: block until some mutation wakes us.
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-s.kick:
			}
			continue
		}

		// ARMED: sleep until the deadline, preemptible by Restart.
		wait := ev.Deadline.Sub(s.now())
		s.log.Debug("armed", logx.Int64("id", ev.ID), logx.Duration("wait", wait))
		if wait > 0 {
			t := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				t.Stop()
				return ctx.Err()
			case <-s.kick:
				t.Stop()
				continue
			case <-t.C:
			}
			// A restart may have landed between the timer firing and
			// here; it wins, firing has not begun yet.
			select {
			case <-s.kick:
				continue
			default:
			}
		} else {
			// Already due (typically after downtime). Fire immediately,
			// but let a restart that raced in win first.
			select {
			case <-s.kick:
				continue
			default:
			}
		}

		// FIRING is a short, non-preemptible critical section:
		// delete-then-send guarantees at-most-once delivery even if the
		// process dies mid-send.
		if err := s.fire(ctx, *ev); err != nil {
			s.log.Error("fire cycle failed", logx.Int64("id", ev.ID), logx.Err(err))
			return err
		}

		s.mu.Lock()
		if s.armed != nil && s.armed.ID == ev.ID {
			s.armed = nil
		}
		s.mu.Unlock()
	}
}

func (s *Service) fire(ctx context.Context, ev Event) error {
	late := s.now().Sub(ev.Deadline)

	if err := s.store.Delete(ctx, ev.ID); err != nil {
		return fmt.Errorf("delete fired event %d: %w", ev.ID, err)
	}

	if maxStale := s.maxStaleness(); maxStale > 0 && late > maxStale {
		s.log.Info("event skipped as stale",
			logx.Int64("id", ev.ID), logx.Duration("late", late))
	} else {
		if err := s.send.Send(ctx, ev); err != nil {
			// The sender is responsible for recovering delivery failures;
			// anything that still escapes must not take the loop down.
			s.log.Warn("delivery failed", logx.Int64("id", ev.ID), logx.Err(err))
		} else {
			s.log.Debug("event fired", logx.Int64("id", ev.ID), logx.Duration("late", late))
		}
	}

	// The successor is a plain new row. It is not armed here; the next
	// IDLE->ARMED transition picks it up through Earliest like any other.
	if next, ok := NextDeadline(ev); ok {
		succ := ev
		succ.ID = 0
		succ.CreatedAt = s.now()
		succ.Deadline = next
		id, err := s.store.Insert(ctx, succ)
		if err != nil {
			return fmt.Errorf("insert successor for event %d: %w", ev.ID, err)
		}
		s.log.Debug("recurring event rescheduled",
			logx.Int64("fired", ev.ID), logx.Int64("next", id), logx.Time("deadline", next))
	}
	return nil
}

func (s *Service) maxStaleness() time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.MaxStaleness
}

func (s *Service) name() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.cfg.Name
}
