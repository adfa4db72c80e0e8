package sched

import (
	"context"

	logx "tickbot/pkg/logx"
)

// Owner-scoped query/cancel surface used by the command layer.
//
// Display caps (e.g. "show only the first 10") belong to the caller;
// List always returns everything the owner has, ascending by deadline.

func (s *Service) List(ctx context.Context, ownerID int64) ([]Event, error) {
	return s.store.List(ctx, ownerID)
}

// CancelOne deletes the event iff it is owned by ownerID. The second call on
// the same id is a no-op, not an error. If the cancelled event is the one the
// loop is sleeping on, the sleep is preempted and the loop re-arms from the
// store.
func (s *Service) CancelOne(ctx context.Context, ownerID, id int64) (bool, error) {
	ok, err := s.store.DeleteOwned(ctx, ownerID, id)
	if err != nil || !ok {
		return false, err
	}
	if armedID, armed := s.ArmedID(); armed && armedID == id {
		s.Restart(nil)
	}
	s.log.Debug("event cancelled", logx.Int64("id", id), logx.Int64("owner", ownerID))
	return true, nil
}

// CancelAll deletes every event owned by ownerID and returns the removed ids.
func (s *Service) CancelAll(ctx context.Context, ownerID int64) ([]int64, error) {
	ids, err := s.store.DeleteAll(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	if armedID, armed := s.ArmedID(); armed {
		for _, id := range ids {
			if id == armedID {
				s.Restart(nil)
				break
			}
		}
	}
	if len(ids) > 0 {
		s.log.Debug("events cleared", logx.Int64("owner", ownerID), logx.Int("count", len(ids)))
	}
	return ids, nil
}
